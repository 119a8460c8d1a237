package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than 0")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDepositLimit         = errors.New("deposit exceeds the per-deposit limit")
	ErrBusy                 = errors.New("system busy, please retry")
	ErrAlreadyPurchased     = errors.New("prediction already purchased")
	ErrLotteryMismatch      = errors.New("lottery does not match prediction")
	ErrPredictionNotFound   = errors.New("prediction not found")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrSetupForbidden       = errors.New("admin setup not allowed")
	ErrRefundNotAllowed     = errors.New("purchase status does not allow refund")
	ErrPurchaseNotPending   = errors.New("purchase is not pending")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrResultExists         = errors.New("result already recorded for this drawing")
)

// ValidationError rejected input with per-field detail.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
