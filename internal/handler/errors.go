package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"lottoinsight/internal/service"
	"lottoinsight/pkg/money"
	"lottoinsight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// useJSONFieldNames makes validation errors report json names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// bindJSON binds the body and answers with field detail on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = describe(fe)
			}
			response.FieldError(c, fields)
			return false
		}
		response.ParamError(c, "malformed request body")
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "gte", "gt", "lte", "lt":
		return fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	}
	return "is invalid"
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

// fail maps service errors to business codes. Anything unrecognised is
// logged and answered with a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.FieldError(c, verr.Fields)
	case errors.Is(err, money.ErrPrecision), errors.Is(err, money.ErrNegative):
		response.FieldError(c, map[string]string{"amount": err.Error()})
	case errors.Is(err, service.ErrInvalidAmount):
		response.FieldError(c, map[string]string{"amount": err.Error()})
	case errors.Is(err, service.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrDepositLimit):
		response.BusinessError(c, response.CodeDepositLimit, err.Error())
	case errors.Is(err, service.ErrAlreadyPurchased):
		response.BusinessError(c, response.CodeAlreadyPurchased, err.Error())
	case errors.Is(err, service.ErrLotteryMismatch):
		response.BusinessError(c, response.CodeLotteryMismatch, err.Error())
	case errors.Is(err, service.ErrBusy):
		response.BusinessError(c, response.CodeBusy, err.Error())
	case errors.Is(err, service.ErrRefundNotAllowed):
		response.BusinessError(c, response.CodeRefundFailed, err.Error())
	case errors.Is(err, service.ErrPurchaseNotPending), errors.Is(err, service.ErrWithdrawalNotPending):
		response.BusinessError(c, response.CodePurchaseStatusInvalid, err.Error())
	case errors.Is(err, service.ErrPredictionNotFound),
		errors.Is(err, service.ErrPurchaseNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrResultExists):
		response.Error(c, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, response.CodeUnauthorized, err.Error())
	case errors.Is(err, service.ErrSetupForbidden):
		response.Error(c, response.CodeForbidden, err.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"request_id": c.GetString(ctxRequestID),
			"path":       c.FullPath(),
		}).WithError(err).Error("request failed")
		response.ServerError(c)
	}
}
