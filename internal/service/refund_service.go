package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"
	"lottoinsight/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RefundService struct {
	db           *gorm.DB
	cfg          *config.Config
	log          *logrus.Logger
	wallet       *WalletService
	purchaseRepo *repository.PurchaseRepository
}

func NewRefundService(db *gorm.DB, wallet *WalletService, cfg *config.Config, log *logrus.Logger) *RefundService {
	return &RefundService{
		db:           db,
		cfg:          cfg,
		log:          log,
		wallet:       wallet,
		purchaseRepo: repository.NewPurchaseRepository(db),
	}
}

type RefundRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Reason        string `json:"reason" binding:"max=256"`
}

type RefundResponse struct {
	RefundNo      string `json:"refund_no,omitempty"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

// Refund moves a completed purchase to refunded and releases its
// entitlement. Wallet purchases get an offsetting refund entry; the debit
// entry is never touched. Refunding twice returns the first outcome.
func (s *RefundService) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	purchase, err := s.purchaseRepo.GetByTransactionID(ctx, nil, req.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("load purchase: %w", err)
	}

	if purchase.PaymentStatus == model.PurchaseStatusRefunded {
		return s.alreadyRefunded(purchase), nil
	}
	if purchase.PaymentStatus != model.PurchaseStatusCompleted {
		return nil, ErrRefundNotAllowed
	}

	refundNo := idgen.GenerateRefundNo()
	now := time.Now()

	err = s.wallet.WithUserLock(ctx, purchase.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			err := s.purchaseRepo.UpdateStatus(ctx, tx, req.TransactionID, model.PurchaseStatusCompleted, model.PurchaseStatusRefunded, map[string]interface{}{
				"refund_reason":   req.Reason,
				"refunded_at":     now,
				"entitlement_key": nil,
			})
			if err != nil {
				return err
			}

			if purchase.PaymentMethod != model.PaymentMethodWallet || purchase.AmountCents == 0 {
				return nil
			}
			_, _, err = s.wallet.ApplyInTx(ctx, tx, model.TxTypeRefund, EntryRequest{
				UserID:      purchase.UserID,
				Amount:      purchase.AmountCents,
				Description: fmt.Sprintf("Refund %s", refundNo),
				Reference:   purchase.TransactionID,
				Metadata:    map[string]interface{}{"refund_no": refundNo, "reason": req.Reason},
			})
			return err
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseStatusInvalid) {
			fresh, getErr := s.purchaseRepo.GetByTransactionID(ctx, nil, req.TransactionID)
			if getErr == nil && fresh.PaymentStatus == model.PurchaseStatusRefunded {
				return s.alreadyRefunded(fresh), nil
			}
			return nil, ErrRefundNotAllowed
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": req.TransactionID,
		"refund_no":      refundNo,
		"user_id":        purchase.UserID,
		"amount":         purchase.AmountCents,
	}).Info("purchase refunded")

	return &RefundResponse{
		RefundNo:      refundNo,
		TransactionID: purchase.TransactionID,
		AmountCents:   purchase.AmountCents,
		Status:        model.PurchaseStatusRefunded,
	}, nil
}

func (s *RefundService) alreadyRefunded(p *model.Purchase) *RefundResponse {
	return &RefundResponse{
		TransactionID: p.TransactionID,
		AmountCents:   p.AmountCents,
		Status:        model.PurchaseStatusRefunded,
		Message:       "already refunded",
	}
}
