package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"
	"lottoinsight/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PurchaseService struct {
	db             *gorm.DB
	cfg            *config.Config
	log            *logrus.Logger
	wallet         *WalletService
	now            func() time.Time
	purchaseRepo   *repository.PurchaseRepository
	predictionRepo *repository.PredictionRepository
}

func NewPurchaseService(db *gorm.DB, wallet *WalletService, cfg *config.Config, log *logrus.Logger) *PurchaseService {
	return &PurchaseService{
		db:             db,
		cfg:            cfg,
		log:            log,
		wallet:         wallet,
		now:            time.Now,
		purchaseRepo:   repository.NewPurchaseRepository(db),
		predictionRepo: repository.NewPredictionRepository(db),
	}
}

type PurchaseRequest struct {
	UserID        int64
	LotteryCode   string
	PredictionID  int64
	PaymentMethod string
}

type PurchaseResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
	PaymentMethod string `json:"payment_method"`
	BalanceCents  *int64 `json:"balance_cents,omitempty"`
}

// Purchase buys a prediction. Wallet purchases debit the ledger and create
// the completed Purchase in one DB transaction; gateway purchases start as
// pending and wait for the gateway callback.
func (s *PurchaseService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	switch req.PaymentMethod {
	case model.PaymentMethodWallet, model.PaymentMethodGatewayA, model.PaymentMethodGatewayB:
	default:
		return nil, invalid("payment_method", "must be one of wallet, gateway-a, gateway-b")
	}

	prediction, err := s.predictionRepo.GetByID(ctx, nil, req.PredictionID)
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	if !prediction.IsActive {
		return nil, ErrPredictionNotFound
	}
	if req.LotteryCode != "" && lottery.NormalizeCode(req.LotteryCode) != lottery.NormalizeCode(prediction.LotteryCode) {
		return nil, ErrLotteryMismatch
	}

	existing, err := s.purchaseRepo.FindEntitling(ctx, nil, req.UserID, prediction.ID)
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyPurchased
	}

	if model.IsGatewayMethod(req.PaymentMethod) {
		return s.startGatewayPurchase(ctx, req, prediction)
	}
	return s.walletPurchase(ctx, req, prediction)
}

func (s *PurchaseService) walletPurchase(ctx context.Context, req *PurchaseRequest, prediction *model.Prediction) (*PurchaseResult, error) {
	now := s.now()
	purchase := &model.Purchase{
		TransactionID:  idgen.GeneratePurchaseNo(),
		UserID:         req.UserID,
		PredictionID:   prediction.ID,
		PaymentStatus:  model.PurchaseStatusCompleted,
		AmountCents:    prediction.PriceCents,
		PaymentMethod:  model.PaymentMethodWallet,
		EntitlementKey: model.PaidEntitlementKey(req.UserID, prediction.ID),
		PaidAt:         &now,
	}

	var wallet *model.Wallet
	err := s.wallet.WithUserLock(ctx, req.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			existing, err := s.purchaseRepo.FindEntitling(ctx, tx, req.UserID, prediction.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrAlreadyPurchased
			}

			if err := s.purchaseRepo.Create(ctx, tx, purchase); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return ErrAlreadyPurchased
				}
				return fmt.Errorf("create purchase: %w", err)
			}

			if purchase.AmountCents > 0 {
				w, _, err := s.wallet.ApplyInTx(ctx, tx, model.TxTypeDebit, EntryRequest{
					UserID:      req.UserID,
					Amount:      purchase.AmountCents,
					Description: fmt.Sprintf("Prediction %s %s", prediction.LotteryCode, prediction.DrawDate.Format("2006-01-02")),
					Reference:   purchase.TransactionID,
					Metadata:    map[string]interface{}{"prediction_id": prediction.ID},
				})
				if err != nil {
					return err
				}
				wallet = w
			}

			return s.predictionRepo.IncrementPurchaseCount(ctx, tx, prediction.ID)
		})
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientBalance) && !errors.Is(err, ErrAlreadyPurchased) {
			s.log.WithFields(logrus.Fields{"user_id": req.UserID, "prediction_id": prediction.ID}).WithError(err).Error("wallet purchase failed")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"prediction_id":  prediction.ID,
		"transaction_id": purchase.TransactionID,
		"amount":         purchase.AmountCents,
	}).Info("prediction purchased")

	result := &PurchaseResult{
		TransactionID: purchase.TransactionID,
		Status:        purchase.PaymentStatus,
		AmountCents:   purchase.AmountCents,
		PaymentMethod: purchase.PaymentMethod,
	}
	if wallet != nil {
		result.BalanceCents = &wallet.Balance
	}
	return result, nil
}

func (s *PurchaseService) startGatewayPurchase(ctx context.Context, req *PurchaseRequest, prediction *model.Prediction) (*PurchaseResult, error) {
	purchase := &model.Purchase{
		TransactionID: idgen.GeneratePurchaseNo(),
		UserID:        req.UserID,
		PredictionID:  prediction.ID,
		PaymentStatus: model.PurchaseStatusPending,
		AmountCents:   prediction.PriceCents,
		PaymentMethod: req.PaymentMethod,
	}
	if err := s.purchaseRepo.Create(ctx, nil, purchase); err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"prediction_id":  prediction.ID,
		"transaction_id": purchase.TransactionID,
		"method":         req.PaymentMethod,
	}).Info("gateway purchase started")

	return &PurchaseResult{
		TransactionID: purchase.TransactionID,
		Status:        purchase.PaymentStatus,
		AmountCents:   purchase.AmountCents,
		PaymentMethod: purchase.PaymentMethod,
	}, nil
}

// ConfirmGatewayPayment gateway callback: pending -> completed. If the user
// became entitled some other way in the meantime the purchase fails instead,
// so a pair never holds two entitlements.
func (s *PurchaseService) ConfirmGatewayPayment(ctx context.Context, transactionID string) (*model.Purchase, error) {
	purchase, err := s.getPending(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.purchaseRepo.FindEntitling(ctx, tx, purchase.UserID, purchase.PredictionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyPurchased
		}
		err = s.purchaseRepo.UpdateStatus(ctx, tx, transactionID, model.PurchaseStatusPending, model.PurchaseStatusCompleted, map[string]interface{}{
			"paid_at":         now,
			"entitlement_key": *model.PaidEntitlementKey(purchase.UserID, purchase.PredictionID),
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyPurchased
			}
			if errors.Is(err, repository.ErrPurchaseStatusInvalid) {
				return ErrPurchaseNotPending
			}
			return err
		}
		return s.predictionRepo.IncrementPurchaseCount(ctx, tx, purchase.PredictionID)
	})
	if errors.Is(err, ErrAlreadyPurchased) {
		if failErr := s.fail(ctx, transactionID, "already entitled"); failErr != nil {
			return nil, failErr
		}
		return nil, ErrAlreadyPurchased
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"transaction_id": transactionID, "user_id": purchase.UserID}).Info("gateway payment confirmed")
	return s.purchaseRepo.GetByTransactionID(ctx, nil, transactionID)
}

// FailGatewayPayment gateway callback: pending -> failed.
func (s *PurchaseService) FailGatewayPayment(ctx context.Context, transactionID, reason string) error {
	if _, err := s.getPending(ctx, transactionID); err != nil {
		return err
	}
	return s.fail(ctx, transactionID, reason)
}

func (s *PurchaseService) fail(ctx context.Context, transactionID, reason string) error {
	err := s.purchaseRepo.UpdateStatus(ctx, nil, transactionID, model.PurchaseStatusPending, model.PurchaseStatusFailed, map[string]interface{}{
		"refund_reason": reason,
	})
	if errors.Is(err, repository.ErrPurchaseStatusInvalid) {
		return ErrPurchaseNotPending
	}
	if err == nil {
		s.log.WithFields(logrus.Fields{"transaction_id": transactionID, "reason": reason}).Info("gateway purchase failed")
	}
	return err
}

func (s *PurchaseService) getPending(ctx context.Context, transactionID string) (*model.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByTransactionID(ctx, nil, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	if purchase.PaymentStatus != model.PurchaseStatusPending {
		return nil, ErrPurchaseNotPending
	}
	return purchase, nil
}

// FailStalePending fails gateway purchases still pending before the cutoff.
func (s *PurchaseService) FailStalePending(ctx context.Context, before time.Time, limit int) (int, error) {
	purchases, err := s.purchaseRepo.GetStalePending(ctx, before, limit)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, p := range purchases {
		if err := s.fail(ctx, p.TransactionID, "gateway timeout"); err != nil {
			if !errors.Is(err, ErrPurchaseNotPending) {
				s.log.WithField("transaction_id", p.TransactionID).WithError(err).Error("fail stale purchase")
			}
			continue
		}
		failed++
	}
	return failed, nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, userID int64, transactionID string) (*model.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByTransactionID(ctx, nil, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	if purchase.UserID != userID {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

// PurchaseItem purchase with a summary of its prediction.
type PurchaseItem struct {
	*model.Purchase
	LotteryCode string    `json:"lottery_code"`
	DrawDate    time.Time `json:"draw_date"`
	DrawTime    string    `json:"draw_time"`
}

// MyPurchases lists the user's purchases. Purchases whose prediction has
// been deleted are left out.
func (s *PurchaseService) MyPurchases(ctx context.Context, userID int64, page, pageSize int) ([]PurchaseItem, int64, error) {
	purchases, total, err := s.purchaseRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]int64, 0, len(purchases))
	for _, p := range purchases {
		ids = append(ids, p.PredictionID)
	}
	predictions, err := s.predictionRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]PurchaseItem, 0, len(purchases))
	for _, p := range purchases {
		pred, ok := predictions[p.PredictionID]
		if !ok {
			continue
		}
		items = append(items, PurchaseItem{Purchase: p, LotteryCode: pred.LotteryCode, DrawDate: pred.DrawDate, DrawTime: pred.DrawTime})
	}
	return items, total, nil
}

// DeletePurchases administrative remediation by transaction id.
func (s *PurchaseService) DeletePurchases(ctx context.Context, transactionIDs []string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, invalid("transaction_ids", "must not be empty")
	}
	n, err := s.purchaseRepo.DeleteByTransactionIDs(ctx, transactionIDs)
	if err != nil {
		return 0, err
	}
	s.log.WithField("count", n).Warn("purchases deleted by admin")
	return n, nil
}

// RevenueStats revenue counts completed purchases only; trial views are free
// and refunded purchases returned their money.
type RevenueStats struct {
	RevenueCents   int64                    `json:"revenue_cents"`
	CompletedCount int64                    `json:"completed_count"`
	ByStatus       []repository.StatusTotal `json:"by_status"`
}

func (s *PurchaseService) RevenueStats(ctx context.Context) (*RevenueStats, error) {
	totals, err := s.purchaseRepo.TotalsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &RevenueStats{ByStatus: totals}
	for _, t := range totals {
		if t.PaymentStatus == model.PurchaseStatusCompleted {
			stats.RevenueCents = t.AmountCents
			stats.CompletedCount = t.Count
		}
	}
	return stats, nil
}
