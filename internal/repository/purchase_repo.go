package repository

import (
	"context"
	"errors"
	"time"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrPurchaseStatusInvalid = errors.New("purchase status invalid")
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create returns ErrDuplicate when the transaction id or entitlement key is taken.
func (r *PurchaseRepository) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error {
	err := orDB(tx, r.db).WithContext(ctx).Create(purchase).Error
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PurchaseRepository) GetByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := orDB(tx, r.db).WithContext(ctx).Where("transaction_id = ?", transactionID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindEntitling returns the purchase that entitles the user to the
// prediction: a completed one if present, else a trial one, else nil.
func (r *PurchaseRepository) FindEntitling(ctx context.Context, tx *gorm.DB, userID, predictionID int64) (*model.Purchase, error) {
	var purchases []*model.Purchase
	err := orDB(tx, r.db).WithContext(ctx).
		Where("user_id = ? AND prediction_id = ? AND payment_status IN ?",
			userID, predictionID, []string{model.PurchaseStatusCompleted, model.PurchaseStatusTrial}).
		Order("id ASC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}

	var trial *model.Purchase
	for _, p := range purchases {
		if p.PaymentStatus == model.PurchaseStatusCompleted {
			return p, nil
		}
		if trial == nil {
			trial = p
		}
	}
	return trial, nil
}

// UpdateStatus moves a purchase along the state machine; extra columns are
// written in the same statement.
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, transactionID, fromStatus, toStatus string, extra map[string]interface{}) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrPurchaseStatusInvalid
	}

	updates := map[string]interface{}{
		"payment_status": toStatus,
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.Purchase{}).
		Where("transaction_id = ? AND payment_status = ?", transactionID, fromStatus).
		Updates(updates)

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return ErrDuplicate
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseStatusInvalid
	}
	return nil
}

// MarkViewed records a view. It reports true only for the first-ever view
// (download_count 0 -> 1), which is when the prediction counter moves.
func (r *PurchaseRepository) MarkViewed(ctx context.Context, tx *gorm.DB, purchaseID int64, at time.Time) (bool, error) {
	db := orDB(tx, r.db).WithContext(ctx)

	result := db.Model(&model.Purchase{}).
		Where("id = ? AND download_count = 0", purchaseID).
		Updates(map[string]interface{}{
			"download_count":     1,
			"last_downloaded_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	err := db.Model(&model.Purchase{}).
		Where("id = ?", purchaseID).
		Update("last_downloaded_at", at).Error
	return false, err
}

// GetStalePending gateway purchases still pending before the cutoff.
func (r *PurchaseRepository) GetStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Purchase, error) {
	var purchases []*model.Purchase
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND created_at < ?", model.PurchaseStatusPending, before).
		Order("id ASC").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Purchase, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var purchases []*model.Purchase
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&purchases).Error

	return purchases, total, err
}

// DeleteByTransactionIDs administrative remediation only.
func (r *PurchaseRepository) DeleteByTransactionIDs(ctx context.Context, transactionIDs []string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("transaction_id IN ?", transactionIDs).
		Delete(&model.Purchase{})
	return result.RowsAffected, result.Error
}

// StatusTotal aggregate per payment status.
type StatusTotal struct {
	PaymentStatus string `json:"payment_status"`
	Count         int64  `json:"count"`
	AmountCents   int64  `json:"amount_cents"`
}

func (r *PurchaseRepository) TotalsByStatus(ctx context.Context) ([]StatusTotal, error) {
	var totals []StatusTotal
	err := r.db.WithContext(ctx).
		Model(&model.Purchase{}).
		Select("payment_status, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS amount_cents").
		Group("payment_status").
		Order("payment_status").
		Scan(&totals).Error
	return totals, err
}
