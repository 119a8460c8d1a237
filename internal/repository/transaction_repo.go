package repository

import (
	"context"
	"errors"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound      = errors.New("ledger entry not found")
	ErrTransactionStatusInvalid = errors.New("ledger entry status invalid")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	return orDB(tx, r.db).WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByEntryNo(ctx context.Context, tx *gorm.DB, entryNo string) (*model.WalletTransaction, error) {
	var trans model.WalletTransaction
	err := orDB(tx, r.db).WithContext(ctx).Where("entry_no = ?", entryNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetByReference returns nil, nil when no entry carries the reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, userID int64, txType, reference string) (*model.WalletTransaction, error) {
	var trans model.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND reference = ?", userID, txType, reference).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// SettleStatus moves a pending entry to its final status. Only the status
// column changes.
func (r *TransactionRepository) SettleStatus(ctx context.Context, tx *gorm.DB, entryNo, toStatus string) error {
	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.WalletTransaction{}).
		Where("entry_no = ? AND status = ?", entryNo, model.TxStatusPending).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionStatusInvalid
	}
	return nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var transactions []*model.WalletTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WalletTransaction{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ListByWallet every entry of a wallet in append order.
func (r *TransactionRepository) ListByWallet(ctx context.Context, tx *gorm.DB, walletID int64) ([]*model.WalletTransaction, error) {
	var transactions []*model.WalletTransaction
	err := orDB(tx, r.db).WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id ASC").
		Find(&transactions).Error
	return transactions, err
}

func (r *TransactionRepository) ListPendingWithdrawals(ctx context.Context, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var transactions []*model.WalletTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("type = ? AND status = ?", model.TxTypeWithdrawal, model.TxStatusPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&transactions).Error
	return transactions, total, err
}
