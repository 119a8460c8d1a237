package repository

import (
	"context"
	"errors"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrBalanceNotEnough = errors.New("insufficient balance")
	ErrOptimisticLock   = errors.New("wallet version conflict")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Delta is a change applied to a wallet's aggregates in one statement.
type Delta struct {
	Balance   int64
	Held      int64
	Deposited int64
	Withdrawn int64
}

func (r *WalletRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := orDB(tx, r.db).WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreate lazily creates the wallet on first access. Concurrent creators
// race on the unique user_id index; the loser simply reads the winner's row.
func (r *WalletRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	wallet, err := r.GetByUserID(ctx, tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	err = orDB(tx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&model.Wallet{UserID: userID}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, tx, userID)
}

// Apply adds d to the wallet guarded by the optimistic version, by the
// non-negativity of held amount and by available = balance - held staying
// non-negative. Nothing is written when a guard fails: ErrBalanceNotEnough if
// available funds would go negative, otherwise ErrOptimisticLock.
func (r *WalletRepository) Apply(ctx context.Context, tx *gorm.DB, userID int64, version int, d Delta) error {
	db := orDB(tx, r.db)
	result := db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ? AND version = ? AND held_amount + ? >= 0 AND (balance + ?) - (held_amount + ?) >= 0",
			userID, version, d.Held, d.Balance, d.Held).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", d.Balance),
			"held_amount":     gorm.Expr("held_amount + ?", d.Held),
			"total_deposited": gorm.Expr("total_deposited + ?", d.Deposited),
			"total_withdrawn": gorm.Expr("total_withdrawn + ?", d.Withdrawn),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		wallet, err := r.GetByUserID(ctx, db, userID)
		if err != nil {
			return err
		}
		if (wallet.Balance+d.Balance)-(wallet.HeldAmount+d.Held) < 0 {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}
	return nil
}

// Overwrite replaces the aggregates after reconciliation.
func (r *WalletRepository) Overwrite(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"balance":         w.Balance,
			"held_amount":     w.HeldAmount,
			"total_deposited": w.TotalDeposited,
			"total_withdrawn": w.TotalWithdrawn,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// ListAfter pages through wallets by id for batch jobs.
func (r *WalletRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&wallets).Error
	return wallets, err
}
