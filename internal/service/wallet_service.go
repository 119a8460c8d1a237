package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lottoinsight/internal/config"
	"lottoinsight/internal/infrastructure/lock"
	"lottoinsight/internal/metrics"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"
	"lottoinsight/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ============================================================================
// Wallet ledger
// ============================================================================
//
// Every mutation appends exactly one WalletTransaction and applies the
// matching delta to the Wallet row in the same DB transaction. Mutations for
// one user are serialised by a Redis lock; the wallet version guards against
// writers that bypass the lock.
//
//   credit / bonus   balance += a, deposited += a        completed
//   refund           balance += a                        completed
//   debit / payment  balance -= a                        completed
//   withdrawal       held += a                           pending
//
// Balance only moves for settled entries. Spending is checked against
// balance - held. A pending withdrawal later settles: approve
// (held -= a, balance -= a, withdrawn += a) or reject (held -= a).
// ============================================================================

const walletLockScope = "wallet"

type WalletService struct {
	db              *gorm.DB
	locker          *lock.Locker
	cfg             *config.Config
	log             *logrus.Logger
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *WalletService {
	return &WalletService{
		db:              db,
		locker:          lock.NewLocker(redisClient),
		cfg:             cfg,
		log:             log,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// EntryRequest input of a single ledger append.
type EntryRequest struct {
	UserID      int64
	Amount      int64 // cents, > 0
	Description string
	Reference   string
	Metadata    map[string]interface{}
}

func (s *WalletService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.walletRepo.GetOrCreate(ctx, nil, userID)
}

// Balance reads the authoritative balance; no wallet yet means zero.
func (s *WalletService) Balance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *WalletService) Deposit(ctx context.Context, req EntryRequest) (*model.Wallet, error) {
	if limit := s.cfg.Business.MaxDepositCents; limit > 0 && req.Amount > limit {
		return nil, ErrDepositLimit
	}
	return s.append(ctx, model.TxTypeCredit, req)
}

// Withdraw reserves the amount until an admin settles the request.
func (s *WalletService) Withdraw(ctx context.Context, req EntryRequest) (*model.Wallet, error) {
	return s.append(ctx, model.TxTypeWithdrawal, req)
}

func (s *WalletService) Pay(ctx context.Context, req EntryRequest) (*model.Wallet, error) {
	return s.append(ctx, model.TxTypePayment, req)
}

func (s *WalletService) Bonus(ctx context.Context, req EntryRequest) (*model.Wallet, error) {
	return s.append(ctx, model.TxTypeBonus, req)
}

func (s *WalletService) History(ctx context.Context, userID int64, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *WalletService) PendingWithdrawals(ctx context.Context, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	return s.transactionRepo.ListPendingWithdrawals(ctx, page, pageSize)
}

// WithUserLock runs fn while holding the user's wallet lock. Callers that
// combine a ledger append with other writes (purchases, refunds) use it
// around their own DB transaction and call ApplyInTx inside.
func (s *WalletService) WithUserLock(ctx context.Context, userID int64, fn func() error) error {
	err := s.locker.WithUser(ctx, walletLockScope, userID, uuid.NewString(), fn)
	if errors.Is(err, lock.ErrLockFailed) {
		return ErrBusy
	}
	return err
}

func (s *WalletService) append(ctx context.Context, txType string, req EntryRequest) (*model.Wallet, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var wallet *model.Wallet
	err := s.WithUserLock(ctx, req.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			w, _, err := s.ApplyInTx(ctx, tx, txType, req)
			wallet = w
			return err
		})
	})
	metrics.RecordWalletOp(txType, err)
	if err != nil {
		if !errors.Is(err, ErrInsufficientBalance) {
			s.log.WithFields(logrus.Fields{"user_id": req.UserID, "type": txType}).WithError(err).Warn("wallet append failed")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"type":    txType,
		"amount":  req.Amount,
		"balance": wallet.Balance,
	}).Info("wallet entry appended")
	return wallet, nil
}

// ApplyInTx appends one entry and applies its delta inside tx. The caller
// must hold the user's wallet lock. The returned wallet reflects the change.
func (s *WalletService) ApplyInTx(ctx context.Context, tx *gorm.DB, txType string, req EntryRequest) (*model.Wallet, *model.WalletTransaction, error) {
	if req.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, tx, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load wallet: %w", err)
	}

	delta, status, err := entryDelta(txType, req.Amount)
	if err != nil {
		return nil, nil, err
	}

	if err := s.walletRepo.Apply(ctx, tx, req.UserID, wallet.Version, delta); err != nil {
		switch {
		case errors.Is(err, repository.ErrBalanceNotEnough):
			return nil, nil, ErrInsufficientBalance
		case errors.Is(err, repository.ErrOptimisticLock):
			return nil, nil, ErrBusy
		}
		return nil, nil, fmt.Errorf("apply wallet delta: %w", err)
	}

	var metadata []byte
	if len(req.Metadata) > 0 {
		metadata, err = json.Marshal(req.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal entry metadata: %w", err)
		}
	}

	entry := &model.WalletTransaction{
		EntryNo:       idgen.GenerateEntryNo(),
		WalletID:      wallet.ID,
		UserID:        req.UserID,
		Type:          txType,
		Amount:        req.Amount,
		Status:        status,
		Description:   req.Description,
		Reference:     req.Reference,
		Metadata:      metadata,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance + delta.Balance,
	}
	if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
		return nil, nil, fmt.Errorf("append ledger entry: %w", err)
	}

	wallet.Balance += delta.Balance
	wallet.HeldAmount += delta.Held
	wallet.TotalDeposited += delta.Deposited
	wallet.TotalWithdrawn += delta.Withdrawn
	wallet.Version++
	return wallet, entry, nil
}

func entryDelta(txType string, amount int64) (repository.Delta, string, error) {
	switch txType {
	case model.TxTypeCredit, model.TxTypeBonus:
		return repository.Delta{Balance: amount, Deposited: amount}, model.TxStatusCompleted, nil
	case model.TxTypeRefund:
		return repository.Delta{Balance: amount}, model.TxStatusCompleted, nil
	case model.TxTypeDebit, model.TxTypePayment:
		return repository.Delta{Balance: -amount}, model.TxStatusCompleted, nil
	case model.TxTypeWithdrawal:
		return repository.Delta{Held: amount}, model.TxStatusPending, nil
	}
	return repository.Delta{}, "", fmt.Errorf("unknown ledger entry type %q", txType)
}

// ============================================================================
// Withdrawal settlement
// ============================================================================

func (s *WalletService) ApproveWithdrawal(ctx context.Context, entryNo string) (*model.WalletTransaction, error) {
	return s.settleWithdrawal(ctx, entryNo, model.TxStatusCompleted)
}

func (s *WalletService) RejectWithdrawal(ctx context.Context, entryNo string) (*model.WalletTransaction, error) {
	return s.settleWithdrawal(ctx, entryNo, model.TxStatusCancelled)
}

func (s *WalletService) settleWithdrawal(ctx context.Context, entryNo, toStatus string) (*model.WalletTransaction, error) {
	entry, err := s.transactionRepo.GetByEntryNo(ctx, nil, entryNo)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrWithdrawalNotPending
		}
		return nil, err
	}
	if entry.Type != model.TxTypeWithdrawal || entry.Status != model.TxStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	delta := repository.Delta{Held: -entry.Amount, Balance: -entry.Amount, Withdrawn: entry.Amount}
	if toStatus == model.TxStatusCancelled {
		delta = repository.Delta{Held: -entry.Amount}
	}

	err = s.WithUserLock(ctx, entry.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.transactionRepo.SettleStatus(ctx, tx, entryNo, toStatus); err != nil {
				if errors.Is(err, repository.ErrTransactionStatusInvalid) {
					return ErrWithdrawalNotPending
				}
				return err
			}
			wallet, err := s.walletRepo.GetByUserID(ctx, tx, entry.UserID)
			if err != nil {
				return err
			}
			if err := s.walletRepo.Apply(ctx, tx, entry.UserID, wallet.Version, delta); err != nil {
				if errors.Is(err, repository.ErrOptimisticLock) {
					return ErrBusy
				}
				return fmt.Errorf("settle withdrawal: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	entry.Status = toStatus
	s.log.WithFields(logrus.Fields{
		"user_id":  entry.UserID,
		"entry_no": entryNo,
		"status":   toStatus,
		"amount":   entry.Amount,
	}).Info("withdrawal settled")
	return entry, nil
}
