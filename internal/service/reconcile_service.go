package service

import (
	"context"

	"lottoinsight/internal/metrics"
	"lottoinsight/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconcileReport result of one reconciliation pass.
type ReconcileReport struct {
	Checked  int     `json:"checked"`
	Repaired int     `json:"repaired"`
	Failed   int     `json:"failed"`
	Drifted  []Drift `json:"drifted,omitempty"`
}

// Drift cached aggregates vs. ledger-derived values for one wallet.
type Drift struct {
	UserID          int64 `json:"user_id"`
	CachedBalance   int64 `json:"cached_balance"`
	LedgerBalance   int64 `json:"ledger_balance"`
	CachedHeld      int64 `json:"cached_held"`
	LedgerHeld      int64 `json:"ledger_held"`
	CachedDeposited int64 `json:"cached_deposited"`
	LedgerDeposited int64 `json:"ledger_deposited"`
}

// LedgerTotals aggregates recomputed from entries.
type LedgerTotals struct {
	Balance   int64
	Held      int64
	Deposited int64
	Withdrawn int64
}

// SumLedger folds entries into the wallet aggregates:
// balance = credits + bonuses + refunds - debits - payments - completed withdrawals,
// held = pending withdrawals.
func SumLedger(entries []*model.WalletTransaction) LedgerTotals {
	var t LedgerTotals
	for _, e := range entries {
		switch e.Type {
		case model.TxTypeCredit, model.TxTypeBonus:
			if e.Status == model.TxStatusCompleted {
				t.Balance += e.Amount
				t.Deposited += e.Amount
			}
		case model.TxTypeRefund:
			if e.Status == model.TxStatusCompleted {
				t.Balance += e.Amount
			}
		case model.TxTypeDebit, model.TxTypePayment:
			if e.Status == model.TxStatusCompleted {
				t.Balance -= e.Amount
			}
		case model.TxTypeWithdrawal:
			switch e.Status {
			case model.TxStatusPending:
				t.Held += e.Amount
			case model.TxStatusCompleted:
				t.Balance -= e.Amount
				t.Withdrawn += e.Amount
			}
		}
	}
	return t
}

// Reconcile recomputes every wallet from its ledger and repairs drift.
func (s *WalletService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	var afterID int64
	const batch = 200

	for {
		wallets, err := s.walletRepo.ListAfter(ctx, afterID, batch)
		if err != nil {
			return report, err
		}
		if len(wallets) == 0 {
			return report, nil
		}
		for _, w := range wallets {
			afterID = w.ID
			report.Checked++
			drift, err := s.ReconcileUser(ctx, w.UserID)
			if err != nil {
				report.Failed++
				s.log.WithField("user_id", w.UserID).WithError(err).Error("reconcile wallet failed")
				continue
			}
			if drift != nil {
				report.Repaired++
				report.Drifted = append(report.Drifted, *drift)
			}
		}
	}
}

// ReconcileUser repairs one wallet; it returns nil when nothing drifted.
func (s *WalletService) ReconcileUser(ctx context.Context, userID int64) (*Drift, error) {
	var drift *Drift
	err := s.WithUserLock(ctx, userID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			wallet, err := s.walletRepo.GetByUserID(ctx, tx, userID)
			if err != nil {
				return err
			}
			entries, err := s.transactionRepo.ListByWallet(ctx, tx, wallet.ID)
			if err != nil {
				return err
			}
			t := SumLedger(entries)
			if t.Balance == wallet.Balance && t.Held == wallet.HeldAmount &&
				t.Deposited == wallet.TotalDeposited && t.Withdrawn == wallet.TotalWithdrawn {
				return nil
			}

			drift = &Drift{
				UserID:          userID,
				CachedBalance:   wallet.Balance,
				LedgerBalance:   t.Balance,
				CachedHeld:      wallet.HeldAmount,
				LedgerHeld:      t.Held,
				CachedDeposited: wallet.TotalDeposited,
				LedgerDeposited: t.Deposited,
			}
			wallet.Balance = t.Balance
			wallet.HeldAmount = t.Held
			wallet.TotalDeposited = t.Deposited
			wallet.TotalWithdrawn = t.Withdrawn
			return s.walletRepo.Overwrite(ctx, tx, wallet)
		})
	})
	if err != nil {
		return nil, err
	}
	if drift != nil {
		metrics.RecordDriftRepaired()
		s.log.WithFields(logrus.Fields{
			"user_id":        userID,
			"cached_balance": drift.CachedBalance,
			"ledger_balance": drift.LedgerBalance,
		}).Warn("wallet drift repaired")
	}
	return drift, nil
}
