package repository

import (
	"context"
	"testing"
	"time"

	"lottoinsight/internal/model"
	"lottoinsight/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPurchase(txID string, userID, predictionID int64, status string, key *string) *model.Purchase {
	return &model.Purchase{
		TransactionID:  txID,
		UserID:         userID,
		PredictionID:   predictionID,
		PaymentStatus:  status,
		AmountCents:    200,
		PaymentMethod:  model.PaymentMethodWallet,
		EntitlementKey: key,
	}
}

func TestPurchaseRepository_FindEntitling(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testutil.NewDB(t))

	got, err := repo.FindEntitling(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Create(ctx, nil, newPurchase("P1", 1, 10, model.PurchaseStatusPending, nil)))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("P2", 1, 10, model.PurchaseStatusFailed, nil)))
	got, err = repo.FindEntitling(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, got, "pending and failed purchases do not entitle")

	require.NoError(t, repo.Create(ctx, nil, newPurchase("T1", 1, 10, model.PurchaseStatusTrial, model.TrialEntitlementKey(1, 10))))
	got, err = repo.FindEntitling(ctx, nil, 1, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T1", got.TransactionID)

	require.NoError(t, repo.Create(ctx, nil, newPurchase("C1", 1, 10, model.PurchaseStatusCompleted, model.PaidEntitlementKey(1, 10))))
	got, err = repo.FindEntitling(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "C1", got.TransactionID, "completed wins over trial")
}

func TestPurchaseRepository_EntitlementKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, nil, newPurchase("C1", 1, 10, model.PurchaseStatusCompleted, model.PaidEntitlementKey(1, 10))))
	err := repo.Create(ctx, nil, newPurchase("C2", 1, 10, model.PurchaseStatusCompleted, model.PaidEntitlementKey(1, 10)))
	assert.ErrorIs(t, err, ErrDuplicate)

	// nil keys never collide
	require.NoError(t, repo.Create(ctx, nil, newPurchase("G1", 1, 10, model.PurchaseStatusPending, nil)))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("G2", 1, 10, model.PurchaseStatusPending, nil)))

	err = repo.UpdateStatus(ctx, nil, "G1", model.PurchaseStatusPending, model.PurchaseStatusCompleted, map[string]interface{}{
		"entitlement_key": *model.PaidEntitlementKey(1, 10),
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPurchaseRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("P1", 1, 10, model.PurchaseStatusPending, nil)))

	tests := []struct {
		name     string
		from, to string
		want     error
	}{
		{"illegal transition", model.PurchaseStatusPending, model.PurchaseStatusRefunded, ErrPurchaseStatusInvalid},
		{"stale from", model.PurchaseStatusCompleted, model.PurchaseStatusRefunded, ErrPurchaseStatusInvalid},
		{"pending to completed", model.PurchaseStatusPending, model.PurchaseStatusCompleted, nil},
		{"already moved", model.PurchaseStatusPending, model.PurchaseStatusFailed, ErrPurchaseStatusInvalid},
		{"completed to refunded", model.PurchaseStatusCompleted, model.PurchaseStatusRefunded, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.UpdateStatus(ctx, nil, "P1", tt.from, tt.to, nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := repo.GetByTransactionID(ctx, nil, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusRefunded, got.PaymentStatus)

	_, err = repo.GetByTransactionID(ctx, nil, "missing")
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestPurchaseRepository_MarkViewedFirstOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testutil.NewDB(t))
	p := newPurchase("C1", 1, 10, model.PurchaseStatusCompleted, nil)
	require.NoError(t, repo.Create(ctx, nil, p))

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first, err := repo.MarkViewed(ctx, nil, p.ID, at)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = repo.MarkViewed(ctx, nil, p.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, first)

	got, err := repo.GetByTransactionID(ctx, nil, "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.DownloadCount)
	require.NotNil(t, got.LastDownloadedAt)
	assert.True(t, got.LastDownloadedAt.Equal(at.Add(time.Hour)))
}

func TestPurchaseRepository_TotalsByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("A", 1, 10, model.PurchaseStatusCompleted, nil)))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("B", 2, 10, model.PurchaseStatusCompleted, nil)))
	require.NoError(t, repo.Create(ctx, nil, newPurchase("C", 3, 10, model.PurchaseStatusPending, nil)))

	totals, err := repo.TotalsByStatus(ctx)
	require.NoError(t, err)
	byStatus := map[string]StatusTotal{}
	for _, tot := range totals {
		byStatus[tot.PaymentStatus] = tot
	}
	assert.Equal(t, int64(2), byStatus[model.PurchaseStatusCompleted].Count)
	assert.Equal(t, int64(400), byStatus[model.PurchaseStatusCompleted].AmountCents)
	assert.Equal(t, int64(1), byStatus[model.PurchaseStatusPending].Count)
}

func seedWallet(t *testing.T, db *gorm.DB, userID int64) (*WalletRepository, *model.Wallet) {
	t.Helper()
	repo := NewWalletRepository(db)
	w, err := repo.GetOrCreate(context.Background(), nil, userID)
	require.NoError(t, err)
	return repo, w
}

func TestWalletRepository_Apply(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo, w := seedWallet(t, db, 1)

	require.NoError(t, repo.Apply(ctx, nil, 1, w.Version, Delta{Balance: 500, Deposited: 500}))

	t.Run("stale version", func(t *testing.T) {
		err := repo.Apply(ctx, nil, 1, w.Version, Delta{Balance: 100})
		assert.ErrorIs(t, err, ErrOptimisticLock)
	})

	t.Run("overdraw", func(t *testing.T) {
		err := repo.Apply(ctx, nil, 1, w.Version+1, Delta{Balance: -501})
		assert.ErrorIs(t, err, ErrBalanceNotEnough)
	})

	got, err := repo.GetByUserID(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Balance)
	assert.Equal(t, int64(500), got.TotalDeposited)
	assert.Equal(t, w.Version+1, got.Version)

	_, err = repo.GetByUserID(ctx, nil, 2)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestWalletRepository_ApplyKeepsHeldFundsReserved(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo, w := seedWallet(t, db, 1)

	require.NoError(t, repo.Apply(ctx, nil, 1, w.Version, Delta{Balance: 500, Deposited: 500}))
	require.NoError(t, repo.Apply(ctx, nil, 1, w.Version+1, Delta{Held: 400}))

	assert.ErrorIs(t, repo.Apply(ctx, nil, 1, w.Version+2, Delta{Balance: -101}), ErrBalanceNotEnough)
	assert.ErrorIs(t, repo.Apply(ctx, nil, 1, w.Version+2, Delta{Held: 101}), ErrBalanceNotEnough)
	require.NoError(t, repo.Apply(ctx, nil, 1, w.Version+2, Delta{Balance: -400, Held: -400, Withdrawn: 400}))

	got, err := repo.GetByUserID(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, int64(0), got.HeldAmount)
	assert.Equal(t, int64(100), got.Available())
}

func TestWalletRepository_GetOrCreateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	_, first := seedWallet(t, db, 7)
	_, second := seedWallet(t, db, 7)
	assert.Equal(t, first.ID, second.ID)
}

func TestTransactionRepository_SettleStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.NewDB(t))
	entry := &model.WalletTransaction{
		EntryNo: "W1", WalletID: 1, UserID: 1,
		Type: model.TxTypeWithdrawal, Amount: 100, Status: model.TxStatusPending,
	}
	require.NoError(t, repo.Create(ctx, nil, entry))

	require.NoError(t, repo.SettleStatus(ctx, nil, "W1", model.TxStatusCompleted))
	assert.ErrorIs(t, repo.SettleStatus(ctx, nil, "W1", model.TxStatusCancelled), ErrTransactionStatusInvalid)

	got, err := repo.GetByEntryNo(ctx, nil, "W1")
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusCompleted, got.Status)
	assert.Equal(t, int64(100), got.Amount)

	missing, err := repo.GetByReference(ctx, 1, model.TxTypeRefund, "none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTrialGrantRepository_OnePerDay(t *testing.T) {
	ctx := context.Background()
	repo := NewTrialGrantRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, nil, &model.TrialGrant{UserID: 1, Day: "2026-03-10", PredictionID: 5}))
	err := repo.Create(ctx, nil, &model.TrialGrant{UserID: 1, Day: "2026-03-10", PredictionID: 6})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, repo.Create(ctx, nil, &model.TrialGrant{UserID: 1, Day: "2026-03-11", PredictionID: 6}))
	require.NoError(t, repo.Create(ctx, nil, &model.TrialGrant{UserID: 2, Day: "2026-03-10", PredictionID: 5}))

	n, err := repo.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUserRepository_ListSMSSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewDB(t))
	users := []*model.User{
		{Name: "a", Email: "a@x.com", PasswordHash: "h", Role: model.RoleUser, SelectedLottery: "pick3", SMSOptIn: true, Phone: "+15550001"},
		{Name: "b", Email: "b@x.com", PasswordHash: "h", Role: model.RoleUser, SelectedLottery: "pick3", SMSOptIn: false, Phone: "+15550002"},
		{Name: "c", Email: "c@x.com", PasswordHash: "h", Role: model.RoleUser, SelectedLottery: "pick3", SMSOptIn: true},
		{Name: "d", Email: "d@x.com", PasswordHash: "h", Role: model.RoleUser, SelectedLottery: "pick4", SMSOptIn: true, Phone: "+15550004"},
	}
	for _, u := range users {
		require.NoError(t, repo.Create(ctx, nil, u))
	}
	assert.ErrorIs(t, repo.Create(ctx, nil, &model.User{Name: "dup", Email: "a@x.com", PasswordHash: "h", Role: model.RoleUser}), ErrDuplicate)

	subs, err := repo.ListSMSSubscribers(ctx, "pick3")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "a@x.com", subs[0].Email)
}
