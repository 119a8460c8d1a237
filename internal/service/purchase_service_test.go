package service

import (
	"testing"
	"time"

	"lottoinsight/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walletBuy(u *model.User, p *model.Prediction) *PurchaseRequest {
	return &PurchaseRequest{UserID: u.ID, LotteryCode: p.LotteryCode, PredictionID: p.ID, PaymentMethod: model.PaymentMethodWallet}
}

func TestPurchase_ScenarioC_WalletDebit(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	cheap := e.prediction("powerball", []int{1, 2, 3}, 200)
	pricey := e.prediction("powerball", []int{4, 5, 6}, 1000)
	e.deposit(u.ID, 500)

	res, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, cheap))
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusCompleted, res.Status)
	require.NotNil(t, res.BalanceCents)
	assert.Equal(t, int64(300), *res.BalanceCents)

	assert.Equal(t, int64(1), e.count(&model.Purchase{}, "user_id = ? AND payment_status = ?", u.ID, model.PurchaseStatusCompleted))
	assert.Equal(t, int64(1), e.count(&model.WalletTransaction{}, "user_id = ? AND type = ?", u.ID, model.TxTypeDebit))
	assert.Equal(t, int64(1), e.reloadPrediction(cheap.ID).PurchaseCount)

	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, pricey))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := e.c.Wallet.Balance(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
	assert.Equal(t, int64(1), e.count(&model.Purchase{}, "user_id = ?", u.ID))
	assert.Equal(t, int64(0), e.reloadPrediction(pricey.ID).PurchaseCount)
}

func TestPurchase_Rejections(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("pick3", []int{1}, 100)
	e.deposit(u.ID, 1000)

	_, err := e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "pick4", PredictionID: p.ID, PaymentMethod: model.PaymentMethodWallet})
	assert.ErrorIs(t, err, ErrLotteryMismatch)

	_, err = e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "pick3", PredictionID: p.ID, PaymentMethod: "cash"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "payment_method")

	_, err = e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "pick3", PredictionID: 999, PaymentMethod: model.PaymentMethodWallet})
	assert.ErrorIs(t, err, ErrPredictionNotFound)

	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	require.NoError(t, err)
	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	assert.ErrorIs(t, err, ErrAlreadyPurchased)

	balance, err := e.c.Wallet.Balance(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestPurchase_TrialHolderCannotBuy(t *testing.T) {
	e := newTestEnv(t)
	e.setNow(day1)
	u := e.user("p@example.com", "pick3")
	p := e.prediction("pick3", []int{1}, 100)
	e.deposit(u.ID, 1000)

	_, err := e.c.Access.GetPredictionDetails(e.ctx, u.ID, "pick3", p.ID)
	require.NoError(t, err)

	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	assert.ErrorIs(t, err, ErrAlreadyPurchased)
}

func TestPurchase_FreePredictionNeedsNoBalance(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("fantasy5", []int{1}, 0)

	res, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusCompleted, res.Status)
	assert.Nil(t, res.BalanceCents)
	assert.Empty(t, e.entries(u.ID))
}

func TestPurchase_GatewayLifecycle(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("powerball", []int{1}, 200)

	res, err := e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "powerball", PredictionID: p.ID, PaymentMethod: model.PaymentMethodGatewayA})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusPending, res.Status)
	assert.Equal(t, int64(0), e.reloadPrediction(p.ID).PurchaseCount)

	// pending does not entitle
	d, err := e.c.Access.Decide(e.ctx, u, p)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoLotterySelected, d.Reason)

	confirmed, err := e.c.Purchase.ConfirmGatewayPayment(e.ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusCompleted, confirmed.PaymentStatus)
	assert.NotNil(t, confirmed.PaidAt)
	assert.Equal(t, int64(1), e.reloadPrediction(p.ID).PurchaseCount)

	_, err = e.c.Purchase.ConfirmGatewayPayment(e.ctx, res.TransactionID)
	assert.ErrorIs(t, err, ErrPurchaseNotPending)
	assert.ErrorIs(t, e.c.Purchase.FailGatewayPayment(e.ctx, res.TransactionID, "late"), ErrPurchaseNotPending)
}

func TestPurchase_GatewayConfirmAfterWalletBuyFails(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("powerball", []int{1}, 200)
	e.deposit(u.ID, 500)

	pending, err := e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "powerball", PredictionID: p.ID, PaymentMethod: model.PaymentMethodGatewayB})
	require.NoError(t, err)
	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	require.NoError(t, err)

	_, err = e.c.Purchase.ConfirmGatewayPayment(e.ctx, pending.TransactionID)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)

	got, err := e.c.Purchase.GetPurchase(e.ctx, u.ID, pending.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusFailed, got.PaymentStatus)
	assert.Equal(t, int64(1), e.count(&model.Purchase{}, "user_id = ? AND payment_status = ?", u.ID, model.PurchaseStatusCompleted))
}

func TestPurchase_FailStalePending(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("powerball", []int{1}, 200)

	res, err := e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "powerball", PredictionID: p.ID, PaymentMethod: model.PaymentMethodGatewayA})
	require.NoError(t, err)

	n, err := e.c.Purchase.FailStalePending(e.ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.c.Purchase.FailStalePending(e.ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.c.Purchase.GetPurchase(e.ctx, u.ID, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusFailed, got.PaymentStatus)
}

func TestPurchase_GetPurchaseIsScopedToOwner(t *testing.T) {
	e := newTestEnv(t)
	owner := e.user("a@example.com", "")
	other := e.user("b@example.com", "")
	p := e.prediction("fantasy5", []int{1}, 0)

	res, err := e.c.Purchase.Purchase(e.ctx, walletBuy(owner, p))
	require.NoError(t, err)

	_, err = e.c.Purchase.GetPurchase(e.ctx, other.ID, res.TransactionID)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestPurchase_MyPurchasesSkipsDeletedPredictions(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	kept := e.prediction("fantasy5", []int{1}, 0)
	gone := e.prediction("fantasy5", []int{2}, 0)

	_, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, kept))
	require.NoError(t, err)
	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, gone))
	require.NoError(t, err)
	require.NoError(t, e.c.Prediction.Delete(e.ctx, gone.ID))

	items, _, err := e.c.Purchase.MyPurchases(e.ctx, u.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].PredictionID)
	assert.Equal(t, "fantasy5", items[0].LotteryCode)
}

func TestPurchase_DeleteAndRevenue(t *testing.T) {
	e := newTestEnv(t)
	e.setNow(day1)
	u := e.user("p@example.com", "powerball")
	a := e.prediction("powerball", []int{1}, 200)
	b := e.prediction("powerball", []int{2}, 200)
	c := e.prediction("powerball", []int{3}, 200)
	e.deposit(u.ID, 1000)

	_, err := e.c.Access.GetPredictionDetails(e.ctx, u.ID, "powerball", a.ID)
	require.NoError(t, err)
	paid, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, b))
	require.NoError(t, err)
	refunded, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, c))
	require.NoError(t, err)
	_, err = e.c.Refund.Refund(e.ctx, &RefundRequest{TransactionID: refunded.TransactionID})
	require.NoError(t, err)

	stats, err := e.c.Purchase.RevenueStats(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), stats.RevenueCents)
	assert.Equal(t, int64(1), stats.CompletedCount)
	assert.Len(t, stats.ByStatus, 3)

	_, err = e.c.Purchase.DeletePurchases(e.ctx, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	n, err := e.c.Purchase.DeletePurchases(e.ctx, []string{paid.TransactionID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRefund_WalletPurchase(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("powerball", []int{1}, 200)
	e.deposit(u.ID, 500)

	res, err := e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	require.NoError(t, err)

	refund, err := e.c.Refund.Refund(e.ctx, &RefundRequest{TransactionID: res.TransactionID, Reason: "draw cancelled"})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusRefunded, refund.Status)
	assert.NotEmpty(t, refund.RefundNo)

	balance, err := e.c.Wallet.Balance(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	// the debit stays; an offsetting refund entry is appended
	entry, err := e.c.Wallet.transactionRepo.GetByReference(e.ctx, u.ID, model.TxTypeRefund, res.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(200), entry.Amount)
	assert.Equal(t, int64(1), e.count(&model.WalletTransaction{}, "user_id = ? AND type = ?", u.ID, model.TxTypeDebit))

	got, err := e.c.Purchase.GetPurchase(e.ctx, u.ID, res.TransactionID)
	require.NoError(t, err)
	assert.Nil(t, got.EntitlementKey)
	assert.Equal(t, "draw cancelled", got.RefundReason)

	again, err := e.c.Refund.Refund(e.ctx, &RefundRequest{TransactionID: res.TransactionID})
	require.NoError(t, err)
	assert.Equal(t, "already refunded", again.Message)
	balance, err = e.c.Wallet.Balance(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	// the entitlement was released so the prediction can be bought again
	_, err = e.c.Purchase.Purchase(e.ctx, walletBuy(u, p))
	assert.NoError(t, err)
}

func TestRefund_OnlyCompleted(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("p@example.com", "")
	p := e.prediction("powerball", []int{1}, 200)

	res, err := e.c.Purchase.Purchase(e.ctx, &PurchaseRequest{UserID: u.ID, LotteryCode: "powerball", PredictionID: p.ID, PaymentMethod: model.PaymentMethodGatewayA})
	require.NoError(t, err)

	_, err = e.c.Refund.Refund(e.ctx, &RefundRequest{TransactionID: res.TransactionID})
	assert.ErrorIs(t, err, ErrRefundNotAllowed)

	_, err = e.c.Refund.Refund(e.ctx, &RefundRequest{TransactionID: "missing"})
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}
