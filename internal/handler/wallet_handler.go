package handler

import (
	"time"

	"lottoinsight/internal/model"
	"lottoinsight/internal/service"
	"lottoinsight/pkg/money"
	"lottoinsight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletView amounts in dollars.
type WalletView struct {
	UserID         int64           `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	Held           decimal.Decimal `json:"held"`
	Available      decimal.Decimal `json:"available"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func walletView(w *model.Wallet) WalletView {
	return WalletView{
		UserID:         w.UserID,
		Balance:        money.FromCents(w.Balance),
		Held:           money.FromCents(w.HeldAmount),
		Available:      money.FromCents(w.Available()),
		TotalDeposited: money.FromCents(w.TotalDeposited),
		TotalWithdrawn: money.FromCents(w.TotalWithdrawn),
		UpdatedAt:      w.UpdatedAt,
	}
}

type EntryView struct {
	EntryNo       string          `json:"entry_no"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference,omitempty"`
	UserID        int64           `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

func entryViews(entries []*model.WalletTransaction) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView(e))
	}
	return out
}

func entryView(e *model.WalletTransaction) EntryView {
	return EntryView{
		EntryNo:       e.EntryNo,
		Type:          e.Type,
		Status:        e.Status,
		Amount:        money.FromCents(e.Amount),
		BalanceBefore: money.FromCents(e.BalanceBefore),
		BalanceAfter:  money.FromCents(e.BalanceAfter),
		Description:   e.Description,
		Reference:     e.Reference,
		UserID:        e.UserID,
		CreatedAt:     e.CreatedAt,
	}
}

// AmountRequest dollars, at most two decimals.
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=256"`
	Reference   string          `json:"reference" binding:"max=64"`
}

func (r *AmountRequest) entry(userID int64) (service.EntryRequest, error) {
	cents, err := money.ToCents(r.Amount)
	if err != nil {
		return service.EntryRequest{}, err
	}
	return service.EntryRequest{
		UserID:      userID,
		Amount:      cents,
		Description: r.Description,
		Reference:   r.Reference,
	}, nil
}

// GetWallet GET /api/v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	w, err := h.svc.Wallet.GetWallet(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, walletView(w))
}

// WalletHistory GET /api/v1/wallet/transactions
func (h *Handler) WalletHistory(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.Wallet.History(c.Request.Context(), currentUserID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": entryViews(list), "total": total})
}

type walletOp func(*service.WalletService, *gin.Context, service.EntryRequest) (*model.Wallet, error)

func (h *Handler) walletEntry(c *gin.Context, userID int64, op walletOp) {
	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := req.entry(userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	w, err := op(h.svc.Wallet, c, entry)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, walletView(w))
}

// Deposit POST /api/v1/wallet/deposit
func (h *Handler) Deposit(c *gin.Context) {
	h.walletEntry(c, currentUserID(c), func(s *service.WalletService, c *gin.Context, e service.EntryRequest) (*model.Wallet, error) {
		return s.Deposit(c.Request.Context(), e)
	})
}

// Withdraw POST /api/v1/wallet/withdraw; funds are held until an admin settles.
func (h *Handler) Withdraw(c *gin.Context) {
	h.walletEntry(c, currentUserID(c), func(s *service.WalletService, c *gin.Context, e service.EntryRequest) (*model.Wallet, error) {
		return s.Withdraw(c.Request.Context(), e)
	})
}

// Pay POST /api/v1/wallet/pay
func (h *Handler) Pay(c *gin.Context) {
	h.walletEntry(c, currentUserID(c), func(s *service.WalletService, c *gin.Context, e service.EntryRequest) (*model.Wallet, error) {
		return s.Pay(c.Request.Context(), e)
	})
}

// GrantBonus POST /api/v1/admin/users/:id/bonus
func (h *Handler) GrantBonus(c *gin.Context) {
	userID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.User.GetUser(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	h.walletEntry(c, userID, func(s *service.WalletService, c *gin.Context, e service.EntryRequest) (*model.Wallet, error) {
		return s.Bonus(c.Request.Context(), e)
	})
}

// PendingWithdrawals GET /api/v1/admin/withdrawals
func (h *Handler) PendingWithdrawals(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.Wallet.PendingWithdrawals(c.Request.Context(), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": entryViews(list), "total": total})
}

// ApproveWithdrawal POST /api/v1/admin/withdrawals/:entry_no/approve
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	e, err := h.svc.Wallet.ApproveWithdrawal(c.Request.Context(), c.Param("entry_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, entryView(e))
}

// RejectWithdrawal POST /api/v1/admin/withdrawals/:entry_no/reject
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	e, err := h.svc.Wallet.RejectWithdrawal(c.Request.Context(), c.Param("entry_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, entryView(e))
}

// Reconcile POST /api/v1/admin/wallets/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	report, err := h.svc.Wallet.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, report)
}
