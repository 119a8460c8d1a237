package handler

import (
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/service"
	"lottoinsight/pkg/money"
	"lottoinsight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler holds every service the HTTP surface calls.
type Handler struct {
	svc *service.Container
	log *logrus.Logger
}

func NewHandler(svc *service.Container, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ============================================================
// Catalog
// ============================================================

type lotteryView struct {
	lottery.Definition
	Price string `json:"price"`
}

// ListLotteries GET /api/v1/lotteries
func (h *Handler) ListLotteries(c *gin.Context) {
	defs := lottery.All()
	out := make([]lotteryView, 0, len(defs))
	for _, d := range defs {
		out = append(out, lotteryView{Definition: d, Price: money.Format(d.PriceCents)})
	}
	response.Success(c, out)
}

// ============================================================
// Accounts
// ============================================================

type RegisterRequest struct {
	Name            string `json:"name" binding:"required,max=128"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone" binding:"max=32"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	SelectedLottery string `json:"selected_lottery"`
	SMSOptIn        bool   `json:"sms_opt_in"`
}

func (r *RegisterRequest) input() *service.RegisterInput {
	return &service.RegisterInput{
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		Password:        r.Password,
		SelectedLottery: r.SelectedLottery,
		SMSOptIn:        r.SMSOptIn,
	}
}

// Register POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.User.Register(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.User.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// SetupAdmin POST /api/v1/setup/admin, header X-Setup-Secret.
func (h *Handler) SetupAdmin(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.User.BootstrapAdmin(c.Request.Context(), c.GetHeader("X-Setup-Secret"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

// Me GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.svc.User.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":      profile.User,
		"balance":   money.FromCents(profile.BalanceCents),
		"held":      money.FromCents(profile.HeldCents),
		"available": money.FromCents(profile.AvailableCents),
		"trial":     profile.Trial,
	})
}

type SelectLotteryRequest struct {
	LotteryCode string `json:"lottery_code" binding:"required"`
}

// SelectLottery PUT /api/v1/me/lottery
func (h *Handler) SelectLottery(c *gin.Context) {
	var req SelectLotteryRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.User.SelectLottery(c.Request.Context(), currentUserID(c), req.LotteryCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}
