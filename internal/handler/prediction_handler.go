package handler

import (
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/service"
	"lottoinsight/pkg/money"
	"lottoinsight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListPredictions GET /api/v1/lotteries/:code/predictions
func (h *Handler) ListPredictions(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.Prediction.List(c.Request.Context(), c.Param("code"), false, page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": list, "total": total})
}

// GetPredictionDetails GET /api/v1/lotteries/:code/predictions/:id
//
// A denial is a normal outcome: it answers CodeEntitlementDenied with the
// reason and no numbers.
func (h *Handler) GetPredictionDetails(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	details, err := h.svc.Access.GetPredictionDetails(c.Request.Context(), currentUserID(c), c.Param("code"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !details.Decision.Granted {
		response.ErrorWithData(c, response.CodeEntitlementDenied, details.Decision.Message, gin.H{
			"reason":     details.Decision.Reason,
			"prediction": details.Prediction,
		})
		return
	}
	response.Success(c, details)
}

type PurchaseRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=wallet gateway-a gateway-b"`
}

// PurchasePrediction POST /api/v1/lotteries/:code/predictions/:id/purchase
func (h *Handler) PurchasePrediction(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Purchase.Purchase(c.Request.Context(), &service.PurchaseRequest{
		UserID:        currentUserID(c),
		LotteryCode:   c.Param("code"),
		PredictionID:  id,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// ============================================================
// Admin
// ============================================================

type PredictionRequest struct {
	LotteryCode string           `json:"lottery_code" binding:"required"`
	DrawDate    string           `json:"draw_date" binding:"required"`
	DrawTime    string           `json:"draw_time" binding:"required"`
	NonViable   NumberPayload    `json:"non_viable"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
	Notes       string           `json:"notes" binding:"max=2000"`
}

// NumberPayload per-kind numbers; secondary only for two-range games.
type NumberPayload struct {
	Primary   []int `json:"primary"`
	Secondary []int `json:"secondary"`
}

func (p NumberPayload) set() lottery.NumberSet {
	return lottery.NumberSet{Primary: p.Primary, Secondary: p.Secondary}
}

func (r *PredictionRequest) input() (*service.PredictionInput, error) {
	in := &service.PredictionInput{
		LotteryCode: r.LotteryCode,
		DrawDate:    r.DrawDate,
		DrawTime:    r.DrawTime,
		NonViable:   r.NonViable.set(),
		IsActive:    r.IsActive,
		Notes:       r.Notes,
	}
	if r.Price != nil {
		cents, err := money.ToCents(*r.Price)
		if err != nil {
			return nil, &service.ValidationError{Fields: map[string]string{"price": err.Error()}}
		}
		in.PriceCents = &cents
	}
	return in, nil
}

// CreatePrediction POST /api/v1/admin/predictions
func (h *Handler) CreatePrediction(c *gin.Context) {
	var req PredictionRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.svc.Prediction.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePrediction PUT /api/v1/admin/predictions/:id
func (h *Handler) UpdatePrediction(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req PredictionRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.svc.Prediction.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

// AdminGetPrediction GET /api/v1/admin/predictions/:id
func (h *Handler) AdminGetPrediction(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Prediction.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

// AdminListPredictions GET /api/v1/admin/predictions?lottery=
func (h *Handler) AdminListPredictions(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.Prediction.List(c.Request.Context(), c.Query("lottery"), true, page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": list, "total": total})
}

type ActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetPredictionActive PATCH /api/v1/admin/predictions/:id/active
func (h *Handler) SetPredictionActive(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req ActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Prediction.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

type AccuracyRequest struct {
	Accuracy *float64 `json:"accuracy" binding:"required,gte=0,lte=100"`
}

// SetPredictionAccuracy PATCH /api/v1/admin/predictions/:id/accuracy
func (h *Handler) SetPredictionAccuracy(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req AccuracyRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Prediction.SetAccuracy(c.Request.Context(), id, *req.Accuracy)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePrediction DELETE /api/v1/admin/predictions/:id
func (h *Handler) DeletePrediction(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Prediction.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// ============================================================
// Results
// ============================================================

type ResultRequest struct {
	LotteryCode string           `json:"lottery_code" binding:"required"`
	DrawDate    string           `json:"draw_date" binding:"required"`
	Winning     NumberPayload    `json:"winning"`
	Jackpot     *decimal.Decimal `json:"jackpot"`
}

// RecordResult POST /api/v1/admin/results
func (h *Handler) RecordResult(c *gin.Context) {
	var req ResultRequest
	if !bindJSON(c, &req) {
		return
	}
	in := &service.ResultInput{LotteryCode: req.LotteryCode, DrawDate: req.DrawDate, Winning: req.Winning.set()}
	if req.Jackpot != nil {
		cents, err := money.ToCents(*req.Jackpot)
		if err != nil {
			h.fail(c, &service.ValidationError{Fields: map[string]string{"jackpot": err.Error()}})
			return
		}
		in.JackpotCents = cents
	}
	res, err := h.svc.Result.Record(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// ListResults GET /api/v1/lotteries/:code/results
func (h *Handler) ListResults(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.Result.List(c.Request.Context(), c.Param("code"), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": list, "total": total})
}
