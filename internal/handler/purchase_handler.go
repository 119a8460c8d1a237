package handler

import (
	"lottoinsight/internal/service"
	"lottoinsight/pkg/response"

	"github.com/gin-gonic/gin"
)

// MyPurchases GET /api/v1/purchases
func (h *Handler) MyPurchases(c *gin.Context) {
	page, size := pageParams(c)
	items, total, err := h.svc.Purchase.MyPurchases(c.Request.Context(), currentUserID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "total": total})
}

// GetPurchase GET /api/v1/purchases/:txid
func (h *Handler) GetPurchase(c *gin.Context) {
	p, err := h.svc.Purchase.GetPurchase(c.Request.Context(), currentUserID(c), c.Param("txid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"max=256"`
}

// RefundPurchase POST /api/v1/admin/purchases/:txid/refund
func (h *Handler) RefundPurchase(c *gin.Context) {
	var req RefundRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Refund.Refund(c.Request.Context(), &service.RefundRequest{
		TransactionID: c.Param("txid"),
		Reason:        req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// ConfirmGatewayPayment POST /api/v1/admin/purchases/:txid/confirm
func (h *Handler) ConfirmGatewayPayment(c *gin.Context) {
	p, err := h.svc.Purchase.ConfirmGatewayPayment(c.Request.Context(), c.Param("txid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, p)
}

type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"max=256"`
}

// FailGatewayPayment POST /api/v1/admin/purchases/:txid/fail
func (h *Handler) FailGatewayPayment(c *gin.Context) {
	var req FailPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	txID := c.Param("txid")
	if err := h.svc.Purchase.FailGatewayPayment(c.Request.Context(), txID, req.Reason); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"transaction_id": txID})
}

type DeletePurchasesRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,max=500"`
}

// DeletePurchases POST /api/v1/admin/purchases/delete
func (h *Handler) DeletePurchases(c *gin.Context) {
	var req DeletePurchasesRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.svc.Purchase.DeletePurchases(c.Request.Context(), req.TransactionIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}

// RevenueStats GET /api/v1/admin/stats/revenue
func (h *Handler) RevenueStats(c *gin.Context) {
	stats, err := h.svc.Purchase.RevenueStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, stats)
}

// OutboxStats GET /api/v1/admin/outbox
func (h *Handler) OutboxStats(c *gin.Context) {
	stats, err := h.svc.Outbox.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, stats)
}

// RequeueOutbox POST /api/v1/admin/outbox/requeue
func (h *Handler) RequeueOutbox(c *gin.Context) {
	n, err := h.svc.Outbox.Requeue(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"requeued": n})
}
