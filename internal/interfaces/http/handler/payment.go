package handler

import (
	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment allocation endpoints
type PaymentHandler struct {
	BaseHandler
	allocator *financeapp.PaymentAllocator
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(allocator *financeapp.PaymentAllocator) *PaymentHandler {
	return &PaymentHandler{allocator: allocator}
}

// RegisterRoutes registers the payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("document-payments", "/documents").
		POST("/:id/payments", h.Allocate).
		GET("/:id/payments", h.ListByDocument).
		RegisterRoutes(rg)
	router.NewDomainGroup("payments", "/payments").
		POST("/:id/reverse", h.Reverse).
		RegisterRoutes(rg)
}

// Allocate records a payment against a document (POST /documents/{id}/payments)
func (h *PaymentHandler) Allocate(c *gin.Context) {
	documentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var body financeapp.AllocatePaymentRequest
	if !h.BindJSON(c, &body) {
		return
	}
	req, err := body.ToAllocateRequest(documentID, getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payment, err := h.allocator.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, financeapp.ToPaymentResponse(payment))
}

// ListByDocument lists the payments of a document (GET /documents/{id}/payments)
func (h *PaymentHandler) ListByDocument(c *gin.Context) {
	documentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	payments, err := h.allocator.ListByDocument(c.Request.Context(), documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResponses(payments))
}

// Reverse reverses a payment (POST /payments/{id}/reverse)
func (h *PaymentHandler) Reverse(c *gin.Context) {
	paymentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req financeapp.ReverseRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	req.PaymentID = paymentID
	req.UserID = getUserID(c)

	reversal, err := h.allocator.Reverse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, financeapp.ToPaymentResponse(reversal))
}
