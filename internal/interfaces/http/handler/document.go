package handler

import (
	"context"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/application/settlement"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles trade document endpoints
type DocumentHandler struct {
	BaseHandler
	engine *settlement.Engine
	ledger *inventoryapp.StockLedger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(engine *settlement.Engine, ledger *inventoryapp.StockLedger) *DocumentHandler {
	return &DocumentHandler{
		engine: engine,
		ledger: ledger,
	}
}

// RegisterRoutes registers the document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := router.NewDomainGroup("documents", "/documents").
		POST("", h.Create).
		GET("", h.List).
		POST("/pos-sales", h.CompletePOSSale).
		GET("/:id", h.Get).
		DELETE("/:id", h.Delete).
		POST("/:id/lines", h.AddLine).
		DELETE("/:id/lines/:line_id", h.RemoveLine).
		POST("/:id/transition", h.Transition).
		POST("/:id/receive", h.Receive).
		POST("/:id/deliver", h.Deliver).
		POST("/:id/pack", h.Pack).
		POST("/:id/convert", h.ConvertQuotation).
		GET("/:id/movements", h.Movements)
	documents.RegisterRoutes(rg)
}

// ListDocumentsQuery holds the document list filters
type ListDocumentsQuery struct {
	dto.ListRequest
	Type        trade.DocumentType   `form:"type"`
	Status      trade.DocumentStatus `form:"status"`
	WarehouseID string               `form:"warehouse_id" binding:"omitempty,uuid"`
	CustomerID  string               `form:"customer_id" binding:"omitempty,uuid"`
	Search      string               `form:"search" binding:"max=100"`
}

func (q ListDocumentsQuery) filter() trade.DocumentFilter {
	f := trade.DocumentFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
		},
		Type:   q.Type,
		Status: q.Status,
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = dto.DefaultListRequest().PageSize
	}
	if q.Search != "" {
		f.Filters = map[string]any{"search": q.Search}
	}
	if id, err := uuid.Parse(q.WarehouseID); err == nil {
		f.WarehouseID = &id
	}
	if id, err := uuid.Parse(q.CustomerID); err == nil {
		f.CustomerID = &id
	}
	return f
}

// Create creates a draft document (POST /documents)
func (h *DocumentHandler) Create(c *gin.Context) {
	var req settlement.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.UserID = getUserID(c)
	req.IsPOS = false

	doc, err := h.engine.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, settlement.ToDocumentResponse(doc))
}

// List lists documents (GET /documents)
func (h *DocumentHandler) List(c *gin.Context) {
	var q ListDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter := q.filter()

	docs, total, err := h.engine.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]settlement.DocumentResponse, len(docs))
	for i := range docs {
		out[i] = settlement.ToDocumentResponse(&docs[i])
	}
	h.SuccessWithMeta(c, out, total, filter.Page, filter.PageSize)
}

// Get gets a document with its lines (GET /documents/{id})
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// Delete deletes a document, reversing its stock and payments (DELETE /documents/{id})
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.engine.Delete(c.Request.Context(), id, getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// AddLine adds a line to a draft or pending document (POST /documents/{id}/lines)
func (h *DocumentHandler) AddLine(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req settlement.LineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.engine.AddLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, settlement.ToDocumentResponse(doc))
}

// RemoveLine removes a line from a document (DELETE /documents/{id}/lines/{line_id})
func (h *DocumentHandler) RemoveLine(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "line_id")
	if !ok {
		return
	}
	doc, err := h.engine.RemoveLine(c.Request.Context(), id, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// Transition moves a document to another status (POST /documents/{id}/transition)
func (h *DocumentHandler) Transition(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req settlement.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.DocumentID = id
	req.UserID = getUserID(c)

	doc, err := h.engine.Transition(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// Receive records received quantities of a purchase (POST /documents/{id}/receive)
func (h *DocumentHandler) Receive(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req settlement.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.DocumentID = id

	doc, err := h.engine.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// Deliver marks sale lines delivered (POST /documents/{id}/deliver)
func (h *DocumentHandler) Deliver(c *gin.Context) {
	h.fulfil(c, h.engine.Deliver)
}

// Pack marks sale lines packed (POST /documents/{id}/pack)
func (h *DocumentHandler) Pack(c *gin.Context) {
	h.fulfil(c, h.engine.Pack)
}

func (h *DocumentHandler) fulfil(c *gin.Context, apply func(ctx context.Context, req settlement.DeliverRequest) (*trade.Document, error)) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req settlement.DeliverRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.DocumentID = id

	doc, err := apply(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement.ToDocumentResponse(doc))
}

// ConvertQuotation converts a quotation into a draft sale (POST /documents/{id}/convert)
func (h *DocumentHandler) ConvertQuotation(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.engine.ConvertQuotation(c.Request.Context(), id, getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, settlement.ToDocumentResponse(doc))
}

// POSSaleResponse is a completed POS sale with its payments
type POSSaleResponse struct {
	Document settlement.DocumentResponse  `json:"document"`
	Payments []financeapp.PaymentResponse `json:"payments"`
}

// CompletePOSSale settles a sale at the till in one step (POST /documents/pos-sales)
func (h *DocumentHandler) CompletePOSSale(c *gin.Context) {
	var payload settlement.POSSalePayload
	if !h.BindJSON(c, &payload) {
		return
	}
	req, err := payload.ToPOSSaleRequest(getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.engine.CompletePOSSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, POSSaleResponse{
		Document: settlement.ToDocumentResponse(result.Document),
		Payments: financeapp.ToPaymentResponses(result.Payments),
	})
}

// Movements lists the stock movements posted by a document (GET /documents/{id}/movements)
func (h *DocumentHandler) Movements(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	movements, err := h.ledger.Movements(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toMovementResponses(movements))
}
