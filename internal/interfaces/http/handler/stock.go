package handler

import (
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	BaseHandler
	ledger *inventoryapp.StockLedger
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger *inventoryapp.StockLedger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// RegisterRoutes registers the stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("stock", "/stock").
		GET("", h.Quantity).
		POST("/deltas", h.ApplyDelta).
		RegisterRoutes(rg)
}

// StockQuery identifies a stock level
type StockQuery struct {
	ProductID   string `form:"product_id" binding:"required,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	VariantID   string `form:"variant_id" binding:"omitempty,uuid"`
	BatchID     string `form:"batch_id" binding:"omitempty,uuid"`
}

// StockQuantityResponse is the on-hand quantity of a stock level
type StockQuantityResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	BatchID     *uuid.UUID      `json:"batch_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func parseOptionalID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// Quantity gets the on-hand quantity of a product in a warehouse (GET /stock)
func (h *StockHandler) Quantity(c *gin.Context) {
	var q StockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	query := inventoryapp.QuantityQuery{
		ProductID:   uuid.MustParse(q.ProductID),
		WarehouseID: uuid.MustParse(q.WarehouseID),
		VariantID:   parseOptionalID(q.VariantID),
		BatchID:     parseOptionalID(q.BatchID),
	}

	qty, err := h.ledger.QuantityOf(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, StockQuantityResponse{
		ProductID:   query.ProductID,
		WarehouseID: query.WarehouseID,
		VariantID:   query.VariantID,
		BatchID:     query.BatchID,
		Quantity:    qty,
	})
}

// DeltaResponse is the outcome of a manual stock delta
type DeltaResponse struct {
	Tracked   bool               `json:"tracked"`
	Quantity  decimal.Decimal    `json:"quantity"`
	Movements []MovementResponse `json:"movements"`
}

// ApplyDelta applies a signed quantity change to a stock level (POST /stock/deltas)
func (h *StockHandler) ApplyDelta(c *gin.Context) {
	var req inventoryapp.DeltaRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.ledger.ApplyDelta(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, DeltaResponse{
		Tracked:   result.Tracked,
		Quantity:  result.Quantity,
		Movements: toMovementResponses(result.Movements),
	})
}
