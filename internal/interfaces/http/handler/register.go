package handler

import (
	cashregisterapp "github.com/erp/backoffice/internal/application/cashregister"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CashRegisterHandler handles till session endpoints
type CashRegisterHandler struct {
	BaseHandler
	registers *cashregisterapp.RegisterService
}

// NewCashRegisterHandler creates a new CashRegisterHandler
func NewCashRegisterHandler(registers *cashregisterapp.RegisterService) *CashRegisterHandler {
	return &CashRegisterHandler{registers: registers}
}

// RegisterRoutes registers the cash register routes
func (h *CashRegisterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("cash-registers", "/cash-registers").
		POST("", h.Open).
		GET("/open", h.FindOpen).
		GET("/:id/summary", h.Summary).
		POST("/:id/outflows", h.RecordOutflow).
		POST("/:id/close", h.Close).
		RegisterRoutes(rg)
}

// Open opens a till session for a user and warehouse (POST /cash-registers)
func (h *CashRegisterHandler) Open(c *gin.Context) {
	var req cashregisterapp.OpenRegisterRequest
	if user := getUserID(c); user != nil {
		req.UserID = *user
	}
	if !h.BindJSON(c, &req) {
		return
	}
	register, err := h.registers.Open(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cashregisterapp.ToRegisterResponse(register))
}

// FindOpenQuery identifies a till session
type FindOpenQuery struct {
	UserID      string `form:"user_id" binding:"omitempty,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
}

// FindOpen finds the open session of a user in a warehouse (GET /cash-registers/open)
func (h *CashRegisterHandler) FindOpen(c *gin.Context) {
	var q FindOpenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	userID := parseOptionalID(q.UserID)
	if userID == nil {
		userID = getUserID(c)
	}
	if userID == nil {
		h.BadRequest(c, "user_id is required")
		return
	}

	register, err := h.registers.FindOpen(c.Request.Context(), *userID, uuid.MustParse(q.WarehouseID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cashregisterapp.ToRegisterResponse(register))
}

// Summary gets the expected cash position of a session (GET /cash-registers/{id}/summary)
func (h *CashRegisterHandler) Summary(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	summary, err := h.registers.Summary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// RecordOutflow records cash leaving the till (POST /cash-registers/{id}/outflows)
func (h *CashRegisterHandler) RecordOutflow(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req cashregisterapp.OutflowRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.RegisterID = id

	outflow, err := h.registers.RecordOutflow(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, OutflowResponse{
		ID:             outflow.ID,
		CashRegisterID: outflow.CashRegisterID,
		Kind:           outflow.Kind,
		Amount:         outflow.Amount,
		Note:           outflow.Note,
		CreatedAt:      outflow.CreatedAt,
	})
}

// Close closes a till session with the counted cash (POST /cash-registers/{id}/close)
func (h *CashRegisterHandler) Close(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req cashregisterapp.CloseRegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.RegisterID = id

	register, err := h.registers.Close(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cashregisterapp.ToRegisterResponse(register))
}
