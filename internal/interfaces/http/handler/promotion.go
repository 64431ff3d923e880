package handler

import (
	promotionapp "github.com/erp/backoffice/internal/application/promotion"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// PromotionHandler handles discount, coupon and gift card endpoints
type PromotionHandler struct {
	BaseHandler
	promotions *promotionapp.PromotionService
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(promotions *promotionapp.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// RegisterRoutes registers the promotion routes
func (h *PromotionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("promotions", "/promotions").
		POST("/discounts", h.CreateDiscount).
		POST("/plans", h.CreatePlan).
		POST("/coupons", h.CreateCoupon).
		POST("/gift-cards", h.IssueGiftCard).
		POST("/resolve", h.Resolve).
		RegisterRoutes(rg)
}

// CreateDiscount creates a discount rule (POST /promotions/discounts)
func (h *PromotionHandler) CreateDiscount(c *gin.Context) {
	var req promotionapp.CreateDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	discount, err := h.promotions.CreateDiscount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toDiscountResponse(discount))
}

// CreatePlan groups discounts into a plan (POST /promotions/plans)
func (h *PromotionHandler) CreatePlan(c *gin.Context) {
	var req promotionapp.CreatePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	plan, err := h.promotions.CreatePlan(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, PlanResponse{
		ID:          plan.ID,
		Name:        plan.Name,
		Type:        plan.Type,
		DiscountIDs: plan.DiscountIDs,
		CustomerIDs: plan.CustomerIDs,
	})
}

// CreateCoupon creates a coupon (POST /promotions/coupons)
func (h *PromotionHandler) CreateCoupon(c *gin.Context) {
	var req promotionapp.CreateCouponRequest
	if !h.BindJSON(c, &req) {
		return
	}
	coupon, err := h.promotions.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, CouponResponse{
		ID:            coupon.ID,
		Code:          coupon.Code,
		Type:          coupon.Type,
		Amount:        coupon.Amount,
		MinimumAmount: coupon.MinimumAmount,
		Quantity:      coupon.Quantity,
		Used:          coupon.Used,
		ExpiredDate:   coupon.ExpiredDate,
	})
}

// IssueGiftCard issues a gift card (POST /promotions/gift-cards)
func (h *PromotionHandler) IssueGiftCard(c *gin.Context) {
	var req promotionapp.IssueGiftCardRequest
	if !h.BindJSON(c, &req) {
		return
	}
	card, err := h.promotions.IssueGiftCard(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toGiftCardResponse(card))
}

// Resolve previews the discounts of a cart (POST /promotions/resolve)
func (h *PromotionHandler) Resolve(c *gin.Context) {
	var req promotionapp.ResolveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.promotions.Resolve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toResolutionResponse(res))
}
