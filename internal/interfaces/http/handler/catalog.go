package handler

import (
	catalogapp "github.com/erp/backoffice/internal/application/catalog"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles units, products and the master data documents
// refer to
type CatalogHandler struct {
	BaseHandler
	catalog *catalogapp.CatalogService
	units   *catalogapp.UnitService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog *catalogapp.CatalogService, units *catalogapp.UnitService) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		units:   units,
	}
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	catalog := router.NewDomainGroup("catalog", "/catalog")
	catalog.Group("units", "/units").
		POST("", h.RegisterUnit).
		POST("/convert", h.Convert).
		POST("/:id/rebase", h.RebaseUnit)
	catalog.Group("products", "/products").
		POST("", h.RegisterProduct).
		GET("/:id", h.GetProduct).
		POST("/:id/variants", h.RegisterVariant).
		POST("/:id/batches", h.RegisterBatch)
	catalog.POST("/warehouses", h.RegisterWarehouse).
		POST("/taxes", h.RegisterTax)
	catalog.RegisterRoutes(rg)
}

// RegisterUnit registers a unit of measure (POST /catalog/units)
func (h *CatalogHandler) RegisterUnit(c *gin.Context) {
	var req catalogapp.RegisterUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	unit, err := h.catalog.RegisterUnit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toUnitResponse(unit))
}

// RebaseUnit points a unit at another base unit (POST /catalog/units/{id}/rebase)
func (h *CatalogHandler) RebaseUnit(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.RebaseUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.UnitID = id

	unit, err := h.catalog.RebaseUnit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toUnitResponse(unit))
}

// Convert converts a quantity between two units (POST /catalog/units/convert)
func (h *CatalogHandler) Convert(c *gin.Context) {
	var req catalogapp.ConvertRequest
	if !h.BindJSON(c, &req) {
		return
	}
	qty, err := h.units.Convert(c.Request.Context(), req.Quantity, req.FromUnitID, req.ToUnitID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, catalogapp.ConvertResponse{Quantity: qty})
}

// RegisterProduct registers a product (POST /catalog/products)
func (h *CatalogHandler) RegisterProduct(c *gin.Context) {
	var req catalogapp.RegisterProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.catalog.RegisterProduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProductResponse(product))
}

// GetProduct gets a product (GET /catalog/products/{id})
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), catalogapp.GetProductRequest{
		ID:              id,
		IncludeInactive: c.Query("include_inactive") == "true",
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// RegisterVariant registers a product variant (POST /catalog/products/{id}/variants)
func (h *CatalogHandler) RegisterVariant(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.RegisterVariantRequest
	req.ProductID = id
	if !h.BindJSON(c, &req) {
		return
	}
	req.ProductID = id

	v, err := h.catalog.RegisterVariant(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, VariantResponse{
		ID:              v.ID,
		ProductID:       v.ProductID,
		Name:            v.Name,
		ItemCode:        v.ItemCode,
		AdditionalCost:  v.AdditionalCost,
		AdditionalPrice: v.AdditionalPrice,
	})
}

// RegisterBatch registers a product batch (POST /catalog/products/{id}/batches)
func (h *CatalogHandler) RegisterBatch(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.RegisterBatchRequest
	req.ProductID = id
	if !h.BindJSON(c, &req) {
		return
	}
	req.ProductID = id

	b, err := h.catalog.RegisterBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, BatchResponse{
		ID:          b.ID,
		ProductID:   b.ProductID,
		BatchNo:     b.BatchNo,
		ExpiredDate: b.ExpiredDate,
	})
}

// RegisterWarehouse registers a warehouse (POST /catalog/warehouses)
func (h *CatalogHandler) RegisterWarehouse(c *gin.Context) {
	var req catalogapp.RegisterWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wh, err := h.catalog.RegisterWarehouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NamedResponse{ID: wh.ID, Code: wh.Code, Name: wh.Name})
}

// RegisterTax registers a tax rate (POST /catalog/taxes)
func (h *CatalogHandler) RegisterTax(c *gin.Context) {
	var req catalogapp.RegisterTaxRequest
	if !h.BindJSON(c, &req) {
		return
	}
	tax, err := h.catalog.RegisterTax(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rate := tax.Rate
	h.Created(c, NamedResponse{ID: tax.ID, Name: tax.Name, Rate: &rate})
}
