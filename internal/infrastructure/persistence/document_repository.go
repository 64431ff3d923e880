package persistence

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements trade.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a document by its ID with its lines
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Document, error) {
	var doc trade.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&doc, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// FindByIDForUpdate locks the header row, then loads the lines
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Document, error) {
	var doc trade.Document
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&doc, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := orderedLines(r.db.WithContext(ctx)).
		Where("document_id = ?", id).
		Find(&doc.Lines).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindAll lists documents without their lines. Deleted documents only show
// up when asked for by status.
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter trade.DocumentFilter) ([]trade.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&trade.Document{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	} else {
		query = query.Where("status <> ?", trade.DocumentStatusDeleted)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.QuotationID != nil {
		query = query.Where("quotation_id = ?", *filter.QuotationID)
	}
	if search, ok := filter.Filters["search"].(string); ok && search != "" {
		query = query.Where("reference LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var docs []trade.Document
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Create inserts the document and its lines
func (r *GormDocumentRepository) Create(ctx context.Context, doc *trade.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// SaveWithLock saves the header when the stored version still matches the
// one loaded, then replaces the lines. The caller's transaction holds the
// header lock, so no nested transaction is opened here.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *trade.Document) error {
	db := r.db.WithContext(ctx)
	loaded := doc.Version
	now := time.Now()

	result := db.Model(&trade.Document{}).
		Where("id = ? AND version = ?", doc.ID, loaded).
		Updates(map[string]interface{}{
			"status":               doc.Status,
			"payment_status":       doc.PaymentStatus,
			"warehouse_id":         doc.WarehouseID,
			"to_warehouse_id":      doc.ToWarehouseID,
			"customer_id":          doc.CustomerID,
			"supplier_id":          doc.SupplierID,
			"user_id":              doc.UserID,
			"cash_register_id":     doc.CashRegisterID,
			"return_of_id":         doc.ReturnOfID,
			"quotation_id":         doc.QuotationID,
			"is_pos":               doc.IsPOS,
			"coupon_code":          doc.CouponCode,
			"coupon_id":            doc.CouponID,
			"order_discount_type":  doc.OrderDiscountType,
			"order_discount_value": doc.OrderDiscountValue,
			"order_tax_rate":       doc.OrderTaxRate,
			"shipping_cost":        doc.ShippingCost,
			"total_qty":            doc.TotalQty,
			"total_discount":       doc.TotalDiscount,
			"total_tax":            doc.TotalTax,
			"total_price":          doc.TotalPrice,
			"order_discount":       doc.OrderDiscount,
			"coupon_discount":      doc.CouponDiscount,
			"order_tax":            doc.OrderTax,
			"grand_total":          doc.GrandTotal,
			"paid_amount":          doc.PaidAmount,
			"note":                 doc.Note,
			"submitted_at":         doc.SubmittedAt,
			"completed_at":         doc.CompletedAt,
			"cancelled_at":         doc.CancelledAt,
			"deleted_at":           doc.DeletedAt,
			"version":              loaded + 1,
			"updated_at":           now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict, "Document %s was modified by another transaction", doc.Reference)
	}
	doc.Version = loaded + 1
	doc.UpdatedAt = now

	lineIDs := make([]uuid.UUID, len(doc.Lines))
	for i := range doc.Lines {
		lineIDs[i] = doc.Lines[i].ID
	}
	stale := db.Where("document_id = ?", doc.ID)
	if len(lineIDs) > 0 {
		stale = stale.Where("id NOT IN ?", lineIDs)
	}
	if err := stale.Delete(&trade.DocumentLine{}).Error; err != nil {
		return err
	}
	for i := range doc.Lines {
		line := &doc.Lines[i]
		line.DocumentID = doc.ID
		line.UpdatedAt = now
		if err := db.Omit(clause.Associations).Save(line).Error; err != nil {
			return err
		}
	}
	return nil
}

type returnedRow struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	BatchID   *uuid.UUID
	Qty       decimal.Decimal
}

// ReturnedQuantities sums what pending and completed returns of the
// original document give back, per product, variant and batch
func (r *GormDocumentRepository) ReturnedQuantities(ctx context.Context, originalID, excludeID uuid.UUID) (map[trade.ReturnKey]decimal.Decimal, error) {
	var rows []returnedRow
	if err := r.db.WithContext(ctx).
		Table("document_lines AS l").
		Select("l.product_id, l.variant_id, l.batch_id, SUM(l.base_qty) AS qty").
		Joins("JOIN documents AS d ON d.id = l.document_id").
		Where("d.return_of_id = ? AND d.id <> ? AND d.status IN ?", originalID, excludeID,
			[]trade.DocumentStatus{trade.DocumentStatusPending, trade.DocumentStatusCompleted}).
		Group("l.product_id, l.variant_id, l.batch_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	returned := make(map[trade.ReturnKey]decimal.Decimal, len(rows))
	for i := range rows {
		key := trade.ReturnKey{ProductID: rows[i].ProductID}
		if rows[i].VariantID != nil {
			key.VariantID = *rows[i].VariantID
		}
		if rows[i].BatchID != nil {
			key.BatchID = *rows[i].BatchID
		}
		returned[key] = returned[key].Add(rows[i].Qty)
	}
	return returned, nil
}

var _ trade.DocumentRepository = (*GormDocumentRepository)(nil)
