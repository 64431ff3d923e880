package settlement

import (
	"context"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompletePOSSale creates, submits and completes a sale and records its
// payments in one unit of work. Nothing persists if any step fails.
func (e *Engine) CompletePOSSale(ctx context.Context, req POSSaleRequest) (*POSSaleResult, error) {
	req.Document.Type = trade.DocumentTypeSale
	req.Document.IsPOS = true
	var payments []finance.Payment

	doc, err := e.run(ctx, "pos_sale", uuid.Nil, func(ctx context.Context, w *work) (*trade.Document, error) {
		payments = nil
		if err := e.checkRegister(ctx, w, req.Document); err != nil {
			return nil, err
		}
		doc, err := e.newDocument(ctx, w, req.Document)
		if err != nil {
			return nil, err
		}
		if err := w.repos.Documents().Create(ctx, doc); err != nil {
			return nil, err
		}
		if err := e.submit(ctx, w, doc); err != nil {
			return nil, err
		}
		if err := e.complete(ctx, w, doc); err != nil {
			return nil, err
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		for _, p := range req.Payments {
			payment, err := e.allocator.AllocateTx(ctx, w.repos, doc, financeapp.AllocateRequest{
				DocumentID:     doc.ID,
				Amount:         p.Amount,
				Detail:         p.Detail,
				UserID:         req.Document.UserID,
				CashRegisterID: req.Document.CashRegisterID,
				Note:           p.Note,
			})
			if err != nil {
				return nil, err
			}
			payments = append(payments, *payment)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return &POSSaleResult{Document: doc, Payments: payments}, nil
}

func (e *Engine) checkRegister(ctx context.Context, w *work, req CreateDocumentRequest) error {
	if req.CashRegisterID == nil {
		if e.settings.Pos.RequireOpenRegister {
			return shared.NewValidationError("A POS sale requires an open cash register")
		}
		return nil
	}
	register, err := w.repos.Registers().FindByIDForUpdate(ctx, *req.CashRegisterID)
	if err != nil {
		return err
	}
	if err := register.EnsureOpen(); err != nil {
		return err
	}
	if register.WarehouseID != req.WarehouseID {
		return shared.NewValidationError("Cash register %s belongs to another warehouse", register.ID)
	}
	return nil
}

// ConvertQuotation turns a PENDING or COMPLETED quotation into a new DRAFT
// sale with the same lines. A pending quotation is completed on the way. A
// quotation converts once unless its sale has been deleted.
func (e *Engine) ConvertQuotation(ctx context.Context, quotationID uuid.UUID, userID *uuid.UUID) (*trade.Document, error) {
	return e.run(ctx, "convert_quotation", quotationID, func(ctx context.Context, w *work) (*trade.Document, error) {
		quotation, err := w.repos.Documents().FindByIDForUpdate(ctx, quotationID)
		if err != nil {
			return nil, err
		}
		if quotation.Type != trade.DocumentTypeQuotation {
			return nil, shared.NewValidationError("%s is not a quotation", quotation.Reference)
		}
		switch quotation.Status {
		case trade.DocumentStatusPending:
			if err := e.complete(ctx, w, quotation); err != nil {
				return nil, err
			}
			if err := w.repos.Documents().SaveWithLock(ctx, quotation); err != nil {
				return nil, err
			}
			w.track(quotation)
		case trade.DocumentStatusCompleted:
			_, converted, err := w.repos.Documents().FindAll(ctx, trade.DocumentFilter{
				Filter:      shared.Filter{Page: 1, PageSize: 1},
				Type:        trade.DocumentTypeSale,
				QuotationID: &quotation.ID,
			})
			if err != nil {
				return nil, err
			}
			if converted > 0 {
				return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
					"Quotation %s has already been converted", quotation.Reference)
			}
		default:
			return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
				"Cannot convert a %s quotation", quotation.Status)
		}

		sale, err := trade.NewDocument(trade.DocumentInput{
			Type:               trade.DocumentTypeSale,
			WarehouseID:        quotation.WarehouseID,
			CustomerID:         quotation.CustomerID,
			UserID:             userID,
			CouponCode:         quotation.CouponCode,
			OrderDiscountType:  quotation.OrderDiscountType,
			OrderDiscountValue: quotation.OrderDiscountValue,
			OrderTaxRate:       quotation.OrderTaxRate,
			ShippingCost:       quotation.ShippingCost,
			Note:               quotation.Note,
		})
		if err != nil {
			return nil, err
		}
		sale.QuotationID = &quotation.ID
		for i := range quotation.Lines {
			q := &quotation.Lines[i]
			line, err := sale.AddLine(trade.LineInput{
				ProductID: q.ProductID,
				VariantID: q.VariantID,
				BatchID:   q.BatchID,
				UnitID:    q.UnitID,
				Qty:       q.Qty,
				UnitPrice: q.UnitPrice,
				Discount:  q.Discount,
				TaxRate:   q.TaxRate,
				TaxMethod: q.TaxMethod,
			})
			if err != nil {
				return nil, err
			}
			line.BaseQty = q.BaseQty
		}
		if err := sale.Reprice(e.calc, nil, decimal.Zero); err != nil {
			return nil, err
		}
		if err := w.repos.Documents().Create(ctx, sale); err != nil {
			return nil, err
		}
		return sale, nil
	})
}
