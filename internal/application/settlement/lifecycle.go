package settlement

import (
	"context"
	"time"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Transition moves a document to the target status. Completion posts the
// ledger deltas, redeems the coupon and earns reward points in the same
// unit of work; any failure leaves the document and the ledger untouched.
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (*trade.Document, error) {
	if !req.To.IsValid() || req.To == trade.DocumentStatusDraft {
		return nil, shared.NewValidationError("Cannot transition to %q", req.To)
	}
	return e.run(ctx, "transition_"+string(req.To), req.DocumentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		switch req.To {
		case trade.DocumentStatusPending:
			err = e.submit(ctx, w, doc)
		case trade.DocumentStatusCompleted:
			err = e.complete(ctx, w, doc)
		case trade.DocumentStatusCancelled:
			err = e.cancel(ctx, w, doc, req.UserID)
		case trade.DocumentStatusDeleted:
			err = e.delete(ctx, w, doc, req.UserID)
		}
		if err != nil {
			return nil, err
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		e.logger.Info("document transitioned",
			zap.String("reference", doc.Reference),
			zap.String("type", string(doc.Type)),
			zap.String("status", doc.Status.String()))
		return doc, nil
	})
}

// Delete moves a document to the terminal DELETED state, reversing
// whatever it posted
func (e *Engine) Delete(ctx context.Context, documentID uuid.UUID, userID *uuid.UUID) (*trade.Document, error) {
	return e.Transition(ctx, TransitionRequest{DocumentID: documentID, To: trade.DocumentStatusDeleted, UserID: userID})
}

// submit validates and prices a DRAFT document and moves it to PENDING
func (e *Engine) submit(ctx context.Context, w *work, doc *trade.Document) error {
	if !doc.Status.CanTransitionTo(trade.DocumentStatusPending) {
		return shared.NewInvalidTransitionError(doc.Status.String(), trade.DocumentStatusPending.String())
	}
	if err := e.resolveBaseQuantities(ctx, w, doc); err != nil {
		return err
	}
	if doc.Type.IsReturn() {
		if err := e.checkReturnLimits(ctx, w, doc); err != nil {
			return err
		}
	}

	var lineDiscounts map[uuid.UUID]decimal.Decimal
	couponDiscount := decimal.Zero
	if doc.Type.UsesPromotions() && e.promotions != nil {
		res, err := e.promotions.ResolveTx(ctx, w.repos, doc.CustomerID, cartLines(doc), doc.CouponCode, time.Now())
		if err != nil {
			return err
		}
		lineDiscounts = res.LineDiscounts
		couponDiscount = res.CouponDiscount
		doc.SetCoupon(res.CouponID)
	}
	if err := doc.Reprice(e.calc, lineDiscounts, couponDiscount); err != nil {
		return err
	}
	return doc.Submit()
}

func cartLines(doc *trade.Document) []promotion.CartLine {
	out := make([]promotion.CartLine, len(doc.Lines))
	for i, l := range doc.Lines {
		out[i] = promotion.CartLine{Ref: l.ID, ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice}
	}
	return out
}

// resolveBaseQuantities recomputes the stocking-unit quantity of every line
func (e *Engine) resolveBaseQuantities(ctx context.Context, w *work, doc *trade.Document) error {
	for i := range doc.Lines {
		l := &doc.Lines[i]
		product, err := w.repos.Products().FindByID(ctx, l.ProductID)
		if err != nil {
			return err
		}
		base, err := e.toBase(ctx, w, l.Qty, l.UnitID, product)
		if err != nil {
			return err
		}
		l.BaseQty = base
	}
	return nil
}

// complete posts what is still unposted and moves PENDING to COMPLETED
func (e *Engine) complete(ctx context.Context, w *work, doc *trade.Document) error {
	if !doc.Status.CanTransitionTo(trade.DocumentStatusCompleted) {
		return shared.NewInvalidTransitionError(doc.Status.String(), trade.DocumentStatusCompleted.String())
	}
	if doc.Type.AffectsStock() {
		if err := e.post(ctx, w, doc, doc.UnpostedPostings()); err != nil {
			return err
		}
		doc.MarkAllPosted()
	}
	if doc.Type == trade.DocumentTypeSale && doc.CouponID != nil {
		if err := e.redeemCoupon(ctx, w, doc); err != nil {
			return err
		}
	}
	if _, err := e.allocator.Points().Earn(ctx, w.repos, doc); err != nil {
		return err
	}
	if err := doc.Complete(); err != nil {
		return err
	}
	e.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("document.type", string(doc.Type))))
	return nil
}

// cancel reverses partial postings and payments, then moves DRAFT or
// PENDING to CANCELLED
func (e *Engine) cancel(ctx context.Context, w *work, doc *trade.Document, userID *uuid.UUID) error {
	if !doc.Status.CanTransitionTo(trade.DocumentStatusCancelled) {
		return shared.NewInvalidTransitionError(doc.Status.String(), trade.DocumentStatusCancelled.String())
	}
	if err := e.reverseStock(ctx, w, doc); err != nil {
		return err
	}
	if err := e.reversePayments(ctx, w, doc, userID); err != nil {
		return err
	}
	return doc.Cancel()
}

// delete compensates everything the document did and marks it DELETED.
// Compensation is idempotent, so deleting a cancelled document posts
// nothing new.
func (e *Engine) delete(ctx context.Context, w *work, doc *trade.Document, userID *uuid.UUID) error {
	if !doc.Status.CanTransitionTo(trade.DocumentStatusDeleted) {
		return shared.NewInvalidTransitionError(doc.Status.String(), trade.DocumentStatusDeleted.String())
	}
	if err := e.reverseStock(ctx, w, doc); err != nil {
		return err
	}
	if doc.CouponID != nil {
		if err := e.releaseCoupon(ctx, w, doc); err != nil {
			return err
		}
	}
	if err := e.allocator.Points().ReverseDocument(ctx, w.repos, doc.ID); err != nil {
		return err
	}
	if err := e.reversePayments(ctx, w, doc, userID); err != nil {
		return err
	}
	return doc.MarkDeleted()
}

// post applies postings to the ledger, collecting every shortage before
// failing so the caller sees all lines that cannot be covered. The
// incoming side of a transfer mirrors the movements of its outgoing side,
// so stock split over batches keeps its batches at the destination.
func (e *Engine) post(ctx context.Context, w *work, doc *trade.Document, postings []trade.Posting) error {
	var shortages []*inventory.InsufficientStockError
	transferred := make(map[uuid.UUID][]inventory.StockMovement)
	for _, p := range postings {
		deltas := []trade.Posting{p}
		if p.Reason == inventory.ReasonTransferIn && !p.Key.HasBatch() {
			if outs, ok := transferred[p.LineID]; ok {
				deltas = transferInPostings(p, outs)
			}
		}
		for _, d := range deltas {
			res, err := e.apply(ctx, w, doc, d)
			if err != nil {
				if ise, ok := inventory.AsInsufficientStock(err); ok {
					shortages = append(shortages, ise.ForLine(p.LineID))
					continue
				}
				return err
			}
			if p.Reason == inventory.ReasonTransferOut {
				transferred[p.LineID] = append(transferred[p.LineID], res.Movements...)
			}
			w.movements = append(w.movements, res.Movements...)
		}
	}
	if len(shortages) > 0 {
		return inventory.CombineShortages(shortages)
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, w *work, doc *trade.Document, p trade.Posting) (*inventoryapp.DeltaResult, error) {
	lineID := p.LineID
	return e.ledger.Apply(ctx, w.repos, inventoryapp.DeltaRequest{
		ProductID:   p.Key.ProductID,
		WarehouseID: p.Key.WarehouseID,
		VariantID:   optional(p.Key.VariantID),
		BatchID:     optional(p.Key.BatchID),
		Delta:       p.Delta,
		Reason:      p.Reason,
		DocumentID:  &doc.ID,
		LineID:      &lineID,
	})
}

// transferInPostings credits the destination with what each outgoing
// movement took from the source, key for key
func transferInPostings(in trade.Posting, outs []inventory.StockMovement) []trade.Posting {
	postings := make([]trade.Posting, 0, len(outs))
	for i := range outs {
		if !outs[i].Delta.IsNegative() {
			continue
		}
		postings = append(postings, trade.Posting{
			LineID: in.LineID,
			Key:    outs[i].Key().WithWarehouse(in.Key.WarehouseID),
			Delta:  outs[i].Delta.Neg(),
			Reason: in.Reason,
		})
	}
	return postings
}

// reverseStock undoes the net ledger effect of every movement the
// document made, key by key
func (e *Engine) reverseStock(ctx context.Context, w *work, doc *trade.Document) error {
	if !doc.Type.AffectsStock() {
		return nil
	}
	history, err := w.repos.Movements().FindByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	var shortages []*inventory.InsufficientStockError
	for _, n := range inventory.ReversalOf(history) {
		res, err := e.ledger.Apply(ctx, w.repos, inventoryapp.DeltaRequest{
			ProductID:   n.Key.ProductID,
			WarehouseID: n.Key.WarehouseID,
			VariantID:   optional(n.Key.VariantID),
			BatchID:     optional(n.Key.BatchID),
			Delta:       n.Delta,
			Reason:      inventory.ReasonReversal,
			DocumentID:  &doc.ID,
			LineID:      n.LineID,
			Exact:       true,
		})
		if err != nil {
			if ise, ok := inventory.AsInsufficientStock(err); ok {
				if n.LineID != nil {
					ise = ise.ForLine(*n.LineID)
				}
				shortages = append(shortages, ise)
				continue
			}
			return err
		}
		w.movements = append(w.movements, res.Movements...)
	}
	if len(shortages) > 0 {
		return inventory.CombineShortages(shortages)
	}
	doc.ClearPostings()
	return nil
}

// redeemCoupon consumes one coupon use. The redemption row is unique per
// coupon and document, so a retried completion consumes once.
func (e *Engine) redeemCoupon(ctx context.Context, w *work, doc *trade.Document) error {
	created, err := w.repos.Coupons().CreateRedemption(ctx,
		promotion.NewCouponRedemption(*doc.CouponID, doc.ID, doc.CouponDiscount))
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	coupon, err := w.repos.Coupons().FindByID(ctx, *doc.CouponID)
	if err != nil {
		return err
	}
	if err := coupon.Redeem(); err != nil {
		return err
	}
	return w.repos.Coupons().SaveWithVersion(ctx, coupon)
}

func (e *Engine) releaseCoupon(ctx context.Context, w *work, doc *trade.Document) error {
	deleted, err := w.repos.Coupons().DeleteRedemption(ctx, *doc.CouponID, doc.ID)
	if err != nil || !deleted {
		return err
	}
	coupon, err := w.repos.Coupons().FindByID(ctx, *doc.CouponID)
	if err != nil {
		return err
	}
	coupon.Release()
	return w.repos.Coupons().SaveWithVersion(ctx, coupon)
}

// reversePayments reverses every payment still counting towards the
// paid amount and recomputes it
func (e *Engine) reversePayments(ctx context.Context, w *work, doc *trade.Document, userID *uuid.UUID) error {
	if !doc.Type.IsPayable() {
		return nil
	}
	payments, err := w.repos.Payments().FindByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	reversed := false
	for i := range payments {
		if !payments[i].CountsTowardsPaid() {
			continue
		}
		p, err := w.repos.Payments().FindByIDForUpdate(ctx, payments[i].ID)
		if err != nil {
			return err
		}
		if _, err := e.allocator.ReversePaymentTx(ctx, w.repos, p, financeapp.ReverseRequest{
			PaymentID: p.ID,
			UserID:    userID,
			Note:      "Reversed with " + doc.Reference,
		}); err != nil {
			return err
		}
		reversed = true
	}
	if !reversed {
		return nil
	}
	return e.allocator.RecomputePaid(ctx, w.repos, doc)
}

// checkReturnLimits rejects a return giving back more of a product than
// the original document moved, counting other pending and completed
// returns. Quantities are compared in base units per product and variant.
func (e *Engine) checkReturnLimits(ctx context.Context, w *work, doc *trade.Document) error {
	original, err := e.returnOriginal(ctx, w, doc)
	if err != nil {
		return err
	}
	returned, err := w.repos.Documents().ReturnedQuantities(ctx, original.ID, doc.ID)
	if err != nil {
		return err
	}

	limits := make(map[trade.ReturnKey]decimal.Decimal)
	for i := range original.Lines {
		k := withoutBatch(trade.ReturnKeyOf(&original.Lines[i]))
		limits[k] = limits[k].Add(original.Lines[i].BaseQty)
	}
	already := make(map[trade.ReturnKey]decimal.Decimal)
	for k, qty := range returned {
		k = withoutBatch(k)
		already[k] = already[k].Add(qty)
	}
	requested := make(map[trade.ReturnKey]decimal.Decimal)
	var order []trade.ReturnKey
	for i := range doc.Lines {
		k := withoutBatch(trade.ReturnKeyOf(&doc.Lines[i]))
		if _, ok := requested[k]; !ok {
			order = append(order, k)
		}
		requested[k] = requested[k].Add(doc.Lines[i].BaseQty)
	}

	for _, k := range order {
		limit, ok := limits[k]
		if !ok {
			return shared.NewValidationError("Product %s is not on %s", k.ProductID, original.Reference)
		}
		if requested[k].Add(already[k]).GreaterThan(limit) {
			return shared.NewValidationError(
				"Returning %s of product %s exceeds the %s on %s (already returned %s)",
				requested[k], k.ProductID, limit, original.Reference, already[k])
		}
	}
	return nil
}

// returnOriginal loads the document a return refers to. It must be a
// COMPLETED document of the matching type.
func (e *Engine) returnOriginal(ctx context.Context, w *work, doc *trade.Document) (*trade.Document, error) {
	original, err := w.repos.Documents().FindByID(ctx, *doc.ReturnOfID)
	if err != nil {
		return nil, err
	}
	if original.Type != doc.Type.ReturnOf() {
		return nil, shared.NewValidationError("A %s must reference a %s, not a %s", doc.Type, doc.Type.ReturnOf(), original.Type)
	}
	if original.Status != trade.DocumentStatusCompleted {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot return against %s while it is %s", original.Reference, original.Status)
	}
	return original, nil
}

func withoutBatch(k trade.ReturnKey) trade.ReturnKey {
	k.BatchID = uuid.Nil
	return k
}

func optional(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
