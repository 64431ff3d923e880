package settlement

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
)

// Receive records partial receipts of a PENDING purchase and posts the
// newly received quantities. The purchase completes once every line is
// fully received.
func (e *Engine) Receive(ctx context.Context, req ReceiveRequest) (*trade.Document, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewValidationError("Nothing to receive")
	}
	return e.run(ctx, "receive", req.DocumentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		for _, r := range req.Lines {
			line, err := doc.ReceiveLine(r.LineID, r.Qty)
			if err != nil {
				return nil, err
			}
			qty := line.ReceivedBaseQty().Sub(line.PostedBaseQty)
			if err := e.post(ctx, w, doc, doc.PostingsFor(line, qty)); err != nil {
				return nil, err
			}
			doc.MarkPosted(line.ID, qty)
		}
		if allReceived(doc) {
			if err := e.complete(ctx, w, doc); err != nil {
				return nil, err
			}
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// Deliver marks lines of a PENDING sale delivered and posts them. The sale
// completes once every line is delivered.
func (e *Engine) Deliver(ctx context.Context, req DeliverRequest) (*trade.Document, error) {
	if len(req.LineIDs) == 0 {
		return nil, shared.NewValidationError("Nothing to deliver")
	}
	return e.run(ctx, "deliver", req.DocumentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		for _, id := range req.LineIDs {
			line, err := doc.DeliverLine(id)
			if err != nil {
				return nil, err
			}
			qty := line.UnpostedBaseQty()
			if err := e.post(ctx, w, doc, doc.PostingsFor(line, qty)); err != nil {
				return nil, err
			}
			doc.MarkPosted(line.ID, qty)
		}
		if allDelivered(doc) {
			if err := e.complete(ctx, w, doc); err != nil {
				return nil, err
			}
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// Pack marks sale lines as being packed
func (e *Engine) Pack(ctx context.Context, req DeliverRequest) (*trade.Document, error) {
	return e.run(ctx, "pack", req.DocumentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc.Type != trade.DocumentTypeSale || doc.Status != trade.DocumentStatusPending {
			return nil, shared.NewValidationError("Only pending sales can be packed")
		}
		for _, id := range req.LineIDs {
			if err := doc.PackLine(id); err != nil {
				return nil, err
			}
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

func allReceived(doc *trade.Document) bool {
	for i := range doc.Lines {
		if doc.Lines[i].Received.LessThan(doc.Lines[i].Qty) {
			return false
		}
	}
	return true
}

func allDelivered(doc *trade.Document) bool {
	for i := range doc.Lines {
		if !doc.Lines[i].IsDelivered {
			return false
		}
	}
	return true
}
