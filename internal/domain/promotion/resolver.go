package promotion

import (
	"time"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is the part of a document line discounts look at
type CartLine struct {
	Ref       uuid.UUID
	ProductID uuid.UUID
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
}

// Gross returns price times quantity
func (l CartLine) Gross() decimal.Decimal {
	return l.UnitPrice.Mul(l.Qty)
}

// AppliedSource names where an applied discount came from
type AppliedSource string

const (
	SourcePlanDiscount AppliedSource = "plan_discount"
	SourceCoupon       AppliedSource = "coupon"
)

// AppliedDiscount is one discount that made it into the result
type AppliedDiscount struct {
	Source   AppliedSource   `json:"source"`
	SourceID uuid.UUID       `json:"source_id"`
	Name     string          `json:"name"`
	LineRef  *uuid.UUID      `json:"line_ref,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// ResolveInput is everything the resolver needs. Plans and discounts are
// the active catalog; the coupon is already looked up by code.
type ResolveInput struct {
	CustomerID *uuid.UUID
	Lines      []CartLine
	Plans      []DiscountPlan
	Discounts  []Discount
	Coupon     *Coupon
	Today      time.Time
}

// Resolution is the outcome of resolving discounts for a cart
type Resolution struct {
	Applied        []AppliedDiscount
	LineDiscounts  map[uuid.UUID]decimal.Decimal
	CouponID       *uuid.UUID
	CouponDiscount decimal.Decimal
	TotalDiscount  decimal.Decimal
}

// LineDiscount returns the plan discount resolved for a line
func (r *Resolution) LineDiscount(ref uuid.UUID) decimal.Decimal {
	if d, ok := r.LineDiscounts[ref]; ok {
		return d
	}
	return decimal.Zero
}

// Resolver applies discount plans and coupons under a stacking policy
type Resolver struct {
	stacking   StackingStrategy
	capPercent decimal.Decimal
	decimals   int32
}

// NewResolver creates a resolver for the stacking policy
func NewResolver(policy setting.StackingPolicy, decimals int32) (*Resolver, error) {
	s, err := NewStackingStrategy(policy.Mode)
	if err != nil {
		return nil, err
	}
	return &Resolver{stacking: s, capPercent: policy.CapPercent, decimals: decimals}, nil
}

// Resolve computes the discounts for the cart. An invalid coupon is an
// error rather than being silently dropped.
func (r *Resolver) Resolve(in ResolveInput) (*Resolution, error) {
	res := &Resolution{
		LineDiscounts:  make(map[uuid.UUID]decimal.Decimal, len(in.Lines)),
		CouponDiscount: decimal.Zero,
		TotalDiscount:  decimal.Zero,
	}

	candidates := r.applicableDiscounts(in)
	gross := decimal.Zero
	planTotal := decimal.Zero
	var planApplied []AppliedDiscount

	for _, line := range in.Lines {
		lineGross := line.Gross()
		gross = gross.Add(lineGross)

		var matched []*Discount
		var amounts []decimal.Decimal
		for _, d := range candidates {
			if !d.AppliesTo(line.ProductID, line.Qty) {
				continue
			}
			matched = append(matched, d)
			amounts = append(amounts, d.AmountFor(line).Round(r.decimals))
		}

		lineTotal := decimal.Zero
		ref := line.Ref
		for _, i := range r.stacking.SelectLine(amounts) {
			amount := decimal.Min(amounts[i], lineGross.Sub(lineTotal))
			if !amount.IsPositive() {
				continue
			}
			lineTotal = lineTotal.Add(amount)
			planApplied = append(planApplied, AppliedDiscount{
				Source:   SourcePlanDiscount,
				SourceID: matched[i].ID,
				Name:     matched[i].Name,
				LineRef:  &ref,
				Amount:   amount,
			})
		}
		if lineTotal.IsPositive() {
			res.LineDiscounts[line.Ref] = lineTotal
			planTotal = planTotal.Add(lineTotal)
		}
	}

	couponAmount := decimal.Zero
	if in.Coupon != nil {
		subtotal := gross.Sub(planTotal)
		if err := in.Coupon.Validate(subtotal, in.Today); err != nil {
			return nil, err
		}
		couponAmount = in.Coupon.DiscountFor(subtotal).Round(r.decimals)
	}

	keepPlans, keepCoupon := true, in.Coupon != nil
	if in.Coupon != nil {
		keepPlans, keepCoupon = r.stacking.KeepCoupon(planTotal, couponAmount)
	}
	if !keepPlans {
		planApplied = nil
		planTotal = decimal.Zero
		res.LineDiscounts = map[uuid.UUID]decimal.Decimal{}
	}
	if !keepCoupon {
		couponAmount = decimal.Zero
	}

	couponAmount, planApplied = r.applyCap(gross, couponAmount, planApplied, res.LineDiscounts)

	res.Applied = planApplied
	if keepCoupon {
		id := in.Coupon.ID
		res.CouponID = &id
		res.CouponDiscount = couponAmount
		res.Applied = append(res.Applied, AppliedDiscount{
			Source:   SourceCoupon,
			SourceID: id,
			Name:     in.Coupon.Code,
			Amount:   couponAmount,
		})
	}
	for _, a := range res.Applied {
		res.TotalDiscount = res.TotalDiscount.Add(a.Amount)
	}
	return res, nil
}

func (r *Resolver) applicableDiscounts(in ResolveInput) []*Discount {
	byID := make(map[uuid.UUID]*Discount, len(in.Discounts))
	for i := range in.Discounts {
		byID[in.Discounts[i].ID] = &in.Discounts[i]
	}
	seen := make(map[uuid.UUID]bool)
	var out []*Discount
	for i := range in.Plans {
		plan := &in.Plans[i]
		if !plan.AppliesToCustomer(in.CustomerID) {
			continue
		}
		for _, id := range plan.DiscountIDs {
			d, ok := byID[id]
			if !ok || seen[id] || !d.ActiveOn(in.Today) {
				continue
			}
			seen[id] = true
			out = append(out, d)
		}
	}
	return out
}

// applyCap trims the coupon first, then plan discounts from the last line
// backwards, until the total is within the cap.
func (r *Resolver) applyCap(gross, coupon decimal.Decimal, applied []AppliedDiscount, lines map[uuid.UUID]decimal.Decimal) (decimal.Decimal, []AppliedDiscount) {
	if !r.capPercent.IsPositive() {
		return coupon, applied
	}
	limit := gross.Mul(r.capPercent).Div(hundred).Round(r.decimals)
	total := coupon
	for _, a := range applied {
		total = total.Add(a.Amount)
	}
	excess := total.Sub(limit)
	if !excess.IsPositive() {
		return coupon, applied
	}

	cut := decimal.Min(coupon, excess)
	coupon = coupon.Sub(cut)
	excess = excess.Sub(cut)

	for i := len(applied) - 1; i >= 0 && excess.IsPositive(); i-- {
		cut := decimal.Min(applied[i].Amount, excess)
		applied[i].Amount = applied[i].Amount.Sub(cut)
		excess = excess.Sub(cut)
		ref := *applied[i].LineRef
		lines[ref] = lines[ref].Sub(cut)
		if !lines[ref].IsPositive() {
			delete(lines, ref)
		}
	}

	kept := applied[:0]
	for _, a := range applied {
		if a.Amount.IsPositive() {
			kept = append(kept, a)
		}
	}
	return coupon, kept
}
