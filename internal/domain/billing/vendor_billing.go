package billing

import (
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentDeadlineBusinessDays is how many weekdays after creation a billing is due
const PaymentDeadlineBusinessDays = 16

// BillingState represents the lifecycle state of a vendor billing
type BillingState string

const (
	BillingStateDraft     BillingState = "draft"
	BillingStateToApprove BillingState = "to approve"
	BillingStateBilling   BillingState = "billing"
	BillingStateDone      BillingState = "done"
	BillingStateCancel    BillingState = "cancel"
)

// IsValid checks if the state is a valid BillingState
func (s BillingState) IsValid() bool {
	switch s {
	case BillingStateDraft, BillingStateToApprove, BillingStateBilling, BillingStateDone, BillingStateCancel:
		return true
	}
	return false
}

// CanTransitionTo checks if the state can transition to the target state
func (s BillingState) CanTransitionTo(target BillingState) bool {
	switch s {
	case BillingStateDraft:
		return target == BillingStateToApprove || target == BillingStateCancel
	case BillingStateToApprove:
		return target == BillingStateBilling || target == BillingStateDraft || target == BillingStateCancel
	case BillingStateBilling:
		return target == BillingStateDone || target == BillingStateCancel
	case BillingStateCancel:
		return target == BillingStateDraft
	case BillingStateDone:
		return false
	}
	return false
}

// String returns the string representation of BillingState
func (s BillingState) String() string {
	return string(s)
}

// PaymentState represents how far a billing has been paid
type PaymentState string

const (
	PaymentStateNotPaid   PaymentState = "not_paid"
	PaymentStateInPayment PaymentState = "in_payment"
	PaymentStatePaid      PaymentState = "paid"
	PaymentStateReversed  PaymentState = "reversed"
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCanceled  PaymentState = "canceled"
)

// IsValid checks if the payment state is known
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateNotPaid, PaymentStateInPayment, PaymentStatePaid,
		PaymentStateReversed, PaymentStatePending, PaymentStateCanceled:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// BillingLine is one sku billed to the seller
type BillingLine struct {
	SKU           string            `json:"sku"`
	Name          string            `json:"name"`
	Quantity      decimal.Decimal   `json:"product_uom_qty"`
	PriceUnit     decimal.Decimal   `json:"price_unit"`
	IVA           decimal.Decimal   `json:"iva"`
	IEC           decimal.Decimal   `json:"iec"`
	PriceSubtotal decimal.Decimal   `json:"price_subtotal"`
	PriceTax      decimal.Decimal   `json:"price_tax"`
	PriceTotal    decimal.Decimal   `json:"price_total"`
	Breakdown     pricing.Breakdown `json:"price_breakdown"`
	DateBilling   *time.Time        `json:"date_billing,omitempty"`
}

// NewBillingLine computes the line amounts:
//
//	price_tax      = round(((price_unit + iec) / 100) * iva * qty + iec * qty, 2)
//	price_subtotal = round(price_unit * qty, 2)
//	price_total    = round(subtotal + tax, 2)
func NewBillingLine(sku, name string, qty, priceUnit, iva, iec decimal.Decimal, breakdown pricing.Breakdown) (BillingLine, error) {
	if sku == "" {
		return BillingLine{}, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return BillingLine{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if priceUnit.IsNegative() {
		return BillingLine{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if iva.IsNegative() || iec.IsNegative() {
		return BillingLine{}, shared.NewDomainError("INVALID_TAX", "Taxes cannot be negative")
	}

	tax := priceUnit.Add(iec).Div(hundred).Mul(iva).Mul(qty).Add(iec.Mul(qty)).Round(2)
	subtotal := priceUnit.Mul(qty)
	total := subtotal.Add(tax).Round(2)

	return BillingLine{
		SKU:           sku,
		Name:          name,
		Quantity:      qty,
		PriceUnit:     priceUnit.Round(2),
		IVA:           iva,
		IEC:           iec,
		PriceSubtotal: subtotal.Round(2),
		PriceTax:      tax,
		PriceTotal:    total,
		Breakdown:     breakdown.Rounded(),
	}, nil
}

// BillingName is the natural key of a billing drawn from a shipment
func BillingName(sellerID, orderNumber, shipmentNumber int64) string {
	return fmt.Sprintf("BILLING_%d-%d-%d", sellerID, orderNumber, shipmentNumber)
}

// DropshipBillingName is the natural key of a billing for dropshipped stock
func DropshipBillingName(sellerID, orderNumber int64) string {
	return fmt.Sprintf("BILLING_DS_%d-%d", sellerID, orderNumber)
}

// PayDeadline returns the date PaymentDeadlineBusinessDays weekdays after from
func PayDeadline(from time.Time) time.Time {
	deadline := from
	for counted := 0; counted < PaymentDeadlineBusinessDays; {
		deadline = deadline.AddDate(0, 0, 1)
		if wd := deadline.Weekday(); wd != time.Saturday && wd != time.Sunday {
			counted++
		}
	}
	return deadline
}

// VendorBilling is the document billing a seller for stock sold in one order
type VendorBilling struct {
	shared.BaseAggregateRoot
	BillingName    string
	RelatedOrder   int64
	ShipmentNumber *int64 // nil for dropshipped stock
	PartnerID      int64
	Lines          []BillingLine
	State          BillingState
	PaymentState   PaymentState
	DateCreation   time.Time
	PayDeadline    time.Time
	DateApprove    *time.Time
	DateBilling    *time.Time
	PaymentDate    *time.Time
	AmountUntaxed  decimal.Decimal
	AmountTax      decimal.Decimal
	AmountTotal    decimal.Decimal
}

// NewVendorBilling creates a draft billing. A nil shipmentNumber names it as a dropship billing.
func NewVendorBilling(partnerID, orderNumber int64, shipmentNumber *int64, lines []BillingLine) (*VendorBilling, error) {
	if partnerID <= 0 {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID must be positive")
	}
	if orderNumber <= 0 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number must be positive")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "Billing must have at least one line")
	}

	name := DropshipBillingName(partnerID, orderNumber)
	if shipmentNumber != nil {
		name = BillingName(partnerID, orderNumber, *shipmentNumber)
	}

	b := &VendorBilling{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BillingName:       name,
		RelatedOrder:      orderNumber,
		ShipmentNumber:    shipmentNumber,
		PartnerID:         partnerID,
		State:             BillingStateDraft,
		PaymentState:      PaymentStateNotPaid,
	}
	b.DateCreation = b.CreatedAt
	b.PayDeadline = PayDeadline(b.DateCreation)
	b.Lines = dedupe(lines)
	b.recalculate()
	b.AddDomainEvent(NewVendorBillingSavedEvent(b, len(b.Lines)))
	return b, nil
}

// dedupe keeps the first line of every (sku, unit price) pair
func dedupe(lines []BillingLine) []BillingLine {
	type lineKey struct{ sku, price string }
	seen := make(map[lineKey]struct{}, len(lines))
	out := make([]BillingLine, 0, len(lines))
	for _, l := range lines {
		k := lineKey{l.SKU, l.PriceUnit.String()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

// HasSKU reports whether a line for sku is already billed
func (b *VendorBilling) HasSKU(sku string) bool {
	for _, l := range b.Lines {
		if l.SKU == sku {
			return true
		}
	}
	return false
}

// MergeLines adds the lines whose sku is not billed yet and returns how many were added
func (b *VendorBilling) MergeLines(lines []BillingLine) int {
	added := 0
	for _, l := range lines {
		if b.HasSKU(l.SKU) {
			continue
		}
		b.Lines = append(b.Lines, l)
		added++
	}
	if added > 0 {
		b.recalculate()
		b.Touch()
		b.AddDomainEvent(NewVendorBillingSavedEvent(b, added))
	}
	return added
}

func (b *VendorBilling) recalculate() {
	untaxed := decimal.Zero
	tax := decimal.Zero
	for _, l := range b.Lines {
		untaxed = untaxed.Add(l.PriceSubtotal)
		tax = tax.Add(l.PriceTax)
	}
	b.AmountUntaxed = untaxed.Round(2)
	b.AmountTax = tax.Round(2)
	b.AmountTotal = untaxed.Add(tax).Round(2)
}

func (b *VendorBilling) transition(target BillingState, at time.Time) error {
	if !b.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move billing %s from %s to %s", b.BillingName, b.State, target))
	}
	from := b.State
	b.State = target
	b.TouchAt(at)
	b.AddDomainEvent(NewVendorBillingStateChangedEvent(b, from, target))
	return nil
}

// Confirm submits a draft billing for approval
func (b *VendorBilling) Confirm(at time.Time) error {
	if err := b.transition(BillingStateToApprove, at); err != nil {
		return err
	}
	b.DateCreation = at
	b.PayDeadline = PayDeadline(at)
	return nil
}

// Approve approves the billing for payment
func (b *VendorBilling) Approve(at time.Time) error {
	if err := b.transition(BillingStateBilling, at); err != nil {
		return err
	}
	b.DateApprove = &at
	b.DateBilling = &at
	return nil
}

// SetToDraft reopens a billing awaiting approval or canceled
func (b *VendorBilling) SetToDraft() error {
	if err := b.transition(BillingStateDraft, time.Now()); err != nil {
		return err
	}
	b.DateApprove = nil
	return nil
}

// Cancel cancels the billing
func (b *VendorBilling) Cancel() error {
	if b.PaymentState == PaymentStatePaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Billing %s is already paid", b.BillingName))
	}
	return b.transition(BillingStateCancel, time.Now())
}

// Done closes an approved billing
func (b *VendorBilling) Done() error {
	return b.transition(BillingStateDone, time.Now())
}

// MarkPaymentState records the payment progress of the billing
func (b *VendorBilling) MarkPaymentState(state PaymentState, at time.Time) error {
	if !state.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_STATE", fmt.Sprintf("Unknown payment state %q", state))
	}
	if b.State == BillingStateCancel && state == PaymentStatePaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Billing %s is canceled", b.BillingName))
	}
	b.PaymentState = state
	if state == PaymentStatePaid {
		b.PaymentDate = &at
	}
	b.TouchAt(at)
	return nil
}
