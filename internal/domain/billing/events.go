package billing

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeVendorBilling = "VendorBilling"

// Event type constants
const (
	EventTypeVendorBillingSaved        = "VendorBillingSaved"
	EventTypeVendorBillingStateChanged = "VendorBillingStateChanged"
)

// VendorBillingSavedEvent is raised when a billing is created or gains merged lines
type VendorBillingSavedEvent struct {
	shared.BaseDomainEvent
	BillingName  string          `json:"billing_name"`
	RelatedOrder int64           `json:"related_sale_order"`
	PartnerID    int64           `json:"partner_id"`
	LinesAdded   int             `json:"lines_added"`
	AmountTotal  decimal.Decimal `json:"amount_total"`
}

// NewVendorBillingSavedEvent creates a new VendorBillingSavedEvent
func NewVendorBillingSavedEvent(b *VendorBilling, added int) *VendorBillingSavedEvent {
	return &VendorBillingSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorBillingSaved, AggregateTypeVendorBilling, b.ID),
		BillingName:     b.BillingName,
		RelatedOrder:    b.RelatedOrder,
		PartnerID:       b.PartnerID,
		LinesAdded:      added,
		AmountTotal:     b.AmountTotal,
	}
}

// EventType returns the event type name
func (e *VendorBillingSavedEvent) EventType() string {
	return EventTypeVendorBillingSaved
}

// VendorBillingStateChangedEvent is raised on every lifecycle transition
type VendorBillingStateChangedEvent struct {
	shared.BaseDomainEvent
	BillingName string       `json:"billing_name"`
	From        BillingState `json:"from"`
	To          BillingState `json:"to"`
}

// NewVendorBillingStateChangedEvent creates a new VendorBillingStateChangedEvent
func NewVendorBillingStateChangedEvent(b *VendorBilling, from, to BillingState) *VendorBillingStateChangedEvent {
	return &VendorBillingStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorBillingStateChanged, AggregateTypeVendorBilling, b.ID),
		BillingName:     b.BillingName,
		From:            from,
		To:              to,
	}
}

// EventType returns the event type name
func (e *VendorBillingStateChangedEvent) EventType() string {
	return EventTypeVendorBillingStateChanged
}
