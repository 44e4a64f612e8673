package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address is a customer, shipping or billing address block
type Address struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Street   string `json:"address,omitempty"`
	Street2  string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zipcode,omitempty"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	VAT      string `json:"vat,omitempty"`
	Customer string `json:"customer,omitempty"`
}

// NormalizeZip strips every whitespace character from the zip code
func (a *Address) NormalizeZip() {
	a.Zip = strings.Join(strings.Fields(a.Zip), "")
}

// OrderLine is one product sold in an order
type OrderLine struct {
	ID              uuid.UUID
	ChannelLineID   string
	SKU             string
	EAN             string
	Name            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal // realized price per unit, VAT and freight included
	SellerID        int64
	DeliveryType    catalog.DeliveryType
	Weight          decimal.Decimal // per unit, kg
	VAT             decimal.Decimal
	IEC             decimal.Decimal
	BOM             *catalog.BOM // snapshot when the sku is a pack
	Allocations     []LineAllocation
	ShipmentNumbers []int64
	Dropship        []string
	QuantityDone    decimal.Decimal
}

// LineAllocation is a quantity of a line's sku, or of a pack component, drawn from a shipment
type LineAllocation struct {
	ShipmentNumber int64           `json:"shipment_number"`
	SKU            string          `json:"sku"`
	Qty            decimal.Decimal `json:"qty"`
}

// NewOrderLine creates a new order line
func NewOrderLine(channelLineID, sku, name string, quantity, unitPrice decimal.Decimal) (*OrderLine, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return &OrderLine{
		ID:            uuid.New(),
		ChannelLineID: channelLineID,
		SKU:           sku,
		Name:          name,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		Weight:        decimal.Zero,
		VAT:           decimal.Zero,
		IEC:           decimal.Zero,
		QuantityDone:  decimal.Zero,
	}, nil
}

// Amount returns quantity * unit price
func (l *OrderLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// IsPack reports whether the line sold a pack
func (l *OrderLine) IsPack() bool {
	return l.BOM.IsPack()
}

// HistoryEntry is one event in a shipping group's history
type HistoryEntry struct {
	Date        time.Time  `json:"date"`
	Event       OrderEvent `json:"event"`
	Description string     `json:"description"`
}

// ShippingGroup is one seller's leg of an order
type ShippingGroup struct {
	ID            uuid.UUID
	Reference     string
	SellerID      int64
	SellerName    string
	DeliveryType  catalog.DeliveryType
	LineSKUs      []string
	Carrier       string
	OperationType string
	Tracking      string
	TrackingLink  string
	Weight        decimal.Decimal
	LogisticClass catalog.LogisticClass
	Timeline      OrderTimeline
	History       []HistoryEntry
}

// NewShippingGroup creates a group at the approved stage with the approval in its history
func NewShippingGroup(sellerID int64, sellerName string, deliveryType catalog.DeliveryType, carrier string, at time.Time) ShippingGroup {
	id := uuid.New()
	operation := string(deliveryType)
	if carrier != "" {
		operation = fmt.Sprintf("%s via %s", deliveryType, carrier)
	}
	return ShippingGroup{
		ID:            id,
		Reference:     strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]),
		SellerID:      sellerID,
		SellerName:    sellerName,
		DeliveryType:  deliveryType,
		Carrier:       carrier,
		OperationType: operation,
		Weight:        decimal.Zero,
		Timeline:      TimelineApproved,
		History: []HistoryEntry{
			{Date: at, Event: EventPaymentApproved, Description: "Order approved"},
		},
	}
}

// Order is a customer order received from a sales channel
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     int64
	ExternalOrderID string
	Channel         string
	ChannelName     string
	OrderDate       time.Time
	Status          OrderStatus
	Price           decimal.Decimal
	ShippingPrice   decimal.Decimal
	Customer        Address
	ShippingAddress Address
	BillingAddress  Address
	Lines           []OrderLine
	ShippingGroups  []ShippingGroup
	Reserved        bool
	ConfirmedAt     *time.Time
	CancelReason    CancelReason
	RefundStatus    RefundStatus
}

// NewOrder creates a new order. Reserved orders wait for ResolveReservation before progressing.
func NewOrder(number int64, externalOrderID, channel string, orderDate time.Time, reserved bool) (*Order, error) {
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number must be positive")
	}
	if strings.TrimSpace(externalOrderID) == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot be empty")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Channel cannot be empty")
	}

	status := OrderStatusApproved
	if reserved {
		status = OrderStatusReserved
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       number,
		ExternalOrderID:   externalOrderID,
		Channel:           channel,
		OrderDate:         orderDate,
		Status:            status,
		Price:             decimal.Zero,
		ShippingPrice:     decimal.Zero,
		Reserved:          reserved,
	}
	return o, nil
}

// AddLine appends a line, merging it into an existing line with the same sku and unit price
func (o *Order) AddLine(line OrderLine) {
	for i := range o.Lines {
		existing := &o.Lines[i]
		if existing.SKU == line.SKU && existing.UnitPrice.Equal(line.UnitPrice) {
			existing.Quantity = existing.Quantity.Add(line.Quantity)
			o.recalculatePrice()
			return
		}
	}
	o.Lines = append(o.Lines, line)
	o.recalculatePrice()
}

func (o *Order) recalculatePrice() {
	total := o.ShippingPrice
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Amount())
	}
	o.Price = total
}

// SetShippingPrice sets the shipping charged to the customer
func (o *Order) SetShippingPrice(price decimal.Decimal) {
	o.ShippingPrice = price
	o.recalculatePrice()
}

// Line returns the line with id, or nil
func (o *Order) Line(id uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// Group returns the shipping group with id, or nil
func (o *Order) Group(id uuid.UUID) *ShippingGroup {
	for i := range o.ShippingGroups {
		if o.ShippingGroups[i].ID == id {
			return &o.ShippingGroups[i]
		}
	}
	return nil
}

// MarkCreated records the creation event once the order number is final
func (o *Order) MarkCreated() {
	o.AddDomainEvent(NewOrderCreatedEvent(o))
}

// RecordAllocation stores where a line's quantity was drawn from
func (o *Order) RecordAllocation(lineID uuid.UUID, allocations []LineAllocation, dropship []string) error {
	line := o.Line(lineID)
	if line == nil {
		return shared.NewDomainError("LINE_NOT_FOUND", fmt.Sprintf("Order %d has no line %s", o.OrderNumber, lineID))
	}
	line.Allocations = append([]LineAllocation(nil), allocations...)
	line.ShipmentNumbers = nil
	seen := make(map[int64]struct{})
	done := decimal.Zero
	for _, a := range allocations {
		if a.SKU == line.SKU {
			done = done.Add(a.Qty)
		}
		if _, ok := seen[a.ShipmentNumber]; ok {
			continue
		}
		seen[a.ShipmentNumber] = struct{}{}
		line.ShipmentNumbers = append(line.ShipmentNumbers, a.ShipmentNumber)
	}
	line.Dropship = append([]string(nil), dropship...)
	switch {
	case len(dropship) > 0:
		line.QuantityDone = line.Quantity
	case line.IsPack() && len(allocations) > 0:
		line.QuantityDone = line.Quantity
	default:
		line.QuantityDone = done
	}
	o.Touch()
	return nil
}

// ReportEvent appends a fulfillment event to a group and recomputes the order status
func (o *Order) ReportEvent(groupID uuid.UUID, event OrderEvent, description string, at time.Time) error {
	if !event.IsValid() {
		return shared.NewDomainError("INVALID_EVENT", fmt.Sprintf("Unknown order event %q", event))
	}
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %d is %s", o.OrderNumber, o.Status))
	}
	if o.Status == OrderStatusReserved {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %d is still reserved", o.OrderNumber))
	}
	group := o.Group(groupID)
	if group == nil {
		return shared.NewDomainError("GROUP_NOT_FOUND", fmt.Sprintf("Order %d has no shipping group %s", o.OrderNumber, groupID))
	}
	if err := group.advance(event); err != nil {
		return err
	}
	group.History = append(group.History, HistoryEntry{Date: at, Event: event, Description: description})
	o.Touch()

	o.AddDomainEvent(NewShippingEventReportedEvent(o, group, event, description))
	o.RecalculateStatus()
	return nil
}

// RecalculateStatus applies CalculateStatus and records a change
func (o *Order) RecalculateStatus() {
	if o.Status == OrderStatusReserved {
		return
	}
	o.setStatus(CalculateStatus(o))
}

func (o *Order) setStatus(status OrderStatus) {
	if status == o.Status {
		return
	}
	from := o.Status
	o.Status = status
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, status))
}

// ResolveReservation approves or rejects a reserved order
func (o *Order) ResolveReservation(approved bool, at time.Time) error {
	if o.Status != OrderStatusReserved {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %d is not reserved", o.OrderNumber))
	}
	o.Reserved = false
	if !approved {
		o.setStatus(OrderStatusCanceled)
		return nil
	}
	o.ConfirmedAt = &at
	o.setStatus(OrderStatusApproved)
	o.RecalculateStatus()
	return nil
}

// Cancel cancels the order. Allocated stock stays with the order.
func (o *Order) Cancel(reason CancelReason, refund RefundStatus) error {
	if o.Status == OrderStatusCanceled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %d is already canceled", o.OrderNumber))
	}
	if o.Status == OrderStatusDelivered {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %d is delivered", o.OrderNumber))
	}
	if reason != "" && !reason.IsValid() {
		return shared.NewDomainError("INVALID_CANCEL_REASON", fmt.Sprintf("Unknown cancel reason %q", reason))
	}
	if refund == "" {
		refund = RefundStatusNotRefunded
	}
	if !refund.IsValid() {
		return shared.NewDomainError("INVALID_REFUND_STATUS", fmt.Sprintf("Unknown refund status %q", refund))
	}
	o.CancelReason = reason
	o.RefundStatus = refund
	o.setStatus(OrderStatusCanceled)
	return nil
}

// NextActions returns the next action of every shipping group for role
func (o *Order) NextActions(role Role) []NextAction {
	out := make([]NextAction, 0, len(o.ShippingGroups))
	for i := range o.ShippingGroups {
		out = append(out, o.ShippingGroups[i].NextAction(o.Status, role))
	}
	return out
}

// SellerIDs returns the distinct sellers of the order's lines in line order
func (o *Order) SellerIDs() []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, l := range o.Lines {
		if l.SellerID == 0 {
			continue
		}
		if _, ok := seen[l.SellerID]; ok {
			continue
		}
		seen[l.SellerID] = struct{}{}
		out = append(out, l.SellerID)
	}
	return out
}
