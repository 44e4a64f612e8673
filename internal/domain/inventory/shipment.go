package inventory

import (
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShipmentStatus represents whether a shipment still has stock to sell
type ShipmentStatus string

const (
	ShipmentStatusOpen   ShipmentStatus = "open"
	ShipmentStatusClosed ShipmentStatus = "closed"
)

// IsValid checks if the status is a valid ShipmentStatus
func (s ShipmentStatus) IsValid() bool {
	return s == ShipmentStatusOpen || s == ShipmentStatusClosed
}

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// ShipmentLine is one sku received in a vendor shipment
type ShipmentLine struct {
	SKU          string
	Name         string
	QtyReceived  decimal.Decimal
	QtySold      decimal.Decimal
	QtyAvailable decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal // percent
}

// NewShipmentLine creates a line with everything received still available
func NewShipmentLine(sku, name string, qty, unitPrice, taxRate decimal.Decimal) (ShipmentLine, error) {
	if sku == "" {
		return ShipmentLine{}, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return ShipmentLine{}, shared.NewDomainError("INVALID_QUANTITY", "Received quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return ShipmentLine{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if taxRate.IsNegative() {
		return ShipmentLine{}, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	return ShipmentLine{
		SKU:          sku,
		Name:         name,
		QtyReceived:  qty,
		QtySold:      decimal.Zero,
		QtyAvailable: qty,
		UnitPrice:    unitPrice,
		TaxRate:      taxRate,
	}, nil
}

// Shipment is a vendor stock lot that sold order lines are allocated against.
// QtyAvailable = QtyReceived - QtySold holds for every line and never goes negative.
type Shipment struct {
	shared.BaseAggregateRoot
	ShipmentNumber int64
	Name           string
	SellerID       int64
	DeliveryType   catalog.DeliveryType
	Status         ShipmentStatus
	ApprovedAt     time.Time
	Lines          []ShipmentLine
	TotalPurchased decimal.Decimal
	TotalSold      decimal.Decimal
	ReceivedValue  decimal.Decimal
}

// NewShipment creates an open shipment approved at approvedAt
func NewShipment(number, sellerID int64, deliveryType catalog.DeliveryType, approvedAt time.Time, lines []ShipmentLine) (*Shipment, error) {
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_SHIPMENT_NUMBER", "Shipment number must be positive")
	}
	if sellerID <= 0 {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID must be positive")
	}
	if !deliveryType.UsesShipments() {
		return nil, shared.NewDomainError("INVALID_DELIVERY_TYPE", fmt.Sprintf("Delivery type %q does not hold shipments", deliveryType))
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "Shipment must have at least one line")
	}
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, dup := seen[l.SKU]; dup {
			return nil, shared.NewDomainError("DUPLICATE_SKU", fmt.Sprintf("SKU %s appears twice in the shipment", l.SKU))
		}
		seen[l.SKU] = struct{}{}
	}

	s := &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShipmentNumber:    number,
		Name:              ShipmentName(number),
		SellerID:          sellerID,
		DeliveryType:      deliveryType,
		Status:            ShipmentStatusOpen,
		ApprovedAt:        approvedAt,
		Lines:             lines,
	}
	s.recalculate()
	s.AddDomainEvent(NewShipmentRegisteredEvent(s))
	return s, nil
}

// ShipmentName formats the display name of a shipment number
func ShipmentName(number int64) string {
	return fmt.Sprintf("P%05d", number)
}

// Line returns the line for sku, or nil when the shipment does not carry it
func (s *Shipment) Line(sku string) *ShipmentLine {
	for i := range s.Lines {
		if s.Lines[i].SKU == sku {
			return &s.Lines[i]
		}
	}
	return nil
}

// Available returns the quantity of sku still available
func (s *Shipment) Available(sku string) decimal.Decimal {
	if l := s.Line(sku); l != nil {
		return l.QtyAvailable
	}
	return decimal.Zero
}

// IsOpen reports whether the shipment can still be allocated against
func (s *Shipment) IsOpen() bool {
	return s.Status == ShipmentStatusOpen
}

// Sell takes qty of sku out of the available stock
func (s *Shipment) Sell(sku string, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !s.IsOpen() {
		return shared.NewDomainError("SHIPMENT_CLOSED", fmt.Sprintf("Shipment %d is closed", s.ShipmentNumber))
	}
	line := s.Line(sku)
	if line == nil {
		return shared.NewDomainError("SKU_NOT_IN_SHIPMENT", fmt.Sprintf("Shipment %d does not carry %s", s.ShipmentNumber, sku))
	}
	if line.QtyAvailable.LessThan(qty) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Shipment %d has %s of %s available, requested %s", s.ShipmentNumber, line.QtyAvailable, sku, qty))
	}

	line.QtySold = line.QtySold.Add(qty)
	line.QtyAvailable = line.QtyReceived.Sub(line.QtySold)
	s.recalculate()
	s.Touch()

	s.AddDomainEvent(NewShipmentStockSoldEvent(s, sku, qty, line.QtyAvailable))
	if !s.IsOpen() {
		s.AddDomainEvent(NewShipmentClosedEvent(s))
	}
	return nil
}

// Restock puts back qty of sku previously taken by Sell. A closed shipment
// reopens when stock becomes available again.
func (s *Shipment) Restock(sku string, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	line := s.Line(sku)
	if line == nil {
		return shared.NewDomainError("SKU_NOT_IN_SHIPMENT", fmt.Sprintf("Shipment %d does not carry %s", s.ShipmentNumber, sku))
	}
	if line.QtySold.LessThan(qty) {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Shipment %d sold %s of %s, cannot restock %s", s.ShipmentNumber, line.QtySold, sku, qty))
	}

	line.QtySold = line.QtySold.Sub(qty)
	line.QtyAvailable = line.QtyReceived.Sub(line.QtySold)
	s.recalculate()
	s.Touch()

	s.AddDomainEvent(NewShipmentStockReleasedEvent(s, sku, qty, line.QtyAvailable))
	return nil
}

// recalculate refreshes the shipment-level totals and the open/closed status
func (s *Shipment) recalculate() {
	purchased := decimal.Zero
	sold := decimal.Zero
	received := decimal.Zero
	for _, l := range s.Lines {
		purchased = purchased.Add(l.QtyReceived)
		sold = sold.Add(l.QtySold)
		received = received.Add(l.QtySold.Mul(l.UnitPrice).Mul(l.TaxRate.Add(hundred)).Div(hundred))
	}
	s.TotalPurchased = purchased
	s.TotalSold = sold
	s.ReceivedValue = received
	if sold.LessThan(purchased) {
		s.Status = ShipmentStatusOpen
	} else {
		s.Status = ShipmentStatusClosed
	}
}

var hundred = decimal.NewFromInt(100)
