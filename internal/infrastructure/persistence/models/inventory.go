package models

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentModel is the persistence model for the Shipment aggregate root.
type ShipmentModel struct {
	AggregateModel
	ShipmentNumber int64           `gorm:"not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(20);not null"`
	SellerID       int64           `gorm:"not null;index:idx_shipment_seller_status,priority:1"`
	DeliveryType   string          `gorm:"type:varchar(20);not null"`
	Status         string          `gorm:"type:varchar(10);not null;index:idx_shipment_seller_status,priority:2"`
	ApprovedAt     time.Time       `gorm:"not null;index"`
	TotalPurchased decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalSold      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedValue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	// Associations
	Lines []ShipmentLineModel `gorm:"foreignKey:ShipmentID;references:ID"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment.
func (m *ShipmentModel) ToDomain() *inventory.Shipment {
	s := &inventory.Shipment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ShipmentNumber:    m.ShipmentNumber,
		Name:              m.Name,
		SellerID:          m.SellerID,
		DeliveryType:      catalog.DeliveryType(m.DeliveryType),
		Status:            inventory.ShipmentStatus(m.Status),
		ApprovedAt:        m.ApprovedAt,
		TotalPurchased:    m.TotalPurchased,
		TotalSold:         m.TotalSold,
		ReceivedValue:     m.ReceivedValue,
		Lines:             make([]inventory.ShipmentLine, len(m.Lines)),
	}
	for i := range m.Lines {
		s.Lines[i] = m.Lines[i].ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Shipment.
// Line ids are derived from the shipment id and sku, so they are stable across saves.
func (m *ShipmentModel) FromDomain(s *inventory.Shipment) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.ShipmentNumber = s.ShipmentNumber
	m.Name = s.Name
	m.SellerID = s.SellerID
	m.DeliveryType = string(s.DeliveryType)
	m.Status = string(s.Status)
	m.ApprovedAt = s.ApprovedAt
	m.TotalPurchased = s.TotalPurchased
	m.TotalSold = s.TotalSold
	m.ReceivedValue = s.ReceivedValue
	m.Lines = make([]ShipmentLineModel, len(s.Lines))
	for i, l := range s.Lines {
		m.Lines[i] = ShipmentLineModel{
			ID:           ShipmentLineID(s.ID, l.SKU),
			ShipmentID:   s.ID,
			Position:     i,
			SKU:          l.SKU,
			Name:         l.Name,
			QtyReceived:  l.QtyReceived,
			QtySold:      l.QtySold,
			QtyAvailable: l.QtyAvailable,
			UnitPrice:    l.UnitPrice,
			TaxRate:      l.TaxRate,
		}
	}
}

// ShipmentModelFromDomain creates a new persistence model from a domain Shipment.
func ShipmentModelFromDomain(s *inventory.Shipment) *ShipmentModel {
	m := &ShipmentModel{}
	m.FromDomain(s)
	return m
}

// ShipmentLineID derives the id of a shipment's line for sku
func ShipmentLineID(shipmentID uuid.UUID, sku string) uuid.UUID {
	return uuid.NewSHA1(shipmentID, []byte(sku))
}

// ShipmentLineModel is one sku received in a shipment.
type ShipmentLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	ShipmentID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_shipment_line_sku,priority:1"`
	Position     int             `gorm:"not null;default:0"`
	SKU          string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_shipment_line_sku,priority:2;index"`
	Name         string          `gorm:"type:varchar(300)"`
	QtyReceived  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtySold      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QtyAvailable decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ShipmentLineModel) TableName() string {
	return "shipment_lines"
}

// ToDomain converts the persistence model to a domain ShipmentLine.
func (m *ShipmentLineModel) ToDomain() inventory.ShipmentLine {
	return inventory.ShipmentLine{
		SKU:          m.SKU,
		Name:         m.Name,
		QtyReceived:  m.QtyReceived,
		QtySold:      m.QtySold,
		QtyAvailable: m.QtyAvailable,
		UnitPrice:    m.UnitPrice,
		TaxRate:      m.TaxRate,
	}
}
