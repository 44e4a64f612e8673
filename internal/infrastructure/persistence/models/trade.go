package models

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
// Addresses and shipping groups are stored as JSON.
type OrderModel struct {
	AggregateModel
	OrderNumber     int64                 `gorm:"not null;uniqueIndex"`
	ExternalOrderID string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_channel_ref,priority:1"`
	Channel         string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_order_channel_ref,priority:2"`
	ChannelName     string                `gorm:"type:varchar(100)"`
	OrderDate       time.Time             `gorm:"not null;index"`
	Status          string                `gorm:"type:varchar(40);not null;index"`
	Price           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingPrice   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Customer        trade.Address         `gorm:"serializer:json"`
	ShippingAddress trade.Address         `gorm:"serializer:json"`
	BillingAddress  trade.Address         `gorm:"serializer:json"`
	ShippingGroups  []ShippingGroupRecord `gorm:"serializer:json"`
	Reserved        bool                  `gorm:"not null;default:false"`
	ConfirmedAt     *time.Time
	CancelReason    string `gorm:"type:varchar(40)"`
	RefundStatus    string `gorm:"type:varchar(20)"`
	// Associations
	Lines []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ShippingGroupRecord is the JSON form of a shipping group
type ShippingGroupRecord struct {
	ID            uuid.UUID            `json:"id"`
	Reference     string               `json:"reference"`
	SellerID      int64                `json:"seller_id"`
	SellerName    string               `json:"seller_name"`
	DeliveryType  string               `json:"delivery_type"`
	LineSKUs      []string             `json:"skus"`
	Carrier       string               `json:"carrier,omitempty"`
	OperationType string               `json:"operation_type,omitempty"`
	Tracking      string               `json:"tracking,omitempty"`
	TrackingLink  string               `json:"tracking_link,omitempty"`
	Weight        decimal.Decimal      `json:"weight"`
	LogisticClass string               `json:"logistic_class,omitempty"`
	Timeline      string               `json:"timeline"`
	History       []trade.HistoryEntry `json:"history"`
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		ExternalOrderID:   m.ExternalOrderID,
		Channel:           m.Channel,
		ChannelName:       m.ChannelName,
		OrderDate:         m.OrderDate,
		Status:            trade.OrderStatus(m.Status),
		Price:             m.Price,
		ShippingPrice:     m.ShippingPrice,
		Customer:          m.Customer,
		ShippingAddress:   m.ShippingAddress,
		BillingAddress:    m.BillingAddress,
		Reserved:          m.Reserved,
		ConfirmedAt:       m.ConfirmedAt,
		CancelReason:      trade.CancelReason(m.CancelReason),
		RefundStatus:      trade.RefundStatus(m.RefundStatus),
		Lines:             make([]trade.OrderLine, len(m.Lines)),
		ShippingGroups:    make([]trade.ShippingGroup, len(m.ShippingGroups)),
	}
	for i := range m.Lines {
		o.Lines[i] = m.Lines[i].ToDomain()
	}
	for i, g := range m.ShippingGroups {
		o.ShippingGroups[i] = trade.ShippingGroup{
			ID:            g.ID,
			Reference:     g.Reference,
			SellerID:      g.SellerID,
			SellerName:    g.SellerName,
			DeliveryType:  catalog.DeliveryType(g.DeliveryType),
			LineSKUs:      g.LineSKUs,
			Carrier:       g.Carrier,
			OperationType: g.OperationType,
			Tracking:      g.Tracking,
			TrackingLink:  g.TrackingLink,
			Weight:        g.Weight,
			LogisticClass: catalog.LogisticClass(g.LogisticClass),
			Timeline:      trade.OrderTimeline(g.Timeline),
			History:       g.History,
		}
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.ExternalOrderID = o.ExternalOrderID
	m.Channel = o.Channel
	m.ChannelName = o.ChannelName
	m.OrderDate = o.OrderDate
	m.Status = string(o.Status)
	m.Price = o.Price
	m.ShippingPrice = o.ShippingPrice
	m.Customer = o.Customer
	m.ShippingAddress = o.ShippingAddress
	m.BillingAddress = o.BillingAddress
	m.Reserved = o.Reserved
	m.ConfirmedAt = o.ConfirmedAt
	m.CancelReason = string(o.CancelReason)
	m.RefundStatus = string(o.RefundStatus)

	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i].FromDomain(o.ID, i, &o.Lines[i])
	}

	m.ShippingGroups = make([]ShippingGroupRecord, len(o.ShippingGroups))
	for i, g := range o.ShippingGroups {
		m.ShippingGroups[i] = ShippingGroupRecord{
			ID:            g.ID,
			Reference:     g.Reference,
			SellerID:      g.SellerID,
			SellerName:    g.SellerName,
			DeliveryType:  string(g.DeliveryType),
			LineSKUs:      g.LineSKUs,
			Carrier:       g.Carrier,
			OperationType: g.OperationType,
			Tracking:      g.Tracking,
			TrackingLink:  g.TrackingLink,
			Weight:        g.Weight,
			LogisticClass: string(g.LogisticClass),
			Timeline:      string(g.Timeline),
			History:       g.History,
		}
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for an order line.
type OrderLineModel struct {
	ID              uuid.UUID              `gorm:"type:uuid;primary_key"`
	OrderID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	Position        int                    `gorm:"not null"`
	ChannelLineID   string                 `gorm:"type:varchar(100)"`
	SKU             string                 `gorm:"column:sku;type:varchar(100);not null;index"`
	EAN             string                 `gorm:"column:ean;type:varchar(50)"`
	Name            string                 `gorm:"type:varchar(300)"`
	Quantity        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	SellerID        int64                  `gorm:"not null;default:0;index"`
	DeliveryType    string                 `gorm:"type:varchar(20)"`
	Weight          decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	VAT             decimal.Decimal        `gorm:"column:vat;type:decimal(8,4);not null;default:0"`
	IEC             decimal.Decimal        `gorm:"column:iec;type:decimal(18,4);not null;default:0"`
	BOM             []catalog.BOMLine      `gorm:"column:bom;serializer:json"`
	Allocations     []trade.LineAllocation `gorm:"serializer:json"`
	ShipmentNumbers []int64                `gorm:"serializer:json"`
	Dropship        []string               `gorm:"serializer:json"`
	QuantityDone    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine.
func (m *OrderLineModel) ToDomain() trade.OrderLine {
	l := trade.OrderLine{
		ID:              m.ID,
		ChannelLineID:   m.ChannelLineID,
		SKU:             m.SKU,
		EAN:             m.EAN,
		Name:            m.Name,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		SellerID:        m.SellerID,
		DeliveryType:    catalog.DeliveryType(m.DeliveryType),
		Weight:          m.Weight,
		VAT:             m.VAT,
		IEC:             m.IEC,
		Allocations:     m.Allocations,
		ShipmentNumbers: m.ShipmentNumbers,
		Dropship:        m.Dropship,
		QuantityDone:    m.QuantityDone,
	}
	if len(m.BOM) > 0 {
		l.BOM = &catalog.BOM{SKU: m.SKU, Lines: m.BOM}
	}
	return l
}

// FromDomain populates the persistence model from a domain OrderLine.
func (m *OrderLineModel) FromDomain(orderID uuid.UUID, position int, l *trade.OrderLine) {
	m.ID = l.ID
	m.OrderID = orderID
	m.Position = position
	m.ChannelLineID = l.ChannelLineID
	m.SKU = l.SKU
	m.EAN = l.EAN
	m.Name = l.Name
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.SellerID = l.SellerID
	m.DeliveryType = string(l.DeliveryType)
	m.Weight = l.Weight
	m.VAT = l.VAT
	m.IEC = l.IEC
	m.BOM = nil
	if l.BOM.IsPack() {
		m.BOM = l.BOM.Lines
	}
	m.Allocations = l.Allocations
	m.ShipmentNumbers = l.ShipmentNumbers
	m.Dropship = l.Dropship
	m.QuantityDone = l.QuantityDone
}
