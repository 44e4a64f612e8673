package models

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBillingModel is the persistence model for the VendorBilling aggregate root.
type VendorBillingModel struct {
	AggregateModel
	BillingName    string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	RelatedOrder   int64     `gorm:"not null;index"`
	ShipmentNumber *int64    `gorm:"index"`
	PartnerID      int64     `gorm:"not null;index"`
	State          string    `gorm:"type:varchar(20);not null;default:'draft'"`
	PaymentState   string    `gorm:"type:varchar(20);not null;default:'not_paid'"`
	DateCreation   time.Time `gorm:"not null"`
	PayDeadline    time.Time `gorm:"not null"`
	DateApprove    *time.Time
	DateBilling    *time.Time
	PaymentDate    *time.Time
	AmountUntaxed  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AmountTax      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AmountTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	// Associations
	Lines []VendorBillingLineModel `gorm:"foreignKey:BillingID;references:ID"`
}

// TableName returns the table name for GORM
func (VendorBillingModel) TableName() string {
	return "vendor_billings"
}

// ToDomain converts the persistence model to a domain VendorBilling.
func (m *VendorBillingModel) ToDomain() *billing.VendorBilling {
	b := &billing.VendorBilling{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BillingName:       m.BillingName,
		RelatedOrder:      m.RelatedOrder,
		ShipmentNumber:    m.ShipmentNumber,
		PartnerID:         m.PartnerID,
		Lines:             make([]billing.BillingLine, len(m.Lines)),
		State:             billing.BillingState(m.State),
		PaymentState:      billing.PaymentState(m.PaymentState),
		DateCreation:      m.DateCreation,
		PayDeadline:       m.PayDeadline,
		DateApprove:       m.DateApprove,
		DateBilling:       m.DateBilling,
		PaymentDate:       m.PaymentDate,
		AmountUntaxed:     m.AmountUntaxed,
		AmountTax:         m.AmountTax,
		AmountTotal:       m.AmountTotal,
	}
	for i := range m.Lines {
		b.Lines[i] = m.Lines[i].ToDomain()
	}
	return b
}

// FromDomain populates the persistence model from a domain VendorBilling.
func (m *VendorBillingModel) FromDomain(b *billing.VendorBilling) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.BillingName = b.BillingName
	m.RelatedOrder = b.RelatedOrder
	m.ShipmentNumber = b.ShipmentNumber
	m.PartnerID = b.PartnerID
	m.State = string(b.State)
	m.PaymentState = string(b.PaymentState)
	m.DateCreation = b.DateCreation
	m.PayDeadline = b.PayDeadline
	m.DateApprove = b.DateApprove
	m.DateBilling = b.DateBilling
	m.PaymentDate = b.PaymentDate
	m.AmountUntaxed = b.AmountUntaxed
	m.AmountTax = b.AmountTax
	m.AmountTotal = b.AmountTotal

	m.Lines = make([]VendorBillingLineModel, len(b.Lines))
	for i := range b.Lines {
		m.Lines[i].FromDomain(b.ID, i, &b.Lines[i])
	}
}

// VendorBillingModelFromDomain creates a new persistence model from a domain VendorBilling.
func VendorBillingModelFromDomain(b *billing.VendorBilling) *VendorBillingModel {
	m := &VendorBillingModel{}
	m.FromDomain(b)
	return m
}

// VendorBillingLineModel is one billed sku. Lines are rewritten on every save,
// so their IDs are derived from the billing and the line position.
type VendorBillingLineModel struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key"`
	BillingID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Position      int               `gorm:"not null"`
	SKU           string            `gorm:"column:sku;type:varchar(100);not null"`
	Name          string            `gorm:"type:varchar(300)"`
	Quantity      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	PriceUnit     decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	IVA           decimal.Decimal   `gorm:"column:iva;type:decimal(8,4);not null;default:0"`
	IEC           decimal.Decimal   `gorm:"column:iec;type:decimal(18,4);not null;default:0"`
	PriceSubtotal decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	PriceTax      decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	PriceTotal    decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	Breakdown     pricing.Breakdown `gorm:"serializer:json"`
	DateBilling   *time.Time
}

// TableName returns the table name for GORM
func (VendorBillingLineModel) TableName() string {
	return "vendor_billing_lines"
}

// ToDomain converts the persistence model to a domain BillingLine.
func (m *VendorBillingLineModel) ToDomain() billing.BillingLine {
	return billing.BillingLine{
		SKU:           m.SKU,
		Name:          m.Name,
		Quantity:      m.Quantity,
		PriceUnit:     m.PriceUnit,
		IVA:           m.IVA,
		IEC:           m.IEC,
		PriceSubtotal: m.PriceSubtotal,
		PriceTax:      m.PriceTax,
		PriceTotal:    m.PriceTotal,
		Breakdown:     m.Breakdown,
		DateBilling:   m.DateBilling,
	}
}

// FromDomain populates the persistence model from a domain BillingLine.
func (m *VendorBillingLineModel) FromDomain(billingID uuid.UUID, position int, l *billing.BillingLine) {
	m.ID = uuid.NewSHA1(billingID, []byte{byte(position >> 8), byte(position)})
	m.BillingID = billingID
	m.Position = position
	m.SKU = l.SKU
	m.Name = l.Name
	m.Quantity = l.Quantity
	m.PriceUnit = l.PriceUnit
	m.IVA = l.IVA
	m.IEC = l.IEC
	m.PriceSubtotal = l.PriceSubtotal
	m.PriceTax = l.PriceTax
	m.PriceTotal = l.PriceTotal
	m.Breakdown = l.Breakdown
	m.DateBilling = l.DateBilling
}
