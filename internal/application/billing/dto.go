package billing

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarkPaymentRequest represents a request to record a billing's payment state
type MarkPaymentRequest struct {
	PaymentState string `json:"payment_state" binding:"required,oneof=not_paid in_payment paid reversed pending canceled"`
}

// VendorBillingResponse represents a vendor billing in API responses
type VendorBillingResponse struct {
	ID             uuid.UUID             `json:"id"`
	BillingName    string                `json:"billing_name"`
	RelatedOrder   int64                 `json:"related_sale_order"`
	ShipmentNumber *int64                `json:"shipment_number,omitempty"`
	PartnerID      int64                 `json:"partner_id"`
	State          string                `json:"state"`
	PaymentState   string                `json:"payment_state"`
	DateCreation   time.Time             `json:"date_creation"`
	PayDeadline    time.Time             `json:"pay_deadline"`
	DateApprove    *time.Time            `json:"date_approve,omitempty"`
	DateBilling    *time.Time            `json:"date_billing,omitempty"`
	PaymentDate    *time.Time            `json:"payment_date,omitempty"`
	AmountUntaxed  decimal.Decimal       `json:"amount_untaxed"`
	AmountTax      decimal.Decimal       `json:"amount_tax"`
	AmountTotal    decimal.Decimal       `json:"amount_total"`
	Lines          []BillingLineResponse `json:"lines"`
	Version        int                   `json:"version"`
}

// BillingLineResponse represents a billing line in API responses
type BillingLineResponse struct {
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
}

// ToVendorBillingResponse converts a domain VendorBilling to a response DTO
func ToVendorBillingResponse(b *billing.VendorBilling) VendorBillingResponse {
	lines := make([]BillingLineResponse, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, BillingLineResponse{
			SKU:           l.SKU,
			Name:          l.Name,
			Quantity:      l.Quantity,
			PriceUnit:     l.PriceUnit,
			IVA:           l.IVA,
			IEC:           l.IEC,
			PriceSubtotal: l.PriceSubtotal,
			PriceTax:      l.PriceTax,
			PriceTotal:    l.PriceTotal,
			Breakdown:     l.Breakdown,
		})
	}
	return VendorBillingResponse{
		ID:             b.ID,
		BillingName:    b.BillingName,
		RelatedOrder:   b.RelatedOrder,
		ShipmentNumber: b.ShipmentNumber,
		PartnerID:      b.PartnerID,
		State:          string(b.State),
		PaymentState:   string(b.PaymentState),
		DateCreation:   b.DateCreation,
		PayDeadline:    b.PayDeadline,
		DateApprove:    b.DateApprove,
		DateBilling:    b.DateBilling,
		PaymentDate:    b.PaymentDate,
		AmountUntaxed:  b.AmountUntaxed,
		AmountTax:      b.AmountTax,
		AmountTotal:    b.AmountTotal,
		Lines:          lines,
		Version:        b.Version,
	}
}
