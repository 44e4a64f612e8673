// Package pricing holds the price decomposition of an offer and the pricing
// models that build it forward from costs or solve it backward from a
// realized sale price.
//
// All arithmetic is carried at full decimal precision. Values are rounded to
// two places only when persisted, see Breakdown.Rounded.
package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Breakdown is the price decomposition of an offer on one sales channel.
// Rates are percentages (23 means 23%), every other numeric field is an amount.
type Breakdown struct {
	// Cost side
	Cost          decimal.Decimal `json:"cost"`
	Transport     decimal.Decimal `json:"transport"`
	PaymentCosts  decimal.Decimal `json:"paymentCosts"`
	CostVAT       decimal.Decimal `json:"costVAT"`
	CostVATValue  decimal.Decimal `json:"costVATValue"`
	Markup        decimal.Decimal `json:"markup"`
	FulfillCost   decimal.Decimal `json:"fulfillCost"`
	Duty          decimal.Decimal `json:"duty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`

	// Operator margin and channel fees
	ZeoosRate       decimal.Decimal `json:"zeoosRate"`
	ZeoosValue      decimal.Decimal `json:"zeoosValue"`
	PvpBase         decimal.Decimal `json:"pvpBase"`
	PlatformRate    decimal.Decimal `json:"platformRate"`
	PlatformValue   decimal.Decimal `json:"platformValue"`
	ProductVAT      decimal.Decimal `json:"productVAT"`
	ProductVATValue decimal.Decimal `json:"productVATValue"`
	PvpFinal        decimal.Decimal `json:"pvpFinal"`

	// Freight
	FreightName     string          `json:"freightName,omitempty"`
	Freight         decimal.Decimal `json:"freight"`
	FreightVAT      decimal.Decimal `json:"freightVAT"`
	FreightVATValue decimal.Decimal `json:"freightVATValue"`
	FreightPlatform decimal.Decimal `json:"freightPlatform"`
	FreightFinal    decimal.Decimal `json:"freightFinal"`

	// Legacy vendor-price fields
	VendorPrice   decimal.Decimal `json:"vendorPrice"`
	VendorRate    decimal.Decimal `json:"vendorRate"`
	Iva           decimal.Decimal `json:"iva"`
	IvaValue      decimal.Decimal `json:"ivaValue"`
	Iec           decimal.Decimal `json:"iec"`
	DeliveryPrice decimal.Decimal `json:"deliveryPrice"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	Price         decimal.Decimal `json:"price"`
	VinuusPrice   decimal.Decimal `json:"vinuusPrice"`
	VinuusRate    decimal.Decimal `json:"vinuusRate"`
	VinuusMargin  decimal.Decimal `json:"vinuusMargin"`
	Services      decimal.Decimal `json:"services"`
}

// monetaryFields lists the amount fields of b. Rates are excluded.
func (b *Breakdown) monetaryFields() []*decimal.Decimal {
	return []*decimal.Decimal{
		&b.Cost, &b.Transport, &b.PaymentCosts, &b.CostVATValue, &b.FulfillCost, &b.Duty, &b.PurchasePrice,
		&b.ZeoosValue, &b.PvpBase, &b.PlatformValue, &b.ProductVATValue, &b.PvpFinal,
		&b.Freight, &b.FreightVATValue, &b.FreightPlatform, &b.FreightFinal,
		&b.VendorPrice, &b.IvaValue, &b.Iec, &b.DeliveryPrice, &b.BasePrice, &b.Price,
		&b.VinuusPrice, &b.VinuusMargin, &b.Services,
	}
}

func (b *Breakdown) rateFields() []*decimal.Decimal {
	return []*decimal.Decimal{
		&b.CostVAT, &b.Markup, &b.ZeoosRate, &b.PlatformRate, &b.ProductVAT, &b.FreightVAT,
		&b.VendorRate, &b.Iva, &b.VinuusRate,
	}
}

// MapAmounts returns a copy of b with fn applied to every amount field.
// Rates and the freight name are carried over unchanged.
func (b Breakdown) MapAmounts(fn func(decimal.Decimal) decimal.Decimal) Breakdown {
	out := b
	for _, f := range out.monetaryFields() {
		*f = fn(*f)
	}
	return out
}

// Rounded returns a copy of b with every numeric field rounded to 2 places,
// the form in which a breakdown is stored.
func (b Breakdown) Rounded() Breakdown {
	out := b.MapAmounts(func(d decimal.Decimal) decimal.Decimal { return d.Round(2) })
	for _, f := range out.rateFields() {
		*f = f.Round(2)
	}
	return out
}

// pct converts a percentage into a fraction.
func pct(rate decimal.Decimal) decimal.Decimal {
	return rate.Div(hundred)
}
