package pricing

import "github.com/shopspring/decimal"

// checkRates rejects rates outside [0, 100)
func checkRates(rates ...decimal.Decimal) error {
	for _, r := range rates {
		if r.IsNegative() || r.GreaterThanOrEqual(hundred) {
			return ErrInvalidRate
		}
	}
	return nil
}

// grossUp returns amount / (1 - rate%)
func grossUp(amount, rate decimal.Decimal) (decimal.Decimal, error) {
	if err := checkRates(rate); err != nil {
		return decimal.Zero, err
	}
	return amount.Div(one.Sub(pct(rate))), nil
}

// applyFreight fills the freight VAT and the customer-facing freight amount
// from the seller's freight. FreightPlatform is ignored.
func applyFreight(b *Breakdown) {
	setFreight(b, b.Freight)
}

// applyPlatformFreight also charges the platform's own freight leg. Only the
// wholesaler contract carries one.
func applyPlatformFreight(b *Breakdown) {
	setFreight(b, b.Freight.Add(b.FreightPlatform))
}

func setFreight(b *Breakdown, taxable decimal.Decimal) {
	b.FreightVATValue = taxable.Mul(pct(b.FreightVAT))
	b.FreightFinal = taxable.Add(b.FreightVATValue)
}

// applyChannel turns b.PvpBase into the final price: the platform fee is
// grossed up on top of the base, then product VAT and freight are added.
func applyChannel(b *Breakdown) error {
	if b.ProductVAT.IsNegative() {
		return ErrInvalidRate
	}
	net, err := grossUp(b.PvpBase, b.PlatformRate)
	if err != nil {
		return err
	}
	b.PlatformValue = net.Sub(b.PvpBase)
	b.ProductVATValue = net.Mul(pct(b.ProductVAT))
	b.PvpFinal = net.Add(b.ProductVATValue).Add(b.FreightFinal)
	return nil
}

// baseFromFinal inverts applyChannel, returning the pvpBase that yields target
func baseFromFinal(b Breakdown, target decimal.Decimal) (decimal.Decimal, error) {
	if err := checkRates(b.PlatformRate); err != nil {
		return decimal.Zero, err
	}
	if b.ProductVAT.IsNegative() {
		return decimal.Zero, ErrInvalidRate
	}
	net := target.Sub(b.FreightFinal).Div(one.Add(pct(b.ProductVAT)))
	base := net.Mul(one.Sub(pct(b.PlatformRate)))
	if base.IsNegative() {
		return decimal.Zero, ErrInvalidFinalPrice
	}
	return base, nil
}

// ============================================
// fullBreakdown
// ============================================

// FullBreakdownModel marks the cost up, adds fulfilment and duty, then the
// operator rate on top of the purchase price. Reverse solves the markup.
type FullBreakdownModel struct {
	BaseModel
}

// NewFullBreakdownModel creates the fullBreakdown model
func NewFullBreakdownModel() *FullBreakdownModel {
	return &FullBreakdownModel{
		BaseModel: NewBaseModel(ModelFullBreakdown, "Cost with markup, fulfilment and duty, operator rate on purchase price"),
	}
}

// Compute derives the breakdown from cost, markup and rates
func (m *FullBreakdownModel) Compute(b Breakdown) (Breakdown, error) {
	if err := checkRates(b.ZeoosRate); err != nil {
		return Breakdown{}, err
	}
	b.PurchasePrice = b.Cost.Mul(one.Add(pct(b.Markup))).Add(b.FulfillCost).Add(b.Duty)
	b.ZeoosValue = b.PurchasePrice.Mul(pct(b.ZeoosRate))
	b.PvpBase = b.PurchasePrice.Add(b.ZeoosValue)
	applyFreight(&b)
	if err := applyChannel(&b); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

// Reverse solves the markup for target
func (m *FullBreakdownModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	if err := checkRates(b.ZeoosRate); err != nil {
		return Breakdown{}, err
	}
	if !b.Cost.IsPositive() {
		return Breakdown{}, ErrMissingCost
	}
	applyFreight(&b)
	base, err := baseFromFinal(b, target)
	if err != nil {
		return Breakdown{}, err
	}
	purchase := base.Div(one.Add(pct(b.ZeoosRate)))
	marked := purchase.Sub(b.FulfillCost).Sub(b.Duty)
	b.Markup = marked.Div(b.Cost).Sub(one).Mul(hundred)
	return m.Compute(b)
}

// UnitPrice bills the purchase price
func (m *FullBreakdownModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.PurchasePrice
}

// ============================================
// wholesaler
// ============================================

// WholesalerModel bills cost plus transport and takes the operator rate on
// top of it. The platform may charge its own freight leg. Reverse solves the cost.
type WholesalerModel struct {
	BaseModel
}

// NewWholesalerModel creates the wholesaler model
func NewWholesalerModel() *WholesalerModel {
	return &WholesalerModel{
		BaseModel: NewBaseModel(ModelWholesaler, "Wholesale cost plus transport, operator rate on purchase price"),
	}
}

// Compute derives the breakdown from cost, transport and rates
func (m *WholesalerModel) Compute(b Breakdown) (Breakdown, error) {
	if err := checkRates(b.ZeoosRate, b.CostVAT); err != nil {
		return Breakdown{}, err
	}
	b.CostVATValue = b.Cost.Mul(pct(b.CostVAT))
	b.PurchasePrice = b.Cost.Add(b.Transport)
	b.ZeoosValue = b.PurchasePrice.Mul(pct(b.ZeoosRate))
	b.PvpBase = b.PurchasePrice.Add(b.ZeoosValue)
	applyPlatformFreight(&b)
	if err := applyChannel(&b); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

// Reverse solves the wholesale cost for target
func (m *WholesalerModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	if err := checkRates(b.ZeoosRate); err != nil {
		return Breakdown{}, err
	}
	applyPlatformFreight(&b)
	base, err := baseFromFinal(b, target)
	if err != nil {
		return Breakdown{}, err
	}
	b.Cost = base.Div(one.Add(pct(b.ZeoosRate))).Sub(b.Transport)
	if b.Cost.IsNegative() {
		return Breakdown{}, ErrInvalidFinalPrice
	}
	return m.Compute(b)
}

// UnitPrice bills the purchase price
func (m *WholesalerModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.PurchasePrice
}

// ============================================
// wortenSeller
// ============================================

// WortenSellerModel takes the operator and platform rates together off the
// VAT-exclusive consumer price. Reverse solves the seller's purchase price.
type WortenSellerModel struct {
	BaseModel
}

// NewWortenSellerModel creates the wortenSeller model
func NewWortenSellerModel() *WortenSellerModel {
	return &WortenSellerModel{
		BaseModel: NewBaseModel(ModelWortenSeller, "Operator and platform rates taken together off the net consumer price"),
	}
}

func (m *WortenSellerModel) keep(b Breakdown) (decimal.Decimal, error) {
	if err := checkRates(b.ZeoosRate, b.PlatformRate, b.ZeoosRate.Add(b.PlatformRate)); err != nil {
		return decimal.Zero, err
	}
	return one.Sub(pct(b.ZeoosRate.Add(b.PlatformRate))), nil
}

// Compute derives the breakdown from purchase price, transport and rates
func (m *WortenSellerModel) Compute(b Breakdown) (Breakdown, error) {
	keep, err := m.keep(b)
	if err != nil {
		return Breakdown{}, err
	}
	if b.ProductVAT.IsNegative() {
		return Breakdown{}, ErrInvalidRate
	}
	net := b.PurchasePrice.Add(b.Transport).Div(keep)
	b.PvpBase = net
	b.ZeoosValue = net.Mul(pct(b.ZeoosRate))
	b.PlatformValue = net.Mul(pct(b.PlatformRate))
	b.ProductVATValue = net.Mul(pct(b.ProductVAT))
	applyFreight(&b)
	b.PvpFinal = net.Add(b.ProductVATValue).Add(b.FreightFinal)
	return b, nil
}

// Reverse solves the purchase price for target
func (m *WortenSellerModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	keep, err := m.keep(b)
	if err != nil {
		return Breakdown{}, err
	}
	if b.ProductVAT.IsNegative() {
		return Breakdown{}, ErrInvalidRate
	}
	applyFreight(&b)
	net := target.Sub(b.FreightFinal).Div(one.Add(pct(b.ProductVAT)))
	b.PurchasePrice = net.Mul(keep).Sub(b.Transport)
	if b.PurchasePrice.IsNegative() {
		return Breakdown{}, ErrInvalidFinalPrice
	}
	return m.Compute(b)
}

// UnitPrice bills the purchase price
func (m *WortenSellerModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.PurchasePrice
}

// ============================================
// pvpAndCost
// ============================================

// PvpAndCostModel fixes both the seller's cost and the consumer price; the
// operator margin absorbs the difference. Reverse solves the margin.
type PvpAndCostModel struct {
	BaseModel
}

// NewPvpAndCostModel creates the pvpAndCost model
func NewPvpAndCostModel() *PvpAndCostModel {
	return &PvpAndCostModel{
		BaseModel: NewBaseModel(ModelPvpAndCost, "Seller fixes cost and consumer price, operator margin floats"),
	}
}

// Compute derives the breakdown from cost, transport and the operator margin
func (m *PvpAndCostModel) Compute(b Breakdown) (Breakdown, error) {
	b.PurchasePrice = b.Cost.Add(b.Transport)
	b.PvpBase = b.PurchasePrice.Add(b.ZeoosValue)
	if b.PvpBase.IsNegative() {
		return Breakdown{}, ErrInvalidFinalPrice
	}
	if b.PurchasePrice.IsPositive() {
		b.ZeoosRate = b.ZeoosValue.Div(b.PurchasePrice).Mul(hundred)
	} else {
		b.ZeoosRate = decimal.Zero
	}
	applyFreight(&b)
	if err := applyChannel(&b); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

// Reverse solves the operator margin for target
func (m *PvpAndCostModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	applyFreight(&b)
	base, err := baseFromFinal(b, target)
	if err != nil {
		return Breakdown{}, err
	}
	b.ZeoosValue = base.Sub(b.Cost.Add(b.Transport))
	return m.Compute(b)
}

// UnitPrice bills the purchase price
func (m *PvpAndCostModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.PurchasePrice
}

// ============================================
// d2c
// ============================================

// D2CModel sells direct to consumer with no operator rate: cost and transport
// are marked up and the platform fee grossed up. Reverse solves the markup.
type D2CModel struct {
	BaseModel
}

// NewD2CModel creates the d2c model
func NewD2CModel() *D2CModel {
	return &D2CModel{
		BaseModel: NewBaseModel(ModelD2C, "Direct to consumer, markup on cost and transport, no operator rate"),
	}
}

// Compute derives the breakdown from cost, transport and markup
func (m *D2CModel) Compute(b Breakdown) (Breakdown, error) {
	b.PurchasePrice = b.Cost
	b.PvpBase = b.Cost.Add(b.Transport).Mul(one.Add(pct(b.Markup)))
	if b.PvpBase.IsNegative() {
		return Breakdown{}, ErrInvalidFinalPrice
	}
	b.ZeoosValue = decimal.Zero
	applyFreight(&b)
	if err := applyChannel(&b); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

// Reverse solves the markup for target
func (m *D2CModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	landed := b.Cost.Add(b.Transport)
	if !landed.IsPositive() {
		return Breakdown{}, ErrMissingCost
	}
	applyFreight(&b)
	base, err := baseFromFinal(b, target)
	if err != nil {
		return Breakdown{}, err
	}
	b.Markup = base.Div(landed).Sub(one).Mul(hundred)
	return m.Compute(b)
}

// UnitPrice bills the cost
func (m *D2CModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.Cost
}

// ============================================
// default (legacy vendor price)
// ============================================

// DefaultModel is the legacy contract: a VAT-exclusive vendor price plus
// excise, grossed up by the vendor rate, then IVA and delivery on top.
// Reverse solves the vendor price.
type DefaultModel struct {
	BaseModel
}

// NewDefaultModel creates the legacy default model
func NewDefaultModel() *DefaultModel {
	return &DefaultModel{
		BaseModel: NewBaseModel(ModelDefault, "Legacy vendor price with excise, vendor rate, IVA and delivery"),
	}
}

// Compute derives the breakdown from vendor price, excise and rates
func (m *DefaultModel) Compute(b Breakdown) (Breakdown, error) {
	if b.Iva.IsNegative() {
		return Breakdown{}, ErrInvalidRate
	}
	base, err := grossUp(b.VendorPrice.Add(b.Iec), b.VendorRate)
	if err != nil {
		return Breakdown{}, err
	}
	b.BasePrice = base
	b.VinuusMargin = base.Sub(b.VendorPrice).Sub(b.Iec)
	b.IvaValue = base.Mul(pct(b.Iva))
	b.Price = base.Add(b.IvaValue).Add(b.DeliveryPrice)
	b.PvpFinal = b.Price
	return b, nil
}

// Reverse solves the vendor price for target
func (m *DefaultModel) Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error) {
	if err := checkRates(b.VendorRate); err != nil {
		return Breakdown{}, err
	}
	if b.Iva.IsNegative() {
		return Breakdown{}, ErrInvalidRate
	}
	base := target.Sub(b.DeliveryPrice).Div(one.Add(pct(b.Iva)))
	b.VendorPrice = base.Mul(one.Sub(pct(b.VendorRate))).Sub(b.Iec)
	if b.VendorPrice.IsNegative() {
		return Breakdown{}, ErrInvalidFinalPrice
	}
	return m.Compute(b)
}

// UnitPrice bills the vendor price
func (m *DefaultModel) UnitPrice(b Breakdown) decimal.Decimal {
	return b.VendorPrice
}

var (
	_ Model = (*FullBreakdownModel)(nil)
	_ Model = (*WholesalerModel)(nil)
	_ Model = (*WortenSellerModel)(nil)
	_ Model = (*PvpAndCostModel)(nil)
	_ Model = (*D2CModel)(nil)
	_ Model = (*DefaultModel)(nil)
)
