package catalog

import "github.com/shopspring/decimal"

// BOM maps a pack SKU to its component SKUs
type BOM struct {
	SKU   string
	Lines []BOMLine
}

// BOMLine is one component of a pack
type BOMLine struct {
	ComponentSKU string          `json:"component_sku"`
	Quantity     decimal.Decimal `json:"component_qty"` // units per pack
}

// IsPack reports whether the BOM has components
func (b *BOM) IsPack() bool {
	return b != nil && len(b.Lines) > 0
}

// Expand returns the component demand for qty packs
func (b *BOM) Expand(qty decimal.Decimal) []BOMLine {
	if !b.IsPack() {
		return nil
	}
	out := make([]BOMLine, len(b.Lines))
	for i, l := range b.Lines {
		out[i] = BOMLine{ComponentSKU: l.ComponentSKU, Quantity: l.Quantity.Mul(qty)}
	}
	return out
}
