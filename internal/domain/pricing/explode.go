package pricing

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Component is one bill-of-materials line of a pack, priced by its own offer
type Component struct {
	SKU      string
	Name     string
	Quantity decimal.Decimal // units of the component per pack
	PvpFinal decimal.Decimal // final price of the component's own offer
}

// ComponentShare is the part of a pack breakdown attributed to one component
type ComponentShare struct {
	SKU      string
	Name     string
	Quantity decimal.Decimal
	Weight   decimal.Decimal // PvpFinal x Quantity
	Percent  decimal.Decimal // Weight / total x 100
	Share    Breakdown       // amounts for all Quantity units of the component
	Unit     Breakdown       // amounts per unit, Share / Quantity
}

// Explode distributes the amounts of a pack breakdown over its components in
// proportion to each component's price weight. Rates pass through unchanged.
//
// The last component takes the remainder so that the shares of every amount
// sum exactly to the pack's value and the percentages sum to 100.
func Explode(pack Breakdown, components []Component) ([]ComponentShare, error) {
	if len(components) == 0 {
		return nil, ErrEmptyPack
	}

	total := decimal.Zero
	weights := make([]decimal.Decimal, len(components))
	for i, c := range components {
		if !c.Quantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_COMPONENT_QUANTITY", "component "+c.SKU+" must have a positive quantity")
		}
		if c.PvpFinal.IsNegative() {
			return nil, shared.NewDomainError("INVALID_COMPONENT_PRICE", "component "+c.SKU+" has a negative price")
		}
		weights[i] = c.PvpFinal.Mul(c.Quantity)
		total = total.Add(weights[i])
	}
	if total.IsZero() {
		return nil, ErrPackWeightZero
	}

	shares := make([]ComponentShare, len(components))
	var distributed Breakdown
	percentUsed := decimal.Zero
	last := len(components) - 1

	for i, c := range components {
		var share Breakdown
		var percent decimal.Decimal
		if i == last {
			share = subtractAmounts(pack, distributed)
			percent = hundred.Sub(percentUsed)
		} else {
			ratio := weights[i].Div(total)
			share = pack.MapAmounts(func(d decimal.Decimal) decimal.Decimal { return d.Mul(ratio) })
			percent = ratio.Mul(hundred)
			distributed = addAmounts(distributed, share)
			percentUsed = percentUsed.Add(percent)
		}

		qty := c.Quantity
		shares[i] = ComponentShare{
			SKU:      c.SKU,
			Name:     c.Name,
			Quantity: qty,
			Weight:   weights[i],
			Percent:  percent,
			Share:    share,
			Unit:     share.MapAmounts(func(d decimal.Decimal) decimal.Decimal { return d.Div(qty) }),
		}
	}
	return shares, nil
}

func addAmounts(a, b Breakdown) Breakdown {
	out := a
	dst := out.monetaryFields()
	src := b.monetaryFields()
	for i := range dst {
		*dst[i] = dst[i].Add(*src[i])
	}
	return out
}

// subtractAmounts returns a with b's amounts taken away; rates come from a
func subtractAmounts(a, b Breakdown) Breakdown {
	out := a
	dst := out.monetaryFields()
	src := b.monetaryFields()
	for i := range dst {
		*dst[i] = dst[i].Sub(*src[i])
	}
	return out
}
