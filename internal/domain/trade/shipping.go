package trade

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// InitShippingGroups builds one shipping group per seller from the order's resolved lines.
// Lines without a seller are left out. Existing groups are replaced.
func (o *Order) InitShippingGroups(sellers map[int64]*catalog.Seller, table catalog.CountryTaxTable, country catalog.Country, at time.Time) {
	groups := make([]ShippingGroup, 0)
	index := make(map[int64]int)
	amounts := make(map[int64]decimal.Decimal)

	for _, l := range o.Lines {
		if l.SellerID == 0 {
			continue
		}
		i, ok := index[l.SellerID]
		if !ok {
			var name, carrier string
			if s := sellers[l.SellerID]; s != nil {
				name, carrier = s.Name, s.Carrier
			}
			groups = append(groups, NewShippingGroup(l.SellerID, name, l.DeliveryType, carrier, at))
			i = len(groups) - 1
			index[l.SellerID] = i
			amounts[l.SellerID] = decimal.Zero
		}
		g := &groups[i]
		g.LineSKUs = append(g.LineSKUs, l.SKU)
		g.Weight = g.Weight.Add(l.Weight.Mul(l.Quantity))
		amounts[l.SellerID] = amounts[l.SellerID].Add(l.Amount())
	}

	for i := range groups {
		g := &groups[i]
		match, ok := table.MatchLogisticClass(catalog.LogisticQuery{
			Country:      country,
			DeliveryType: g.DeliveryType,
			Weight:       decimal.NewNullDecimal(g.Weight),
			Price:        decimal.NewNullDecimal(amounts[g.SellerID]),
		})
		if ok {
			g.LogisticClass = match.Class
		}
	}

	o.ShippingGroups = groups
	o.Touch()
}
