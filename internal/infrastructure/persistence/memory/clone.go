package memory

import (
	"slices"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/trade"
)

func cloneBOM(b *catalog.BOM) *catalog.BOM {
	if b == nil {
		return nil
	}
	return &catalog.BOM{SKU: b.SKU, Lines: slices.Clone(b.Lines)}
}

func cloneOrder(o *trade.Order) *trade.Order {
	c := *o
	c.ClearDomainEvents()
	if o.ConfirmedAt != nil {
		at := *o.ConfirmedAt
		c.ConfirmedAt = &at
	}
	c.Lines = make([]trade.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.BOM = cloneBOM(l.BOM)
		l.Allocations = slices.Clone(l.Allocations)
		l.ShipmentNumbers = slices.Clone(l.ShipmentNumbers)
		l.Dropship = slices.Clone(l.Dropship)
		c.Lines[i] = l
	}
	c.ShippingGroups = make([]trade.ShippingGroup, len(o.ShippingGroups))
	for i, g := range o.ShippingGroups {
		g.LineSKUs = slices.Clone(g.LineSKUs)
		g.History = slices.Clone(g.History)
		c.ShippingGroups[i] = g
	}
	return &c
}

func cloneShipment(s *inventory.Shipment) *inventory.Shipment {
	c := *s
	c.ClearDomainEvents()
	c.Lines = slices.Clone(s.Lines)
	return &c
}

func cloneBilling(b *billing.VendorBilling) *billing.VendorBilling {
	c := *b
	c.ClearDomainEvents()
	if b.ShipmentNumber != nil {
		n := *b.ShipmentNumber
		c.ShipmentNumber = &n
	}
	c.Lines = slices.Clone(b.Lines)
	return &c
}

func cloneOffer(o *catalog.Offer) *catalog.Offer {
	c := *o
	return &c
}
