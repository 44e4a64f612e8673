package catalog

// DeliveryType describes who holds the stock and ships it
type DeliveryType string

const (
	// DeliveryFulfillment stock sits in the seller's shipments and ships via the platform carrier
	DeliveryFulfillment DeliveryType = "fulfillment"
	// DeliveryDropshipping ships straight from the seller to the customer against a purchase order
	DeliveryDropshipping DeliveryType = "dropshipping"
	// DeliveryWholesaler is wholesale-sourced stock with no purchase confirmation step
	DeliveryWholesaler DeliveryType = "wholesaler"
)

// IsValid checks if the delivery type is known
func (d DeliveryType) IsValid() bool {
	switch d {
	case DeliveryFulfillment, DeliveryDropshipping, DeliveryWholesaler:
		return true
	}
	return false
}

// String returns the string representation
func (d DeliveryType) String() string {
	return string(d)
}

// UsesShipments reports whether sold quantities are drawn from vendor shipments
func (d DeliveryType) UsesShipments() bool {
	return d == DeliveryFulfillment || d == DeliveryWholesaler
}
