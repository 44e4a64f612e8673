package trade

// OrderStatus is the order-level status. Values are persisted verbatim.
type OrderStatus string

const (
	OrderStatusReserved        OrderStatus = "reserved"
	OrderStatusApproved        OrderStatus = "approved"
	OrderStatusAwaiting        OrderStatus = "waiting_acceptance"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusPurchase        OrderStatus = "purchase_order"
	OrderStatusConfirmPurchase OrderStatus = "confirmation_purchase_order"
	OrderStatusPickup          OrderStatus = "pickup_scheduling"
	OrderStatusInvoice         OrderStatus = "customer_invoice"
	OrderStatusSaveInvoice     OrderStatus = "save_customer_invoice"
	OrderStatusWaitingShipment OrderStatus = "waiting_shipment"
	OrderStatusShipping        OrderStatus = "shipping"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusClosed          OrderStatus = "closed"
	OrderStatusRefused         OrderStatus = "refused"
	OrderStatusReturned        OrderStatus = "returned"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusAction          OrderStatus = "action_required"
	OrderStatusProcessing      OrderStatus = "processing"
)

var statusSeverity = map[OrderStatus]int{
	OrderStatusApproved:        0,
	OrderStatusPurchase:        1,
	OrderStatusConfirmPurchase: 2,
	OrderStatusPickup:          3,
	OrderStatusInvoice:         4,
	OrderStatusSaveInvoice:     5,
	OrderStatusWaitingShipment: 6,
	OrderStatusShipping:        7,
	OrderStatusDelivered:       8,
	OrderStatusCanceled:        9,
	OrderStatusClosed:          10,
	OrderStatusRefused:         11,
	OrderStatusRefunded:        12,
	OrderStatusAction:          13,
	OrderStatusProcessing:      14,
}

// Severity orders statuses by how far along the order is. Unranked statuses are 0.
func (s OrderStatus) Severity() int {
	return statusSeverity[s]
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusReserved, OrderStatusAwaiting, OrderStatusAccepted, OrderStatusShipped, OrderStatusReturned:
		return true
	}
	_, ok := statusSeverity[s]
	return ok
}

// IsTerminal reports whether the status bypasses per-group recomputation
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// OrderTimeline is the stage a shipping group has reached
type OrderTimeline string

const (
	TimelineApproved  OrderTimeline = "approved"
	TimelinePurchase  OrderTimeline = "purchase"
	TimelinePickup    OrderTimeline = "pickup"
	TimelineInvoice   OrderTimeline = "invoice"
	TimelineShipping  OrderTimeline = "shipping"
	TimelineDelivered OrderTimeline = "delivered"
)

// IsValid checks if the timeline is known
func (t OrderTimeline) IsValid() bool {
	switch t {
	case TimelineApproved, TimelinePurchase, TimelinePickup, TimelineInvoice, TimelineShipping, TimelineDelivered:
		return true
	}
	return false
}

// OrderEvent is a fulfillment event reported against a shipping group
type OrderEvent string

const (
	EventPaymentApproved       OrderEvent = "payment_approved"
	EventSendPurchase          OrderEvent = "send_purchase"
	EventConfirmPurchase       OrderEvent = "confirm_purchase"
	EventSavePurchase          OrderEvent = "save_purchase"
	EventCreateShippingLabel   OrderEvent = "create_shipping_label"
	EventPrintShippingLabel    OrderEvent = "print_shipping_label"
	EventCreateCustomerInvoice OrderEvent = "create_customer_invoice"
	EventSaveCustomerInvoice   OrderEvent = "save_customer_invoice"
	EventShippingStatus        OrderEvent = "shipping_status"
	EventOrderDelivered        OrderEvent = "order_delivered"
	EventConfirmShipping       OrderEvent = "confirm_shipping"
	EventUploadInvoice         OrderEvent = "upload_invoice"
)

// IsValid checks if the event is known
func (e OrderEvent) IsValid() bool {
	switch e {
	case EventPaymentApproved, EventSendPurchase, EventConfirmPurchase, EventSavePurchase,
		EventCreateShippingLabel, EventPrintShippingLabel, EventCreateCustomerInvoice,
		EventSaveCustomerInvoice, EventShippingStatus, EventOrderDelivered,
		EventConfirmShipping, EventUploadInvoice:
		return true
	}
	return false
}

// ActionLabel is the human label of a next action
type ActionLabel string

const (
	LabelSendPurchase        ActionLabel = "Send Purchase Order"
	LabelWaitingPurchase     ActionLabel = "Waiting Purchase Order"
	LabelConfirmPurchase     ActionLabel = "Confirm Purchase Order"
	LabelWaitingConfirm      ActionLabel = "Waiting Confirmation"
	LabelCreateShippingLabel ActionLabel = "Schedule Pickup"
	LabelWaitingShipping     ActionLabel = "Waiting Schedule Pickup"
	LabelCreateInvoice       ActionLabel = "Create Customer Invoice"
	LabelWaitingInvoice      ActionLabel = "Waiting Customer Invoice"
	LabelSaveInvoice         ActionLabel = "Save Customer Invoice"
	LabelWaitingSaveInvoice  ActionLabel = "Waiting Save Invoice"
	LabelWaitingCarrier      ActionLabel = "Waiting for Carrier..."
	LabelDelivered           ActionLabel = "Delivered"
	LabelCanceled            ActionLabel = "Canceled"
)

// RefundStatus tracks money returned on a canceled order
type RefundStatus string

const (
	RefundStatusRefunded    RefundStatus = "refunded"
	RefundStatusRefunding   RefundStatus = "refunding"
	RefundStatusNotRefunded RefundStatus = "not_refunded"
)

// IsValid checks if the refund status is known
func (r RefundStatus) IsValid() bool {
	return r == RefundStatusRefunded || r == RefundStatusRefunding || r == RefundStatusNotRefunded
}

// CancelReason explains a cancellation
type CancelReason string

const (
	CancelReasonOutOfStock   CancelReason = "Out-of-stock"
	CancelReasonPricingIssue CancelReason = "Pricing issue"
)

// IsValid checks if the reason is known
func (c CancelReason) IsValid() bool {
	return c == CancelReasonOutOfStock || c == CancelReasonPricingIssue
}

// Role is the caller's role when asking for next actions
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleSellerAdmin Role = "SELLER_ADMIN"
	RoleSellerUser  Role = "SELLER_USER"
	RoleUser        Role = "USER"
)

// IsOperator reports whether the role acts on the platform's side
func (r Role) IsOperator() bool {
	return r == RoleAdmin
}

// IsSeller reports whether the role may act for the seller. Admins may act as sellers too.
func (r Role) IsSeller() bool {
	switch r {
	case RoleSellerAdmin, RoleSellerUser, RoleUser, RoleAdmin:
		return true
	}
	return false
}
