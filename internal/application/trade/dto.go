package trade

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Intake DTOs ====================

// IntakeOrderRequest is an order as received from a sales channel
type IntakeOrderRequest struct {
	ExternalOrderID string            `json:"order_id" binding:"required,max=100"`
	Channel         string            `json:"channel" binding:"required,max=50"`
	ChannelName     string            `json:"channel_name" binding:"max=100"`
	Status          string            `json:"status"`
	OrderDate       time.Time         `json:"order_date" binding:"required"`
	Country         string            `json:"country"`
	ShippingPrice   decimal.Decimal   `json:"shipping_price"`
	Customer        AddressInput      `json:"customer"`
	ShippingAddress AddressInput      `json:"shipping_address"`
	BillingAddress  AddressInput      `json:"billing_address"`
	Lines           []IntakeLineInput `json:"lines" binding:"required,min=1,dive"`
}

// IntakeLineInput is one sold product of an intake request
type IntakeLineInput struct {
	ChannelLineID string          `json:"line_id" binding:"max=100"`
	SKU           string          `json:"sku" binding:"required,min=1,max=100"`
	Name          string          `json:"name" binding:"max=300"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal `json:"price" binding:"required"`
}

// AddressInput is an address block of an intake request
type AddressInput struct {
	Name     string `json:"name" binding:"max=200"`
	Company  string `json:"company" binding:"max=200"`
	Street   string `json:"address" binding:"max=300"`
	Street2  string `json:"address2" binding:"max=300"`
	City     string `json:"city" binding:"max=100"`
	State    string `json:"state" binding:"max=100"`
	Zip      string `json:"zipcode" binding:"max=30"`
	Country  string `json:"country" binding:"max=100"`
	Phone    string `json:"phone" binding:"max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
	VAT      string `json:"vat" binding:"max=50"`
	Customer string `json:"customer" binding:"max=100"`
}

func (a AddressInput) toDomain() trade.Address {
	addr := trade.Address{
		Name:     a.Name,
		Company:  a.Company,
		Street:   a.Street,
		Street2:  a.Street2,
		City:     a.City,
		State:    a.State,
		Zip:      a.Zip,
		Country:  a.Country,
		Phone:    a.Phone,
		Email:    a.Email,
		VAT:      a.VAT,
		Customer: a.Customer,
	}
	addr.NormalizeZip()
	return addr
}

// Intake skip reasons
const (
	SkipReasonDuplicate = "duplicate"
	SkipReasonCanceled  = "canceled"
)

// IntakeResult is the outcome of one intake call
type IntakeResult struct {
	OrderNumber int64              `json:"order_number,omitempty"`
	Status      string             `json:"status,omitempty"`
	Skipped     bool               `json:"skipped"`
	SkipReason  string             `json:"skip_reason,omitempty"`
	Lines       []LineIntakeResult `json:"lines,omitempty"`
	Billings    []string           `json:"billings,omitempty"`
}

// LineIntakeResult reports where one line's stock came from
type LineIntakeResult struct {
	SKU             string          `json:"sku"`
	SellerID        int64           `json:"seller_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuantityDone    decimal.Decimal `json:"quantity_done"`
	ShipmentNumbers []int64         `json:"shipment_numbers"`
	Dropship        []string        `json:"dropship,omitempty"`
}

// ==================== Progress DTOs ====================

// ReportEventRequest reports a fulfillment event on a shipping group
type ReportEventRequest struct {
	Event       string `json:"event" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// ResolveReservedRequest approves or rejects a reserved order
type ResolveReservedRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason       string `json:"reason" binding:"omitempty,oneof=Out-of-stock 'Pricing issue'"`
	RefundStatus string `json:"refund_status" binding:"omitempty,oneof=refunded refunding not_refunded"`
}

// ==================== Response DTOs ====================

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderNumber     int64                   `json:"order_number"`
	ExternalOrderID string                  `json:"order_id"`
	Channel         string                  `json:"channel"`
	ChannelName     string                  `json:"channel_name,omitempty"`
	OrderDate       time.Time               `json:"order_date"`
	Status          string                  `json:"status"`
	Price           decimal.Decimal         `json:"price"`
	ShippingPrice   decimal.Decimal         `json:"shipping_price"`
	Customer        trade.Address           `json:"customer"`
	ShippingAddress trade.Address           `json:"shipping_address"`
	BillingAddress  trade.Address           `json:"billing_address"`
	Lines           []OrderLineResponse     `json:"lines"`
	ShippingGroups  []ShippingGroupResponse `json:"shipping_groups"`
	Reserved        bool                    `json:"reserved"`
	ConfirmedAt     *time.Time              `json:"confirmed_at,omitempty"`
	CancelReason    string                  `json:"cancel_reason,omitempty"`
	RefundStatus    string                  `json:"refund_status,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Version         int                     `json:"version"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID              uuid.UUID              `json:"id"`
	SKU             string                 `json:"sku"`
	EAN             string                 `json:"ean,omitempty"`
	Name            string                 `json:"name"`
	Quantity        decimal.Decimal        `json:"quantity"`
	UnitPrice       decimal.Decimal        `json:"price"`
	SellerID        int64                  `json:"seller_id"`
	DeliveryType    string                 `json:"delivery_type"`
	Weight          decimal.Decimal        `json:"weight"`
	VAT             decimal.Decimal        `json:"vat"`
	IEC             decimal.Decimal        `json:"iec"`
	IsPack          bool                   `json:"is_pack"`
	Allocations     []trade.LineAllocation `json:"allocations,omitempty"`
	ShipmentNumbers []int64                `json:"shipment_numbers"`
	Dropship        []string               `json:"dropship,omitempty"`
	QuantityDone    decimal.Decimal        `json:"quantity_done"`
}

// ShippingGroupResponse represents a shipping group in API responses
type ShippingGroupResponse struct {
	ID            uuid.UUID            `json:"id"`
	Reference     string               `json:"reference"`
	SellerID      int64                `json:"seller_id"`
	SellerName    string               `json:"seller_name"`
	DeliveryType  string               `json:"delivery_type"`
	LineSKUs      []string             `json:"skus"`
	Carrier       string               `json:"carrier,omitempty"`
	OperationType string               `json:"operation_type,omitempty"`
	Tracking      string               `json:"tracking,omitempty"`
	Weight        decimal.Decimal      `json:"weight"`
	LogisticClass string               `json:"logistic_class,omitempty"`
	Timeline      string               `json:"timeline"`
	Status        string               `json:"status"`
	History       []trade.HistoryEntry `json:"history"`
}

// NextActionResponse represents the next step of one shipping group
type NextActionResponse struct {
	GroupID  uuid.UUID `json:"group_id"`
	Action   *string   `json:"action"`
	Label    string    `json:"label"`
	Timeline string    `json:"timeline"`
	Party    string    `json:"party,omitempty"`
}

// ToOrderResponse converts a domain Order to a response DTO
func ToOrderResponse(o *trade.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for i := range o.Lines {
		l := &o.Lines[i]
		lines = append(lines, OrderLineResponse{
			ID:              l.ID,
			SKU:             l.SKU,
			EAN:             l.EAN,
			Name:            l.Name,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			SellerID:        l.SellerID,
			DeliveryType:    string(l.DeliveryType),
			Weight:          l.Weight,
			VAT:             l.VAT,
			IEC:             l.IEC,
			IsPack:          l.IsPack(),
			Allocations:     l.Allocations,
			ShipmentNumbers: l.ShipmentNumbers,
			Dropship:        l.Dropship,
			QuantityDone:    l.QuantityDone,
		})
	}

	groups := make([]ShippingGroupResponse, 0, len(o.ShippingGroups))
	for i := range o.ShippingGroups {
		g := &o.ShippingGroups[i]
		groups = append(groups, ShippingGroupResponse{
			ID:            g.ID,
			Reference:     g.Reference,
			SellerID:      g.SellerID,
			SellerName:    g.SellerName,
			DeliveryType:  string(g.DeliveryType),
			LineSKUs:      g.LineSKUs,
			Carrier:       g.Carrier,
			OperationType: g.OperationType,
			Tracking:      g.Tracking,
			Weight:        g.Weight,
			LogisticClass: string(g.LogisticClass),
			Timeline:      string(g.Timeline),
			Status:        string(g.Status()),
			History:       g.History,
		})
	}

	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		ExternalOrderID: o.ExternalOrderID,
		Channel:         o.Channel,
		ChannelName:     o.ChannelName,
		OrderDate:       o.OrderDate,
		Status:          string(o.Status),
		Price:           o.Price,
		ShippingPrice:   o.ShippingPrice,
		Customer:        o.Customer,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Lines:           lines,
		ShippingGroups:  groups,
		Reserved:        o.Reserved,
		ConfirmedAt:     o.ConfirmedAt,
		CancelReason:    string(o.CancelReason),
		RefundStatus:    string(o.RefundStatus),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
}

// ToNextActionResponses converts domain next actions to response DTOs
func ToNextActionResponses(actions []trade.NextAction) []NextActionResponse {
	out := make([]NextActionResponse, 0, len(actions))
	for _, a := range actions {
		var action *string
		if a.Action != nil {
			s := string(*a.Action)
			action = &s
		}
		out = append(out, NextActionResponse{
			GroupID:  a.GroupID,
			Action:   action,
			Label:    a.Label,
			Timeline: string(a.Timeline),
			Party:    string(a.Party),
		})
	}
	return out
}
