package inventory

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterShipmentRequest records a vendor stock lot
type RegisterShipmentRequest struct {
	SellerID     int64               `json:"seller_id" binding:"required,min=1"`
	DeliveryType string              `json:"delivery_type" binding:"required,oneof=fulfillment wholesaler"`
	ApprovedAt   *time.Time          `json:"approved_at"`
	Lines        []ShipmentLineInput `json:"lines" binding:"required,min=1,dive"`
}

// ShipmentLineInput is one received sku
type ShipmentLineInput struct {
	SKU       string          `json:"sku" binding:"required,max=100"`
	Name      string          `json:"name" binding:"max=300"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// ShipmentResponse represents a shipment in API responses
type ShipmentResponse struct {
	ID             uuid.UUID              `json:"id"`
	ShipmentNumber int64                  `json:"shipment_number"`
	Name           string                 `json:"name"`
	SellerID       int64                  `json:"seller_id"`
	DeliveryType   string                 `json:"delivery_type"`
	Status         string                 `json:"status"`
	ApprovedAt     time.Time              `json:"approved_at"`
	TotalPurchased decimal.Decimal        `json:"total_purchased"`
	TotalSold      decimal.Decimal        `json:"total_sold"`
	ReceivedValue  decimal.Decimal        `json:"received_value"`
	Lines          []ShipmentLineResponse `json:"lines"`
	Version        int                    `json:"version"`
}

// ShipmentLineResponse represents a shipment line in API responses
type ShipmentLineResponse struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name,omitempty"`
	QtyReceived  decimal.Decimal `json:"qty_received"`
	QtySold      decimal.Decimal `json:"qty_sold"`
	QtyAvailable decimal.Decimal `json:"qty_available"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
}

// ToShipmentResponse converts a domain Shipment to a response DTO
func ToShipmentResponse(s *inventory.Shipment) ShipmentResponse {
	lines := make([]ShipmentLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, ShipmentLineResponse{
			SKU:          l.SKU,
			Name:         l.Name,
			QtyReceived:  l.QtyReceived,
			QtySold:      l.QtySold,
			QtyAvailable: l.QtyAvailable,
			UnitPrice:    l.UnitPrice,
			TaxRate:      l.TaxRate,
		})
	}
	return ShipmentResponse{
		ID:             s.ID,
		ShipmentNumber: s.ShipmentNumber,
		Name:           s.Name,
		SellerID:       s.SellerID,
		DeliveryType:   string(s.DeliveryType),
		Status:         string(s.Status),
		ApprovedAt:     s.ApprovedAt,
		TotalPurchased: s.TotalPurchased,
		TotalSold:      s.TotalSold,
		ReceivedValue:  s.ReceivedValue,
		Lines:          lines,
		Version:        s.Version,
	}
}
