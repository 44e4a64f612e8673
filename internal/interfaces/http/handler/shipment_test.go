package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipmentHandler_Register(t *testing.T) {
	f := newAPIFixture(t)

	first := f.registerShipment(t, 5)
	second := f.registerShipment(t, 2)

	assert.Equal(t, int64(1), first.ShipmentNumber)
	assert.Equal(t, int64(2), second.ShipmentNumber)
	assert.Equal(t, apiSeller, first.SellerID)
	assert.Equal(t, string(inventory.ShipmentStatusOpen), first.Status)
	require.Len(t, first.Lines, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(first.Lines[0].QtyAvailable))

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name: "dropshipping is not a stock lot",
			body: map[string]any{
				"seller_id": apiSeller, "delivery_type": "dropshipping",
				"lines": []map[string]any{{"sku": "WINE-1", "quantity": 1}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "no lines",
			body:       map[string]any{"seller_id": apiSeller, "delivery_type": "fulfillment", "lines": []map[string]any{}},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name: "unknown seller",
			body: map[string]any{
				"seller_id": 404, "delivery_type": "wholesaler",
				"lines": []map[string]any{{"sku": "WINE-1", "quantity": 1}},
			},
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name: "sku listed twice",
			body: map[string]any{
				"seller_id": apiSeller, "delivery_type": "fulfillment",
				"lines": []map[string]any{{"sku": "WINE-1", "quantity": 1}, {"sku": "WINE-1", "quantity": 2}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "DUPLICATE_SKU",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(f.engine, http.MethodPost, "/api/v1/shipments", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestShipmentHandler_GetByNumber(t *testing.T) {
	f := newAPIFixture(t)
	f.registerShipment(t, 5)
	f.intake(t, "EXT-1", 3)

	w := doJSON(f.engine, http.MethodGet, "/api/v1/shipments/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[inventoryapp.ShipmentResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Lines, 1)
	assert.True(t, decimal.NewFromInt(3).Equal(resp.Data.Lines[0].QtySold))
	assert.True(t, decimal.NewFromInt(2).Equal(resp.Data.Lines[0].QtyAvailable))

	w = doJSON(f.engine, http.MethodGet, "/api/v1/shipments/77", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
