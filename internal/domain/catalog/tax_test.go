package catalog

import (
	"context"
	"testing"

	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricingFixture() pricing.Breakdown {
	return pricing.Breakdown{
		Cost:     decimal.NewFromInt(10),
		PvpFinal: decimal.NewFromInt(20),
	}
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestCountryTaxTable_MatchLogisticClass(t *testing.T) {
	table := DefaultCountryTaxTable()

	tests := []struct {
		name      string
		query     LogisticQuery
		wantOK    bool
		wantClass LogisticClass
		wantPrice string
	}{
		{
			name:      "explicit class",
			query:     LogisticQuery{Country: CountryPortugal, Class: LogisticClass3},
			wantOK:    true,
			wantClass: LogisticClass3,
			wantPrice: "3",
		},
		{
			name:      "explicit free shipping",
			query:     LogisticQuery{Country: CountrySpain, Class: FreeShipping},
			wantOK:    true,
			wantClass: FreeShipping,
			wantPrice: "0",
		},
		{
			name:      "light parcel matches the first weight rule",
			query:     LogisticQuery{Country: CountryPortugal, DeliveryType: DeliveryFulfillment, Weight: amount("12")},
			wantOK:    true,
			wantClass: LogisticClass1,
			wantPrice: "4.2",
		},
		{
			name:      "heavier parcel moves to the next class",
			query:     LogisticQuery{Country: CountryPortugal, DeliveryType: DeliveryFulfillment, Weight: amount("25")},
			wantOK:    true,
			wantClass: LogisticClass2,
			wantPrice: "4.1",
		},
		{
			name:      "dropship freight price selects the class",
			query:     LogisticQuery{Country: CountryGermany, DeliveryType: DeliveryDropshipping, Price: amount("9")},
			wantOK:    true,
			wantClass: LogisticClass3,
			wantPrice: "8",
		},
		{
			name:      "nothing matches ships free",
			query:     LogisticQuery{Country: CountryFrance, DeliveryType: DeliveryFulfillment, Weight: amount("300")},
			wantOK:    true,
			wantClass: FreeShipping,
			wantPrice: "0",
		},
		{
			name:   "unknown explicit class",
			query:  LogisticQuery{Country: CountryPortugal, Class: LogisticClass("Oversized")},
			wantOK: false,
		},
		{
			name:   "unknown country",
			query:  LogisticQuery{Country: Country("Narnia"), Weight: amount("1")},
			wantOK: false,
		},
		{
			name:   "no weight and no price",
			query:  LogisticQuery{Country: CountryBelgium, DeliveryType: DeliveryFulfillment},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := table.MatchLogisticClass(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantClass, m.Class)
			assert.Equal(t, tt.wantPrice, m.Price.String())
			assert.True(t, m.VAT.IsPositive())
		})
	}
}

func TestParseCountry(t *testing.T) {
	c, ok := ParseCountry("Spain")
	assert.True(t, ok)
	assert.Equal(t, CountrySpain, c)

	_, ok = ParseCountry("spain")
	assert.False(t, ok)
	assert.Len(t, AllCountries(), len(DefaultCountryTaxTable()))
}

type stubTaxes struct {
	rates map[string]TaxRate
}

func (s *stubTaxes) FindRate(ctx context.Context, sku string, country Country) (*TaxRate, error) {
	r, ok := s.rates[sku+"|"+string(country)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &r, nil
}

func TestTaxResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := &stubTaxes{rates: map[string]TaxRate{
		"PORTO-10|Portugal": {VAT: decimal.NewFromInt(23), IEC: decimal.RequireFromString("1.2")},
	}}
	r := NewTaxResolver(repo, nil)

	rate, err := r.Resolve(ctx, "PORTO-10", CountryPortugal)
	require.NoError(t, err)
	assert.Equal(t, "1.2", rate.IEC.String())

	rate, err = r.Resolve(ctx, "SOAP-1", CountrySpain)
	require.NoError(t, err)
	assert.Equal(t, "21", rate.VAT.String())
	assert.True(t, rate.IEC.IsZero())

	_, err = r.Resolve(ctx, "SOAP-1", Country("Narnia"))
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_COUNTRY", shared.CodeOf(err))
}

func TestBOM_Expand(t *testing.T) {
	bom := &BOM{SKU: "PACK-1", Lines: []BOMLine{
		{ComponentSKU: "A", Quantity: decimal.NewFromInt(2)},
		{ComponentSKU: "B", Quantity: decimal.NewFromInt(1)},
	}}

	lines := bom.Expand(decimal.NewFromInt(3))
	require.Len(t, lines, 2)
	assert.Equal(t, "6", lines[0].Quantity.String())
	assert.Equal(t, "3", lines[1].Quantity.String())
	assert.Equal(t, "2", bom.Lines[0].Quantity.String(), "expansion does not mutate the BOM")

	var none *BOM
	assert.False(t, none.IsPack())
	assert.Nil(t, none.Expand(decimal.NewFromInt(1)))
}
