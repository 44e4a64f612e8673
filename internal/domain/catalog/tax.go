package catalog

import (
	"context"
	"errors"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxRate is the VAT and excise (IEC) applicable to a product in a country
type TaxRate struct {
	VAT decimal.Decimal // percentage
	IEC decimal.Decimal // flat excise amount per unit
}

// Country is the closed set of countries the back office sells into
type Country string

const (
	CountryPortugal Country = "Portugal"
	CountrySpain    Country = "Spain"
	CountryFrance   Country = "France"
	CountryGermany  Country = "Germany"
	CountryBelgium  Country = "Belgium"
)

// AllCountries returns every supported country
func AllCountries() []Country {
	return []Country{CountryPortugal, CountrySpain, CountryFrance, CountryGermany, CountryBelgium}
}

// ParseCountry returns the country named s
func ParseCountry(s string) (Country, bool) {
	for _, c := range AllCountries() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// LogisticClass groups products by shipping cost profile
type LogisticClass string

const (
	LogisticClass1 LogisticClass = "LogisticClass1"
	LogisticClass2 LogisticClass = "LogisticClass2"
	LogisticClass3 LogisticClass = "LogisticClass3"
	LogisticClass4 LogisticClass = "LogisticClass4"
	LogisticClass5 LogisticClass = "LogisticClass5"
	NoShipping     LogisticClass = "NoShipping"
	FreeShipping   LogisticClass = "FreeShipping"
)

// ClassRate is the carrier price of a logistic class
type ClassRate struct {
	Class      LogisticClass
	Price      decimal.Decimal
	Additional decimal.Decimal
}

// DeliveryRule selects a logistic class. DeliveryType "*" matches any type;
// a rule matches when the weight or price stays within its ceiling.
type DeliveryRule struct {
	Class        LogisticClass
	DeliveryType string
	MaxWeight    decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
}

// CountryTax is the typed tax and freight profile of one country
type CountryTax struct {
	VAT           decimal.Decimal
	DefaultClass  LogisticClass
	ClassRates    []ClassRate
	DeliveryRules []DeliveryRule
}

// CountryTaxTable is keyed by the closed Country enum
type CountryTaxTable map[Country]CountryTax

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ceiling(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func weightRule(c LogisticClass, kg string) DeliveryRule {
	return DeliveryRule{Class: c, DeliveryType: "*", MaxWeight: ceiling(kg)}
}

func dropshipRule(c LogisticClass, price string) DeliveryRule {
	return DeliveryRule{Class: c, DeliveryType: string(DeliveryDropshipping), MaxPrice: ceiling(price)}
}

// DefaultCountryTaxTable returns the standard tax and freight profiles
func DefaultCountryTaxTable() CountryTaxTable {
	return CountryTaxTable{
		CountryPortugal: {
			VAT:          dec("23"),
			DefaultClass: LogisticClass1,
			ClassRates: []ClassRate{
				{LogisticClass1, dec("4.2"), dec("1.3")},
				{LogisticClass2, dec("4.1"), dec("2.4")},
				{LogisticClass3, dec("3"), dec("4.5")},
				{LogisticClass4, dec("1.5"), dec("7")},
				{LogisticClass5, dec("0.5"), dec("9.5")},
			},
			DeliveryRules: []DeliveryRule{
				weightRule(LogisticClass1, "20"), dropshipRule(LogisticClass1, "5.95"),
				weightRule(LogisticClass2, "30"), dropshipRule(LogisticClass2, "6.78"),
				dropshipRule(LogisticClass3, "8.1"),
				dropshipRule(LogisticClass4, "9.2"),
				dropshipRule(LogisticClass5, "10.99"),
			},
		},
		CountrySpain: {
			VAT:          dec("21"),
			DefaultClass: LogisticClass4,
			ClassRates: []ClassRate{
				{LogisticClass1, dec("4.04"), dec("0.6")},
				{LogisticClass2, dec("3.05"), dec("2.3")},
				{LogisticClass3, dec("2.3"), dec("4.2")},
				{LogisticClass4, dec("1"), dec("7.55")},
				{LogisticClass5, dec("0.55"), dec("10")},
			},
			DeliveryRules: []DeliveryRule{
				dropshipRule(LogisticClass1, "4.95"),
				weightRule(LogisticClass2, "1"), dropshipRule(LogisticClass2, "5.85"),
				dropshipRule(LogisticClass3, "7.1"),
				weightRule(LogisticClass4, "3"), dropshipRule(LogisticClass4, "9.5"),
				weightRule(LogisticClass5, "5"), dropshipRule(LogisticClass5, "10.99"),
			},
		},
		CountryFrance: {
			VAT:          dec("20"),
			DefaultClass: LogisticClass4,
			ClassRates: []ClassRate{
				{LogisticClass1, dec("5.31"), dec("2")},
				{LogisticClass2, dec("6"), dec("2.5")},
				{LogisticClass3, dec("6.91"), dec("2.99")},
				{LogisticClass4, dec("1.99"), dec("12")},
				{LogisticClass5, dec("0.99"), dec("27")},
			},
			DeliveryRules: []DeliveryRule{
				dropshipRule(LogisticClass1, "7.65"),
				dropshipRule(LogisticClass2, "9"),
				dropshipRule(LogisticClass3, "10.5"),
				weightRule(LogisticClass4, "3"), dropshipRule(LogisticClass4, "15"),
				weightRule(LogisticClass5, "30"), dropshipRule(LogisticClass5, "30"),
			},
		},
		CountryGermany: {
			VAT:          dec("19"),
			DefaultClass: LogisticClass4,
			ClassRates: []ClassRate{
				{LogisticClass1, dec("6.76"), dec("0.55")},
				{LogisticClass2, dec("6.95"), dec("1.8")},
				{LogisticClass3, dec("8"), dec("2")},
				{LogisticClass4, dec("1.5"), dec("13.5")},
				{LogisticClass5, dec("0.5"), dec("20.5")},
			},
			DeliveryRules: []DeliveryRule{
				dropshipRule(LogisticClass1, "7.31"),
				weightRule(LogisticClass2, "1"), dropshipRule(LogisticClass2, "8.75"),
				dropshipRule(LogisticClass3, "10.3"),
				weightRule(LogisticClass4, "5"), dropshipRule(LogisticClass4, "15.99"),
				weightRule(LogisticClass5, "20"), dropshipRule(LogisticClass5, "22.99"),
			},
		},
		CountryBelgium: {
			VAT:          dec("21"),
			DefaultClass: LogisticClass4,
			ClassRates: []ClassRate{
				{LogisticClass1, dec("8.38"), dec("0.85")},
				{LogisticClass2, dec("8.58"), dec("1.3")},
				{LogisticClass3, dec("8.95"), dec("2.55")},
				{LogisticClass4, dec("1.5"), dec("13")},
				{LogisticClass5, dec("0.5"), dec("16.5")},
			},
			DeliveryRules: []DeliveryRule{
				dropshipRule(LogisticClass1, "9.23"),
				dropshipRule(LogisticClass2, "10"),
				weightRule(LogisticClass3, "1"), dropshipRule(LogisticClass3, "12"),
				weightRule(LogisticClass4, "3"), dropshipRule(LogisticClass4, "15"),
				weightRule(LogisticClass5, "5"), dropshipRule(LogisticClass5, "17.5"),
			},
		},
	}
}

// LogisticQuery describes a parcel to classify
type LogisticQuery struct {
	Country      Country
	Class        LogisticClass // explicit class, skips rule matching
	DeliveryType DeliveryType
	Weight       decimal.NullDecimal
	Price        decimal.NullDecimal
}

// LogisticMatch is the resolved class with its carrier price
type LogisticMatch struct {
	Class      LogisticClass
	VAT        decimal.Decimal
	Price      decimal.Decimal
	Additional decimal.Decimal
}

func (c CountryTax) rate(class LogisticClass) (ClassRate, bool) {
	for _, r := range c.ClassRates {
		if r.Class == class {
			return r, true
		}
	}
	return ClassRate{}, false
}

// MatchLogisticClass resolves the logistic class of a parcel. An explicit
// class wins; otherwise classes are tried in order and the first one with a
// matching rule is used. Parcels no rule covers ship free.
func (t CountryTaxTable) MatchLogisticClass(q LogisticQuery) (LogisticMatch, bool) {
	profile, ok := t[q.Country]
	if !ok {
		return LogisticMatch{}, false
	}

	if q.Class != "" {
		switch q.Class {
		case FreeShipping, NoShipping:
			return LogisticMatch{Class: q.Class, VAT: profile.VAT}, true
		}
		r, ok := profile.rate(q.Class)
		if !ok {
			return LogisticMatch{}, false
		}
		return LogisticMatch{Class: r.Class, VAT: profile.VAT, Price: r.Price, Additional: r.Additional}, true
	}

	if q.DeliveryType != "" {
		for _, r := range profile.ClassRates {
			for _, rule := range profile.DeliveryRules {
				if rule.Class != r.Class {
					continue
				}
				if rule.DeliveryType != "*" && rule.DeliveryType != string(q.DeliveryType) {
					continue
				}
				priceFits := q.Price.Valid && rule.MaxPrice.Valid && rule.MaxPrice.Decimal.GreaterThanOrEqual(q.Price.Decimal)
				weightFits := q.Weight.Valid && q.Weight.Decimal.IsPositive() &&
					rule.MaxWeight.Valid && rule.MaxWeight.Decimal.GreaterThanOrEqual(q.Weight.Decimal)
				if priceFits || weightFits {
					return LogisticMatch{Class: r.Class, VAT: profile.VAT, Price: r.Price, Additional: r.Additional}, true
				}
			}
		}
	}

	if (q.Price.Valid && !q.Price.Decimal.IsNegative()) || (q.Weight.Valid && q.Weight.Decimal.IsPositive()) {
		return LogisticMatch{Class: FreeShipping, VAT: profile.VAT}, true
	}
	return LogisticMatch{}, false
}

// TaxResolver looks up product taxes, falling back to the country VAT when
// no mapping exists for the product
type TaxResolver struct {
	repo  TaxRepository
	table CountryTaxTable
}

// NewTaxResolver creates a new tax resolver
func NewTaxResolver(repo TaxRepository, table CountryTaxTable) *TaxResolver {
	if table == nil {
		table = DefaultCountryTaxTable()
	}
	return &TaxResolver{repo: repo, table: table}
}

// Resolve returns the tax of sku in country
func (r *TaxResolver) Resolve(ctx context.Context, sku string, country Country) (TaxRate, error) {
	rate, err := r.repo.FindRate(ctx, sku, country)
	if err == nil && rate != nil {
		return *rate, nil
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return TaxRate{}, err
	}
	profile, ok := r.table[country]
	if !ok {
		return TaxRate{}, shared.NewDomainError("UNKNOWN_COUNTRY", "No tax profile for country "+string(country))
	}
	return TaxRate{VAT: profile.VAT, IEC: decimal.Zero}, nil
}

// Table returns the country table used for fallbacks
func (r *TaxResolver) Table() CountryTaxTable {
	return r.table
}
