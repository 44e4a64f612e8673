package pricing

import (
	"sort"
	"sync"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ModelType is the pricing model tag carried by a seller contract
type ModelType string

// Pricing model tags, persisted verbatim
const (
	ModelFullBreakdown ModelType = "fullBreakdown"
	ModelWholesaler    ModelType = "wholesaler"
	ModelWortenSeller  ModelType = "wortenSeller"
	ModelPvpAndCost    ModelType = "pvpAndCost"
	ModelD2C           ModelType = "d2c"
	ModelDefault       ModelType = "default"
)

// AllModelTypes returns every known pricing model tag
func AllModelTypes() []ModelType {
	return []ModelType{
		ModelFullBreakdown,
		ModelWholesaler,
		ModelWortenSeller,
		ModelPvpAndCost,
		ModelD2C,
		ModelDefault,
	}
}

// IsValid checks if the model tag is known
func (m ModelType) IsValid() bool {
	for _, t := range AllModelTypes() {
		if t == m {
			return true
		}
	}
	return false
}

// String returns the string representation
func (m ModelType) String() string {
	return string(m)
}

// Pricing errors
var (
	ErrInvalidFinalPrice = shared.NewDomainError("INVALID_FINAL_PRICE", "Final price does not cover the fixed price components")
	ErrInvalidRate       = shared.NewDomainError("INVALID_RATE", "Rates must be between 0 and 100 and leave a positive remainder")
	ErrMissingCost       = shared.NewDomainError("MISSING_COST", "Breakdown has no cost to derive a markup from")
	ErrPackWeightZero    = shared.NewDomainError("PACK_WEIGHT_ZERO", "Pack components have no price weight to distribute")
	ErrEmptyPack         = shared.NewDomainError("EMPTY_PACK", "Pack has no components")
)

// Model is a pricing contract between the operator and a seller. Compute and
// Reverse are a fixed pair: Compute(Reverse(b, p)).PvpFinal equals p.
type Model interface {
	// Type returns the model tag
	Type() ModelType
	// Description returns a human-readable summary of the formula
	Description() string
	// Compute derives every dependent field of b from its inputs
	Compute(b Breakdown) (Breakdown, error)
	// Reverse keeps the cost, VAT and rate inputs of b fixed and solves the
	// model's free component so that the final price equals target
	Reverse(b Breakdown, target decimal.Decimal) (Breakdown, error)
	// UnitPrice returns the amount the seller bills per unit
	UnitPrice(b Breakdown) decimal.Decimal
}

// BaseModel carries the identifying data shared by all models
type BaseModel struct {
	modelType   ModelType
	description string
}

// NewBaseModel creates a new base model
func NewBaseModel(modelType ModelType, description string) BaseModel {
	return BaseModel{modelType: modelType, description: description}
}

// Type returns the model tag
func (m BaseModel) Type() ModelType {
	return m.modelType
}

// Description returns the model description
func (m BaseModel) Description() string {
	return m.description
}

// Registry resolves pricing models by tag
type Registry struct {
	mu       sync.RWMutex
	models   map[ModelType]Model
	fallback ModelType
}

// NewRegistry creates an empty registry that falls back to the default model
func NewRegistry() *Registry {
	return &Registry{
		models:   make(map[ModelType]Model),
		fallback: ModelDefault,
	}
}

// DefaultRegistry returns a registry holding every built-in model
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range []Model{
		NewFullBreakdownModel(),
		NewWholesalerModel(),
		NewWortenSellerModel(),
		NewPvpAndCostModel(),
		NewD2CModel(),
		NewDefaultModel(),
	} {
		_ = r.Register(m)
	}
	return r
}

// Register adds a model; registering the same tag twice fails
func (r *Registry) Register(m Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[m.Type()]; exists {
		return shared.NewDomainError("ALREADY_EXISTS", "pricing model '"+m.Type().String()+"' already registered")
	}
	r.models[m.Type()] = m
	return nil
}

// Get returns the model for tag. Unknown or empty tags resolve to the
// legacy default model, matching sellers that never chose a contract.
func (r *Registry) Get(tag ModelType) Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.models[tag]; ok {
		return m
	}
	return r.models[r.fallback]
}

// Types returns the registered tags in sorted order
func (r *Registry) Types() []ModelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ModelType, 0, len(r.models))
	for t := range r.models {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Reconcile returns b unchanged when its final price already equals realized,
// otherwise the breakdown reverse-computed to realized. The bool reports
// whether a reverse computation happened.
func Reconcile(m Model, b Breakdown, realized decimal.Decimal) (Breakdown, bool, error) {
	if b.PvpFinal.Equal(realized) {
		return b, false, nil
	}
	out, err := m.Reverse(b, realized)
	if err != nil {
		return Breakdown{}, false, err
	}
	return out, true, nil
}
