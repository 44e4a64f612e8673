package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every type embedding BaseEntity.
// Orders, shipments and billings are addressed by their natural keys
// (order number, shipment number, billing name); the id links rows and events.
type Entity interface {
	GetID() uuid.UUID
	LastModified() time.Time
}

// BaseEntity provides the surrogate id and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// LastModified returns the last update timestamp
func (e *BaseEntity) LastModified() time.Time {
	return e.UpdatedAt
}

// Touch stamps UpdatedAt with the wall clock
func (e *BaseEntity) Touch() {
	e.TouchAt(time.Now())
}

// TouchAt stamps UpdatedAt with at. UpdatedAt never moves backwards.
func (e *BaseEntity) TouchAt(at time.Time) {
	if at.After(e.UpdatedAt) {
		e.UpdatedAt = at
	}
}

// NewBaseEntity creates a base entity stamped with the wall clock
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt creates a base entity with a time-ordered id, so ids of
// rows created by one intake sort in creation order.
func NewBaseEntityAt(now time.Time) BaseEntity {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return BaseEntity{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
