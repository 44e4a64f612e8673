// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of
// ORM concerns.
//
// Key Principles:
//  1. Domain entities carry no GORM tags
//  2. Persistence models contain all GORM annotations and table mappings
//  3. ToDomain / FromDomain convert between the two
//  4. Nested value objects (allocations, history, price breakdowns) are stored
//     as JSON columns through gorm's json serializer
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - catalog.go: offers, ranking history, BOMs, product taxes, sellers, products
// - inventory.go: vendor shipments and their lines
// - trade.go: orders and order lines
// - billing.go: vendor billings and their lines
package models
