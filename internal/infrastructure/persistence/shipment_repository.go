package persistence

import (
	"context"
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShipmentRepository implements ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByNumber finds a shipment by its number
func (r *GormShipmentRepository) FindByNumber(ctx context.Context, number int64) (*inventory.Shipment, error) {
	var m models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("shipment_number = ?", number).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// FindOpenBySellerSKU returns the seller's open shipments that still have sku
// available, oldest approval first
func (r *GormShipmentRepository) FindOpenBySellerSKU(ctx context.Context, sellerID int64, sku string) ([]*inventory.Shipment, error) {
	db := r.db.WithContext(ctx)
	withStock := db.Model(&models.ShipmentLineModel{}).
		Select("shipment_id").
		Where("sku = ? AND qty_available > 0", sku)

	var ms []models.ShipmentModel
	if err := db.
		Preload("Lines", orderedLines).
		Where("seller_id = ? AND status = ?", sellerID, string(inventory.ShipmentStatusOpen)).
		Where("id IN (?)", withStock).
		Order("approved_at ASC, shipment_number ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	out := make([]*inventory.Shipment, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out, nil
}

// NextShipmentNumber returns max(existing)+1
func (r *GormShipmentRepository) NextShipmentNumber(ctx context.Context) (int64, error) {
	var maxNumber int64
	if err := r.db.WithContext(ctx).Model(&models.ShipmentModel{}).
		Select("COALESCE(MAX(shipment_number), 0)").
		Scan(&maxNumber).Error; err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

// Save creates a shipment with its lines
func (r *GormShipmentRepository) Save(ctx context.Context, shipment *inventory.Shipment) error {
	m := models.ShipmentModelFromDomain(shipment)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		if len(m.Lines) == 0 {
			return nil
		}
		return tx.Create(&m.Lines).Error
	})
	if isDuplicateKey(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveAllWithLock persists every shipment in one transaction. A version
// mismatch on any of them rolls back the whole batch.
func (r *GormShipmentRepository) SaveAllWithLock(ctx context.Context, shipments ...*inventory.Shipment) error {
	if len(shipments) == 0 {
		return nil
	}

	now := time.Now()
	saved := make([]*models.ShipmentModel, len(shipments))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, s := range shipments {
			m := models.ShipmentModelFromDomain(s)
			m.Version = s.Version + 1
			m.UpdatedAt = now

			result := tx.Model(m).
				Where("version = ?", s.Version).
				Select("*").
				Omit("id", "created_at", clause.Associations).
				Updates(m)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}

			for j := range m.Lines {
				l := &m.Lines[j]
				if err := tx.Model(l).
					Select("name", "position", "qty_received", "qty_sold", "qty_available", "unit_price", "tax_rate").
					Updates(l).Error; err != nil {
					return err
				}
			}
			saved[i] = m
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, s := range shipments {
		s.Version = saved[i].Version
		s.UpdatedAt = now
	}
	return nil
}

// OpenStockBySeller sums the available quantity of open shipments per seller
func (r *GormShipmentRepository) OpenStockBySeller(ctx context.Context) (map[int64]decimal.Decimal, error) {
	var rows []struct {
		SellerID int64
		Qty      decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("shipment_lines").
		Select("shipments.seller_id AS seller_id, COALESCE(SUM(shipment_lines.qty_available), 0) AS qty").
		Joins("JOIN shipments ON shipments.id = shipment_lines.shipment_id").
		Where("shipments.status = ?", string(inventory.ShipmentStatusOpen)).
		Group("shipments.seller_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[int64]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.SellerID] = row.Qty
	}
	return out, nil
}

// Ensure GormShipmentRepository implements ShipmentRepository
var _ inventory.ShipmentRepository = (*GormShipmentRepository)(nil)
