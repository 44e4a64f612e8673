package persistence

import (
	"context"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number int64) (*trade.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("order_number = ?", number).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// FindByChannelRef finds an order by its channel identity
func (r *GormOrderRepository) FindByChannelRef(ctx context.Context, externalOrderID, channel string) (*trade.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("external_order_id = ? AND channel = ?", externalOrderID, channel).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// ExistsByChannelRef checks the dedup key without loading the order
func (r *GormOrderRepository) ExistsByChannelRef(ctx context.Context, externalOrderID, channel string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("external_order_id = ? AND channel = ?", externalOrderID, channel).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextOrderNumber returns max(existing)+1, starting at 1
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	var maxNumber int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&maxNumber).Error; err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

// Create inserts a new order with its lines
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	m := models.OrderModelFromDomain(order)
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

// SaveWithLock updates an order and replaces its lines if the stored version
// equals order.Version, then increments order.Version
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	m := models.OrderModelFromDomain(order)
	m.Version = order.Version + 1
	m.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(m).
			Where("version = ?", order.Version).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(m)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("order_id = ?", m.ID).Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}
		if len(m.Lines) == 0 {
			return nil
		}
		return tx.Create(&m.Lines).Error
	})
	if err != nil {
		return err
	}

	order.Version = m.Version
	order.UpdatedAt = m.UpdatedAt
	return nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
