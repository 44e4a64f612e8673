package persistence

import (
	"context"
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVendorBillingRepository implements VendorBillingRepository using GORM
type GormVendorBillingRepository struct {
	db *gorm.DB
}

// NewGormVendorBillingRepository creates a new GormVendorBillingRepository
func NewGormVendorBillingRepository(db *gorm.DB) *GormVendorBillingRepository {
	return &GormVendorBillingRepository{db: db}
}

// FindByName finds a billing by its natural key
func (r *GormVendorBillingRepository) FindByName(ctx context.Context, name string) (*billing.VendorBilling, error) {
	var m models.VendorBillingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("billing_name = ?", name).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// FindByOrder returns every billing related to an order, by name
func (r *GormVendorBillingRepository) FindByOrder(ctx context.Context, orderNumber int64) ([]*billing.VendorBilling, error) {
	var ms []models.VendorBillingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("related_order = ?", orderNumber).
		Order("billing_name ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	out := make([]*billing.VendorBilling, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out, nil
}

// Create inserts a new billing with its lines
func (r *GormVendorBillingRepository) Create(ctx context.Context, b *billing.VendorBilling) error {
	m := models.VendorBillingModelFromDomain(b)
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

// SaveWithLock updates a billing and replaces its lines if the stored version
// equals b.Version, then increments b.Version
func (r *GormVendorBillingRepository) SaveWithLock(ctx context.Context, b *billing.VendorBilling) error {
	m := models.VendorBillingModelFromDomain(b)
	m.Version = b.Version + 1
	m.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(m).
			Where("version = ?", b.Version).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(m)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("billing_id = ?", m.ID).Delete(&models.VendorBillingLineModel{}).Error; err != nil {
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

	b.Version = m.Version
	b.UpdatedAt = m.UpdatedAt
	return nil
}

// Ensure GormVendorBillingRepository implements VendorBillingRepository
var _ billing.VendorBillingRepository = (*GormVendorBillingRepository)(nil)
