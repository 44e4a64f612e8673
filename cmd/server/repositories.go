package main

import (
	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/commerce/backoffice/internal/infrastructure/config"
	"github.com/commerce/backoffice/internal/infrastructure/logger"
	"github.com/commerce/backoffice/internal/infrastructure/persistence"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/memory"
	"github.com/commerce/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// shipmentStore is a shipment repository that can also report open stock
type shipmentStore interface {
	inventory.ShipmentRepository
	telemetry.StockMetricsProvider
}

// repositories holds the storage backends selected by database.driver
type repositories struct {
	driver    string
	db        *persistence.Database
	orders    trade.OrderRepository
	shipments shipmentStore
	billings  billing.VendorBillingRepository
	offers    catalog.OfferRepository
	rankings  catalog.RankingHistoryRepository
	boms      catalog.BOMRepository
	taxes     catalog.TaxRepository
	sellers   catalog.SellerRepository
	products  catalog.ProductRepository
}

func openRepositories(cfg *config.Config, providers *telemetryProviders, log *zap.Logger) (*repositories, error) {
	if cfg.Database.Driver == persistence.DriverMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		return &repositories{
			driver:    persistence.DriverMemory,
			orders:    memory.NewOrderRepository(),
			shipments: memory.NewShipmentRepository(),
			billings:  memory.NewVendorBillingRepository(),
			offers:    memory.NewOfferRepository(),
			rankings:  memory.NewRankingHistoryRepository(),
			boms:      memory.NewBOMRepository(),
			taxes:     memory.NewTaxRepository(),
			sellers:   memory.NewSellerRepository(),
			products:  memory.NewProductRepository(),
		}, nil
	}

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == persistence.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if cfg.Database.Driver == persistence.DriverSQLite {
			dbSystem = "sqlite"
		}
		plugin, err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			TracingEnabled:  cfg.Telemetry.Enabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem,
		}, providers.metrics.Meter("backoffice/db"), log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := plugin.Register(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	log.Info("Database connected", zap.String("driver", db.Driver))

	return &repositories{
		driver:    db.Driver,
		db:        db,
		orders:    persistence.NewGormOrderRepository(db.DB),
		shipments: persistence.NewGormShipmentRepository(db.DB),
		billings:  persistence.NewGormVendorBillingRepository(db.DB),
		offers:    persistence.NewGormOfferRepository(db.DB),
		rankings:  persistence.NewGormRankingHistoryRepository(db.DB),
		boms:      persistence.NewGormBOMRepository(db.DB),
		taxes:     persistence.NewGormTaxRepository(db.DB),
		sellers:   persistence.NewGormSellerRepository(db.DB),
		products:  persistence.NewGormProductRepository(db.DB),
	}, nil
}

// Ping reports whether the backing database is reachable
func (r *repositories) Ping() error {
	if r.db == nil {
		return nil
	}
	return r.db.Ping()
}

// Close releases the database connection, if any
func (r *repositories) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
