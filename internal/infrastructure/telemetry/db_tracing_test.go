package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type shipmentRow struct {
	ID     uint   `gorm:"primaryKey"`
	Number int64  `gorm:"uniqueIndex"`
	SKU    string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&shipmentRow{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := telemetry.DefaultDBTracingConfig()

	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_RecordsQueryMetrics(t *testing.T) {
	db := setupTestDB(t)

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("db")

	plugin, err := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), meter, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, plugin.Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&shipmentRow{Number: 12, SKU: "SKU-1"}).Error)

	var rows []shipmentRow
	require.NoError(t, db.WithContext(ctx).Where("sku = ?", "SKU-1").Find(&rows).Error)
	require.Len(t, rows, 1)

	data := collect(t, reader, "db_query_total")
	assert.Equal(t, int64(1), sumFor(t, data, telemetry.AttrDBOperation.String("create")))
	assert.Equal(t, int64(1), sumFor(t, data, telemetry.AttrDBOperation.String("query")))
}

func TestDBTracingPlugin_NilMeterSkipsMetrics(t *testing.T) {
	db := setupTestDB(t)

	plugin, err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, plugin.Register(db))

	assert.NoError(t, db.Create(&shipmentRow{Number: 1, SKU: "SKU-1"}).Error)
}

func TestDBTracingPlugin_MarksFailedQueriesOnSpan(t *testing.T) {
	db := setupTestDB(t)
	sr := setupTestTracer(t)

	plugin, err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{SlowQueryThresh: time.Hour}, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, plugin.Register(db))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, span := tp.Tracer("test").Start(context.Background(), "repository.save")

	require.NoError(t, db.WithContext(ctx).Create(&shipmentRow{Number: 5, SKU: "SKU-1"}).Error)
	require.Error(t, db.WithContext(ctx).Create(&shipmentRow{Number: 5, SKU: "SKU-2"}).Error)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
