package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics records order intake, allocation and billing activity.
// It satisfies the metrics recorders accepted by the intake and billing services.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics
	orderIntakeTotal   *Counter
	lineAllocatedTotal *Counter
	billingSavedTotal  *Counter
	priceReconciled    *Counter

	intakeDuration *Histogram

	// Gauge metrics
	openShipmentStock *QuantityGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stockProvider StockMetricsProvider
}

// StockMetricsProvider reports the quantity still available in open shipments.
type StockMetricsProvider interface {
	OpenStockBySeller(ctx context.Context) (map[int64]decimal.Decimal, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	StockProvider StockMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error

	bm.orderIntakeTotal, err = NewCounter(cfg.Meter,
		"bo_order_intake_total",
		"Total number of channel orders received, by outcome",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.lineAllocatedTotal, err = NewCounter(cfg.Meter,
		"bo_line_allocated_total",
		"Total number of order lines run through the shipment allocator",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	bm.billingSavedTotal, err = NewCounter(cfg.Meter,
		"bo_vendor_billing_saved_total",
		"Total number of vendor billing saves, by outcome",
		"{billings}",
	)
	if err != nil {
		return nil, err
	}

	bm.priceReconciled, err = NewCounter(cfg.Meter,
		"bo_price_reconciled_total",
		"Total number of price breakdowns reverse computed from a realized price",
		"{prices}",
	)
	if err != nil {
		return nil, err
	}

	bm.intakeDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bo_order_intake_duration_seconds",
		Description: "Time spent ingesting one channel order",
		Unit:        "s",
		Boundaries:  IntakeDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	bm.openShipmentStock, err = NewQuantityGauge(cfg.Meter,
		"bo_open_shipment_stock",
		"Quantity still available in open shipments",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Intake Metrics
// =============================================================================

// OrderIntake counts one intake call for a channel.
func (bm *BusinessMetrics) OrderIntake(channel, outcome string) {
	bm.orderIntakeTotal.Inc(context.Background(),
		AttrChannel.String(channel),
		AttrOutcome.String(outcome),
	)
}

// LineAllocated counts one allocated order line.
func (bm *BusinessMetrics) LineAllocated(deliveryType string, complete bool) {
	bm.lineAllocatedTotal.Inc(context.Background(),
		AttrDeliveryType.String(deliveryType),
		AttrComplete.Bool(complete),
	)
}

// IntakeDuration records how long one intake call took.
func (bm *BusinessMetrics) IntakeDuration(d time.Duration) {
	bm.intakeDuration.RecordDuration(context.Background(), d)
}

// =============================================================================
// Billing Metrics
// =============================================================================

// BillingSaved counts one vendor billing save.
func (bm *BusinessMetrics) BillingSaved(outcome string) {
	bm.billingSavedTotal.Inc(context.Background(), AttrOutcome.String(outcome))
}

// PriceReconciled counts a breakdown that had to be rebuilt from the realized price.
func (bm *BusinessMetrics) PriceReconciled(model pricing.ModelType) {
	bm.priceReconciled.Inc(context.Background(), AttrPriceModel.String(string(model)))
}

// =============================================================================
// Stock Metrics
// =============================================================================

// RecordOpenStock records the open shipment stock of one seller.
func (bm *BusinessMetrics) RecordOpenStock(ctx context.Context, sellerID int64, qty decimal.Decimal) {
	bm.openShipmentStock.Record(ctx, qty, SellerAttr(sellerID))
}

// StartPeriodicCollection starts collecting the stock gauge every interval
// (default: 5 minutes). It returns immediately; use Stop to end collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectStockMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectStockMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectStockMetrics(ctx context.Context) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	stock, err := bm.stockProvider.OpenStockBySeller(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect open shipment stock", zap.Error(err))
		return
	}
	for sellerID, qty := range stock {
		bm.RecordOpenStock(ctx, sellerID, qty)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
