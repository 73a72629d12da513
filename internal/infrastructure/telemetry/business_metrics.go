package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/shared"
)

// ErrMeterNil is returned when BusinessMetrics is built without a meter
var ErrMeterNil = errors.New("NewBusinessMetrics: meter cannot be nil")

// BusinessMetrics counts the inventory operations the dashboard performs.
type BusinessMetrics struct {
	logger *zap.Logger

	salesRecorded   *Counter
	salesRevenue    *Counter
	stockEntries    *Counter
	stockUnits      *Counter
	deletions       *Counter
	reportsExported *Counter
	refreshDuration *Histogram
}

// NewBusinessMetrics creates the counters on the given meter.
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	var err error
	if bm.salesRecorded, err = NewCounter(meter, "ims_sales_recorded_total", "Sales recorded through the dashboard", "{sales}"); err != nil {
		return nil, err
	}
	if bm.salesRevenue, err = NewCounter(meter, "ims_sales_revenue_total", "Revenue of recorded sales in whole francs", "{RWF}"); err != nil {
		return nil, err
	}
	if bm.stockEntries, err = NewCounter(meter, "ims_stock_entries_total", "Stock entries recorded through the dashboard", "{entries}"); err != nil {
		return nil, err
	}
	if bm.stockUnits, err = NewCounter(meter, "ims_stock_units_added_total", "Units added by stock entries", "{units}"); err != nil {
		return nil, err
	}
	if bm.deletions, err = NewCounter(meter, "ims_records_deleted_total", "Sales and stock entries deleted", "{records}"); err != nil {
		return nil, err
	}
	if bm.reportsExported, err = NewCounter(meter, "ims_reports_exported_total", "Reports exported to PDF", "{reports}"); err != nil {
		return nil, err
	}
	if bm.refreshDuration, err = NewHistogram(meter, "ims_refresh_duration_seconds",
		"Time from write acknowledgement until the refresh settled", "s", RefreshDurationBuckets); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordSale counts one sale and its revenue.
func (bm *BusinessMetrics) RecordSale(ctx context.Context, shopID string, total shared.Money) {
	if bm == nil {
		return
	}
	bm.salesRecorded.Inc(ctx, AttrShopID.String(shopID))
	bm.salesRevenue.Add(ctx, total.Round(0).Amount().IntPart(), AttrShopID.String(shopID))
}

// RecordStockEntry counts one stock entry and its units.
func (bm *BusinessMetrics) RecordStockEntry(ctx context.Context, shopID string, quantity int64) {
	if bm == nil {
		return
	}
	bm.stockEntries.Inc(ctx, AttrShopID.String(shopID))
	bm.stockUnits.Add(ctx, quantity, AttrShopID.String(shopID))
}

// RecordDeletion counts a deleted sale or stock entry.
func (bm *BusinessMetrics) RecordDeletion(ctx context.Context, kind string) {
	if bm == nil {
		return
	}
	bm.deletions.Inc(ctx, AttrOperation.String(kind))
}

// RecordRefresh records how long a post-write refresh took and whether the
// write was observed.
func (bm *BusinessMetrics) RecordRefresh(ctx context.Context, operation string, observed bool, d time.Duration) {
	if bm == nil {
		return
	}
	outcome := "observed"
	if !observed {
		outcome = "not_observed"
	}
	bm.refreshDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordExport counts an exported report.
func (bm *BusinessMetrics) RecordExport(ctx context.Context, reportType string) {
	if bm == nil {
		return
	}
	bm.reportsExported.Inc(ctx, AttrReport.String(reportType))
}
