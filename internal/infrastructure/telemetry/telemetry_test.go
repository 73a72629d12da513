package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/shared"
)

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := NewBusinessMetrics(nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, bm)
}

func TestBusinessMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(provider.Meter("ims"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordSale(ctx, "1", shared.NewMoneyFromInt(3000))
	bm.RecordSale(ctx, "1", shared.NewMoneyFromInt(1500))
	bm.RecordStockEntry(ctx, "2", 12)
	bm.RecordDeletion(ctx, "sale")
	bm.RecordRefresh(ctx, "record_sale", true, 750*time.Millisecond)
	bm.RecordExport(ctx, "summary")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["ims_sales_recorded_total"])
	assert.Equal(t, int64(4500), sums["ims_sales_revenue_total"])
	assert.Equal(t, int64(12), sums["ims_stock_units_added_total"])
	assert.Equal(t, int64(1), sums["ims_reports_exported_total"])
}

func TestBusinessMetrics_NilReceiver(t *testing.T) {
	var bm *BusinessMetrics
	assert.NotPanics(t, func() {
		bm.RecordSale(context.Background(), "1", shared.NewMoneyFromInt(1))
		bm.RecordExport(context.Background(), "summary")
	})
}

func TestPromMetrics(t *testing.T) {
	m := NewPromMetrics()

	m.ObserveRequest(http.MethodGet, "/sales/allSales", 200, 30*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/sales/allSales", 0, time.Second)
	m.ObserveRetry("/sales/allSales")
	m.ObserveCache("sales", true)
	m.ObserveCache("sales", false)
	m.ObserveCache("sales", false)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `ims_gateway_requests_total{endpoint="/sales/allSales",method="GET",status="200"} 1`)
	assert.Contains(t, body, `ims_gateway_requests_total{endpoint="/sales/allSales",method="GET",status="error"} 1`)
	assert.Contains(t, body, `ims_gateway_retries_total{endpoint="/sales/allSales"} 1`)
	assert.Contains(t, body, `ims_report_cache_lookups_total{kind="sales",result="miss"} 2`)
	assert.Contains(t, body, "go_goroutines")
}
