package report

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/cache"
	"github.com/3btraders/ims/internal/infrastructure/gateway"
	"github.com/3btraders/ims/internal/infrastructure/printing"
	"github.com/3btraders/ims/internal/infrastructure/storage"
)

type mockLister struct {
	mu         sync.Mutex
	sales      []ledger.SaleRecord
	entries    []ledger.StockEntry
	salesErr   error
	stockErr   error
	salesCalls []gateway.SalesQuery
	stockCalls []gateway.StockQuery
}

func (m *mockLister) ListSales(ctx context.Context, q gateway.SalesQuery) ([]ledger.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salesCalls = append(m.salesCalls, q)
	return m.sales, m.salesErr
}

func (m *mockLister) ListStockEntries(ctx context.Context, q gateway.StockQuery) ([]ledger.StockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stockCalls = append(m.stockCalls, q)
	return m.entries, m.stockErr
}

func (m *mockLister) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.salesCalls), len(m.stockCalls)
}

type staticCatalog struct{ c *catalog.Catalog }

func (s staticCatalog) Snapshot() *catalog.Catalog { return s.c }

type fakeRenderer struct {
	mu   sync.Mutex
	reqs []*printing.RenderRequest
	err  error
}

func (f *fakeRenderer) Render(ctx context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &printing.RenderResult{PDFData: []byte("%PDF-1.4 report"), PageCount: 2, RenderDuration: time.Millisecond}, nil
}

func (f *fakeRenderer) Close() error { return nil }

type fakeArchive struct {
	err  error
	keys []string
}

func (f *fakeArchive) Archive(ctx context.Context, shopID shared.ID, fileName string, data []byte) (*storage.ArchivedReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := storage.Key(shopID, fileName)
	f.keys = append(f.keys, key)
	return &storage.ArchivedReport{Bucket: "ims", Key: key, URL: "https://s3.local/" + key}, nil
}

var (
	period   = shared.Period{Start: "2025-01-01", End: "2025-01-31"}
	clock    = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	shopsFix = catalog.BuildCatalog([]catalog.Shop{{ID: "1", Name: "Kigali Central"}})
)

func sampleLister() *mockLister {
	at := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	return &mockLister{
		sales: []ledger.SaleRecord{
			{ID: "1", ProductID: "10", ShopID: "1", Buyer: "Alice", Quantity: 2, TotalPrice: shared.NewMoneyFromInt(2000), CreatedAt: at, ProductName: "A"},
			{ID: "2", ProductID: "20", ShopID: "1", Buyer: "Bob", Quantity: 5, TotalPrice: shared.NewMoneyFromInt(5000), CreatedAt: at, ProductName: "B"},
			{ID: "3", ProductID: "10", ShopID: "1", Buyer: "Carol", Quantity: 1, TotalPrice: shared.NewMoneyFromInt(1000), CreatedAt: at, ProductName: "A"},
		},
		entries: []ledger.StockEntry{
			{ID: "e1", ProductID: "10", Supplier: "X", Quantity: 10, CreatedAt: at},
			{ID: "e2", ProductID: "20", Supplier: "Y", Quantity: 20, CreatedAt: at},
			{ID: "e3", ProductID: "10", Supplier: "X", Quantity: 5, CreatedAt: at},
		},
	}
}

func newCache(t *testing.T) *cache.ReportCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewReportCache(client, time.Minute, nil, zaptest.NewLogger(t))
}

func TestGenerate(t *testing.T) {
	lister := sampleLister()
	svc := NewService(lister, staticCatalog{shopsFix}, WithClock(func() time.Time { return clock }), WithLogger(zaptest.NewLogger(t)))

	doc, err := svc.Generate(context.Background(), GenerateRequest{ShopID: "1", Period: period, Type: "Detailed"})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, report.TypeDetailed, doc.Type)
	assert.Equal(t, "Kigali Central", doc.ShopName)
	assert.Equal(t, "2025-01-01 to 2025-01-31", doc.TimePeriod)
	assert.Equal(t, clock, doc.GeneratedAt)
	assert.Equal(t, "8000", doc.Aggregate.SalesSummary.TotalRevenue.String())
	require.NotNil(t, doc.Aggregate.SalesSummary.BestSellingProduct)
	assert.Equal(t, "B", doc.Aggregate.SalesSummary.BestSellingProduct.Name)
	assert.Equal(t, int64(5), doc.Aggregate.SalesSummary.BestSellingProduct.Quantity)
	require.Len(t, doc.Aggregate.StockSummary.TopSuppliers, 2)
	assert.Equal(t, "Y", doc.Aggregate.StockSummary.TopSuppliers[0].Name)
	assert.Equal(t, int64(15), doc.Aggregate.StockSummary.TopSuppliers[1].Quantity)
	assert.Equal(t, "IMS_Report_Kigali_Central_2025-01-01_to_2025-01-31.pdf", doc.FileName())

	require.Len(t, lister.salesCalls, 1)
	assert.Equal(t, gateway.SalesQuery{ShopID: "1", Period: period}, lister.salesCalls[0])
	require.Len(t, lister.stockCalls, 1)
	assert.Equal(t, gateway.StockQuery{ShopID: "1", Period: period}, lister.stockCalls[0])
}

func TestGenerate_Validation(t *testing.T) {
	lister := sampleLister()
	svc := NewService(lister, staticCatalog{shopsFix})
	ctx := context.Background()

	_, err := svc.Generate(ctx, GenerateRequest{Period: period})
	assert.ErrorIs(t, err, shared.ErrSelectionRequired)

	_, err = svc.Generate(ctx, GenerateRequest{ShopID: "1", Period: shared.Period{Start: "2025-01-01"}})
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)

	_, err = svc.Generate(ctx, GenerateRequest{ShopID: "1", Period: shared.Period{Start: "2025-02-01", End: "2025-01-01"}})
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)

	_, err = svc.Generate(ctx, GenerateRequest{ShopID: "1", Period: period, Type: "weekly"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	s, st := lister.counts()
	assert.Zero(t, s)
	assert.Zero(t, st)
}

func TestGenerate_FetchFailure(t *testing.T) {
	lister := sampleLister()
	lister.stockErr = shared.NewRemoteError(500, "Database unavailable", nil)
	svc := NewService(lister, staticCatalog{shopsFix})

	_, err := svc.Generate(context.Background(), GenerateRequest{ShopID: "1", Period: period})
	require.Error(t, err)
	assert.Equal(t, "Database unavailable", err.Error())
}

func TestGenerate_UnknownShopFallsBackToID(t *testing.T) {
	svc := NewService(sampleLister(), staticCatalog{catalog.Empty()})
	doc, err := svc.Generate(context.Background(), GenerateRequest{ShopID: "7", Period: period})
	require.NoError(t, err)
	assert.Equal(t, "7", doc.ShopName)
	assert.Equal(t, report.TypeSummary, doc.Type)
}

func TestListSales(t *testing.T) {
	lister := sampleLister()
	svc := NewService(lister, staticCatalog{shopsFix}, WithCache(newCache(t)))
	ctx := context.Background()

	_, err := svc.ListSales(ctx, "", period)
	assert.ErrorIs(t, err, shared.ErrSelectionRequired)

	view, err := svc.ListSales(ctx, "1", period)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "8000", view.TotalRevenue.String())

	_, err = svc.ListSales(ctx, "1", period)
	require.NoError(t, err)
	s, _ := lister.counts()
	assert.Equal(t, 1, s, "second read is served from cache")
}

func TestListStockEntries(t *testing.T) {
	lister := sampleLister()
	svc := NewService(lister, staticCatalog{shopsFix}, WithCache(newCache(t)))
	ctx := context.Background()

	view, err := svc.ListStockEntries(ctx, "", shared.Period{}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.TotalEntries)
	assert.Equal(t, int64(35), view.Stats.TotalQuantity)
	assert.Equal(t, "11.67", view.Stats.AverageQuantity.String())

	_, err = svc.ListStockEntries(ctx, "", shared.Period{}, "")
	require.NoError(t, err)
	_, err = svc.ListStockEntries(ctx, "", shared.Period{}, "  inyange ")
	require.NoError(t, err)

	_, st := lister.counts()
	assert.Equal(t, 2, st, "search bypasses the cache")
	assert.Equal(t, "inyange", lister.stockCalls[1].Search)

	_, err = svc.ListStockEntries(ctx, "", shared.Period{Start: "01/01/2025"}, "")
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)
}

func TestExport(t *testing.T) {
	layout, err := printing.NewLayout("RWF")
	require.NoError(t, err)
	files, err := printing.NewFileSystemStorage(t.TempDir(), nil)
	require.NoError(t, err)
	renderer := &fakeRenderer{}
	archive := &fakeArchive{}

	svc := NewService(sampleLister(), staticCatalog{shopsFix},
		WithExport(layout, renderer, files), WithArchive(archive), WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	doc, err := svc.Generate(ctx, GenerateRequest{ShopID: "1", Period: period})
	require.NoError(t, err)

	res, err := svc.Export(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, doc.FileName(), res.File.Name)
	require.NotNil(t, res.Archived)
	assert.Equal(t, "reports/1/"+doc.FileName(), res.Archived.Key)

	require.Len(t, renderer.reqs, 1)
	assert.Contains(t, renderer.reqs[0].HTML, "Shop: Kigali Central")
	assert.NotEmpty(t, renderer.reqs[0].FooterHTML)

	list, err := svc.StoredReports(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	rc, err := svc.OpenReport(ctx, doc.FileName())
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 report", string(data))

	t.Run("archive failure keeps local file", func(t *testing.T) {
		archive.err = errors.New("bucket missing")
		res, err := svc.Export(ctx, doc)
		require.NoError(t, err)
		assert.Nil(t, res.Archived)
		assert.NotNil(t, res.File)
	})

	t.Run("render failure", func(t *testing.T) {
		renderer.err = printing.NewRenderError(printing.ErrCodeRenderTimeout, "timed out", nil)
		_, err := svc.Export(ctx, doc)
		var re *printing.RenderError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, printing.ErrCodeRenderTimeout, re.Code)
	})
}

func TestExport_Disabled(t *testing.T) {
	svc := NewService(sampleLister(), staticCatalog{shopsFix})
	assert.False(t, svc.ExportEnabled())
	_, err := svc.Export(context.Background(), report.Document{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	list, err := svc.StoredReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = svc.OpenReport(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
