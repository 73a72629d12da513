// Package report fetches period data for a shop, assembles report documents
// and exports them to PDF.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/cache"
	"github.com/3btraders/ims/internal/infrastructure/gateway"
	"github.com/3btraders/ims/internal/infrastructure/logger"
	"github.com/3btraders/ims/internal/infrastructure/printing"
	"github.com/3btraders/ims/internal/infrastructure/storage"
	"github.com/3btraders/ims/internal/infrastructure/telemetry"
)

// Lister reads record lists from the backend.
type Lister interface {
	ListSales(ctx context.Context, q gateway.SalesQuery) ([]ledger.SaleRecord, error)
	ListStockEntries(ctx context.Context, q gateway.StockQuery) ([]ledger.StockEntry, error)
}

// CatalogSource provides the current catalog snapshot.
type CatalogSource interface {
	Snapshot() *catalog.Catalog
}

// Archive keeps a copy of exported PDFs off the machine.
type Archive interface {
	Archive(ctx context.Context, shopID shared.ID, fileName string, data []byte) (*storage.ArchivedReport, error)
}

// GenerateRequest selects the shop, period and layout of a report.
type GenerateRequest struct {
	ShopID shared.ID     `json:"shop_id"`
	Period shared.Period `json:"period"`
	Type   report.Type   `json:"type"`
}

// ExportResult describes where an exported report ended up.
type ExportResult struct {
	File     *printing.StoredReport  `json:"file"`
	Archived *storage.ArchivedReport `json:"archived,omitempty"`
	Pages    int                     `json:"pages"`
}

// Service reads period data through the report cache and turns it into
// documents and PDFs.
type Service struct {
	lister   Lister
	catalog  CatalogSource
	cache    *cache.ReportCache
	layout   *printing.Layout
	renderer printing.PDFRenderer
	files    *printing.FileSystemStorage
	archive  Archive
	metrics  *telemetry.BusinessMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCache reads lists through a report cache
func WithCache(c *cache.ReportCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithExport enables PDF export
func WithExport(layout *printing.Layout, renderer printing.PDFRenderer, files *printing.FileSystemStorage) Option {
	return func(s *Service) {
		s.layout = layout
		s.renderer = renderer
		s.files = files
	}
}

// WithArchive uploads every export to the archive
func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithMetrics counts exports
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets a custom logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now for generated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a report service.
func NewService(lister Lister, source CatalogSource, opts ...Option) *Service {
	s := &Service{
		lister:  lister,
		catalog: source,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("report")
	return s
}

// ListSales returns the sales page for one shop. The shop is required.
func (s *Service) ListSales(ctx context.Context, shopID shared.ID, period shared.Period) (report.SalesListView, error) {
	if shopID.IsZero() {
		return report.SalesListView{}, shared.ErrSelectionRequired
	}
	if err := period.Validate(); err != nil {
		return report.SalesListView{}, err
	}
	ctx = logger.WithShopID(ctx, shopID.String())
	sales, err := s.sales(ctx, shopID, period)
	if err != nil {
		return report.SalesListView{}, err
	}
	return report.NewSalesListView(shopID, period, sales), nil
}

// ListStockEntries returns the stock page. Every filter is optional.
// Searches bypass the cache.
func (s *Service) ListStockEntries(ctx context.Context, shopID shared.ID, period shared.Period, search string) (report.StockListView, error) {
	if err := period.Validate(); err != nil {
		return report.StockListView{}, err
	}
	search = strings.TrimSpace(search)
	if !shopID.IsZero() {
		ctx = logger.WithShopID(ctx, shopID.String())
	}
	var (
		entries []ledger.StockEntry
		err     error
	)
	if search != "" {
		entries, err = s.lister.ListStockEntries(ctx, gateway.StockQuery{ShopID: shopID, Period: period, Search: search})
	} else {
		entries, err = s.stockEntries(ctx, shopID, period)
	}
	if err != nil {
		return report.StockListView{}, err
	}
	return report.NewStockListView(shopID, period, search, entries), nil
}

func (s *Service) sales(ctx context.Context, shopID shared.ID, period shared.Period) ([]ledger.SaleRecord, error) {
	return cache.Fetch(ctx, s.cache, cache.KindSales, shopID, period,
		func(ctx context.Context) ([]ledger.SaleRecord, error) {
			return s.lister.ListSales(ctx, gateway.SalesQuery{ShopID: shopID, Period: period})
		})
}

func (s *Service) stockEntries(ctx context.Context, shopID shared.ID, period shared.Period) ([]ledger.StockEntry, error) {
	return cache.Fetch(ctx, s.cache, cache.KindStock, shopID, period,
		func(ctx context.Context) ([]ledger.StockEntry, error) {
			return s.lister.ListStockEntries(ctx, gateway.StockQuery{ShopID: shopID, Period: period})
		})
}

// Generate fetches the shop's sales and stock entries for a complete period
// concurrently and assembles them into a document.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (report.Document, error) {
	if req.ShopID.IsZero() {
		return report.Document{}, shared.ErrSelectionRequired
	}
	if !req.Period.IsComplete() {
		return report.Document{}, shared.ErrInvalidDateRange
	}
	if err := req.Period.Validate(); err != nil {
		return report.Document{}, err
	}
	typ, err := report.ParseType(string(req.Type))
	if err != nil {
		return report.Document{}, err
	}
	ctx = logger.WithShopID(ctx, req.ShopID.String())

	var (
		sales   []ledger.SaleRecord
		entries []ledger.StockEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.sales(gctx, req.ShopID, req.Period)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.stockEntries(gctx, req.ShopID, req.Period)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Report data fetch failed", zap.Error(err))
		return report.Document{}, err
	}

	shopName := req.ShopID.String()
	if s.catalog != nil {
		if shop, ok := s.catalog.Snapshot().Shop(req.ShopID.String()); ok {
			shopName = shop.Name
		}
	}

	doc := report.AssembleReport(req.Period, typ, sales, entries).
		Stamp(uuid.NewString(), req.ShopID, shopName, s.now())
	logger.WithLogger(ctx, s.logger).Info("Report generated",
		zap.String("report_id", doc.ID),
		zap.String("period", doc.TimePeriod),
		zap.Int("sales", len(sales)),
		zap.Int("stock_entries", len(entries)))
	return doc, nil
}

// ExportEnabled reports whether the service can render PDFs.
func (s *Service) ExportEnabled() bool {
	return s.layout != nil && s.renderer != nil && s.files != nil
}

// Export renders doc to PDF, stores it under its file name and archives it
// when an archive is configured. An archive failure is logged; the local
// file is still returned.
func (s *Service) Export(ctx context.Context, doc report.Document) (*ExportResult, error) {
	if !s.ExportEnabled() {
		return nil, shared.ErrInvalidInput.WithMessage("PDF export is not configured")
	}
	if !doc.ShopID.IsZero() {
		ctx = logger.WithShopID(ctx, doc.ShopID.String())
	}
	html, err := s.layout.Render(doc)
	if err != nil {
		return nil, err
	}
	rendered, err := s.renderer.Render(ctx, &printing.RenderRequest{
		HTML:       html,
		Title:      fmt.Sprintf("IMS Report %s %s", doc.ShopName, doc.TimePeriod),
		Margins:    printing.DefaultMargins(),
		FooterHTML: s.layout.Footer(),
	})
	if err != nil {
		return nil, err
	}
	name := doc.FileName()
	stored, err := s.files.Store(ctx, name, rendered.PDFData)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{File: stored, Pages: rendered.PageCount}

	log := logger.WithLogger(ctx, s.logger).With(zap.String("file", name))
	if s.archive != nil {
		archived, err := s.archive.Archive(ctx, doc.ShopID, name, rendered.PDFData)
		if err != nil {
			log.Warn("Report archive failed", zap.Error(err))
		} else {
			result.Archived = archived
		}
	}
	s.metrics.RecordExport(ctx, string(doc.Type))
	log.Info("Report exported", zap.Int("pages", rendered.PageCount), zap.Duration("render", rendered.RenderDuration))
	return result, nil
}

// StoredReports lists exported PDFs, newest first.
func (s *Service) StoredReports(ctx context.Context) ([]printing.StoredReport, error) {
	if s.files == nil {
		return []printing.StoredReport{}, nil
	}
	return s.files.List(ctx)
}

// OpenReport opens an exported PDF by file name.
func (s *Service) OpenReport(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.files == nil {
		return nil, shared.ErrNotFound.WithMessage("Report not found")
	}
	return s.files.Open(ctx, name)
}
