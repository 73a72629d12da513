package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/application/inventory"
	"github.com/3btraders/ims/internal/application/report"
	"github.com/3btraders/ims/internal/domain/catalog"
	domainreport "github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

// DefaultNoticeTTL is how long a notice stays up.
const DefaultNoticeTTL = 10 * time.Second

// CatalogSource provides the current catalog snapshot.
type CatalogSource interface {
	Snapshot() *catalog.Catalog
}

// Reports loads the record lists and report documents the pages show.
type Reports interface {
	ListSales(ctx context.Context, shopID shared.ID, period shared.Period) (domainreport.SalesListView, error)
	ListStockEntries(ctx context.Context, shopID shared.ID, period shared.Period, search string) (domainreport.StockListView, error)
	Generate(ctx context.Context, req report.GenerateRequest) (domainreport.Document, error)
	Export(ctx context.Context, doc domainreport.Document) (*report.ExportResult, error)
}

// Store owns the dashboard state. Loads run outside the lock; their results
// are applied through Reduce, which drops them when the page's token moved.
type Store struct {
	catalog CatalogSource
	reports Reports
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	noticeSeq uint64
	timer     *time.Timer
}

// NewStore creates an empty store. ttl <= 0 uses DefaultNoticeTTL.
func NewStore(source CatalogSource, reports Reports, ttl time.Duration, log *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		catalog: source,
		reports: reports,
		ttl:     ttl,
		logger:  log.Named("dashboard"),
		now:     time.Now,
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and returns the new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// SelectShop selects a shop on the inventory page.
func (s *Store) SelectShop(id shared.ID) error {
	if !id.IsZero() {
		if _, ok := s.catalog.Snapshot().Shop(id.String()); !ok {
			return shared.ErrNotFound.WithMessage("Shop not found")
		}
	}
	s.Dispatch(ShopSelected{ShopID: id})
	return nil
}

// ShopDeleted drops the inventory selection if it pointed at id.
func (s *Store) ShopDeleted(id shared.ID) {
	s.Dispatch(ShopDeleted{ShopID: id})
}

// salesShop picks the shop for the sales page: the requested one, else the
// inventory selection, else the first shop.
func (s *Store) salesShop(requested shared.ID) (shared.ID, error) {
	if !requested.IsZero() {
		return requested, nil
	}
	if sel := s.State().Inventory.SelectedShopID; !sel.IsZero() {
		return sel, nil
	}
	if first, ok := s.catalog.Snapshot().FirstShop(); ok {
		return shared.ID(first.ID), nil
	}
	return "", shared.ErrSelectionRequired
}

// LoadSales switches the sales page to a shop and period and loads it.
// The returned page is whatever is current when the load settles; if a newer
// selection superseded this one, its outcome is dropped and err is nil.
func (s *Store) LoadSales(ctx context.Context, shopID shared.ID, period shared.Period) (SalesPage, error) {
	shopID, err := s.salesShop(shopID)
	if err != nil {
		s.Fail(ctx, err)
		return s.State().Sales, err
	}
	token := s.Dispatch(SalesFilterChanged{ShopID: shopID, Period: period}).Sales.Token

	view, err := s.reports.ListSales(ctx, shopID, period)
	st := s.Dispatch(SalesLoaded{Token: token, View: view, Err: err})
	if s.stale(ctx, "sales", token, st.Sales.Token) {
		return st.Sales, nil
	}
	if err != nil {
		s.Fail(ctx, err)
	}
	return st.Sales, err
}

// LoadStock switches the stock page filters and loads it.
func (s *Store) LoadStock(ctx context.Context, shopID shared.ID, period shared.Period, search string) (StockPage, error) {
	token := s.Dispatch(StockFilterChanged{ShopID: shopID, Period: period, Search: search}).Stock.Token

	view, err := s.reports.ListStockEntries(ctx, shopID, period, search)
	st := s.Dispatch(StockLoaded{Token: token, View: view, Err: err})
	if s.stale(ctx, "stock", token, st.Stock.Token) {
		return st.Stock, nil
	}
	if err != nil {
		s.Fail(ctx, err)
	}
	return st.Stock, err
}

// GenerateReport generates a report for the reports page.
func (s *Store) GenerateReport(ctx context.Context, req report.GenerateRequest) (ReportsPage, error) {
	token := s.Dispatch(ReportRequested{ShopID: req.ShopID, Period: req.Period, Type: req.Type}).Reports.Token

	doc, err := s.reports.Generate(ctx, req)
	st := s.Dispatch(ReportGenerated{Token: token, Document: doc, Err: err})
	if s.stale(ctx, "reports", token, st.Reports.Token) {
		return st.Reports, nil
	}
	if err != nil {
		s.Fail(ctx, err)
	}
	return st.Reports, err
}

// ExportReport exports the document currently on the reports page.
func (s *Store) ExportReport(ctx context.Context) (ReportsPage, error) {
	page := s.State().Reports
	if page.Document == nil {
		err := shared.ErrInvalidInput.WithMessage("Generate a report before exporting")
		s.Fail(ctx, err)
		return page, err
	}
	res, err := s.reports.Export(ctx, *page.Document)
	st := s.Dispatch(ReportExported{Token: page.Token, Result: res, Err: err})
	if s.stale(ctx, "reports", page.Token, st.Reports.Token) {
		return st.Reports, nil
	}
	if err != nil {
		s.Fail(ctx, err)
		return st.Reports, err
	}
	s.Succeed("Report exported as " + res.File.Name)
	return st.Reports, nil
}

// AfterRefresh reloads the list a settled write affected. The sales page and
// the inventory selection follow the product's shop; a shop-filtered stock
// page does too.
func (s *Store) AfterRefresh(ctx context.Context, out inventory.Outcome) {
	st := s.State()
	switch out.Operation.ListKind() {
	case "sales":
		shopID := st.Sales.ShopID
		if !out.ShopID.IsZero() {
			shopID = out.ShopID
			s.Dispatch(ShopSelected{ShopID: out.ShopID})
		}
		_, _ = s.LoadSales(ctx, shopID, st.Sales.Period)
	case "stock":
		shopID := st.Stock.ShopID
		if !out.ShopID.IsZero() && !shopID.IsZero() {
			shopID = out.ShopID
		}
		_, _ = s.LoadStock(ctx, shopID, st.Stock.Period, st.Stock.Search)
	}
}

// Fail raises an error notice. Domain errors keep their code; anything else
// shows its message.
func (s *Store) Fail(ctx context.Context, err error) {
	if err == nil {
		return
	}
	n := Notice{Level: NoticeError, Message: err.Error()}
	var de *shared.DomainError
	if errors.As(err, &de) {
		n.Code = de.Code
	}
	logger.WithLogger(ctx, s.logger).Warn("Operator notice", zap.String("code", n.Code), zap.Error(err))
	s.raise(n)
}

// Succeed raises a confirmation notice.
func (s *Store) Succeed(message string) {
	s.raise(Notice{Level: NoticeSuccess, Message: message})
}

// raise replaces the current notice and restarts the expiry timer.
func (s *Store) raise(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noticeSeq++
	n.ID = s.noticeSeq
	n.CreatedAt = s.now()
	n.ExpiresAt = n.CreatedAt.Add(s.ttl)
	s.state = Reduce(s.state, NoticeRaised{Notice: n})

	if s.timer != nil {
		s.timer.Stop()
	}
	id := n.ID
	s.timer = time.AfterFunc(s.ttl, func() {
		s.Dispatch(NoticeExpired{ID: id})
	})
}

// DismissNotice clears the notice if it is still the one with id.
func (s *Store) DismissNotice(id uint64) {
	s.Dispatch(NoticeExpired{ID: id})
}

// Close stops the notice timer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// stale reports whether the page moved on while a load was in flight. A stale
// result, successful or not, raises no notice and is not returned to the caller.
func (s *Store) stale(ctx context.Context, page string, requested, current Token) bool {
	if requested == current {
		return false
	}
	logger.WithLogger(ctx, s.logger).Debug("Dropped stale result",
		zap.String("page", page), zap.Uint64("token", uint64(requested)), zap.Uint64("current", uint64(current)))
	return true
}
