package inventory

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/config"
	"github.com/3btraders/ims/internal/infrastructure/logger"
	"github.com/3btraders/ims/internal/infrastructure/telemetry"
)

// Operation names the write that triggered a refresh.
type Operation string

const (
	OpSale             Operation = "sale"
	OpStockEntry       Operation = "stock_entry"
	OpDeleteSale       Operation = "delete_sale"
	OpDeleteStockEntry Operation = "delete_stock_entry"
)

// ListKind returns which list ("sales" or "stock") the operation changes.
func (op Operation) ListKind() string {
	switch op {
	case OpSale, OpDeleteSale:
		return "sales"
	default:
		return "stock"
	}
}

// CatalogSource provides the shared catalog snapshot.
type CatalogSource interface {
	Snapshot() *catalog.Catalog
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// Expectation describes the change a write should make visible in the catalog.
// With a ProductID the product's quantity must reach Before+Delta; without one
// any change of the total quantity counts.
type Expectation struct {
	Operation   Operation
	ProductID   shared.ID
	ShopID      shared.ID
	Delta       int64
	Before      int64
	BeforeTotal int64
}

// Outcome reports how a refresh settled. The last fetched snapshot is applied
// whether or not the change was observed.
type Outcome struct {
	Operation Operation
	ShopID    shared.ID
	Observed  bool
	Attempts  int
	Duration  time.Duration
	Err       error
}

// Refresher polls the catalog after a write until the change shows up or the
// attempts run out.
type Refresher struct {
	source  CatalogSource
	cfg     config.RefreshConfig
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []func(context.Context, Outcome)
	wg    sync.WaitGroup
}

// NewRefresher creates a refresher. metrics may be nil.
func NewRefresher(source CatalogSource, cfg config.RefreshConfig, metrics *telemetry.BusinessMetrics, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Refresher{source: source, cfg: cfg, metrics: metrics, logger: log.Named("refresher")}
}

// OnSettled registers fn to run after every refresh, in registration order.
func (r *Refresher) OnSettled(fn func(context.Context, Outcome)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Refresher) delay(op Operation) time.Duration {
	switch op {
	case OpSale:
		return r.cfg.SaleDelay
	case OpStockEntry:
		return r.cfg.StockDelay
	default:
		return r.cfg.InitialDelay
	}
}

// Run waits the operation's initial delay, then refetches the catalog until
// the expectation holds. Settled hooks run before Run returns.
func (r *Refresher) Run(ctx context.Context, exp Expectation) Outcome {
	start := time.Now()
	out := Outcome{Operation: exp.Operation, ShopID: exp.ShopID}
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("operation", string(exp.Operation)),
		zap.String("product_id", exp.ProductID.String()))

	if err := sleep(ctx, r.delay(exp.Operation)); err != nil {
		out.Err = err
		return r.settle(ctx, out, start)
	}

	for out.Attempts < r.cfg.MaxAttempts {
		if out.Attempts > 0 {
			if err := sleep(ctx, r.cfg.PollInterval); err != nil {
				out.Err = err
				break
			}
		}
		out.Attempts++
		c, err := r.source.Refresh(ctx)
		if err != nil {
			out.Err = err
			log.Warn("Refresh attempt failed", zap.Int("attempt", out.Attempts), zap.Error(err))
			continue
		}
		out.Err = nil
		if observed(exp, c) {
			out.Observed = true
			break
		}
	}

	if out.Observed {
		log.Debug("Write observed", zap.Int("attempts", out.Attempts))
	} else {
		log.Warn("Write not yet visible after refresh", zap.Int("attempts", out.Attempts))
	}
	return r.settle(ctx, out, start)
}

func (r *Refresher) settle(ctx context.Context, out Outcome, start time.Time) Outcome {
	out.Duration = time.Since(start)
	r.metrics.RecordRefresh(ctx, string(out.Operation), out.Observed, out.Duration)

	r.mu.Lock()
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx, out)
	}
	return out
}

// Schedule runs the refresh in the background. The refresh outlives ctx's
// cancellation but keeps its values (request id, logger).
func (r *Refresher) Schedule(ctx context.Context, exp Expectation) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx, exp)
	}()
}

// Wait blocks until every scheduled refresh has settled.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

func observed(exp Expectation, c *catalog.Catalog) bool {
	if exp.ProductID.IsZero() {
		return c.TotalQuantity() != exp.BeforeTotal
	}
	p, ok := c.Product(exp.ProductID.String())
	if !ok {
		return false
	}
	return p.QuantityOnHand == exp.Before+exp.Delta
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
