// Package catalog owns the single long-lived catalog snapshot and the shop
// and product maintenance operations that replace it.
package catalog

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

// Gateway is the subset of the backend client the service needs.
type Gateway interface {
	FetchCatalog(ctx context.Context) (*catalog.Catalog, error)
	CreateShop(ctx context.Context, p ledger.ShopPayload) error
	DeleteShop(ctx context.Context, id shared.ID) error
	AddProduct(ctx context.Context, p ledger.ProductPayload) error
	DeleteProduct(ctx context.Context, id shared.ID) error
}

// Invalidator drops cached report data after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service keeps the current catalog snapshot. The snapshot is replaced
// atomically on every successful fetch and never mutated in place.
type Service struct {
	gw          Gateway
	invalidator Invalidator
	logger      *zap.Logger

	snapshot atomic.Pointer[catalog.Catalog]
	fetched  atomic.Int64 // unix nanos of the last successful fetch
	group    singleflight.Group
}

// NewService creates a service holding an empty catalog. invalidator may be nil.
func NewService(gw Gateway, invalidator Invalidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{gw: gw, invalidator: invalidator, logger: log.Named("catalog")}
	s.snapshot.Store(catalog.Empty())
	return s
}

// Snapshot returns the current catalog. Never nil.
func (s *Service) Snapshot() *catalog.Catalog {
	return s.snapshot.Load()
}

// FetchedAt returns when the snapshot was last replaced by a fetch.
func (s *Service) FetchedAt() time.Time {
	n := s.fetched.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Refresh fetches the catalog and replaces the snapshot. Concurrent callers
// share one backend request, which is not tied to any single caller's
// cancellation; a cancelled caller returns ctx.Err() while the fetch goes on
// for the others. On failure the previous snapshot stays.
func (s *Service) Refresh(ctx context.Context) (*catalog.Catalog, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("catalog", func() (any, error) {
		c, err := s.gw.FetchCatalog(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.snapshot.Store(c)
		s.fetched.Store(time.Now().UnixNano())
		return c, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Catalog refresh failed", zap.Error(res.Err))
		return nil, res.Err
	}
	c := res.Val.(*catalog.Catalog)
	dup := res.Shared
	logger.WithLogger(ctx, s.logger).Debug("Catalog refreshed",
		zap.Int("shops", c.Len()), zap.Int("products", c.TotalProducts()), zap.Bool("shared", dup))
	return c, nil
}

// Overview computes the dashboard charts from the current snapshot.
func (s *Service) Overview(now time.Time) report.Overview {
	return report.BuildOverview(s.Snapshot(), now)
}

// CreateShop adds a shop and refreshes the catalog.
func (s *Service) CreateShop(ctx context.Context, name, location string) error {
	p := ledger.ShopPayload{Name: strings.TrimSpace(name), Location: strings.TrimSpace(location)}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.gw.CreateShop(ctx, p); err != nil {
		return err
	}
	logger.WithLogger(ctx, s.logger).Info("Shop created", zap.String("name", p.Name))
	return s.afterWrite(ctx)
}

// DeleteShop removes a shop and refreshes the catalog.
func (s *Service) DeleteShop(ctx context.Context, id shared.ID) error {
	if id.IsZero() {
		return shared.ErrSelectionRequired
	}
	if _, ok := s.Snapshot().Shop(id.String()); !ok {
		return shared.ErrNotFound.WithMessage("Shop not found")
	}
	if err := s.gw.DeleteShop(ctx, id); err != nil {
		return err
	}
	logger.WithLogger(ctx, s.logger).Info("Shop deleted", zap.String("shop_id", id.String()))
	return s.afterWrite(ctx)
}

// AddProduct adds a product to an existing shop and refreshes the catalog.
func (s *Service) AddProduct(ctx context.Context, p ledger.ProductPayload) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := s.Snapshot().Shop(p.ShopID.String()); !ok {
		return shared.ErrSelectionRequired.WithMessage("Please select a valid shop")
	}
	if err := s.gw.AddProduct(ctx, p); err != nil {
		return err
	}
	logger.WithLogger(ctx, s.logger).Info("Product added",
		zap.String("shop_id", p.ShopID.String()), zap.String("name", p.Name))
	return s.afterWrite(ctx)
}

// DeleteProduct removes a product and refreshes the catalog.
func (s *Service) DeleteProduct(ctx context.Context, id shared.ID) error {
	if _, ok := s.Snapshot().Product(id.String()); !ok {
		return shared.ErrProductNotFound
	}
	if err := s.gw.DeleteProduct(ctx, id); err != nil {
		return err
	}
	logger.WithLogger(ctx, s.logger).Info("Product deleted", zap.String("product_id", id.String()))
	return s.afterWrite(ctx)
}

// afterWrite invalidates cached report data and refetches. A failed refetch
// after a successful write is logged, not returned: the write happened.
func (s *Service) afterWrite(ctx context.Context) error {
	if s.invalidator != nil {
		if err := s.invalidator.Bump(ctx); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("Report cache invalidation failed", zap.Error(err))
		}
	}
	if _, err := s.Refresh(ctx); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Catalog stale after write", zap.Error(err))
	}
	return nil
}
