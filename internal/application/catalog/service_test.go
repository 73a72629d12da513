package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
)

type mockGateway struct {
	mu       sync.Mutex
	shops    []catalog.Shop
	fetchErr error
	writeErr error
	fetches  atomic.Int32
	block    chan struct{}
	calls    []string
}

func (m *mockGateway) FetchCatalog(ctx context.Context) (*catalog.Catalog, error) {
	m.fetches.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return catalog.BuildCatalog(m.shops), nil
}

func (m *mockGateway) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.writeErr
}

func (m *mockGateway) CreateShop(ctx context.Context, p ledger.ShopPayload) error {
	if err := m.record("create-shop:" + p.Name); err != nil {
		return err
	}
	m.mu.Lock()
	m.shops = append(m.shops, catalog.Shop{ID: "new", Name: p.Name, Location: p.Location})
	m.mu.Unlock()
	return nil
}

func (m *mockGateway) DeleteShop(ctx context.Context, id shared.ID) error {
	return m.record("delete-shop:" + id.String())
}

func (m *mockGateway) AddProduct(ctx context.Context, p ledger.ProductPayload) error {
	return m.record("add-product:" + p.Name)
}

func (m *mockGateway) DeleteProduct(ctx context.Context, id shared.ID) error {
	return m.record("delete-product:" + id.String())
}

func (m *mockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type countingInvalidator struct{ bumps atomic.Int32 }

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps.Add(1)
	return nil
}

type failingInvalidator struct{}

func (failingInvalidator) Bump(ctx context.Context) error {
	return errors.New("redis: connection refused")
}

func testShops() []catalog.Shop {
	return []catalog.Shop{
		{ID: "1", Name: "Kigali Central", Products: []catalog.Product{
			{ID: "10", Name: "Sugar 1kg", UnitPrice: shared.NewMoneyFromInt(1500), QuantityOnHand: 20},
		}},
		{ID: "2", Name: "Musanze", Products: []catalog.Product{
			{ID: "20", Name: "Rice 5kg", UnitPrice: shared.NewMoneyFromInt(8000), QuantityOnHand: 5},
		}},
	}
}

func newTestService(t *testing.T) (*Service, *mockGateway, *countingInvalidator) {
	gw := &mockGateway{shops: testShops()}
	inv := &countingInvalidator{}
	svc := NewService(gw, inv, zaptest.NewLogger(t))
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	return svc, gw, inv
}

func TestService_EmptyBeforeRefresh(t *testing.T) {
	svc := NewService(&mockGateway{}, nil, nil)
	require.NotNil(t, svc.Snapshot())
	assert.Equal(t, 0, svc.Snapshot().Len())
	assert.True(t, svc.FetchedAt().IsZero())
}

func TestService_Refresh(t *testing.T) {
	svc, gw, _ := newTestService(t)

	c := svc.Snapshot()
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(25), c.TotalQuantity())
	assert.False(t, svc.FetchedAt().IsZero())

	t.Run("failure keeps previous snapshot", func(t *testing.T) {
		gw.mu.Lock()
		gw.fetchErr = shared.NewRemoteError(500, "Internal Server Error", nil)
		gw.mu.Unlock()

		_, err := svc.Refresh(context.Background())
		require.Error(t, err)
		assert.Same(t, c, svc.Snapshot())

		gw.mu.Lock()
		gw.fetchErr = nil
		gw.mu.Unlock()
	})
}

func TestService_RefreshSharesInFlightFetch(t *testing.T) {
	gw := &mockGateway{shops: testShops(), block: make(chan struct{})}
	svc := NewService(gw, nil, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return gw.fetches.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gw.block)
	wg.Wait()

	assert.Less(t, gw.fetches.Load(), int32(5))
	assert.Equal(t, 2, svc.Snapshot().Len())
}

func TestService_RefreshSurvivesJoinedCallerCancel(t *testing.T) {
	gw := &mockGateway{shops: testShops(), block: make(chan struct{})}
	svc := NewService(gw, nil, zaptest.NewLogger(t))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(first)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return gw.fetches.Load() >= 1 }, time.Second, time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gw.block)
	require.NoError(t, <-secondErr)
	assert.Equal(t, 2, svc.Snapshot().Len())
	assert.False(t, svc.FetchedAt().IsZero())
}

func TestService_Overview(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := svc.Overview(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, o.TotalShops)
	assert.Equal(t, "70000", o.TotalInventoryValue.String())
	require.Len(t, o.Trend, 6)
	assert.Equal(t, "Mar", o.Trend[5].Month)
}

func TestService_CreateShop(t *testing.T) {
	svc, gw, inv := newTestService(t)
	ctx := context.Background()

	err := svc.CreateShop(ctx, "   ", "Huye")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Empty(t, gw.Calls())

	require.NoError(t, svc.CreateShop(ctx, "  Huye Market ", " Huye "))
	assert.Equal(t, []string{"create-shop:Huye Market"}, gw.Calls())
	assert.Equal(t, int32(1), inv.bumps.Load())
	assert.Equal(t, 3, svc.Snapshot().Len())
}

func TestService_DeleteShop(t *testing.T) {
	svc, gw, inv := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteShop(ctx, ""), shared.ErrSelectionRequired)
	assert.ErrorIs(t, svc.DeleteShop(ctx, "404"), shared.ErrNotFound)
	assert.Empty(t, gw.Calls())

	require.NoError(t, svc.DeleteShop(ctx, "2"))
	assert.Equal(t, []string{"delete-shop:2"}, gw.Calls())
	assert.Equal(t, int32(1), inv.bumps.Load())
}

func TestService_AddProduct(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	err := svc.AddProduct(ctx, ledger.ProductPayload{ShopID: "9", Name: "Salt", Price: shared.NewMoneyFromInt(300)})
	assert.ErrorIs(t, err, shared.ErrSelectionRequired)

	err = svc.AddProduct(ctx, ledger.ProductPayload{ShopID: "1", Name: "Salt", Price: shared.NewMoneyFromInt(-1)})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = svc.AddProduct(ctx, ledger.ProductPayload{ShopID: "1", Name: "Salt", Quantity: -2})
	assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	assert.Empty(t, gw.Calls())

	require.NoError(t, svc.AddProduct(ctx, ledger.ProductPayload{ShopID: "1", Name: " Salt ", Price: shared.NewMoneyFromInt(300), Quantity: 4}))
	assert.Equal(t, []string{"add-product:Salt"}, gw.Calls())
}

func TestService_DeleteProduct(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteProduct(ctx, "99"), shared.ErrProductNotFound)
	require.NoError(t, svc.DeleteProduct(ctx, "20"))
	assert.Equal(t, []string{"delete-product:20"}, gw.Calls())
}

func TestService_WriteFailureLeavesSnapshot(t *testing.T) {
	svc, gw, inv := newTestService(t)
	before := svc.Snapshot()
	gw.writeErr = shared.NewRemoteError(500, "Shop has products", errors.New("boom"))

	err := svc.DeleteShop(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, "Shop has products", err.Error())
	assert.Same(t, before, svc.Snapshot())
	assert.Equal(t, int32(0), inv.bumps.Load())
}

func TestService_StaleRefreshAfterWriteIsNotAnError(t *testing.T) {
	svc, gw, _ := newTestService(t)
	gw.mu.Lock()
	gw.fetchErr = errors.New("network down")
	gw.mu.Unlock()

	assert.NoError(t, svc.DeleteProduct(context.Background(), "10"))
}

func TestService_InvalidationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gw := &mockGateway{shops: testShops()}
	svc := NewService(gw, failingInvalidator{}, zap.New(core))
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), "20"))
	entries := logs.FilterMessage("Report cache invalidation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redis: connection refused", entries[0].ContextMap()["error"])
	assert.Equal(t, []string{"delete-product:20"}, gw.Calls())
}
