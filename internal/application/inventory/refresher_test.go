package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/infrastructure/config"
)

func TestRefresher_PollsUntilObserved(t *testing.T) {
	source := &scriptedSource{
		current: catalogWith(5),
		next:    []*catalog.Catalog{catalogWith(5), catalogWith(5), catalogWith(4)},
	}
	cfg := fastRefresh()
	cfg.MaxAttempts = 5
	r := NewRefresher(source, cfg, nil, zap.NewNop())

	out := r.Run(context.Background(), Expectation{Operation: OpSale, ProductID: "10", Delta: -1, Before: 5})
	assert.True(t, out.Observed)
	assert.Equal(t, 3, out.Attempts)
	assert.NoError(t, out.Err)
	assert.Equal(t, 3, source.Refreshes())
}

func TestRefresher_GivesUpAfterMaxAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	source := &scriptedSource{current: catalogWith(5), next: []*catalog.Catalog{catalogWith(5)}}
	r := NewRefresher(source, fastRefresh(), nil, zap.New(core))

	out := r.Run(context.Background(), Expectation{Operation: OpStockEntry, ProductID: "10", Delta: 2, Before: 5})
	assert.False(t, out.Observed)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 1, logs.FilterMessage("Write not yet visible after refresh").Len())
}

func TestRefresher_FetchErrors(t *testing.T) {
	source := &scriptedSource{current: catalogWith(5), err: errors.New("backend down")}
	r := NewRefresher(source, fastRefresh(), nil, zap.NewNop())

	out := r.Run(context.Background(), Expectation{Operation: OpDeleteSale, BeforeTotal: 8})
	assert.False(t, out.Observed)
	assert.Equal(t, 3, out.Attempts)
	assert.EqualError(t, out.Err, "backend down")
}

func TestRefresher_DeleteObservesAnyChange(t *testing.T) {
	source := &scriptedSource{current: catalogWith(5), next: []*catalog.Catalog{catalogWith(7)}}
	r := NewRefresher(source, fastRefresh(), nil, zap.NewNop())

	out := r.Run(context.Background(), Expectation{Operation: OpDeleteStockEntry, BeforeTotal: 8})
	assert.True(t, out.Observed)
	assert.Equal(t, 1, out.Attempts)
}

func TestRefresher_DelayPerOperation(t *testing.T) {
	r := NewRefresher(nil, config.RefreshConfig{
		InitialDelay: 1 * time.Millisecond,
		SaleDelay:    2 * time.Millisecond,
		StockDelay:   3 * time.Millisecond,
	}, nil, nil)
	assert.Equal(t, 2*time.Millisecond, r.delay(OpSale))
	assert.Equal(t, 3*time.Millisecond, r.delay(OpStockEntry))
	assert.Equal(t, time.Millisecond, r.delay(OpDeleteSale))
	assert.Equal(t, time.Millisecond, r.delay(OpDeleteStockEntry))
	assert.Equal(t, 1, r.cfg.MaxAttempts)
}

func TestRefresher_CancelledDuringDelay(t *testing.T) {
	source := &scriptedSource{current: catalogWith(5)}
	r := NewRefresher(source, config.RefreshConfig{SaleDelay: time.Hour, MaxAttempts: 3}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := r.Run(ctx, Expectation{Operation: OpSale, ProductID: "10", Delta: -1, Before: 5})
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, 0, source.Refreshes())
}

func TestRefresher_ScheduleOutlivesCaller(t *testing.T) {
	source := &scriptedSource{current: catalogWith(5), next: []*catalog.Catalog{catalogWith(4)}}
	r := NewRefresher(source, fastRefresh(), nil, zap.NewNop())

	done := make(chan Outcome, 1)
	r.OnSettled(func(ctx context.Context, o Outcome) {
		assert.NoError(t, ctx.Err())
		done <- o
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.Schedule(ctx, Expectation{Operation: OpSale, ProductID: "10", Delta: -1, Before: 5})
	cancel()
	r.Wait()

	select {
	case o := <-done:
		assert.True(t, o.Observed)
	default:
		t.Fatal("refresh did not settle")
	}
}

func TestRefresher_HooksRunInRegistrationOrder(t *testing.T) {
	source := &scriptedSource{current: catalogWith(5), next: []*catalog.Catalog{catalogWith(4)}}
	r := NewRefresher(source, fastRefresh(), nil, zap.NewNop())

	var order []string
	r.OnSettled(func(context.Context, Outcome) {
		order = append(order, "first")
		// Registering from inside a hook must not deadlock or join this run.
		r.OnSettled(func(context.Context, Outcome) { order = append(order, "late") })
	})
	r.OnSettled(func(context.Context, Outcome) { order = append(order, "second") })

	r.Run(context.Background(), Expectation{Operation: OpSale, ProductID: "10", Delta: -1, Before: 5})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestOperation_ListKind(t *testing.T) {
	assert.Equal(t, "sales", OpSale.ListKind())
	assert.Equal(t, "sales", OpDeleteSale.ListKind())
	assert.Equal(t, "stock", OpStockEntry.ListKind())
	assert.Equal(t, "stock", OpDeleteStockEntry.ListKind())
}
