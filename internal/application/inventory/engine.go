// Package inventory records sales and stock entries against the backend and
// keeps the catalog snapshot in step with them.
package inventory

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/logger"
	"github.com/3btraders/ims/internal/infrastructure/telemetry"
)

// Gateway is the subset of the backend client the engine writes through.
type Gateway interface {
	CreateSale(ctx context.Context, p ledger.SalePayload) (*ledger.SaleRecord, error)
	DeleteSale(ctx context.Context, id shared.ID) error
	CreateStockEntry(ctx context.Context, p ledger.StockPayload) (*ledger.StockEntry, error)
	DeleteStockEntry(ctx context.Context, id shared.ID) error
}

// Invalidator drops cached report data after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// SaleRequest is an operator's sale form.
type SaleRequest struct {
	ProductID   shared.ID `json:"product_id"`
	Buyer       string    `json:"buyer"`
	Quantity    int64     `json:"quantity"`
	Description string    `json:"description,omitempty"`
}

// StockRequest is an operator's stock entry form.
type StockRequest struct {
	ProductID   shared.ID `json:"product_id"`
	Supplier    string    `json:"supplier"`
	Quantity    int64     `json:"quantity"`
	Description string    `json:"description,omitempty"`
}

// SaleReceipt is returned for every acknowledged sale. Sale is nil when the
// backend did not echo the created record.
type SaleReceipt struct {
	Payload ledger.SalePayload `json:"payload"`
	Sale    *ledger.SaleRecord `json:"sale,omitempty"`
}

// StockReceipt is returned for every acknowledged stock entry.
type StockReceipt struct {
	Payload ledger.StockPayload `json:"payload"`
	Entry   *ledger.StockEntry  `json:"entry,omitempty"`
}

// TransactionEngine validates writes against the current catalog snapshot,
// submits them and schedules the refresh that makes them visible. Validation
// failures never reach the backend.
type TransactionEngine struct {
	gw          Gateway
	catalog     CatalogSource
	refresher   *Refresher
	invalidator Invalidator
	metrics     *telemetry.BusinessMetrics
	logger      *zap.Logger
}

// NewTransactionEngine creates an engine. invalidator and metrics may be nil.
func NewTransactionEngine(
	gw Gateway,
	source CatalogSource,
	refresher *Refresher,
	invalidator Invalidator,
	metrics *telemetry.BusinessMetrics,
	log *zap.Logger,
) *TransactionEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionEngine{
		gw:          gw,
		catalog:     source,
		refresher:   refresher,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      log.Named("inventory"),
	}
}

// RecordSale checks the product, its owning shop, the quantity and the stock
// on hand, in that order, then submits the sale with
// totalPrice = unitPrice * quantity. When the backend echoes a sale whose
// total does not add up, the receipt is returned together with a
// TOTAL_MISMATCH error; the write is not undone.
func (e *TransactionEngine) RecordSale(ctx context.Context, req SaleRequest) (*SaleReceipt, error) {
	c := e.catalog.Snapshot()
	product, ok := c.Product(req.ProductID.String())
	if !ok {
		return nil, shared.ErrProductNotFound
	}
	shop, ok := c.FindOwningShop(product.ID)
	if !ok {
		return nil, shared.ErrOwningShopUnresolvable
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}
	if !product.HasStock(req.Quantity) {
		return nil, shared.ErrInsufficientStock.WithMessagef(
			"Insufficient stock available: %d requested, %d on hand", req.Quantity, product.QuantityOnHand)
	}

	payload := ledger.SalePayload{
		ProductID:   req.ProductID,
		ShopID:      shared.ID(shop.ID),
		Buyer:       strings.TrimSpace(req.Buyer),
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		UnitPrice:   product.UnitPrice,
		TotalPrice:  product.UnitPrice.MultiplyByInt(req.Quantity),
		ProductName: product.Name,
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithShopID(ctx, shop.ID)
	log := logger.WithLogger(ctx, e.logger).With(zap.String("product_id", payload.ProductID.String()))

	sale, err := e.gw.CreateSale(ctx, payload)
	if err != nil {
		log.Warn("Sale rejected", zap.Error(err))
		return nil, err
	}
	log.Info("Sale recorded",
		zap.Int64("quantity", payload.Quantity), zap.String("total", payload.TotalPrice.String()))
	e.metrics.RecordSale(ctx, shop.ID, payload.TotalPrice)

	e.afterWrite(ctx, Expectation{
		Operation:   OpSale,
		ProductID:   payload.ProductID,
		ShopID:      payload.ShopID,
		Delta:       -payload.Quantity,
		Before:      product.QuantityOnHand,
		BeforeTotal: c.TotalQuantity(),
	})

	receipt := &SaleReceipt{Payload: payload, Sale: sale}
	if sale != nil {
		if err := sale.CheckTotal(); err != nil {
			log.Error("Backend returned inconsistent sale", zap.String("sale_id", sale.ID.String()), zap.Error(err))
			return receipt, err
		}
	}
	return receipt, nil
}

// RecordStockEntry checks the product, its owning shop and the quantity,
// then submits the entry. There is no upper bound on stock additions.
func (e *TransactionEngine) RecordStockEntry(ctx context.Context, req StockRequest) (*StockReceipt, error) {
	c := e.catalog.Snapshot()
	product, ok := c.Product(req.ProductID.String())
	if !ok {
		return nil, shared.ErrProductNotFound
	}
	shop, ok := c.FindOwningShop(product.ID)
	if !ok {
		return nil, shared.ErrOwningShopUnresolvable
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	payload := ledger.StockPayload{
		ProductID:   req.ProductID,
		ShopID:      shared.ID(shop.ID),
		Supplier:    strings.TrimSpace(req.Supplier),
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithShopID(ctx, shop.ID)
	log := logger.WithLogger(ctx, e.logger).With(zap.String("product_id", payload.ProductID.String()))

	entry, err := e.gw.CreateStockEntry(ctx, payload)
	if err != nil {
		log.Warn("Stock entry rejected", zap.Error(err))
		return nil, err
	}
	log.Info("Stock entry recorded", zap.Int64("quantity", payload.Quantity), zap.String("supplier", payload.Supplier))
	e.metrics.RecordStockEntry(ctx, shop.ID, payload.Quantity)

	e.afterWrite(ctx, Expectation{
		Operation:   OpStockEntry,
		ProductID:   payload.ProductID,
		ShopID:      payload.ShopID,
		Delta:       payload.Quantity,
		Before:      product.QuantityOnHand,
		BeforeTotal: c.TotalQuantity(),
	})
	return &StockReceipt{Payload: payload, Entry: entry}, nil
}

// DeleteSale deletes a sale. Failures are returned as-is and never retried.
// shopID scopes the list refetch; it may be empty.
func (e *TransactionEngine) DeleteSale(ctx context.Context, id, shopID shared.ID) error {
	return e.delete(ctx, OpDeleteSale, id, shopID, e.gw.DeleteSale)
}

// DeleteStockEntry deletes a stock entry. Failures are returned as-is and
// never retried.
func (e *TransactionEngine) DeleteStockEntry(ctx context.Context, id, shopID shared.ID) error {
	return e.delete(ctx, OpDeleteStockEntry, id, shopID, e.gw.DeleteStockEntry)
}

func (e *TransactionEngine) delete(ctx context.Context, op Operation, id, shopID shared.ID,
	fn func(context.Context, shared.ID) error,
) error {
	if id.IsZero() {
		return shared.ErrInvalidInput.WithMessage("id is required")
	}
	if !shopID.IsZero() {
		ctx = logger.WithShopID(ctx, shopID.String())
	}
	before := e.catalog.Snapshot().TotalQuantity()
	log := logger.WithLogger(ctx, e.logger).With(zap.String("operation", string(op)), zap.String("id", id.String()))

	if err := fn(ctx, id); err != nil {
		var de *shared.DomainError
		if !errors.As(err, &de) {
			err = shared.NewRemoteError(0, "", err)
		}
		log.Warn("Delete failed", zap.Error(err))
		return err
	}
	log.Info("Record deleted")
	e.metrics.RecordDeletion(ctx, op.ListKind())

	e.afterWrite(ctx, Expectation{Operation: op, ShopID: shopID, BeforeTotal: before})
	return nil
}

// afterWrite runs only once the backend has acknowledged the write.
func (e *TransactionEngine) afterWrite(ctx context.Context, exp Expectation) {
	if e.invalidator != nil {
		if err := e.invalidator.Bump(ctx); err != nil {
			logger.WithLogger(ctx, e.logger).Warn("Report cache invalidation failed", zap.Error(err))
		}
	}
	if e.refresher != nil {
		e.refresher.Schedule(ctx, exp)
	}
}
