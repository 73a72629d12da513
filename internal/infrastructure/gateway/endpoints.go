package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

// SalesQuery filters GET /sales/allSales.
type SalesQuery struct {
	ShopID shared.ID
	Period shared.Period
}

// StockQuery filters GET /stock/allEntries. Every field is optional.
type StockQuery struct {
	ShopID shared.ID
	Period shared.Period
	Search string
}

func periodValues(q url.Values, p shared.Period) {
	if p.Start != "" {
		q.Set("startDate", p.Start)
	}
	if p.End != "" {
		q.Set("endDate", p.End)
	}
}

func (n *Normalizer) flush(ctx context.Context, l *zap.Logger) {
	for _, w := range n.Warnings {
		logger.WithLogger(ctx, l).Warn("Normalised backend data", zap.String("detail", w))
	}
	n.Warnings = nil
}

// FetchCatalog loads every shop with its products and builds a snapshot.
func (c *Client) FetchCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var out dashboardResponse
	if err := c.getJSON(ctx, "/dashboard/dashboard/", "/dashboard/dashboard/", nil, &out); err != nil {
		return nil, err
	}
	var n Normalizer
	shops := n.Shops(out.Dashboard.Shops)
	n.flush(ctx, c.logger)
	return catalog.BuildCatalog(shops), nil
}

// CreateShop validates and submits a new shop.
func (c *Client) CreateShop(ctx context.Context, p ledger.ShopPayload) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Location = strings.TrimSpace(p.Location)
	if err := p.Validate(); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, "/shop/new-shop", "/shop/new-shop", p, nil)
}

// DeleteShop removes a shop and, server-side, its products.
func (c *Client) DeleteShop(ctx context.Context, id shared.ID) error {
	if id.IsZero() {
		return shared.ErrSelectionRequired
	}
	return c.send(ctx, http.MethodDelete, "/shop/"+url.PathEscape(id.String()), "/shop/:id", nil, nil)
}

// AddProduct validates and submits a new product.
func (c *Client) AddProduct(ctx context.Context, p ledger.ProductPayload) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, "/product/addProduct", "/product/addProduct", p, nil)
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id shared.ID) error {
	if id.IsZero() {
		return shared.ErrProductNotFound
	}
	return c.send(ctx, http.MethodDelete, "/product/"+url.PathEscape(id.String()), "/product/:id", nil, nil)
}

// ListSales returns the sales of one shop, optionally within a period.
func (c *Client) ListSales(ctx context.Context, q SalesQuery) ([]ledger.SaleRecord, error) {
	if q.ShopID.IsZero() {
		return nil, shared.ErrSelectionRequired
	}
	if err := q.Period.Validate(); err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("shopId", q.ShopID.String())
	periodValues(values, q.Period)

	var out salesResponse
	if err := c.getJSON(ctx, "/sales/allSales", "/sales/allSales", values, &out); err != nil {
		return nil, err
	}
	var n Normalizer
	sales := n.Sales(out.Data)
	n.flush(ctx, c.logger)
	return sales, nil
}

// CreateSale submits a sale. The backend may echo the stored sale; when it
// does, it is returned normalised, otherwise the result is nil.
func (c *Client) CreateSale(ctx context.Context, p ledger.SalePayload) (*ledger.SaleRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var out saleCreatedResponse
	if err := c.send(ctx, http.MethodPost, "/sales/newSale", "/sales/newSale", p, &out); err != nil {
		logger.WithLogger(ctx, c.logger).Warn("Sale submission failed",
			zap.String("product_id", p.ProductID.String()), zap.Error(err))
		return nil, err
	}
	raw := out.Data
	if raw == nil {
		raw = out.Sale
	}
	if raw == nil {
		return nil, nil
	}
	var n Normalizer
	sale := n.Sale(*raw)
	n.flush(ctx, c.logger)
	return &sale, nil
}

// DeleteSale removes a sale; the backend restores the product quantity.
func (c *Client) DeleteSale(ctx context.Context, id shared.ID) error {
	if id.IsZero() {
		return shared.ErrNotFound.WithMessage("Sale not found")
	}
	return c.send(ctx, http.MethodDelete, "/sales/"+url.PathEscape(id.String()), "/sales/:id", nil, nil)
}

// ListStockEntries returns stock entries matching the query.
func (c *Client) ListStockEntries(ctx context.Context, q StockQuery) ([]ledger.StockEntry, error) {
	if err := q.Period.Validate(); err != nil {
		return nil, err
	}
	values := url.Values{}
	if !q.ShopID.IsZero() {
		values.Set("shopId", q.ShopID.String())
	}
	periodValues(values, q.Period)
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}

	var out stockResponse
	if err := c.getJSON(ctx, "/stock/allEntries", "/stock/allEntries", values, &out); err != nil {
		return nil, err
	}
	var n Normalizer
	entries := n.StockEntries(out.Data)
	n.flush(ctx, c.logger)
	return entries, nil
}

// CreateStockEntry submits a stock entry and returns the stored entry when the
// backend echoes it.
func (c *Client) CreateStockEntry(ctx context.Context, p ledger.StockPayload) (*ledger.StockEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var out stockCreatedResponse
	if err := c.send(ctx, http.MethodPost, "/stock/newStock", "/stock/newStock", p, &out); err != nil {
		logger.WithLogger(ctx, c.logger).Warn("Stock entry submission failed",
			zap.String("product_id", p.ProductID.String()), zap.Error(err))
		return nil, err
	}
	if out.Data == nil {
		return nil, nil
	}
	var n Normalizer
	entry := n.StockEntry(*out.Data)
	n.flush(ctx, c.logger)
	return &entry, nil
}

// DeleteStockEntry removes a stock entry; the backend lowers the quantity.
func (c *Client) DeleteStockEntry(ctx context.Context, id shared.ID) error {
	if id.IsZero() {
		return shared.ErrNotFound.WithMessage("Stock entry not found")
	}
	return c.send(ctx, http.MethodDelete, "/stock/"+url.PathEscape(id.String()), "/stock/:id", nil, nil)
}
