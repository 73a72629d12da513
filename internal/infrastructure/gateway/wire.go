package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
)

// flexInt decodes a JSON number, numeric string or null into an int64.
// Values with a fractional part are rejected.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	// Integral floats such as "4.0" or "1e3" are accepted; fractions are not.
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
		return fmt.Errorf("invalid integer %q", s)
	}
	*f = flexInt(int64(n))
	return nil
}

// flexTime decodes an RFC 3339 timestamp, a bare date, or null.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = flexTime{}
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = flexTime{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", shared.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

type wireInventory struct {
	Quantity *flexInt `json:"quantity"`
}

type wireProduct struct {
	ProductID   shared.ID      `json:"product_id"`
	ID          shared.ID      `json:"id"`
	ProductName string         `json:"product_name"`
	Name        string         `json:"name"`
	Price       shared.Money   `json:"price"`
	ShopID      shared.ID      `json:"shop_id"`
	Inventory   *wireInventory `json:"inventory"`
	Quantity    *flexInt       `json:"quantity"`
}

type wireShop struct {
	ShopID   shared.ID     `json:"shop_id"`
	ID       shared.ID     `json:"id"`
	ShopName string        `json:"shop_name"`
	Name     string        `json:"name"`
	Location string        `json:"location"`
	Products []wireProduct `json:"products"`
}

type dashboardResponse struct {
	Message   string `json:"message"`
	Dashboard struct {
		UserID   shared.ID  `json:"user_id"`
		Email    string     `json:"email"`
		Fullname string     `json:"Fullname"`
		Shops    []wireShop `json:"shops"`
	} `json:"dashboard"`
}

type wireSaleProduct struct {
	Name        string       `json:"name"`
	ProductName string       `json:"product_name"`
	Price       shared.Money `json:"price"`
}

type wireSale struct {
	SaleID           shared.ID        `json:"sale_id"`
	ID               shared.ID        `json:"id"`
	ProductID        shared.ID        `json:"productId"`
	ProductIDSnake   shared.ID        `json:"product_id"`
	ShopID           shared.ID        `json:"shopId"`
	ShopIDSnake      shared.ID        `json:"shop_id"`
	Buyer            string           `json:"buyer"`
	Description      string           `json:"description"`
	Quantity         flexInt          `json:"quantity"`
	TotalPrice       shared.Money     `json:"totalPrice"`
	TotalPriceSnake  *shared.Money    `json:"total_price"`
	Price            *shared.Money    `json:"price"`
	CreatedAt        flexTime         `json:"createdAt"`
	CreatedAtSnake   flexTime         `json:"created_at"`
	Product          *wireSaleProduct `json:"product"`
	ProductNameField string           `json:"productName"`
}

type wireStockProduct struct {
	ProductName string       `json:"product_name"`
	Name        string       `json:"name"`
	Price       shared.Money `json:"price"`
}

type wireStockShop struct {
	ShopName string `json:"shop_name"`
}

type wireStockEntry struct {
	EntryID        shared.ID         `json:"entry_id"`
	ID             shared.ID         `json:"id"`
	ProductID      shared.ID         `json:"productId"`
	ProductIDSnake shared.ID         `json:"product_id"`
	ShopID         shared.ID         `json:"shopId"`
	ShopIDSnake    shared.ID         `json:"shop_id"`
	Supplier       string            `json:"supplier"`
	Description    string            `json:"description"`
	Quantity       flexInt           `json:"quantity"`
	CreatedAt      flexTime          `json:"createdAt"`
	UpdatedAt      flexTime          `json:"updatedAt"`
	Product        *wireStockProduct `json:"product"`
	Shop           *wireStockShop    `json:"shop"`
}

type salesResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Data    []wireSale `json:"data"`
}

type saleCreatedResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *wireSale `json:"data"`
	Sale    *wireSale `json:"sale"`
}

type stockResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	Data          []wireStockEntry `json:"data"`
	Count         *int             `json:"count"`
	TotalQuantity *flexInt         `json:"totalQuantity"`
	TotalEntries  *int             `json:"totalEntries"`
}

type stockCreatedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *wireStockEntry `json:"data"`
}

func firstID(ids ...shared.ID) shared.ID {
	for _, id := range ids {
		if !id.IsZero() {
			return id
		}
	}
	return ""
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(values ...flexTime) time.Time {
	for _, v := range values {
		if t := time.Time(v); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// Normalizer converts backend JSON into canonical shapes and collects a
// warning for every value it had to repair.
type Normalizer struct {
	Warnings []string
}

func (n *Normalizer) warnf(format string, args ...any) {
	n.Warnings = append(n.Warnings, fmt.Sprintf(format, args...))
}

// quantity picks inventory.quantity, then a top-level quantity, defaulting to
// zero; negatives are clamped.
func (n *Normalizer) quantity(p wireProduct, id shared.ID) int64 {
	var q int64
	switch {
	case p.Inventory != nil && p.Inventory.Quantity != nil:
		q = int64(*p.Inventory.Quantity)
	case p.Quantity != nil:
		q = int64(*p.Quantity)
	}
	if q < 0 {
		n.warnf("product %s reported negative quantity %d, treating as 0", id, q)
		q = 0
	}
	return q
}

// Shops converts the dashboard shop list, dropping products without an id.
func (n *Normalizer) Shops(raw []wireShop) []catalog.Shop {
	shops := make([]catalog.Shop, 0, len(raw))
	for _, ws := range raw {
		shopID := firstID(ws.ShopID, ws.ID)
		shop := catalog.Shop{
			ID:       string(shopID),
			Name:     firstString(ws.ShopName, ws.Name),
			Location: ws.Location,
			Products: make([]catalog.Product, 0, len(ws.Products)),
		}
		for _, wp := range ws.Products {
			id := firstID(wp.ProductID, wp.ID)
			if id.IsZero() {
				n.warnf("shop %s lists a product without an id, skipping", shopID)
				continue
			}
			price := wp.Price
			if price.IsNegative() {
				n.warnf("product %s reported negative price %s, treating as 0", id, price)
				price = shared.ZeroMoney()
			}
			shop.Products = append(shop.Products, catalog.Product{
				ID:             string(id),
				Name:           firstString(wp.ProductName, wp.Name),
				UnitPrice:      price,
				ShopID:         string(firstID(wp.ShopID, shopID)),
				QuantityOnHand: n.quantity(wp, id),
			})
		}
		shops = append(shops, shop)
	}
	return shops
}

// Sale converts one backend sale.
func (n *Normalizer) Sale(ws wireSale) ledger.SaleRecord {
	s := ledger.SaleRecord{
		ID:          firstID(ws.SaleID, ws.ID),
		ProductID:   firstID(ws.ProductID, ws.ProductIDSnake),
		ShopID:      firstID(ws.ShopID, ws.ShopIDSnake),
		Buyer:       ws.Buyer,
		Description: ws.Description,
		Quantity:    int64(ws.Quantity),
		TotalPrice:  ws.TotalPrice,
		CreatedAt:   firstTime(ws.CreatedAt, ws.CreatedAtSnake),
		ProductName: ws.ProductNameField,
	}
	if ws.TotalPriceSnake != nil && s.TotalPrice.IsZero() {
		s.TotalPrice = *ws.TotalPriceSnake
	}
	switch {
	case ws.Price != nil:
		s.UnitPriceAtSale = *ws.Price
	case ws.Product != nil:
		s.UnitPriceAtSale = ws.Product.Price
	}
	if ws.Product != nil {
		s.ProductName = firstString(ws.Product.Name, ws.Product.ProductName, s.ProductName)
	}
	if s.Quantity < 0 {
		n.warnf("sale %s reported negative quantity %d, treating as 0", s.ID, s.Quantity)
		s.Quantity = 0
	}
	return s
}

// Sales converts a sale list.
func (n *Normalizer) Sales(raw []wireSale) []ledger.SaleRecord {
	out := make([]ledger.SaleRecord, 0, len(raw))
	for _, ws := range raw {
		out = append(out, n.Sale(ws))
	}
	return out
}

// StockEntry converts one backend stock entry.
func (n *Normalizer) StockEntry(we wireStockEntry) ledger.StockEntry {
	e := ledger.StockEntry{
		ID:          firstID(we.EntryID, we.ID),
		ProductID:   firstID(we.ProductID, we.ProductIDSnake),
		ShopID:      firstID(we.ShopID, we.ShopIDSnake),
		Supplier:    we.Supplier,
		Description: we.Description,
		Quantity:    int64(we.Quantity),
		CreatedAt:   time.Time(we.CreatedAt),
		UpdatedAt:   time.Time(we.UpdatedAt),
	}
	if we.Product != nil {
		e.ProductName = firstString(we.Product.ProductName, we.Product.Name)
	}
	if we.Shop != nil {
		e.ShopName = we.Shop.ShopName
	}
	if e.Quantity < 0 {
		n.warnf("stock entry %s reported negative quantity %d, treating as 0", e.ID, e.Quantity)
		e.Quantity = 0
	}
	return e
}

// StockEntries converts a stock entry list.
func (n *Normalizer) StockEntries(raw []wireStockEntry) []ledger.StockEntry {
	out := make([]ledger.StockEntry, 0, len(raw))
	for _, we := range raw {
		out = append(out, n.StockEntry(we))
	}
	return out
}
