package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
)

// RecentEntriesLimit is how many entries the stock page lists as recent
const RecentEntriesLimit = 5

// SalesListView backs the sales page
type SalesListView struct {
	ShopID       shared.ID           `json:"shop_id"`
	Period       shared.Period       `json:"period"`
	Sales        []ledger.SaleRecord `json:"sales"`
	Count        int                 `json:"count"`
	TotalRevenue shared.Money        `json:"total_revenue"`
}

// NewSalesListView computes the page totals for a sales list
func NewSalesListView(shopID shared.ID, period shared.Period, sales []ledger.SaleRecord) SalesListView {
	if sales == nil {
		sales = []ledger.SaleRecord{}
	}
	return SalesListView{
		ShopID:       shopID,
		Period:       period,
		Sales:        sales,
		Count:        len(sales),
		TotalRevenue: ledger.SumRevenue(sales),
	}
}

// StockStats are the headline numbers of the stock page
type StockStats struct {
	TotalEntries    int                 `json:"total_entries"`
	TotalQuantity   int64               `json:"total_quantity"`
	AverageQuantity decimal.Decimal     `json:"average_quantity"`
	RecentEntries   []ledger.StockEntry `json:"recent_entries"`
}

// ComputeStockStats derives the stock page numbers. The average is rounded to
// two decimals and recent entries are the first five as returned.
func ComputeStockStats(entries []ledger.StockEntry) StockStats {
	total := ledger.SumQuantity(entries)
	avg := decimal.Zero
	if len(entries) > 0 {
		avg = decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(entries)))).Round(2)
	}
	n := len(entries)
	if n > RecentEntriesLimit {
		n = RecentEntriesLimit
	}
	recent := make([]ledger.StockEntry, n)
	copy(recent, entries[:n])
	return StockStats{
		TotalEntries:    len(entries),
		TotalQuantity:   total,
		AverageQuantity: avg,
		RecentEntries:   recent,
	}
}

// StockListView backs the stock page
type StockListView struct {
	ShopID  shared.ID           `json:"shop_id,omitempty"`
	Period  shared.Period       `json:"period"`
	Search  string              `json:"search,omitempty"`
	Entries []ledger.StockEntry `json:"entries"`
	Stats   StockStats          `json:"stats"`
}

// NewStockListView computes the stock page numbers for a list
func NewStockListView(shopID shared.ID, period shared.Period, search string, entries []ledger.StockEntry) StockListView {
	if entries == nil {
		entries = []ledger.StockEntry{}
	}
	return StockListView{
		ShopID:  shopID,
		Period:  period,
		Search:  search,
		Entries: entries,
		Stats:   ComputeStockStats(entries),
	}
}

// Palette cycles over shops in the distribution chart
var Palette = []string{"#3b82f6", "#60a5fa", "#93c5fd", "#bfdbfe", "#e0f2fe"}

// ShopSlice is one slice of the products-per-shop chart
type ShopSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// TrendPoint is one month of the inventory value trend
type TrendPoint struct {
	Month string `json:"month"`
	Value int64  `json:"value"`
}

// Overview is the dashboard landing page model
type Overview struct {
	TotalShops          int          `json:"total_shops"`
	TotalProducts       int          `json:"total_products"`
	TotalQuantity       int64        `json:"total_quantity"`
	TotalInventoryValue shared.Money `json:"total_inventory_value"`
	Distribution        []ShopSlice  `json:"distribution"`
	Trend               []TrendPoint `json:"trend"`
}

const trendMonths = 6

// BuildOverview derives the landing page model from a catalog snapshot. The
// trend is a fixed ramp from 60% to 100% of the current value over the six
// months ending at now's month.
func BuildOverview(c *catalog.Catalog, now time.Time) Overview {
	o := Overview{
		TotalShops:          c.Len(),
		TotalProducts:       c.TotalProducts(),
		TotalQuantity:       c.TotalQuantity(),
		TotalInventoryValue: c.TotalInventoryValue(),
		Distribution:        []ShopSlice{},
		Trend:               []TrendPoint{},
	}
	if c.Len() == 0 {
		return o
	}

	for i, s := range c.Shops() {
		o.Distribution = append(o.Distribution, ShopSlice{
			Name:  s.Name,
			Value: s.ProductCount(),
			Color: Palette[i%len(Palette)],
		})
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < trendMonths; i++ {
		month := first.AddDate(0, i-(trendMonths-1), 0)
		pct := int64(60 + i*8)
		value := o.TotalInventoryValue.MultiplyByInt(pct).DivideByInt(100).Round(0)
		o.Trend = append(o.Trend, TrendPoint{
			Month: month.Format("Jan"),
			Value: value.Amount().IntPart(),
		})
	}
	return o
}
