package report

import (
	"sort"
	"time"

	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
)

// TopSuppliersLimit is how many suppliers a stock summary ranks
const TopSuppliersLimit = 5

// ProductSales is the per-product grouping used to pick the best seller
type ProductSales struct {
	Name     string       `json:"name"`
	Quantity int64        `json:"quantity"`
	Revenue  shared.Money `json:"revenue"`
}

// SupplierQuantity is one row of the top-supplier ranking
type SupplierQuantity struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// DailyRevenue is the revenue booked on one calendar day
type DailyRevenue struct {
	Date         string       `json:"date"`
	Revenue      shared.Money `json:"revenue"`
	Transactions int          `json:"transactions"`
}

// SalesSummary summarises the sales of a period
type SalesSummary struct {
	TotalRevenue       shared.Money   `json:"total_revenue"`
	TotalTransactions  int            `json:"total_transactions"`
	TotalQuantity      int64          `json:"total_quantity"`
	AverageSale        shared.Money   `json:"average_sale"`
	BestSellingProduct *ProductSales  `json:"best_selling_product,omitempty"`
	Products           []ProductSales `json:"products"`
	Daily              []DailyRevenue `json:"daily"`
	// AverageDailyRevenue is revenue divided by the number of days with sales.
	AverageDailyRevenue shared.Money `json:"average_daily_revenue"`
}

// StockSummary summarises the stock entries of a period
type StockSummary struct {
	TotalEntries       int                `json:"total_entries"`
	TotalQuantityAdded int64              `json:"total_quantity_added"`
	TopSuppliers       []SupplierQuantity `json:"top_suppliers"`
}

// SupplierShare returns the supplier's percentage of all quantity added,
// rounded to a whole number.
func (s StockSummary) SupplierShare(sq SupplierQuantity) int64 {
	if s.TotalQuantityAdded == 0 {
		return 0
	}
	return shared.NewMoneyFromInt(sq.Quantity * 100).DivideByInt(s.TotalQuantityAdded).Round(0).Amount().IntPart()
}

// ReportAggregate is the derived, non-persisted summary of a period.
type ReportAggregate struct {
	Period       shared.Period `json:"period"`
	SalesSummary SalesSummary  `json:"sales_summary"`
	StockSummary StockSummary  `json:"stock_summary"`
}

// Aggregate computes the report summary from period-scoped records. It is a
// pure function: the same input always yields the same output. Date filtering
// happens upstream; every record passed in is counted.
func Aggregate(sales []ledger.SaleRecord, entries []ledger.StockEntry) ReportAggregate {
	return ReportAggregate{
		SalesSummary: summariseSales(sales),
		StockSummary: summariseStock(entries),
	}
}

func summariseSales(sales []ledger.SaleRecord) SalesSummary {
	summary := SalesSummary{
		TotalRevenue: shared.ZeroMoney(),
		Products:     []ProductSales{},
		Daily:        []DailyRevenue{},
	}

	groups := make(map[string]int)
	days := make(map[string]int)
	for _, s := range sales {
		summary.TotalRevenue = summary.TotalRevenue.Add(s.TotalPrice)
		summary.TotalQuantity += s.Quantity

		name := s.DisplayProductName()
		i, ok := groups[name]
		if !ok {
			i = len(summary.Products)
			groups[name] = i
			summary.Products = append(summary.Products, ProductSales{Name: name, Revenue: shared.ZeroMoney()})
		}
		summary.Products[i].Quantity += s.Quantity
		summary.Products[i].Revenue = summary.Products[i].Revenue.Add(s.TotalPrice)

		day := dayKey(s.CreatedAt)
		d, ok := days[day]
		if !ok {
			d = len(summary.Daily)
			days[day] = d
			summary.Daily = append(summary.Daily, DailyRevenue{Date: day, Revenue: shared.ZeroMoney()})
		}
		summary.Daily[d].Revenue = summary.Daily[d].Revenue.Add(s.TotalPrice)
		summary.Daily[d].Transactions++
	}

	summary.TotalTransactions = len(sales)
	summary.AverageSale = summary.TotalRevenue.DivideByInt(int64(len(sales)))
	summary.AverageDailyRevenue = summary.TotalRevenue.DivideByInt(int64(len(summary.Daily)))

	// strict comparison keeps the first-seen group on ties
	for i := range summary.Products {
		if summary.BestSellingProduct == nil || summary.Products[i].Quantity > summary.BestSellingProduct.Quantity {
			best := summary.Products[i]
			summary.BestSellingProduct = &best
		}
	}

	sort.SliceStable(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Date < summary.Daily[j].Date
	})
	return summary
}

func summariseStock(entries []ledger.StockEntry) StockSummary {
	summary := StockSummary{
		TotalEntries: len(entries),
		TopSuppliers: []SupplierQuantity{},
	}

	index := make(map[string]int)
	var suppliers []SupplierQuantity
	for _, e := range entries {
		summary.TotalQuantityAdded += e.Quantity
		i, ok := index[e.Supplier]
		if !ok {
			i = len(suppliers)
			index[e.Supplier] = i
			suppliers = append(suppliers, SupplierQuantity{Name: e.Supplier})
		}
		suppliers[i].Quantity += e.Quantity
	}

	sort.SliceStable(suppliers, func(i, j int) bool {
		return suppliers[i].Quantity > suppliers[j].Quantity
	})
	if len(suppliers) > TopSuppliersLimit {
		suppliers = suppliers[:TopSuppliersLimit]
	}
	summary.TopSuppliers = append(summary.TopSuppliers, suppliers...)
	return summary
}

// dayKey buckets a timestamp by the calendar date in its own location.
func dayKey(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(shared.DateLayout)
}
