package ledger

import (
	"time"

	"github.com/3btraders/ims/internal/domain/shared"
)

// ShortIDLength is how many characters of a stock entry id reports show
const ShortIDLength = 8

// SaleRecord is an immutable sale as returned by the backend.
type SaleRecord struct {
	ID              shared.ID    `json:"id"`
	ProductID       shared.ID    `json:"product_id"`
	ShopID          shared.ID    `json:"shop_id"`
	Buyer           string       `json:"buyer"`
	Description     string       `json:"description,omitempty"`
	Quantity        int64        `json:"quantity"`
	UnitPriceAtSale shared.Money `json:"unit_price_at_sale"`
	TotalPrice      shared.Money `json:"total_price"`
	CreatedAt       time.Time    `json:"created_at"`
	// ProductName is the embedded product name, empty when the backend omits it.
	ProductName string `json:"product_name,omitempty"`
}

// DisplayProductName returns the product name or a "Product ID: <id>" fallback.
func (s SaleRecord) DisplayProductName() string {
	return DisplayName(s.ProductName, s.ProductID)
}

// DisplayUnitPrice returns the recorded unit price, or the total divided by
// quantity rounded to whole francs when the backend did not embed a price.
func (s SaleRecord) DisplayUnitPrice() shared.Money {
	if !s.UnitPriceAtSale.IsZero() || s.Quantity == 0 {
		return s.UnitPriceAtSale
	}
	return s.TotalPrice.DivideByInt(s.Quantity).Round(0)
}

// CheckTotal verifies totalPrice == unitPriceAtSale * quantity.
// Records without a unit price cannot be checked and pass.
func (s SaleRecord) CheckTotal() error {
	if s.UnitPriceAtSale.IsZero() {
		return nil
	}
	want := s.UnitPriceAtSale.MultiplyByInt(s.Quantity)
	if !want.Equals(s.TotalPrice) {
		return shared.ErrTotalMismatch.WithMessagef(
			"Sale total %s does not match %s x %d = %s",
			s.TotalPrice, s.UnitPriceAtSale, s.Quantity, want)
	}
	return nil
}

// StockEntry is an immutable positive inventory adjustment.
type StockEntry struct {
	ID          shared.ID `json:"id"`
	ProductID   shared.ID `json:"product_id"`
	ShopID      shared.ID `json:"shop_id"`
	Supplier    string    `json:"supplier"`
	Description string    `json:"description,omitempty"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProductName string    `json:"product_name,omitempty"`
	ShopName    string    `json:"shop_name,omitempty"`
}

// ShortID returns the first eight characters of the entry id
func (e StockEntry) ShortID() string {
	id := string(e.ID)
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}

// DisplayProductName returns the product name or a "Product ID: <id>" fallback.
func (e StockEntry) DisplayProductName() string {
	return DisplayName(e.ProductName, e.ProductID)
}

// DisplayShopName returns the shop name or a "Shop ID: <id>" fallback.
func (e StockEntry) DisplayShopName() string {
	if e.ShopName != "" {
		return e.ShopName
	}
	return "Shop ID: " + string(e.ShopID)
}

// DisplayName picks a product's name, falling back to its id.
func DisplayName(name string, productID shared.ID) string {
	if name != "" {
		return name
	}
	return "Product ID: " + string(productID)
}

// SumRevenue adds up totalPrice over the sales
func SumRevenue(sales []SaleRecord) shared.Money {
	total := shared.ZeroMoney()
	for _, s := range sales {
		total = total.Add(s.TotalPrice)
	}
	return total
}

// SumQuantity adds up quantity over the stock entries
func SumQuantity(entries []StockEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
