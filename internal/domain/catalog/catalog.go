package catalog

import (
	"github.com/3btraders/ims/internal/domain/shared"
)

// Product is a sellable item held by a shop.
// QuantityOnHand is the single source of truth for available stock.
type Product struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	UnitPrice      shared.Money `json:"unit_price"`
	ShopID         string       `json:"shop_id"`
	QuantityOnHand int64        `json:"quantity_on_hand"`
}

// LineValue returns unitPrice * quantityOnHand
func (p Product) LineValue() shared.Money {
	return p.UnitPrice.MultiplyByInt(p.QuantityOnHand)
}

// HasStock reports whether quantity units can be taken from the product
func (p Product) HasStock(quantity int64) bool {
	return quantity <= p.QuantityOnHand
}

// Shop owns its products by composition.
type Shop struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location,omitempty"`
	Products []Product `json:"products"`
}

// ProductCount returns the number of products the shop carries
func (s Shop) ProductCount() int {
	return len(s.Products)
}

// CatalogProduct is a product enriched with its owning shop's name.
type CatalogProduct struct {
	Product
	ShopName string `json:"shop_name"`
}

// Catalog is an immutable snapshot of all shops and their products.
// A new Catalog is built on every refetch; nothing in it is mutated afterwards.
type Catalog struct {
	shops        []Shop
	shopsByID    map[string]int
	productsByID map[string]CatalogProduct
	productOrder []string
	ownerByID    map[string]int

	totalProducts       int
	totalQuantity       int64
	totalInventoryValue shared.Money
}

// BuildCatalog flattens the shop list into lookup indexes and computes the
// aggregate scalars in a single fold. When a product id appears under more
// than one shop, the first shop in list order owns it.
func BuildCatalog(shops []Shop) *Catalog {
	c := &Catalog{
		shops:               make([]Shop, len(shops)),
		shopsByID:           make(map[string]int, len(shops)),
		productsByID:        make(map[string]CatalogProduct),
		ownerByID:           make(map[string]int),
		totalInventoryValue: shared.ZeroMoney(),
	}

	for i, s := range shops {
		products := make([]Product, len(s.Products))
		copy(products, s.Products)
		s.Products = products
		c.shops[i] = s

		if _, dup := c.shopsByID[s.ID]; !dup {
			c.shopsByID[s.ID] = i
		}

		for _, p := range products {
			c.totalProducts++
			c.totalQuantity += p.QuantityOnHand
			c.totalInventoryValue = c.totalInventoryValue.Add(p.LineValue())

			if _, seen := c.ownerByID[p.ID]; seen {
				continue
			}
			c.ownerByID[p.ID] = i
			if p.ShopID == "" {
				p.ShopID = s.ID
			}
			c.productsByID[p.ID] = CatalogProduct{Product: p, ShopName: s.Name}
			c.productOrder = append(c.productOrder, p.ID)
		}
	}

	return c
}

// Empty returns a catalog with no shops
func Empty() *Catalog {
	return BuildCatalog(nil)
}

// Shops returns a copy of the shop list in backend order
func (c *Catalog) Shops() []Shop {
	out := make([]Shop, len(c.shops))
	copy(out, c.shops)
	return out
}

// Shop looks a shop up by id
func (c *Catalog) Shop(id string) (Shop, bool) {
	i, ok := c.shopsByID[id]
	if !ok {
		return Shop{}, false
	}
	return c.shops[i], true
}

// FirstShop returns the first shop in backend order, if any
func (c *Catalog) FirstShop() (Shop, bool) {
	if len(c.shops) == 0 {
		return Shop{}, false
	}
	return c.shops[0], true
}

// Product looks a product up by id
func (c *Catalog) Product(id string) (CatalogProduct, bool) {
	p, ok := c.productsByID[id]
	return p, ok
}

// Products returns every distinct product in first-seen order
func (c *Catalog) Products() []CatalogProduct {
	out := make([]CatalogProduct, 0, len(c.productOrder))
	for _, id := range c.productOrder {
		out = append(out, c.productsByID[id])
	}
	return out
}

// FindOwningShop returns the first shop, in backend order, that lists the
// product. The lookup uses the index built with the snapshot.
func (c *Catalog) FindOwningShop(productID string) (Shop, bool) {
	i, ok := c.ownerByID[productID]
	if !ok {
		return Shop{}, false
	}
	return c.shops[i], true
}

// TotalProducts counts product entries across all shops
func (c *Catalog) TotalProducts() int {
	return c.totalProducts
}

// TotalQuantity sums quantityOnHand across all shops
func (c *Catalog) TotalQuantity() int64 {
	return c.totalQuantity
}

// TotalInventoryValue sums unitPrice * quantityOnHand across all shops
func (c *Catalog) TotalInventoryValue() shared.Money {
	return c.totalInventoryValue
}

// Len returns the number of shops
func (c *Catalog) Len() int {
	return len(c.shops)
}
