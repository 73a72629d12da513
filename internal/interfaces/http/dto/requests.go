package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/shared"
)

// LoginRequest is the operator's sign-in form
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a backend account
type RegisterRequest struct {
	Fullname string `json:"fullname" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
	Password string `json:"password" binding:"required,min=6"`
}

// VerifyOTPRequest confirms a registration
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// SessionResponse describes the backend session
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Message       string     `json:"message,omitempty"`
}

// CreateShopRequest is the new-shop form
type CreateShopRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// SelectShopRequest selects a shop on the inventory page. An empty id clears the selection.
type SelectShopRequest struct {
	ShopID shared.ID `json:"shop_id"`
}

// AddProductRequest is the new-product form
type AddProductRequest struct {
	ShopID   shared.ID       `json:"shop_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// RecordSaleRequest is the sale form. Quantity and stock are checked by the
// transaction engine, not by binding.
type RecordSaleRequest struct {
	ProductID   shared.ID `json:"product_id"`
	Buyer       string    `json:"buyer"`
	Quantity    int64     `json:"quantity"`
	Description string    `json:"description"`
}

// RecordStockRequest is the stock entry form
type RecordStockRequest struct {
	ProductID   shared.ID `json:"product_id"`
	Supplier    string    `json:"supplier"`
	Quantity    int64     `json:"quantity"`
	Description string    `json:"description"`
}

// ListQuery holds the list page filters
type ListQuery struct {
	ShopID    shared.ID `form:"shop_id"`
	StartDate string    `form:"start_date"`
	EndDate   string    `form:"end_date"`
	Search    string    `form:"search"`
}

// Period returns the date filter
func (q ListQuery) Period() shared.Period {
	return shared.Period{Start: q.StartDate, End: q.EndDate}
}

// GenerateReportRequest selects the report to build
type GenerateReportRequest struct {
	ShopID    shared.ID `json:"shop_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Type      string    `json:"type"`
}

// CatalogResponse is the inventory page payload
type CatalogResponse struct {
	Shops               []catalog.Shop           `json:"shops"`
	Products            []catalog.CatalogProduct `json:"products"`
	TotalProducts       int                      `json:"total_products"`
	TotalQuantity       int64                    `json:"total_quantity"`
	TotalInventoryValue shared.Money             `json:"total_inventory_value"`
	FetchedAt           *time.Time               `json:"fetched_at,omitempty"`
}

// NewCatalogResponse flattens a catalog snapshot
func NewCatalogResponse(c *catalog.Catalog, fetchedAt time.Time) CatalogResponse {
	resp := CatalogResponse{
		Shops:               c.Shops(),
		Products:            c.Products(),
		TotalProducts:       c.TotalProducts(),
		TotalQuantity:       c.TotalQuantity(),
		TotalInventoryValue: c.TotalInventoryValue(),
	}
	if !fetchedAt.IsZero() {
		resp.FetchedAt = &fetchedAt
	}
	return resp
}
