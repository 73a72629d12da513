package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/3btraders/ims/internal/application/catalog"
	"github.com/3btraders/ims/internal/application/dashboard"
	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/interfaces/http/dto"
)

// InventoryHandler serves the inventory page: the catalog, its overview
// charts, and shop and product maintenance.
type InventoryHandler struct {
	BaseHandler
	catalog *catalogapp.Service
	store   *dashboard.Store
	now     func() time.Time
}

// NewInventoryHandler creates an InventoryHandler
func NewInventoryHandler(catalog *catalogapp.Service, store *dashboard.Store) *InventoryHandler {
	return &InventoryHandler{catalog: catalog, store: store, now: time.Now}
}

func (h *InventoryHandler) snapshot() dto.CatalogResponse {
	return dto.NewCatalogResponse(h.catalog.Snapshot(), h.catalog.FetchedAt())
}

// fail raises the notice and writes the error response
func (h *InventoryHandler) fail(c *gin.Context, err error) {
	h.store.Fail(c.Request.Context(), err)
	h.HandleError(c, err)
}

// GetCatalog returns the current snapshot without refetching
func (h *InventoryHandler) GetCatalog(c *gin.Context) {
	h.Success(c, h.snapshot())
}

// RefreshCatalog refetches the catalog from the backend
func (h *InventoryHandler) RefreshCatalog(c *gin.Context) {
	if _, err := h.catalog.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.Success(c, h.snapshot())
}

// GetOverview returns the dashboard totals and charts
func (h *InventoryHandler) GetOverview(c *gin.Context) {
	h.Success(c, h.catalog.Overview(h.now()))
}

// CreateShop adds a shop
func (h *InventoryHandler) CreateShop(c *gin.Context) {
	var req dto.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	if err := h.catalog.CreateShop(c.Request.Context(), req.Name, req.Location); err != nil {
		h.fail(c, err)
		return
	}
	h.store.Succeed("Shop created successfully")
	h.Created(c, h.snapshot())
}

// DeleteShop removes a shop and clears the selection if it pointed there
func (h *InventoryHandler) DeleteShop(c *gin.Context) {
	id := shared.ID(c.Param("id"))
	if err := h.catalog.DeleteShop(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.store.ShopDeleted(id)
	h.store.Succeed("Shop deleted successfully")
	h.Success(c, h.snapshot())
}

// SelectShop sets the inventory page's selected shop
func (h *InventoryHandler) SelectShop(c *gin.Context) {
	var req dto.SelectShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	if err := h.store.SelectShop(req.ShopID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.store.State().Inventory)
}

// AddProduct adds a product to a shop
func (h *InventoryHandler) AddProduct(c *gin.Context) {
	var req dto.AddProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	p := ledger.ProductPayload{
		ShopID:   req.ShopID,
		Name:     req.Name,
		Price:    shared.NewMoney(req.Price),
		Quantity: req.Quantity,
	}
	if err := h.catalog.AddProduct(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	h.store.Succeed("Product added successfully")
	h.Created(c, h.snapshot())
}

// DeleteProduct removes a product
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), shared.ID(c.Param("id"))); err != nil {
		h.fail(c, err)
		return
	}
	h.store.Succeed("Product deleted successfully")
	h.Success(c, h.snapshot())
}
