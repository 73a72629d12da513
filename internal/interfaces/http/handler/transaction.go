package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/3btraders/ims/internal/application/dashboard"
	"github.com/3btraders/ims/internal/application/inventory"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/interfaces/http/dto"
)

// TransactionHandler serves the sales and stock pages
type TransactionHandler struct {
	BaseHandler
	engine *inventory.TransactionEngine
	store  *dashboard.Store
}

// NewTransactionHandler creates a TransactionHandler
func NewTransactionHandler(engine *inventory.TransactionEngine, store *dashboard.Store) *TransactionHandler {
	return &TransactionHandler{engine: engine, store: store}
}

// ListSales loads the sales page. Without shop_id the inventory selection,
// then the first shop, is used.
func (h *TransactionHandler) ListSales(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err)
		return
	}
	page, err := h.store.LoadSales(c.Request.Context(), q.ShopID, q.Period())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// RecordSale submits a sale. A sale the backend echoed with a wrong total is
// reported with the receipt.
func (h *TransactionHandler) RecordSale(c *gin.Context) {
	var req dto.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	receipt, err := h.engine.RecordSale(ctx, inventory.SaleRequest{
		ProductID:   req.ProductID,
		Buyer:       req.Buyer,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		h.store.Fail(ctx, err)
		var de *shared.DomainError
		if receipt != nil && errors.As(err, &de) {
			h.Partial(c, receipt, de)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.store.Succeed("Sale recorded successfully")
	h.Created(c, receipt)
}

// DeleteSale removes a sale. shop_id names the shop whose list to reload.
func (h *TransactionHandler) DeleteSale(c *gin.Context) {
	id := shared.ID(c.Param("id"))
	ctx := c.Request.Context()
	if err := h.engine.DeleteSale(ctx, id, shared.ID(c.Query("shop_id"))); err != nil {
		h.store.Fail(ctx, err)
		h.HandleError(c, err)
		return
	}
	h.store.Succeed("Sale deleted successfully")
	h.Success(c, gin.H{"id": id})
}

// ListStock loads the stock page. Every filter is optional.
func (h *TransactionHandler) ListStock(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err)
		return
	}
	page, err := h.store.LoadStock(c.Request.Context(), q.ShopID, q.Period(), q.Search)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// RecordStock submits a stock entry
func (h *TransactionHandler) RecordStock(c *gin.Context) {
	var req dto.RecordStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	receipt, err := h.engine.RecordStockEntry(ctx, inventory.StockRequest{
		ProductID:   req.ProductID,
		Supplier:    req.Supplier,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		h.store.Fail(ctx, err)
		h.HandleError(c, err)
		return
	}
	h.store.Succeed("Stock entry added successfully")
	h.Created(c, receipt)
}

// DeleteStock removes a stock entry
func (h *TransactionHandler) DeleteStock(c *gin.Context) {
	id := shared.ID(c.Param("id"))
	ctx := c.Request.Context()
	if err := h.engine.DeleteStockEntry(ctx, id, shared.ID(c.Query("shop_id"))); err != nil {
		h.store.Fail(ctx, err)
		h.HandleError(c, err)
		return
	}
	h.store.Succeed("Stock entry deleted successfully")
	h.Success(c, gin.H{"id": id})
}
