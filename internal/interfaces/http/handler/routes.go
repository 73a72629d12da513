package handler

import (
	"github.com/3btraders/ims/internal/interfaces/http/router"
)

// SystemRoutes creates the route group for system endpoints
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")
	group.GET("/info", h.GetSystemInfo)
	group.GET("/ping", h.Ping)
	return group
}

// SessionRoutes creates the route group for the backend session
func SessionRoutes(h *SessionHandler) *router.DomainGroup {
	group := router.NewDomainGroup("session", "/session")
	group.GET("", h.Get)
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
	group.POST("/register", h.Register)
	group.POST("/verify-otp", h.VerifyOTP)
	return group
}

// InventoryRoutes creates the route group for the inventory page
func InventoryRoutes(h *InventoryHandler) *router.DomainGroup {
	group := router.NewDomainGroup("inventory", "/inventory")
	group.GET("", h.GetCatalog)
	group.POST("/refresh", h.RefreshCatalog)
	group.GET("/overview", h.GetOverview)

	shops := group.Group("shops", "/shops")
	shops.POST("", h.CreateShop)
	shops.POST("/select", h.SelectShop)
	shops.DELETE("/:id", h.DeleteShop)

	products := group.Group("products", "/products")
	products.POST("", h.AddProduct)
	products.DELETE("/:id", h.DeleteProduct)
	return group
}

// SalesRoutes creates the route group for the sales page
func SalesRoutes(h *TransactionHandler) *router.DomainGroup {
	group := router.NewDomainGroup("sales", "/sales")
	group.GET("", h.ListSales)
	group.POST("", h.RecordSale)
	group.DELETE("/:id", h.DeleteSale)
	return group
}

// StockRoutes creates the route group for the stock page
func StockRoutes(h *TransactionHandler) *router.DomainGroup {
	group := router.NewDomainGroup("stock", "/stock")
	group.GET("", h.ListStock)
	group.POST("", h.RecordStock)
	group.DELETE("/:id", h.DeleteStock)
	return group
}

// ReportRoutes creates the route group for the reports page
func ReportRoutes(h *ReportHandler) *router.DomainGroup {
	group := router.NewDomainGroup("report", "/reports")
	group.POST("", h.Generate)
	group.POST("/export", h.Export)
	group.GET("/files", h.ListFiles)
	group.GET("/files/:name", h.Download)
	return group
}

// StateRoutes creates the route group for the dashboard state
func StateRoutes(h *StateHandler) *router.DomainGroup {
	group := router.NewDomainGroup("state", "/state")
	group.GET("", h.Get)
	group.DELETE("/notice/:id", h.DismissNotice)
	return group
}
