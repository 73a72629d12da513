package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/3btraders/ims/internal/infrastructure/telemetry"
	"github.com/3btraders/ims/internal/interfaces/http/dto"
)

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	session   SessionGateway
	catalog   CatalogReader
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(name string, session SessionGateway, catalog CatalogReader) *SystemHandler {
	return &SystemHandler{
		name:      name,
		session:   session,
		catalog:   catalog,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	GoVersion     string `json:"go_version"`
	Uptime        string `json:"uptime"`
	Authenticated bool   `json:"authenticated"`
	Shops         int    `json:"shops"`
}

// GetSystemInfo reports version, uptime and whether a backend session is held
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:          h.name,
		Version:       telemetry.Version,
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Authenticated: h.session.Authenticated(),
		Shops:         h.catalog.Snapshot().Len(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is the liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}
