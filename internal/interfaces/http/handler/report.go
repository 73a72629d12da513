package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/3btraders/ims/internal/application/dashboard"
	reportapp "github.com/3btraders/ims/internal/application/report"
	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/interfaces/http/dto"
)

// ReportHandler serves the reports page and the exported PDFs
type ReportHandler struct {
	BaseHandler
	reports *reportapp.Service
	store   *dashboard.Store
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(reports *reportapp.Service, store *dashboard.Store) *ReportHandler {
	return &ReportHandler{reports: reports, store: store}
}

// Generate builds a report for a shop and a complete date range
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	page, err := h.store.GenerateReport(c.Request.Context(), reportapp.GenerateRequest{
		ShopID: req.ShopID,
		Period: shared.Period{Start: req.StartDate, End: req.EndDate},
		Type:   report.Type(req.Type),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Export renders the generated report to PDF
func (h *ReportHandler) Export(c *gin.Context) {
	page, err := h.store.ExportReport(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, page)
}

// ListFiles lists exported PDFs, newest first
func (h *ReportHandler) ListFiles(c *gin.Context) {
	files, err := h.reports.StoredReports(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, files)
}

// Download streams an exported PDF
func (h *ReportHandler) Download(c *gin.Context) {
	name := c.Param("name")
	if filepath.Ext(name) != ".pdf" {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Report name must end in .pdf"))
		return
	}
	rc, err := h.reports.OpenReport(c.Request.Context(), name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": "attachment; filename=" + strconv.Quote(name),
	})
}
