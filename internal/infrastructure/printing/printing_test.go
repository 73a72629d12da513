package printing

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
)

func sampleDocument(typ report.Type) report.Document {
	at := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	sales := []ledger.SaleRecord{
		{ID: "5", ProductID: "10", Buyer: "Alice", Quantity: 3, TotalPrice: shared.NewMoneyFromInt(1234500), CreatedAt: at, ProductName: "Sugar 1kg"},
		{ID: "6", ProductID: "99", Buyer: "Bob <b>", Quantity: 1, TotalPrice: shared.NewMoneyFromInt(500), CreatedAt: at.Add(24 * time.Hour)},
	}
	entries := []ledger.StockEntry{
		{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", ProductID: "10", Supplier: "Inyange", Quantity: 25, CreatedAt: at, ProductName: "Sugar 1kg"},
	}
	period := shared.Period{Start: "2025-01-01", End: "2025-01-31"}
	return report.AssembleReport(period, typ, sales, entries).Stamp("r-1", "1", "Kigali Central", at)
}

func TestLayout_Render(t *testing.T) {
	l, err := NewLayout("")
	require.NoError(t, err)

	html, err := l.Render(sampleDocument(report.TypeSummary))
	require.NoError(t, err)

	for _, want := range []string{
		"Inventory Management System Report",
		"Shop: Kigali Central",
		"Period: 2025-01-01 to 2025-01-31",
		"Report type: Summary",
		"Total Revenue: 1,235,000 RWF",
		"Total Transactions: 2",
		"Average Sale: 617,500 RWF",
		"Best Selling Product: Sugar 1kg",
		"Total Quantity Added: 25 units",
		"Inyange: 25 units (100%)",
		"<td>0f8fad5b</td>",
		"<td>Product ID: 99</td>",
		"<td>-</td>",
		"Bob &lt;b&gt;",
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "Sales by Product:")
	assert.NotContains(t, html, "Financial Overview:")
}

func TestLayout_TypeSelectsSections(t *testing.T) {
	l, err := NewLayout("RWF")
	require.NoError(t, err)

	detailed, err := l.Render(sampleDocument(report.TypeDetailed))
	require.NoError(t, err)
	assert.Contains(t, detailed, "Sales by Product:")
	assert.Contains(t, detailed, "Financial Overview:")

	financial, err := l.Render(sampleDocument(report.TypeFinancial))
	require.NoError(t, err)
	assert.Contains(t, financial, "Financial Overview:")
	assert.Contains(t, financial, "Days with Sales: 2")
	assert.NotContains(t, financial, "Sales by Product:")
}

func TestLayout_EmptyPeriod(t *testing.T) {
	l, err := NewLayout("RWF")
	require.NoError(t, err)

	doc := report.AssembleReport(shared.Period{Start: "2025-01-01", End: "2025-01-31"}, report.TypeSummary, nil, nil)
	html, err := l.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "No sales data available for this period")
	assert.Contains(t, html, "No stock entries available for this period")
	assert.Contains(t, html, "Total Revenue: 0 RWF")
	assert.Contains(t, html, "Generated: -")
}

func TestLayout_Money(t *testing.T) {
	l, err := NewLayout("RWF")
	require.NoError(t, err)
	assert.Equal(t, "1,500 RWF", l.money(shared.NewMoneyFromInt(1500)))
	assert.Equal(t, "0 RWF", l.money(shared.ZeroMoney()))
	assert.Equal(t, "12,345,678 RWF", l.money(shared.NewMoneyFromInt(12345678)))
}

func TestBuildPrintParams(t *testing.T) {
	p := buildPrintParams(&RenderRequest{HTML: "<p>x</p>"})
	assert.InDelta(t, mmToInches(210), p.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), p.paperHeight, 0.01)
	assert.InDelta(t, mmToInches(15), p.marginTop, 0.01)
	assert.False(t, p.landscape)

	p = buildPrintParams(&RenderRequest{HTML: "<p>x</p>", FooterHTML: "<div></div>", Margins: Margins{Bottom: 5}})
	assert.InDelta(t, mmToInches(12), p.marginBottom, 0.01)
}

func TestBuildCompleteHTML(t *testing.T) {
	wrapped := buildCompleteHTML(&RenderRequest{HTML: "<p>hi</p>", Title: "A & B"})
	assert.True(t, strings.HasPrefix(wrapped, "<!DOCTYPE html>"))
	assert.Contains(t, wrapped, "<title>A &amp; B</title>")

	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, buildCompleteHTML(&RenderRequest{HTML: full}))
}

func TestEstimatePageCount(t *testing.T) {
	pdf := []byte("/Type /Pages /Type /Page /Type /Page /Type /Page")
	assert.Equal(t, 3, estimatePageCount(pdf))
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4")))
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(nil)
	defer r.Close()

	_, err := r.Render(context.Background(), &RenderRequest{HTML: "  "})
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidHTML, re.Code)
}

func TestFileSystemStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s, err := NewFileSystemStorage(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	name := "IMS_Report_Kigali_Central_2025-01-01_to_2025-01-31.pdf"
	stored, err := s.Store(ctx, name, []byte("%PDF-1.4 first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), stored.Path)

	_, err = s.Store(ctx, name, []byte("%PDF-1.4 second"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 second", string(data))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0].Name)

	t.Run("rejects unsafe names", func(t *testing.T) {
		for _, bad := range []string{"", "../escape.pdf", "sub/dir.pdf", ".hidden.pdf", "report.txt"} {
			_, err := s.Store(ctx, bad, []byte("x"))
			assert.Error(t, err, bad)
			_, err = s.Open(ctx, bad)
			assert.Error(t, err, bad)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := s.Open(ctx, "missing.pdf")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := s.Store(ctx, "empty.pdf", nil)
		assert.Error(t, err)
	})
}
