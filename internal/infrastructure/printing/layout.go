package printing

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
)

const displayDateLayout = "02 Jan 2006"

// Layout renders a report document into the printable HTML pages: a cover
// with the executive summary, the sales details and the stock entry details.
type Layout struct {
	tmpl     *template.Template
	printer  *message.Printer
	currency string
}

// NewLayout parses the report template. currency is appended to every amount.
func NewLayout(currency string) (*Layout, error) {
	if currency == "" {
		currency = shared.Currency
	}
	l := &Layout{
		printer:  message.NewPrinter(language.English),
		currency: currency,
	}
	title := cases.Title(language.English)

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"money": l.money,
		"count": l.count,
		"date":  formatDate,
		"dash":  dash,
		"title": func(t report.Type) string { return title.String(string(t)) },
		"share": func(s report.StockSummary, sq report.SupplierQuantity) int64 { return s.SupplierShare(sq) },
	}).Parse(reportTemplate)
	if err != nil {
		return nil, NewRenderError(ErrCodeLayoutFailed, "failed to parse report template", err)
	}
	l.tmpl = tmpl
	return l, nil
}

type layoutData struct {
	Doc          report.Document
	Sales        report.SalesSummary
	Stock        report.StockSummary
	Start        string
	End          string
	ShowProducts bool
	ShowDaily    bool
}

// Render produces the complete HTML document for doc.
func (l *Layout) Render(doc report.Document) (string, error) {
	data := layoutData{
		Doc:          doc,
		Sales:        doc.Aggregate.SalesSummary,
		Stock:        doc.Aggregate.StockSummary,
		Start:        doc.Aggregate.Period.Start,
		End:          doc.Aggregate.Period.End,
		ShowProducts: doc.Type == report.TypeDetailed,
		ShowDaily:    doc.Type == report.TypeDetailed || doc.Type == report.TypeFinancial,
	}
	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeLayoutFailed, "failed to render report layout", err)
	}
	return buf.String(), nil
}

// Footer returns the per-page footer Chrome prints below the content.
func (l *Layout) Footer() string {
	return `<div style="font-size:8px;width:100%;text-align:center;color:#888;">` +
		`Report generated by 3B Traders IMS &bull; Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
}

// money formats an amount with thousands grouping and the currency suffix.
func (l *Layout) money(m shared.Money) string {
	r := m.Round(2)
	if r.Amount().IsInteger() {
		return l.printer.Sprintf("%d", r.Amount().IntPart()) + " " + l.currency
	}
	return l.printer.Sprint(number.Decimal(r.Float64(), number.MaxFractionDigits(2))) + " " + l.currency
}

func (l *Layout) count(n int64) string {
	return l.printer.Sprintf("%d", n)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(displayDateLayout)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>IMS Report {{.Doc.ShopName}} {{.Doc.TimePeriod}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; color: #222; }
  h1 { font-size: 20px; margin: 0 0 12px; }
  h2 { font-size: 16px; margin: 18px 0 8px; }
  h3 { font-size: 12px; margin: 12px 0 4px; }
  .meta p { margin: 2px 0; font-size: 12px; }
  ul { margin: 4px 0 8px 16px; padding: 0; }
  table { width: 100%; border-collapse: collapse; font-size: 8px; }
  th, td { border: 1px solid #ccc; padding: 4px; text-align: left; }
  th.sales { background: #2980b9; color: #fff; }
  th.stock { background: #27ae60; color: #fff; }
  .page { page-break-before: always; }
  .empty { font-size: 12px; }
</style>
</head>
<body>
<section>
  <h1>Inventory Management System Report</h1>
  <div class="meta">
    <p>Shop: {{.Doc.ShopName}}</p>
    <p>Period: {{.Start}} to {{.End}}</p>
    <p>Report type: {{title .Doc.Type}}</p>
    <p>Generated: {{date .Doc.GeneratedAt}}</p>
  </div>

  <h2>Executive Summary</h2>
  <h3>Sales Summary:</h3>
  <ul>
    <li>Total Revenue: {{money .Sales.TotalRevenue}}</li>
    <li>Total Transactions: {{.Sales.TotalTransactions}}</li>
    <li>Average Sale: {{money (.Sales.AverageSale.Round 0)}}</li>
    {{- with .Sales.BestSellingProduct}}
    <li>Best Selling Product: {{.Name}}
      <br>Quantity Sold: {{count .Quantity}}
      <br>Revenue Generated: {{money .Revenue}}</li>
    {{- end}}
  </ul>

  <h3>Stock Summary:</h3>
  <ul>
    <li>Total Stock Entries: {{.Stock.TotalEntries}}</li>
    <li>Total Quantity Added: {{count .Stock.TotalQuantityAdded}} units</li>
  </ul>
  {{- if .Stock.TopSuppliers}}
  <h3>Top Suppliers:</h3>
  <ol>
    {{- range .Stock.TopSuppliers}}
    <li>{{.Name}}: {{count .Quantity}} units ({{share $.Stock .}}%)</li>
    {{- end}}
  </ol>
  {{- end}}

  {{- if .ShowDaily}}
  <h3>Financial Overview:</h3>
  <ul>
    <li>Average Daily Revenue: {{money (.Sales.AverageDailyRevenue.Round 0)}}</li>
    <li>Days with Sales: {{len .Sales.Daily}}</li>
  </ul>
  {{- if .Sales.Daily}}
  <table>
    <thead><tr><th class="sales">Date</th><th class="sales">Transactions</th><th class="sales">Revenue</th></tr></thead>
    <tbody>
    {{- range .Sales.Daily}}
      <tr><td>{{.Date}}</td><td>{{.Transactions}}</td><td>{{money .Revenue}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- end}}
  {{- end}}

  {{- if and .ShowProducts .Sales.Products}}
  <h3>Sales by Product:</h3>
  <table>
    <thead><tr><th class="sales">Product</th><th class="sales">Quantity</th><th class="sales">Revenue</th></tr></thead>
    <tbody>
    {{- range .Sales.Products}}
      <tr><td>{{.Name}}</td><td>{{count .Quantity}}</td><td>{{money .Revenue}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- end}}
</section>

<section class="page">
  <h2>Sales Details</h2>
  {{- if .Doc.Sales}}
  <table>
    <thead><tr>
      <th class="sales">ID</th><th class="sales">Product</th><th class="sales">Buyer</th>
      <th class="sales">Quantity</th><th class="sales">Total</th><th class="sales">Date</th>
    </tr></thead>
    <tbody>
    {{- range .Doc.Sales}}
      <tr><td>{{.ID}}</td><td>{{.DisplayProductName}}</td><td>{{.Buyer}}</td><td>{{.Quantity}}</td><td>{{money .TotalPrice}}</td><td>{{date .CreatedAt}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- else}}
  <p class="empty">No sales data available for this period</p>
  {{- end}}
</section>

<section class="page">
  <h2>Stock Entries Details</h2>
  {{- if .Doc.StockEntries}}
  <table>
    <thead><tr>
      <th class="stock">Entry ID</th><th class="stock">Product</th><th class="stock">Supplier</th>
      <th class="stock">Quantity</th><th class="stock">Date</th><th class="stock">Description</th>
    </tr></thead>
    <tbody>
    {{- range .Doc.StockEntries}}
      <tr><td>{{.ShortID}}</td><td>{{.DisplayProductName}}</td><td>{{.Supplier}}</td><td>{{.Quantity}}</td><td>{{date .CreatedAt}}</td><td>{{dash .Description}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- else}}
  <p class="empty">No stock entries available for this period</p>
  {{- end}}
</section>
</body>
</html>
`
