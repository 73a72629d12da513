package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/3btraders/ims/internal/domain/ledger"
	"github.com/3btraders/ims/internal/domain/shared"
)

// Type selects the layout of an exported report
type Type string

const (
	TypeSummary   Type = "summary"
	TypeDetailed  Type = "detailed"
	TypeFinancial Type = "financial"
)

// ParseType maps user input to a report type, defaulting to summary.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeSummary:
		return TypeSummary, nil
	case TypeDetailed:
		return TypeDetailed, nil
	case TypeFinancial:
		return TypeFinancial, nil
	default:
		return "", shared.ErrInvalidInput.WithMessagef("Unknown report type %q", s)
	}
}

// Document is the immutable report model consumed by export surfaces.
type Document struct {
	ID           string              `json:"id,omitempty"`
	Type         Type                `json:"type"`
	ShopID       shared.ID           `json:"shop_id,omitempty"`
	ShopName     string              `json:"shop_name,omitempty"`
	TimePeriod   string              `json:"time_period"`
	Aggregate    ReportAggregate     `json:"aggregate"`
	Sales        []ledger.SaleRecord `json:"sales"`
	StockEntries []ledger.StockEntry `json:"stock_entries"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// AssembleReport composes the aggregate with the raw records and the period
// label. It performs no computation of its own beyond calling Aggregate.
func AssembleReport(period shared.Period, typ Type, sales []ledger.SaleRecord, entries []ledger.StockEntry) Document {
	agg := Aggregate(sales, entries)
	agg.Period = period

	if sales == nil {
		sales = []ledger.SaleRecord{}
	}
	if entries == nil {
		entries = []ledger.StockEntry{}
	}
	return Document{
		Type:         typ,
		TimePeriod:   period.String(),
		Aggregate:    agg,
		Sales:        sales,
		StockEntries: entries,
	}
}

// Stamp returns a copy of the document carrying identity and shop metadata.
func (d Document) Stamp(id string, shopID shared.ID, shopName string, at time.Time) Document {
	d.ID = id
	d.ShopID = shopID
	d.ShopName = shopName
	d.GeneratedAt = at
	return d
}

// FileName returns IMS_Report_<shop>_<start>_to_<end>.pdf with whitespace in
// the shop name replaced by underscores.
func (d Document) FileName() string {
	shop := strings.Join(strings.Fields(d.ShopName), "_")
	if shop == "" {
		shop = "Shop"
	}
	return fmt.Sprintf("IMS_Report_%s_%s_to_%s.pdf", shop, d.Aggregate.Period.Start, d.Aggregate.Period.End)
}
