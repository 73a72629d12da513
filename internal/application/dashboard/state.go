// Package dashboard holds the operator-facing page state. Every change goes
// through Reduce; list and report results carry the selection token they were
// requested under and are dropped when the page has moved on.
package dashboard

import (
	"time"

	"github.com/3btraders/ims/internal/application/report"
	domainreport "github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
)

// Token is a per-page selection generation. It increases on every filter
// change of its page.
type Token uint64

// NoticeLevel distinguishes errors from confirmations.
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeSuccess NoticeLevel = "success"
)

// Notice is the single banner shown to the operator.
type Notice struct {
	ID        uint64      `json:"id"`
	Level     NoticeLevel `json:"level"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// InventoryPage is the shop and product management page.
type InventoryPage struct {
	SelectedShopID shared.ID `json:"selected_shop_id,omitempty"`
}

// SalesPage lists the sales of one shop.
type SalesPage struct {
	ShopID  shared.ID                   `json:"shop_id,omitempty"`
	Period  shared.Period               `json:"period"`
	Token   Token                       `json:"token"`
	Loading bool                        `json:"loading"`
	View    *domainreport.SalesListView `json:"view,omitempty"`
	Err     string                      `json:"error,omitempty"`
}

// StockPage lists stock entries with optional filters.
type StockPage struct {
	ShopID  shared.ID                   `json:"shop_id,omitempty"`
	Period  shared.Period               `json:"period"`
	Search  string                      `json:"search,omitempty"`
	Token   Token                       `json:"token"`
	Loading bool                        `json:"loading"`
	View    *domainreport.StockListView `json:"view,omitempty"`
	Err     string                      `json:"error,omitempty"`
}

// ReportsPage holds the last generated document and its export.
type ReportsPage struct {
	ShopID   shared.ID              `json:"shop_id,omitempty"`
	Period   shared.Period          `json:"period"`
	Type     domainreport.Type      `json:"type"`
	Token    Token                  `json:"token"`
	Loading  bool                   `json:"loading"`
	Document *domainreport.Document `json:"document,omitempty"`
	Export   *report.ExportResult   `json:"export,omitempty"`
	Err      string                 `json:"error,omitempty"`
}

// State is the whole dashboard.
type State struct {
	Inventory InventoryPage `json:"inventory"`
	Sales     SalesPage     `json:"sales"`
	Stock     StockPage     `json:"stock"`
	Reports   ReportsPage   `json:"reports"`
	Notice    *Notice       `json:"notice,omitempty"`
}

// Action is a state transition.
type Action interface {
	isAction()
}

type (
	// ShopSelected selects a shop on the inventory page.
	ShopSelected struct{ ShopID shared.ID }
	// ShopDeleted clears the inventory selection when it pointed at the shop.
	ShopDeleted struct{ ShopID shared.ID }

	SalesFilterChanged struct {
		ShopID shared.ID
		Period shared.Period
	}
	SalesLoaded struct {
		Token Token
		View  domainreport.SalesListView
		Err   error
	}

	StockFilterChanged struct {
		ShopID shared.ID
		Period shared.Period
		Search string
	}
	StockLoaded struct {
		Token Token
		View  domainreport.StockListView
		Err   error
	}

	ReportRequested struct {
		ShopID shared.ID
		Period shared.Period
		Type   domainreport.Type
	}
	ReportGenerated struct {
		Token    Token
		Document domainreport.Document
		Err      error
	}
	ReportExported struct {
		Token  Token
		Result *report.ExportResult
		Err    error
	}

	NoticeRaised  struct{ Notice Notice }
	NoticeExpired struct{ ID uint64 }
)

func (ShopSelected) isAction()       {}
func (ShopDeleted) isAction()        {}
func (SalesFilterChanged) isAction() {}
func (SalesLoaded) isAction()        {}
func (StockFilterChanged) isAction() {}
func (StockLoaded) isAction()        {}
func (ReportRequested) isAction()    {}
func (ReportGenerated) isAction()    {}
func (ReportExported) isAction()     {}
func (NoticeRaised) isAction()       {}
func (NoticeExpired) isAction()      {}

// Reduce returns the state after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ShopSelected:
		s.Inventory.SelectedShopID = a.ShopID
	case ShopDeleted:
		if s.Inventory.SelectedShopID == a.ShopID {
			s.Inventory.SelectedShopID = ""
		}

	case SalesFilterChanged:
		s.Sales = SalesPage{
			ShopID:  a.ShopID,
			Period:  a.Period,
			Token:   s.Sales.Token + 1,
			Loading: true,
			View:    s.Sales.View,
		}
	case SalesLoaded:
		if a.Token != s.Sales.Token {
			return s
		}
		s.Sales.Loading = false
		if a.Err != nil {
			s.Sales.Err = a.Err.Error()
			break
		}
		view := a.View
		s.Sales.View = &view
		s.Sales.Err = ""

	case StockFilterChanged:
		s.Stock = StockPage{
			ShopID:  a.ShopID,
			Period:  a.Period,
			Search:  a.Search,
			Token:   s.Stock.Token + 1,
			Loading: true,
			View:    s.Stock.View,
		}
	case StockLoaded:
		if a.Token != s.Stock.Token {
			return s
		}
		s.Stock.Loading = false
		if a.Err != nil {
			s.Stock.Err = a.Err.Error()
			break
		}
		view := a.View
		s.Stock.View = &view
		s.Stock.Err = ""

	case ReportRequested:
		s.Reports = ReportsPage{
			ShopID:  a.ShopID,
			Period:  a.Period,
			Type:    a.Type,
			Token:   s.Reports.Token + 1,
			Loading: true,
		}
	case ReportGenerated:
		if a.Token != s.Reports.Token {
			return s
		}
		s.Reports.Loading = false
		if a.Err != nil {
			s.Reports.Err = a.Err.Error()
			break
		}
		doc := a.Document
		s.Reports.Document = &doc
		s.Reports.Err = ""
	case ReportExported:
		if a.Token != s.Reports.Token {
			return s
		}
		if a.Err != nil {
			s.Reports.Err = a.Err.Error()
			break
		}
		s.Reports.Export = a.Result

	case NoticeRaised:
		n := a.Notice
		s.Notice = &n
	case NoticeExpired:
		if s.Notice != nil && s.Notice.ID == a.ID {
			s.Notice = nil
		}
	}
	return s
}
