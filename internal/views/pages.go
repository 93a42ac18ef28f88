package views

import (
	"caixa/backend/internal/domain"
)

// Base is embedded by every authenticated page.
type Base struct {
	Title     string
	Active    string
	Username  string
	CSRFToken string
	Flashes   []domain.Flash
}

type LoginPage struct {
	Base
	Failed   bool
	Attempts bool
}

type DashboardPage struct {
	Base
	Summary domain.DaySummary
	// Date preselected in the day picker, YYYY-MM-DD.
	PickerDate string
}

type SalesPage struct {
	Base
	Day     domain.SalesDay
	Items   []domain.Item
	Cart    domain.Cart
	Methods []string
}

type ItemsPage struct {
	Base
	Items      []domain.Item
	Categories []domain.Category
	Query      string
}

func (p ItemsPage) Searching() bool {
	return p.Query != ""
}

func (p ItemsPage) NoResults() bool {
	return p.Searching() && len(p.Items) == 0
}

type ReportsPage struct {
	Base
	Overview domain.ReportsOverview
}

type FinancePage struct {
	Base
	Overview domain.FinancialOverview
}

// ItemOption is what the sales page autocompletes against.
type ItemOption struct {
	Name      string  `json:"nome"`
	SalePrice float64 `json:"preco_venda"`
}

func (p SalesPage) ItemOptions() []ItemOption {
	options := make([]ItemOption, 0, len(p.Items))
	for _, item := range p.Items {
		options = append(options, ItemOption{Name: item.Name, SalePrice: item.SalePrice})
	}
	return options
}
