package domain

import "time"

type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"nome" db:"nome"`
}

type Item struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"nome" db:"nome"`
	PurchasePrice float64   `json:"preco_compra" db:"preco_compra"`
	SalePrice     float64   `json:"preco_venda" db:"preco_venda"`
	MarginPercent float64   `json:"margem_lucro" db:"margem_lucro"`
	CategoryID    *int64    `json:"categoria_id,omitempty" db:"categoria_id"`
	CategoryName  string    `json:"categoria,omitempty" db:"categoria_nome"`
	CreatedAt     time.Time `json:"data_cadastro" db:"data_cadastro"`
}

// MarginPercent returns the markup of sale over purchase price in percent.
// A zero purchase price yields 0 instead of an infinite markup.
func MarginPercent(purchasePrice float64, salePrice float64) float64 {
	if purchasePrice == 0 {
		return 0
	}
	return (salePrice - purchasePrice) / purchasePrice * 100
}

// UnitProfit is the profit of a line given the item prices at the time it is computed.
func UnitProfit(item Item, quantity float64, discount float64, surcharge float64) float64 {
	return (item.SalePrice-item.PurchasePrice)*quantity - discount + surcharge
}

type Sale struct {
	ID            int64      `json:"id" db:"id"`
	PaymentMethod string     `json:"forma_pagamento" db:"forma_pagamento"`
	SoldAt        time.Time  `json:"data_venda" db:"data_venda"`
	TotalValue    float64    `json:"valor_total" db:"valor_total"`
	TotalProfit   float64    `json:"lucro_total" db:"lucro_total"`
	Reconciled    bool       `json:"conferido" db:"conferido"`
	Lines         []SaleLine `json:"itens" db:"-"`
}

type SaleLine struct {
	ID        int64   `json:"id" db:"id"`
	SaleID    int64   `json:"venda_id" db:"venda_id"`
	ItemID    int64   `json:"item_id" db:"item_id"`
	ItemName  string  `json:"item_nome" db:"item_nome"`
	Quantity  float64 `json:"quantidade" db:"quantidade"`
	Value     float64 `json:"valor_venda" db:"valor_venda"`
	Discount  float64 `json:"desconto" db:"desconto"`
	Surcharge float64 `json:"acrescimo" db:"acrescimo"`
	Profit    float64 `json:"lucro" db:"lucro"`
}

type Expense struct {
	ID          int64     `json:"id" db:"id"`
	Description string    `json:"descricao" db:"descricao"`
	Value       float64   `json:"valor" db:"valor"`
	Date        time.Time `json:"data_despesa" db:"data_despesa"`
	Category    string    `json:"categoria" db:"categoria"`
}

type UserAccount struct {
	Username  string    `db:"usuario"`
	Password  string    `db:"senha"`
	CreatedAt time.Time `db:"data_cadastro"`
}

type Actor struct {
	Username string
}

type LoginRequest struct {
	Username string
	Password string
}

// Period is a half-open [From, To) interval in UTC. A zero bound is unbounded.
// Location is the zone used to bucket timestamps by day, hour or month.
// A non-zero Month keeps only timestamps falling in that local calendar
// month, in any year.
type Period struct {
	From     time.Time
	To       time.Time
	Month    time.Month
	Location *time.Location
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	if p.Month != 0 && t.In(p.Zone()).Month() != p.Month {
		return false
	}
	return true
}

func (p Period) Zone() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

type ItemSaveRequest struct {
	ItemID        int64
	Name          string
	PurchasePrice float64
	SalePrice     float64
	CategoryID    int64
}

type CartAddRequest struct {
	ItemName    string
	Quantity    *float64
	TargetValue *float64
	Discount    float64
	Surcharge   float64
}

type FinalizeRequest struct {
	PaymentMethod string
	Date          string
}

type SaleLineInput struct {
	ItemName  string
	Quantity  float64
	Value     float64
	Discount  float64
	Surcharge float64
}

type SaleEditRequest struct {
	SaleID        int64
	PaymentMethod string
	Lines         []SaleLineInput
}

type ExpenseCreateRequest struct {
	Description string
	Value       float64
	Date        string
	Category    string
}

// SalesDay is the ledger of one local calendar day.
type SalesDay struct {
	Date  time.Time
	Sales []Sale
	Total float64
}
