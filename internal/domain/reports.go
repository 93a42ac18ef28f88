package domain

import (
	"bytes"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money keeps full precision in memory and is rounded to two decimals only
// when it is serialized.
type Money float64

func (m Money) Decimal() decimal.Decimal {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

type PaymentAggregate struct {
	Method string `json:"forma_pagamento" db:"forma_pagamento"`
	Count  int64  `json:"-" db:"quantidade"`
	Total  Money  `json:"total" db:"total"`
}

type CategoryAggregate struct {
	Category string  `json:"categoria" db:"categoria"`
	Quantity float64 `json:"quantidade" db:"quantidade"`
}

type ItemAggregate struct {
	Item     string  `json:"item" db:"item"`
	Quantity float64 `json:"quantidade" db:"quantidade"`
	Total    Money   `json:"-" db:"total"`
}

type DayAverage struct {
	Day     int   `json:"dia" db:"dia"`
	Average Money `json:"media_vendas" db:"media_vendas"`
}

type CategoryItemCount struct {
	Category string `db:"categoria"`
	Count    int64  `db:"quantidade"`
}

type MonthAmount struct {
	Year  int     `db:"ano"`
	Month int     `db:"mes"`
	Total float64 `db:"total"`
}

type HourCount struct {
	Hour  int
	Count int
}

// HourCounts serializes as a JSON object keyed by hour, in ascending hour order.
type HourCounts []HourCount

func (h HourCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(entry.Hour))
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(entry.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type DaySummary struct {
	TotalValue  Money            `json:"total_vendido"`
	TotalProfit Money            `json:"total_lucro"`
	SalesCount  int              `json:"quantidade_vendas"`
	AverageTick Money            `json:"ticket_medio"`
	ByPayment   map[string]Money `json:"pagamentos_por_forma"`
	ByHour      HourCounts       `json:"vendas_por_hora"`
	Date        string           `json:"data"`
}

type FinancialYear struct {
	Year     int      `json:"-"`
	Months   []string `json:"meses"`
	Income   []Money  `json:"receitas"`
	Expenses []Money  `json:"despesas"`
}

type FinancialOverview struct {
	Years       []int
	InitialYear int
	Chart       FinancialYear
	Expenses    []Expense
}

type ReportsOverview struct {
	Monthly    []MonthAmount
	Payments   []PaymentAggregate
	Categories []CategoryItemCount
	TopItems   []ItemAggregate
	Averages   []DayAverage
}
