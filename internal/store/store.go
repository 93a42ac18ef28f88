package store

import (
	"context"
	"errors"
	"time"

	"caixa/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// ListItems returns items ordered by name. A non-empty query filters by name substring.
	ListItems(ctx context.Context, query string) ([]domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	GetItemByName(ctx context.Context, name string) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error

	// CreateSale persists the sale and all of its lines atomically.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, period domain.Period) ([]domain.Sale, error)
	// ReplaceSale overwrites payment method and totals and swaps the whole line set atomically.
	ReplaceSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error
	SetSaleReconciled(ctx context.Context, id int64, reconciled bool) error

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error

	PaymentTotals(ctx context.Context, period domain.Period) ([]domain.PaymentAggregate, error)
	CategoryQuantities(ctx context.Context, period domain.Period) ([]domain.CategoryAggregate, error)
	TopItems(ctx context.Context, period domain.Period, limit int) ([]domain.ItemAggregate, error)
	DailyAverages(ctx context.Context, period domain.Period) ([]domain.DayAverage, error)
	CategoryItemCounts(ctx context.Context) ([]domain.CategoryItemCount, error)
	// MonthlyIncome sums sale totals per (year, month) of the sale time in loc.
	MonthlyIncome(ctx context.Context, loc *time.Location) ([]domain.MonthAmount, error)
	MonthlyExpenses(ctx context.Context) ([]domain.MonthAmount, error)

	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
