package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
	"caixa/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	loc, err := LoadLocation("")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	repo := memory.NewSeeded()
	svc := New(repo, loc)
	svc.now = fixedClock(time.Date(2024, time.January, 20, 15, 30, 0, 0, loc))
	return svc, repo
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func floatPtr(v float64) *float64 {
	return &v
}

// sellAt finalizes a single-line sale at the given local wall-clock time.
func sellAt(t *testing.T, svc *Service, at time.Time, itemName string, qty float64, method string) domain.Sale {
	t.Helper()

	ctx := context.Background()
	svc.now = fixedClock(at)
	cart, err := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: itemName, Quantity: floatPtr(qty)})
	if err != nil {
		t.Fatalf("add %s: %v", itemName, err)
	}
	sale, err := svc.FinalizeCart(ctx, cart, domain.FinalizeRequest{PaymentMethod: method})
	if err != nil {
		t.Fatalf("finalize %s: %v", itemName, err)
	}
	return sale
}

func TestAddToCartResolvesQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Café", Quantity: floatPtr(2), Discount: 1})
	if err != nil {
		t.Fatalf("add with quantity: %v", err)
	}
	if cart[0].Quantity != 2 || cart[0].Value != 9 {
		t.Fatalf("expected qty 2 value 9, got %+v", cart[0])
	}
	if cart[0].Profit != 6 {
		t.Fatalf("expected profit (5-1.5)*2-1 = 6, got %v", cart[0].Profit)
	}

	cart, err = svc.AddToCart(ctx, cart, domain.CartAddRequest{ItemName: "Café", TargetValue: floatPtr(7.5), Surcharge: 0.5})
	if err != nil {
		t.Fatalf("add with target value: %v", err)
	}
	if cart[1].Quantity != 1.5 || cart[1].Value != 8 {
		t.Fatalf("expected qty 1.5 value 8, got %+v", cart[1])
	}

	cart, err = svc.AddToCart(ctx, cart, domain.CartAddRequest{ItemName: "Coxinha"})
	if err != nil {
		t.Fatalf("add with defaults: %v", err)
	}
	if cart[2].Quantity != 1 || cart[2].Value != 7 || cart[2].Profit != 4 {
		t.Fatalf("expected default single unit, got %+v", cart[2])
	}

	if len(cart) != 3 {
		t.Fatalf("expected 3 cart lines, got %d", len(cart))
	}
	if cart.Total() != 9+8+7 {
		t.Fatalf("expected cart total to equal sum of line values, got %v", cart.Total())
	}
}

func TestAddToCartDoesNotMutateInput(t *testing.T) {
	svc, _ := newTestService(t)

	original := domain.Cart{{ItemID: 1, ItemName: "Café", Quantity: 1, Value: 5, Profit: 3.5}}
	next, err := svc.AddToCart(context.Background(), original, domain.CartAddRequest{ItemName: "Coxinha"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(original) != 1 || len(next) != 2 {
		t.Fatalf("expected input cart untouched, got original=%d next=%d", len(original), len(next))
	}
}

func TestAddToCartUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)

	cart := domain.Cart{{ItemID: 1, Value: 5}}
	got, err := svc.AddToCart(context.Background(), cart, domain.CartAddRequest{ItemName: "Inexistente"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected cart unchanged on error, got %d lines", len(got))
	}
}

func TestAddToCartTargetValueWithZeroPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveItem(ctx, domain.ItemSaveRequest{Name: "Brinde", PurchasePrice: 0, SalePrice: 0}); err != nil {
		t.Fatalf("save item: %v", err)
	}

	_, err := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Brinde", TargetValue: floatPtr(10)})
	if !errors.Is(err, ErrZeroUnitPrice) {
		t.Fatalf("expected ErrZeroUnitPrice, got %v", err)
	}
}

func TestFinalizeCoffeeExample(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Café", Quantity: floatPtr(2)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	sale, err := svc.FinalizeCart(ctx, cart, domain.FinalizeRequest{PaymentMethod: "cash", Date: "15/01/2024"})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sale.TotalValue != 10 {
		t.Fatalf("expected valor_total 10, got %v", sale.TotalValue)
	}
	if sale.TotalProfit != (5-1.5)*2 {
		t.Fatalf("expected lucro_total 7, got %v", sale.TotalProfit)
	}
	if len(sale.Lines) != 1 {
		t.Fatalf("expected exactly one sale line, got %d", len(sale.Lines))
	}

	wantUTC := time.Date(2024, time.January, 15, 18, 30, 0, 0, time.UTC)
	if !sale.SoldAt.Equal(wantUTC) || sale.SoldAt.Location() != time.UTC {
		t.Fatalf("expected sale stored at %s UTC, got %s", wantUTC, sale.SoldAt)
	}

	stored, err := repo.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if stored.Lines[0].ItemName != "Café" || stored.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected stored line: %+v", stored.Lines[0])
	}
}

func TestFinalizeDefaultsToNowAndDinheiro(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, _ := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Coxinha"})
	sale, err := svc.FinalizeCart(ctx, cart, domain.FinalizeRequest{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sale.PaymentMethod != DefaultPaymentMethod {
		t.Fatalf("expected default payment method, got %q", sale.PaymentMethod)
	}
	if !sale.SoldAt.Equal(svc.now()) {
		t.Fatalf("expected sale at current time, got %s", sale.SoldAt)
	}
}

func TestFinalizeRejectsEmptyCart(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.FinalizeCart(context.Background(), domain.Cart{}, domain.FinalizeRequest{PaymentMethod: "pix"})
	if !errors.Is(err, ErrEmptyCart) || !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrEmptyCart wrapping ErrInvalidInput, got %v", err)
	}

	sales, _ := repo.ListSales(context.Background(), domain.Period{})
	if len(sales) != 0 {
		t.Fatalf("expected no sale persisted, got %d", len(sales))
	}
}

func TestFinalizeRejectsFutureDate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	cart, _ := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Café"})
	_, err := svc.FinalizeCart(ctx, cart, domain.FinalizeRequest{Date: "21/01/2024"})
	if !errors.Is(err, ErrFutureSale) {
		t.Fatalf("expected ErrFutureSale, got %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("expected cart untouched after failed finalize")
	}

	sales, _ := repo.ListSales(ctx, domain.Period{})
	if len(sales) != 0 {
		t.Fatalf("expected no sale persisted, got %d", len(sales))
	}
}

func TestFinalizeRejectsUnparseableDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, _ := svc.AddToCart(ctx, nil, domain.CartAddRequest{ItemName: "Café"})
	_, err := svc.FinalizeCart(ctx, cart, domain.FinalizeRequest{Date: "2024-01-15"})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSalesForDayUsesLocalDayBoundaries(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	late := sellAt(t, svc, time.Date(2024, time.January, 15, 23, 30, 0, 0, loc), "Café", 1, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 16, 0, 10, 0, 0, loc), "Coxinha", 1, "pix")
	early := sellAt(t, svc, time.Date(2024, time.January, 15, 8, 0, 0, 0, loc), "Brigadeiro", 2, "dinheiro")

	day, err := svc.SalesForDay(context.Background(), "15/01/2024")
	if err != nil {
		t.Fatalf("sales for day: %v", err)
	}
	if len(day.Sales) != 2 {
		t.Fatalf("expected 2 sales on 15/01 local, got %d", len(day.Sales))
	}
	if day.Sales[0].ID != early.ID || day.Sales[1].ID != late.ID {
		t.Fatalf("expected ascending time order, got %d then %d", day.Sales[0].ID, day.Sales[1].ID)
	}
	if day.Total != 5+6 {
		t.Fatalf("expected day total 11, got %v", day.Total)
	}
}

func TestSalesForDayFallsBackToToday(t *testing.T) {
	svc, _ := newTestService(t)

	day, err := svc.SalesForDay(context.Background(), "not-a-date")
	if err != nil {
		t.Fatalf("sales for day: %v", err)
	}
	if day.Date.Format(FormDateLayout) != "20/01/2024" {
		t.Fatalf("expected fallback to today, got %s", day.Date.Format(FormDateLayout))
	}
}

func TestEditSaleReplacesLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sale := sellAt(t, svc, svc.now(), "Café", 2, "dinheiro")

	edited, err := svc.EditSale(ctx, domain.SaleEditRequest{
		SaleID:        sale.ID,
		PaymentMethod: "pix",
		Lines: []domain.SaleLineInput{
			{ItemName: "Coxinha", Quantity: 2, Value: 13, Discount: 1},
			{ItemName: "Brigadeiro", Quantity: 1, Value: 3},
			{ItemName: "Café", Quantity: 1, Value: 5.5, Surcharge: 0.5},
		},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(edited.Lines) != 3 {
		t.Fatalf("expected line count to equal submitted tuples, got %d", len(edited.Lines))
	}
	if edited.PaymentMethod != "pix" {
		t.Fatalf("expected payment method pix, got %s", edited.PaymentMethod)
	}
	if edited.TotalValue != 13+3+5.5 {
		t.Fatalf("expected total 21.5, got %v", edited.TotalValue)
	}
	wantProfit := (7.0-3)*2 - 1 + (3 - 1.2) + (5 - 1.5) + 0.5
	if diff := edited.TotalProfit - wantProfit; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected profit %v, got %v", wantProfit, edited.TotalProfit)
	}
}

func TestEditSaleUsesCurrentItemPrices(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sale := sellAt(t, svc, svc.now(), "Café", 1, "dinheiro")

	cafe, _ := repo.GetItemByName(ctx, "Café")
	if _, err := svc.SaveItem(ctx, domain.ItemSaveRequest{ItemID: cafe.ID, Name: "Café", PurchasePrice: 2, SalePrice: 6, CategoryID: 1}); err != nil {
		t.Fatalf("update price: %v", err)
	}

	edited, err := svc.EditSale(ctx, domain.SaleEditRequest{
		SaleID: sale.ID,
		Lines:  []domain.SaleLineInput{{ItemName: "Café", Quantity: 1, Value: 6}},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.TotalProfit != 4 {
		t.Fatalf("expected profit from current prices (6-2)=4, got %v", edited.TotalProfit)
	}
	if edited.PaymentMethod != "dinheiro" {
		t.Fatalf("expected payment method kept when omitted, got %s", edited.PaymentMethod)
	}
}

func TestEditSaleUnknownItemChangesNothing(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sale := sellAt(t, svc, svc.now(), "Café", 2, "dinheiro")

	_, err := svc.EditSale(ctx, domain.SaleEditRequest{
		SaleID:        sale.ID,
		PaymentMethod: "pix",
		Lines: []domain.SaleLineInput{
			{ItemName: "Coxinha", Quantity: 1, Value: 7},
			{ItemName: "Inexistente", Quantity: 1, Value: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stored, _ := repo.GetSale(ctx, sale.ID)
	if stored.PaymentMethod != "dinheiro" || len(stored.Lines) != 1 || stored.TotalValue != 10 {
		t.Fatalf("expected sale unchanged, got %+v", stored)
	}
}

func TestEditUnknownSale(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.EditSale(context.Background(), domain.SaleEditRequest{SaleID: 999})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelAndReconcileSale(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sale := sellAt(t, svc, svc.now(), "Café", 1, "dinheiro")

	if err := svc.SetReconciled(ctx, sale.ID, true); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	stored, _ := repo.GetSale(ctx, sale.ID)
	if !stored.Reconciled {
		t.Fatalf("expected sale to be reconciled")
	}
	if err := svc.SetReconciled(ctx, 999, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound reconciling unknown sale, got %v", err)
	}

	if err := svc.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.CancelSale(ctx, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound cancelling twice, got %v", err)
	}
}

func TestPaymentsByMonthExample(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 3, 10, 0, 0, 0, loc), "Café", 2, "cash")
	sellAt(t, svc, time.Date(2024, time.January, 9, 11, 0, 0, 0, loc), "Café", 4, "cash")
	sellAt(t, svc, time.Date(2024, time.February, 1, 9, 0, 0, 0, loc), "Café", 1, "cash")
	svc.now = fixedClock(time.Date(2024, time.February, 10, 12, 0, 0, 0, loc))

	payments, err := svc.PaymentsByMonth(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	payload, err := json.Marshal(payments)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `[{"forma_pagamento":"cash","total":30}]` {
		t.Fatalf("unexpected payments payload: %s", payload)
	}
}

func TestPaymentsByMonthWithoutYearSpansEveryYear(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2023, time.January, 5, 10, 0, 0, 0, loc), "Café", 2, "cash")
	sellAt(t, svc, time.Date(2024, time.January, 15, 11, 0, 0, 0, loc), "Café", 4, "cash")
	sellAt(t, svc, time.Date(2024, time.February, 1, 9, 0, 0, 0, loc), "Café", 1, "pix")
	svc.now = fixedClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, loc))

	payments, err := svc.PaymentsByMonth(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	payload, err := json.Marshal(payments)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `[{"forma_pagamento":"cash","total":30}]` {
		t.Fatalf("unexpected payments payload: %s", payload)
	}

	narrowed, err := svc.PaymentsByMonth(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("payments 2024: %v", err)
	}
	if len(narrowed) != 1 || narrowed[0].Total != 20 {
		t.Fatalf("expected year to narrow to 2024 sales only, got %+v", narrowed)
	}

	averages, err := svc.DailyAverages(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("averages: %v", err)
	}
	if len(averages) != 2 || averages[0].Day != 5 || averages[1].Day != 15 {
		t.Fatalf("expected January days from both years, got %+v", averages)
	}
}

func TestMonthFiltersUseLocalBoundaries(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	// 31/01 22:00 local is already February in UTC.
	sellAt(t, svc, time.Date(2024, time.January, 31, 22, 0, 0, 0, loc), "Café", 1, "pix")
	svc.now = fixedClock(time.Date(2024, time.February, 10, 12, 0, 0, 0, loc))

	january, _ := svc.PaymentsByMonth(context.Background(), 2024, 1)
	february, _ := svc.PaymentsByMonth(context.Background(), 2024, 2)
	if len(january) != 1 || len(february) != 0 {
		t.Fatalf("expected sale bucketed in local January, got jan=%v feb=%v", january, february)
	}
}

func TestMonthOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.TopItems(context.Background(), 2024, 13); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for month 13, got %v", err)
	}
}

func TestCategoryQuantitiesMatchLineSums(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 5, 10, 0, 0, 0, loc), "Café", 2, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 6, 10, 0, 0, 0, loc), "Coxinha", 3, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 7, 10, 0, 0, 0, loc), "Refrigerante Lata", 1.5, "pix")

	got, err := svc.CategoryQuantities(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("category quantities: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != "Bebidas" || got[0].Quantity != 3.5 {
		t.Fatalf("expected Bebidas 3.5, got %+v", got[0])
	}
	if got[1].Category != "Salgados" || got[1].Quantity != 3 {
		t.Fatalf("expected Salgados 3, got %+v", got[1])
	}
}

func TestTopItemsOrderAndTieBreak(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 5, 10, 0, 0, 0, loc), "Coxinha", 2, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 5, 11, 0, 0, 0, loc), "Brigadeiro", 2, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 5, 12, 0, 0, 0, loc), "Café", 5, "pix")

	got, err := svc.TopItems(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("top items: %v", err)
	}
	names := []string{got[0].Item, got[1].Item, got[2].Item}
	if strings.Join(names, ",") != "Café,Brigadeiro,Coxinha" {
		t.Fatalf("unexpected top items order: %v", names)
	}
}

func TestDailyAverages(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 5, 10, 0, 0, 0, loc), "Café", 1, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 5, 23, 0, 0, 0, loc), "Café", 3, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 2, 9, 0, 0, 0, loc), "Coxinha", 1, "pix")

	got, err := svc.DailyAverages(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("daily averages: %v", err)
	}
	if len(got) != 2 || got[0].Day != 2 || got[1].Day != 5 {
		t.Fatalf("expected days 2 and 5 ascending, got %+v", got)
	}
	if got[1].Average != 10 {
		t.Fatalf("expected average (5+15)/2 = 10 on day 5, got %v", got[1].Average)
	}
}

func TestDaySummaryWithoutSales(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.DaySummary(context.Background(), "2024-01-10")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.AverageTick != 0 || summary.SalesCount != 0 {
		t.Fatalf("expected zero ticket and count, got %+v", summary)
	}

	payload, _ := json.Marshal(summary)
	body := string(payload)
	for _, want := range []string{`"ticket_medio":0`, `"pagamentos_por_forma":{}`, `"vendas_por_hora":{}`, `"data":"10/01/2024"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestDaySummaryAggregates(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 10, 21, 15, 0, 0, loc), "Café", 1, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 10, 9, 5, 0, 0, loc), "Coxinha", 1, "dinheiro")
	sellAt(t, svc, time.Date(2024, time.January, 10, 9, 45, 0, 0, loc), "Brigadeiro", 1, "pix")

	summary, err := svc.DaySummary(context.Background(), "2024-01-10")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.SalesCount != 3 || summary.TotalValue != 15 {
		t.Fatalf("expected 3 sales totalling 15, got %+v", summary)
	}
	if summary.AverageTick != 5 {
		t.Fatalf("expected ticket 5, got %v", summary.AverageTick)
	}
	if summary.ByPayment["pix"] != 8 || summary.ByPayment["dinheiro"] != 7 {
		t.Fatalf("unexpected payment breakdown: %v", summary.ByPayment)
	}

	payload, _ := json.Marshal(summary.ByHour)
	if string(payload) != `{"9":2,"21":1}` {
		t.Fatalf("expected local hours ascending, got %s", payload)
	}
}

func TestDaySummaryRejectsBadDate(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.DaySummary(context.Background(), "10/01/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestYesterdaySummary(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2024, time.January, 19, 12, 0, 0, 0, loc), "Café", 1, "pix")
	svc.now = fixedClock(time.Date(2024, time.January, 20, 8, 0, 0, 0, loc))

	summary, err := svc.YesterdaySummary(context.Background())
	if err != nil {
		t.Fatalf("yesterday: %v", err)
	}
	if summary.Date != "19/01/2024" || summary.SalesCount != 1 {
		t.Fatalf("expected one sale on 19/01/2024, got %+v", summary)
	}
}

func TestFinancialOverviewWithoutData(t *testing.T) {
	svc, _ := newTestService(t)

	overview, err := svc.FinancialOverview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Years) != 0 || overview.InitialYear != 2024 {
		t.Fatalf("expected current year fallback, got %+v", overview)
	}
	if len(overview.Chart.Months) != 12 || overview.Chart.Months[0] != "Jan" || overview.Chart.Months[11] != "Dec" {
		t.Fatalf("unexpected month labels: %v", overview.Chart.Months)
	}
	for i := 0; i < 12; i++ {
		if overview.Chart.Income[i] != 0 || overview.Chart.Expenses[i] != 0 {
			t.Fatalf("expected all-zero series, got %+v", overview.Chart)
		}
	}
}

func TestFinancialYearMatrix(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	loc := svc.Location()

	sellAt(t, svc, time.Date(2023, time.March, 10, 12, 0, 0, 0, loc), "Café", 2, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 10, 12, 0, 0, 0, loc), "Coxinha", 1, "pix")
	svc.now = fixedClock(time.Date(2024, time.January, 20, 15, 30, 0, 0, loc))

	for _, req := range []domain.ExpenseCreateRequest{
		{Description: "Aluguel", Value: 800, Date: "05/03/2023", Category: "Fixo"},
		{Description: "Luz", Value: 120.5, Date: "28/03/2023", Category: "Fixo"},
		{Description: "Gás", Value: 90, Date: "02/12/2022", Category: "Insumos"},
	} {
		if _, err := svc.CreateExpense(ctx, req); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	year, err := svc.FinancialYear(ctx, 2023)
	if err != nil {
		t.Fatalf("financial year: %v", err)
	}
	if year.Income[2] != 10 || year.Expenses[2] != 920.5 {
		t.Fatalf("expected March income 10 and expenses 920.5, got %v / %v", year.Income[2], year.Expenses[2])
	}
	payload, _ := json.Marshal(year)
	if !strings.Contains(string(payload), `"receitas":[0,0,10,0,0,0,0,0,0,0,0,0]`) {
		t.Fatalf("unexpected financial year payload: %s", payload)
	}

	overview, err := svc.FinancialOverview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Years) != 3 || overview.Years[0] != 2022 || overview.InitialYear != 2022 {
		t.Fatalf("expected years 2022..2024 starting at 2022, got %+v", overview.Years)
	}
	if overview.Chart.Expenses[11] != 90 {
		t.Fatalf("expected December 2022 expense in initial chart, got %v", overview.Chart.Expenses)
	}
	if len(overview.Expenses) != 3 {
		t.Fatalf("expected 3 expenses listed, got %d", len(overview.Expenses))
	}
}

func TestCreateExpenseRejectsBadDate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateExpense(context.Background(), domain.ExpenseCreateRequest{Description: "Luz", Value: 10, Date: "2024-01-01"})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSaveItemComputesMargin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.SaveItem(ctx, domain.ItemSaveRequest{Name: "  Suco  ", PurchasePrice: 4, SalePrice: 6, CategoryID: 1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if item.Name != "Suco" || item.MarginPercent != 50 || item.CategoryName != "Bebidas" {
		t.Fatalf("unexpected item: %+v", item)
	}

	free, err := svc.SaveItem(ctx, domain.ItemSaveRequest{Name: "Amostra", PurchasePrice: 0, SalePrice: 2})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if free.MarginPercent != 0 || free.CategoryID != nil {
		t.Fatalf("expected zero margin and no category, got %+v", free)
	}

	if _, err := svc.SaveItem(ctx, domain.ItemSaveRequest{ItemID: 999, Name: "X"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating unknown item, got %v", err)
	}
}

func TestDeleteReferencedItemAndCategory(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sellAt(t, svc, svc.now(), "Café", 1, "pix")
	cafe, _ := repo.GetItemByName(ctx, "Café")

	if err := svc.DeleteItem(ctx, cafe.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting sold item, got %v", err)
	}
	if err := svc.DeleteCategory(ctx, *cafe.CategoryID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting used category, got %v", err)
	}

	category, err := svc.CreateCategory(ctx, "Lanches")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, "Lanches"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate category, got %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
}

func TestReportsOverview(t *testing.T) {
	svc, _ := newTestService(t)
	loc := svc.Location()

	sellAt(t, svc, time.Date(2023, time.December, 5, 10, 0, 0, 0, loc), "Café", 2, "pix")
	sellAt(t, svc, time.Date(2024, time.January, 5, 10, 0, 0, 0, loc), "Coxinha", 1, "dinheiro")
	sellAt(t, svc, time.Date(2024, time.January, 6, 10, 0, 0, 0, loc), "Café", 1, "pix")

	overview, err := svc.ReportsOverview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Monthly) != 2 || overview.Monthly[0].Year != 2023 || overview.Monthly[1].Total != 12 {
		t.Fatalf("unexpected monthly income: %+v", overview.Monthly)
	}
	if len(overview.Payments) != 2 || overview.Payments[1].Method != "pix" || overview.Payments[1].Count != 2 {
		t.Fatalf("unexpected payments: %+v", overview.Payments)
	}
	if len(overview.TopItems) != 2 || overview.TopItems[0].Item != "Café" || overview.TopItems[0].Total != 15 {
		t.Fatalf("unexpected top items: %+v", overview.TopItems)
	}
	if len(overview.Categories) != 3 {
		t.Fatalf("expected item counts for 3 seeded categories, got %+v", overview.Categories)
	}
}
