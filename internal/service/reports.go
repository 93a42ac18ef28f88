package service

import (
	"context"
	"slices"
	"time"

	"caixa/backend/internal/domain"
)

func (s *Service) PaymentsByMonth(ctx context.Context, year int, month int) ([]domain.PaymentAggregate, error) {
	period, err := s.monthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.repo.PaymentTotals(ctx, period)
}

func (s *Service) CategoryQuantities(ctx context.Context, year int, month int) ([]domain.CategoryAggregate, error) {
	period, err := s.monthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.repo.CategoryQuantities(ctx, period)
}

func (s *Service) TopItems(ctx context.Context, year int, month int) ([]domain.ItemAggregate, error) {
	period, err := s.monthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.repo.TopItems(ctx, period, topItemsLimit)
}

func (s *Service) DailyAverages(ctx context.Context, year int, month int) ([]domain.DayAverage, error) {
	period, err := s.monthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.repo.DailyAverages(ctx, period)
}

// DaySummary aggregates the sales of a YYYY-MM-DD day.
func (s *Service) DaySummary(ctx context.Context, date string) (domain.DaySummary, error) {
	day, err := s.parseDay(ISODateLayout, date)
	if err != nil {
		return domain.DaySummary{}, err
	}
	return s.summarize(ctx, day)
}

func (s *Service) YesterdaySummary(ctx context.Context) (domain.DaySummary, error) {
	return s.summarize(ctx, s.Today().AddDate(0, 0, -1))
}

func (s *Service) summarize(ctx context.Context, day time.Time) (domain.DaySummary, error) {
	sales, err := s.repo.ListSales(ctx, s.dayPeriod(day))
	if err != nil {
		return domain.DaySummary{}, err
	}

	summary := domain.DaySummary{
		SalesCount: len(sales),
		ByPayment:  map[string]domain.Money{},
		ByHour:     domain.HourCounts{},
		Date:       day.Format(FormDateLayout),
	}

	hours := map[int]int{}
	for _, sale := range sales {
		summary.TotalValue += domain.Money(sale.TotalValue)
		summary.TotalProfit += domain.Money(sale.TotalProfit)
		summary.ByPayment[sale.PaymentMethod] += domain.Money(sale.TotalValue)
		hours[sale.SoldAt.In(s.loc).Hour()]++
	}
	if summary.SalesCount > 0 {
		summary.AverageTick = summary.TotalValue / domain.Money(summary.SalesCount)
	}

	for hour, count := range hours {
		summary.ByHour = append(summary.ByHour, domain.HourCount{Hour: hour, Count: count})
	}
	slices.SortFunc(summary.ByHour, func(a, b domain.HourCount) int {
		return a.Hour - b.Hour
	})
	return summary, nil
}

// FinancialYear returns twelve monthly income and expense totals for the year,
// zero-filled for months without data.
func (s *Service) FinancialYear(ctx context.Context, year int) (domain.FinancialYear, error) {
	income, err := s.repo.MonthlyIncome(ctx, s.loc)
	if err != nil {
		return domain.FinancialYear{}, err
	}
	expenses, err := s.repo.MonthlyExpenses(ctx)
	if err != nil {
		return domain.FinancialYear{}, err
	}
	return buildFinancialYear(year, income, expenses), nil
}

// FinancialOverview lists every year that has sales or expenses and charts the
// earliest one. Without any data the chart shows the current year.
func (s *Service) FinancialOverview(ctx context.Context) (domain.FinancialOverview, error) {
	income, err := s.repo.MonthlyIncome(ctx, s.loc)
	if err != nil {
		return domain.FinancialOverview{}, err
	}
	monthlyExpenses, err := s.repo.MonthlyExpenses(ctx)
	if err != nil {
		return domain.FinancialOverview{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.FinancialOverview{}, err
	}

	years := make([]int, 0, 4)
	for _, bucket := range append(slices.Clone(income), monthlyExpenses...) {
		if !slices.Contains(years, bucket.Year) {
			years = append(years, bucket.Year)
		}
	}
	slices.Sort(years)

	initial := s.CurrentYear()
	if len(years) > 0 {
		initial = years[0]
	}

	return domain.FinancialOverview{
		Years:       years,
		InitialYear: initial,
		Chart:       buildFinancialYear(initial, income, monthlyExpenses),
		Expenses:    expenses,
	}, nil
}

// ReportsOverview aggregates over the whole history.
func (s *Service) ReportsOverview(ctx context.Context) (domain.ReportsOverview, error) {
	all := domain.Period{Location: s.loc}

	monthly, err := s.repo.MonthlyIncome(ctx, s.loc)
	if err != nil {
		return domain.ReportsOverview{}, err
	}
	payments, err := s.repo.PaymentTotals(ctx, all)
	if err != nil {
		return domain.ReportsOverview{}, err
	}
	categories, err := s.repo.CategoryItemCounts(ctx)
	if err != nil {
		return domain.ReportsOverview{}, err
	}
	topItems, err := s.repo.TopItems(ctx, all, topItemsLimit)
	if err != nil {
		return domain.ReportsOverview{}, err
	}
	averages, err := s.repo.DailyAverages(ctx, all)
	if err != nil {
		return domain.ReportsOverview{}, err
	}

	return domain.ReportsOverview{
		Monthly:    monthly,
		Payments:   payments,
		Categories: categories,
		TopItems:   topItems,
		Averages:   averages,
	}, nil
}

func buildFinancialYear(year int, income []domain.MonthAmount, expenses []domain.MonthAmount) domain.FinancialYear {
	out := domain.FinancialYear{
		Year:     year,
		Months:   make([]string, 12),
		Income:   make([]domain.Money, 12),
		Expenses: make([]domain.Money, 12),
	}
	for m := 1; m <= 12; m++ {
		out.Months[m-1] = time.Month(m).String()[:3]
	}
	for _, bucket := range income {
		if bucket.Year == year && bucket.Month >= 1 && bucket.Month <= 12 {
			out.Income[bucket.Month-1] += domain.Money(bucket.Total)
		}
	}
	for _, bucket := range expenses {
		if bucket.Year == year && bucket.Month >= 1 && bucket.Month <= 12 {
			out.Expenses[bucket.Month-1] += domain.Money(bucket.Total)
		}
	}
	return out
}
