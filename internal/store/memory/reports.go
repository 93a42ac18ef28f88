package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"caixa/backend/internal/domain"
)

func (s *Store) PaymentTotals(_ context.Context, period domain.Period) ([]domain.PaymentAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMethod := map[string]*domain.PaymentAggregate{}
	for _, sale := range s.sales {
		if !period.Contains(sale.SoldAt) {
			continue
		}
		entry := byMethod[sale.PaymentMethod]
		if entry == nil {
			entry = &domain.PaymentAggregate{Method: sale.PaymentMethod}
			byMethod[sale.PaymentMethod] = entry
		}
		entry.Count++
		entry.Total += domain.Money(sale.TotalValue)
	}

	result := make([]domain.PaymentAggregate, 0, len(byMethod))
	for _, entry := range byMethod {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.PaymentAggregate) int {
		return strings.Compare(a.Method, b.Method)
	})
	return result, nil
}

func (s *Store) CategoryQuantities(_ context.Context, period domain.Period) ([]domain.CategoryAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[string]float64{}
	for _, sale := range s.sales {
		if !period.Contains(sale.SoldAt) {
			continue
		}
		for _, line := range sale.Lines {
			item, ok := s.items[line.ItemID]
			if !ok || item.CategoryID == nil {
				continue
			}
			category, ok := s.categories[*item.CategoryID]
			if !ok {
				continue
			}
			byCategory[category.Name] += line.Quantity
		}
	}

	result := make([]domain.CategoryAggregate, 0, len(byCategory))
	for name, qty := range byCategory {
		result = append(result, domain.CategoryAggregate{Category: name, Quantity: qty})
	}
	slices.SortFunc(result, func(a, b domain.CategoryAggregate) int {
		return strings.Compare(a.Category, b.Category)
	})
	return result, nil
}

func (s *Store) TopItems(_ context.Context, period domain.Period, limit int) ([]domain.ItemAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := map[string]*domain.ItemAggregate{}
	for _, sale := range s.sales {
		if !period.Contains(sale.SoldAt) {
			continue
		}
		for _, line := range sale.Lines {
			item, ok := s.items[line.ItemID]
			if !ok {
				continue
			}
			entry := byItem[item.Name]
			if entry == nil {
				entry = &domain.ItemAggregate{Item: item.Name}
				byItem[item.Name] = entry
			}
			entry.Quantity += line.Quantity
			entry.Total += domain.Money(line.Value)
		}
	}

	result := make([]domain.ItemAggregate, 0, len(byItem))
	for _, entry := range byItem {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.ItemAggregate) int {
		if a.Quantity != b.Quantity {
			if a.Quantity > b.Quantity {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Item, b.Item)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DailyAverages(_ context.Context, period domain.Period) ([]domain.DayAverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc := period.Zone()
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, sale := range s.sales {
		if !period.Contains(sale.SoldAt) {
			continue
		}
		day := sale.SoldAt.In(loc).Day()
		sums[day] += sale.TotalValue
		counts[day]++
	}

	result := make([]domain.DayAverage, 0, len(sums))
	for day, sum := range sums {
		result = append(result, domain.DayAverage{Day: day, Average: domain.Money(sum / float64(counts[day]))})
	}
	slices.SortFunc(result, func(a, b domain.DayAverage) int {
		return a.Day - b.Day
	})
	return result, nil
}

func (s *Store) CategoryItemCounts(_ context.Context) ([]domain.CategoryItemCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int64{}
	for _, item := range s.items {
		if item.CategoryID == nil {
			continue
		}
		category, ok := s.categories[*item.CategoryID]
		if !ok {
			continue
		}
		counts[category.Name]++
	}

	result := make([]domain.CategoryItemCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, domain.CategoryItemCount{Category: name, Count: count})
	}
	slices.SortFunc(result, func(a, b domain.CategoryItemCount) int {
		return strings.Compare(a.Category, b.Category)
	})
	return result, nil
}

func (s *Store) MonthlyIncome(_ context.Context, loc *time.Location) ([]domain.MonthAmount, error) {
	if loc == nil {
		loc = time.UTC
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := map[[2]int]float64{}
	for _, sale := range s.sales {
		local := sale.SoldAt.In(loc)
		buckets[[2]int{local.Year(), int(local.Month())}] += sale.TotalValue
	}
	return sortedMonths(buckets), nil
}

func (s *Store) MonthlyExpenses(_ context.Context) ([]domain.MonthAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := map[[2]int]float64{}
	for _, expense := range s.expenses {
		date := expense.Date.UTC()
		buckets[[2]int{date.Year(), int(date.Month())}] += expense.Value
	}
	return sortedMonths(buckets), nil
}

func sortedMonths(buckets map[[2]int]float64) []domain.MonthAmount {
	result := make([]domain.MonthAmount, 0, len(buckets))
	for key, total := range buckets {
		result = append(result, domain.MonthAmount{Year: key[0], Month: key[1], Total: total})
	}
	slices.SortFunc(result, func(a, b domain.MonthAmount) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return result
}
