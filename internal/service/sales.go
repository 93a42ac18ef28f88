package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

// FinalizeCart persists the cart as one sale. The sale time is the given
// DD/MM/YYYY day combined with the current local time of day, or now when no
// day is given. The caller keeps the cart on error and clears it on success.
func (s *Service) FinalizeCart(ctx context.Context, cart domain.Cart, req domain.FinalizeRequest) (domain.Sale, error) {
	if len(cart) == 0 {
		return domain.Sale{}, ErrEmptyCart
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}

	now := s.now().In(s.loc)
	soldAt := now
	if strings.TrimSpace(req.Date) != "" {
		day, err := s.parseDay(FormDateLayout, req.Date)
		if err != nil {
			return domain.Sale{}, err
		}
		soldAt = time.Date(day.Year(), day.Month(), day.Day(),
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), s.loc)
	}
	if soldAt.After(now) {
		return domain.Sale{}, ErrFutureSale
	}

	lines := make([]domain.SaleLine, 0, len(cart))
	for _, entry := range cart {
		lines = append(lines, domain.SaleLine{
			ItemID:    entry.ItemID,
			ItemName:  entry.ItemName,
			Quantity:  entry.Quantity,
			Value:     entry.Value,
			Discount:  entry.Discount,
			Surcharge: entry.Surcharge,
			Profit:    entry.Profit,
		})
	}

	created, err := s.repo.CreateSale(ctx, domain.Sale{
		PaymentMethod: method,
		SoldAt:        soldAt.UTC(),
		TotalValue:    cart.Total(),
		TotalProfit:   cart.Profit(),
		Lines:         lines,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_finalize", fmt.Sprintf("venda/%d", created.ID),
		fmt.Sprintf("forma=%s total=%.2f linhas=%d", created.PaymentMethod, created.TotalValue, len(created.Lines)))
	return *created, nil
}

// SalesForDay lists the sales of a DD/MM/YYYY day. An empty or unparseable
// day falls back to today.
func (s *Service) SalesForDay(ctx context.Context, date string) (domain.SalesDay, error) {
	day := s.Today()
	if strings.TrimSpace(date) != "" {
		if parsed, err := s.parseDay(FormDateLayout, date); err == nil {
			day = parsed
		}
	}

	sales, err := s.repo.ListSales(ctx, s.dayPeriod(day))
	if err != nil {
		return domain.SalesDay{}, err
	}

	total := 0.0
	for _, sale := range sales {
		total += sale.TotalValue
	}
	return domain.SalesDay{Date: day, Sales: sales, Total: total}, nil
}

func (s *Service) CancelSale(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "sale_cancel", fmt.Sprintf("venda/%d", id), "")
	return nil
}

// EditSale replaces every line of the sale. Each line's profit is recomputed
// from the current item prices. An unknown item name aborts the whole edit.
func (s *Service) EditSale(ctx context.Context, req domain.SaleEditRequest) (domain.Sale, error) {
	existing, err := s.repo.GetSale(ctx, req.SaleID)
	if err != nil {
		return domain.Sale{}, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = existing.PaymentMethod
	}

	lines := make([]domain.SaleLine, 0, len(req.Lines))
	total, profit := 0.0, 0.0
	for _, input := range req.Lines {
		name := strings.TrimSpace(input.ItemName)
		item, err := s.repo.GetItemByName(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Sale{}, fmt.Errorf("item %q: %w", name, store.ErrNotFound)
			}
			return domain.Sale{}, err
		}

		lineProfit := domain.UnitProfit(*item, input.Quantity, input.Discount, input.Surcharge)
		lines = append(lines, domain.SaleLine{
			SaleID:    existing.ID,
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  input.Quantity,
			Value:     input.Value,
			Discount:  input.Discount,
			Surcharge: input.Surcharge,
			Profit:    lineProfit,
		})
		total += input.Value
		profit += lineProfit
	}

	updated, err := s.repo.ReplaceSale(ctx, domain.Sale{
		ID:            existing.ID,
		PaymentMethod: method,
		TotalValue:    total,
		TotalProfit:   profit,
		Lines:         lines,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_edit", fmt.Sprintf("venda/%d", updated.ID),
		fmt.Sprintf("forma=%s total=%.2f linhas=%d", updated.PaymentMethod, updated.TotalValue, len(updated.Lines)))
	return *updated, nil
}

func (s *Service) SetReconciled(ctx context.Context, id int64, reconciled bool) error {
	if err := s.repo.SetSaleReconciled(ctx, id, reconciled); err != nil {
		return err
	}
	s.logAudit(ctx, "sale_reconcile", fmt.Sprintf("venda/%d", id), fmt.Sprintf("conferido=%t", reconciled))
	return nil
}
