package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

// CreateExpense stores the expense on the calendar day given as DD/MM/YYYY.
func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Expense{}, fmt.Errorf("expense description is required: %w", store.ErrInvalidInput)
	}

	day, err := time.Parse(FormDateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return domain.Expense{}, ErrInvalidDate
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		Description: description,
		Value:       req.Value,
		Date:        day,
		Category:    strings.TrimSpace(req.Category),
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", fmt.Sprintf("despesa/%d", created.ID), fmt.Sprintf("valor=%.2f", created.Value))
	return *created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "expense_delete", fmt.Sprintf("despesa/%d", id), "")
	return nil
}
