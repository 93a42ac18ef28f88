package service

import (
	"context"
	"fmt"
	"strings"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

func (s *Service) ListItems(ctx context.Context, query string) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, strings.TrimSpace(query))
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// SaveItem creates the item when ItemID is zero and updates it otherwise.
// The margin is always recomputed from the submitted prices.
func (s *Service) SaveItem(ctx context.Context, req domain.ItemSaveRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Item{}, fmt.Errorf("item name is required: %w", store.ErrInvalidInput)
	}

	item := domain.Item{
		ID:            req.ItemID,
		Name:          req.Name,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		MarginPercent: domain.MarginPercent(req.PurchasePrice, req.SalePrice),
	}
	if req.CategoryID > 0 {
		categoryID := req.CategoryID
		item.CategoryID = &categoryID
	}

	var (
		saved *domain.Item
		err   error
	)
	if req.ItemID > 0 {
		saved, err = s.repo.UpdateItem(ctx, item)
	} else {
		saved, err = s.repo.CreateItem(ctx, item)
	}
	if err != nil {
		return domain.Item{}, err
	}

	action := "item_create"
	if req.ItemID > 0 {
		action = "item_update"
	}
	s.logAudit(ctx, action, fmt.Sprintf("item/%d", saved.ID), fmt.Sprintf("nome=%q preco_venda=%.2f", saved.Name, saved.SalePrice))
	return *saved, nil
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "item_delete", fmt.Sprintf("item/%d", id), "")
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("category name is required: %w", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_create", fmt.Sprintf("categoria/%d", created.ID), fmt.Sprintf("nome=%q", created.Name))
	return *created, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "category_delete", fmt.Sprintf("categoria/%d", id), "")
	return nil
}
