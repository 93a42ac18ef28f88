package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

// AddToCart resolves the item by exact name and returns a new cart with one
// more line. The given cart is never modified.
//
// The quantity comes from req.Quantity when set, otherwise it is derived from
// req.TargetValue divided by the unit price, otherwise it defaults to one.
func (s *Service) AddToCart(ctx context.Context, cart domain.Cart, req domain.CartAddRequest) (domain.Cart, error) {
	name := strings.TrimSpace(req.ItemName)
	item, err := s.repo.GetItemByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return cart, fmt.Errorf("item %q: %w", name, store.ErrNotFound)
		}
		return cart, err
	}

	unitPrice := item.SalePrice
	var quantity, value float64
	switch {
	case req.Quantity != nil:
		quantity = *req.Quantity
		value = unitPrice*quantity - req.Discount + req.Surcharge
	case req.TargetValue != nil:
		if unitPrice == 0 {
			return cart, ErrZeroUnitPrice
		}
		quantity = *req.TargetValue / unitPrice
		value = *req.TargetValue - req.Discount + req.Surcharge
	default:
		quantity = 1
		value = unitPrice - req.Discount + req.Surcharge
	}

	next := append(cart.Clone(), domain.CartLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  quantity,
		Value:     value,
		Discount:  req.Discount,
		Surcharge: req.Surcharge,
		Profit:    domain.UnitProfit(*item, quantity, req.Discount, req.Surcharge),
	})
	return next, nil
}
