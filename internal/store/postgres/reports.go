package postgres

import (
	"context"
	"time"

	"caixa/backend/internal/domain"
)

func (s *Store) PaymentTotals(ctx context.Context, period domain.Period) ([]domain.PaymentAggregate, error) {
	from, to, month, zone := periodArgs(period)
	result := make([]domain.PaymentAggregate, 0, 8)
	err := s.db.SelectContext(ctx, &result, `
		SELECT forma_pagamento, COUNT(*)::bigint AS quantidade, COALESCE(SUM(valor_total), 0)::float8 AS total
		FROM venda
		WHERE ($1::timestamptz IS NULL OR data_venda >= $1)
			AND ($2::timestamptz IS NULL OR data_venda < $2)
			AND ($3::int = 0 OR EXTRACT(MONTH FROM data_venda AT TIME ZONE $4)::int = $3)
		GROUP BY forma_pagamento
		ORDER BY forma_pagamento
	`, from, to, month, zone)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CategoryQuantities(ctx context.Context, period domain.Period) ([]domain.CategoryAggregate, error) {
	from, to, month, zone := periodArgs(period)
	result := make([]domain.CategoryAggregate, 0, 8)
	err := s.db.SelectContext(ctx, &result, `
		SELECT c.nome AS categoria, COALESCE(SUM(vi.quantidade), 0)::float8 AS quantidade
		FROM venda_item vi
		JOIN venda v ON v.id = vi.venda_id
		JOIN item i ON i.id = vi.item_id
		JOIN categoria c ON c.id = i.categoria_id
		WHERE ($1::timestamptz IS NULL OR v.data_venda >= $1)
			AND ($2::timestamptz IS NULL OR v.data_venda < $2)
			AND ($3::int = 0 OR EXTRACT(MONTH FROM v.data_venda AT TIME ZONE $4)::int = $3)
		GROUP BY c.nome
		ORDER BY c.nome
	`, from, to, month, zone)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) TopItems(ctx context.Context, period domain.Period, limit int) ([]domain.ItemAggregate, error) {
	if limit <= 0 {
		limit = 1000
	}
	from, to, month, zone := periodArgs(period)
	result := make([]domain.ItemAggregate, 0, limit)
	err := s.db.SelectContext(ctx, &result, `
		SELECT i.nome AS item, SUM(vi.quantidade)::float8 AS quantidade, SUM(vi.valor_venda)::float8 AS total
		FROM venda_item vi
		JOIN venda v ON v.id = vi.venda_id
		JOIN item i ON i.id = vi.item_id
		WHERE ($1::timestamptz IS NULL OR v.data_venda >= $1)
			AND ($2::timestamptz IS NULL OR v.data_venda < $2)
			AND ($3::int = 0 OR EXTRACT(MONTH FROM v.data_venda AT TIME ZONE $4)::int = $3)
		GROUP BY i.nome
		ORDER BY quantidade DESC, i.nome ASC
		LIMIT $5
	`, from, to, month, zone, limit)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DailyAverages(ctx context.Context, period domain.Period) ([]domain.DayAverage, error) {
	from, to, month, zone := periodArgs(period)
	result := make([]domain.DayAverage, 0, 31)
	err := s.db.SelectContext(ctx, &result, `
		SELECT EXTRACT(DAY FROM data_venda AT TIME ZONE $4)::int AS dia, AVG(valor_total)::float8 AS media_vendas
		FROM venda
		WHERE ($1::timestamptz IS NULL OR data_venda >= $1)
			AND ($2::timestamptz IS NULL OR data_venda < $2)
			AND ($3::int = 0 OR EXTRACT(MONTH FROM data_venda AT TIME ZONE $4)::int = $3)
		GROUP BY dia
		ORDER BY dia
	`, from, to, month, zone)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CategoryItemCounts(ctx context.Context) ([]domain.CategoryItemCount, error) {
	result := make([]domain.CategoryItemCount, 0, 8)
	err := s.db.SelectContext(ctx, &result, `
		SELECT c.nome AS categoria, COUNT(i.id)::bigint AS quantidade
		FROM categoria c
		JOIN item i ON i.categoria_id = c.id
		GROUP BY c.nome
		ORDER BY c.nome
	`)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) MonthlyIncome(ctx context.Context, loc *time.Location) ([]domain.MonthAmount, error) {
	if loc == nil {
		loc = time.UTC
	}
	result := make([]domain.MonthAmount, 0, 24)
	err := s.db.SelectContext(ctx, &result, `
		SELECT EXTRACT(YEAR FROM data_venda AT TIME ZONE $1)::int AS ano,
			EXTRACT(MONTH FROM data_venda AT TIME ZONE $1)::int AS mes,
			SUM(valor_total)::float8 AS total
		FROM venda
		GROUP BY ano, mes
		ORDER BY ano, mes
	`, loc.String())
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) MonthlyExpenses(ctx context.Context) ([]domain.MonthAmount, error) {
	result := make([]domain.MonthAmount, 0, 24)
	err := s.db.SelectContext(ctx, &result, `
		SELECT EXTRACT(YEAR FROM data_despesa)::int AS ano,
			EXTRACT(MONTH FROM data_despesa)::int AS mes,
			SUM(valor)::float8 AS total
		FROM despesa
		GROUP BY ano, mes
		ORDER BY ano, mes
	`)
	if err != nil {
		return nil, err
	}
	return result, nil
}
