package postgres

import (
	"context"
	"fmt"
)

// schema uses the Portuguese table and column names already present in
// deployed bookkeeping databases.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS usuario (
		id SERIAL PRIMARY KEY,
		usuario VARCHAR(100) NOT NULL UNIQUE,
		senha VARCHAR(255) NOT NULL,
		data_cadastro TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categoria (
		id SERIAL PRIMARY KEY,
		nome VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS item (
		id SERIAL PRIMARY KEY,
		nome VARCHAR(100) NOT NULL,
		preco_compra DOUBLE PRECISION NOT NULL,
		preco_venda DOUBLE PRECISION NOT NULL,
		margem_lucro DOUBLE PRECISION,
		data_cadastro TIMESTAMPTZ NOT NULL DEFAULT now(),
		categoria_id INTEGER REFERENCES categoria(id)
	)`,
	`CREATE TABLE IF NOT EXISTS venda (
		id SERIAL PRIMARY KEY,
		forma_pagamento VARCHAR(50) NOT NULL,
		data_venda TIMESTAMPTZ NOT NULL DEFAULT now(),
		valor_total DOUBLE PRECISION NOT NULL,
		lucro_total DOUBLE PRECISION NOT NULL,
		conferido BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS venda_data_venda_idx ON venda (data_venda)`,
	`CREATE TABLE IF NOT EXISTS venda_item (
		id SERIAL PRIMARY KEY,
		venda_id INTEGER NOT NULL REFERENCES venda(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL REFERENCES item(id),
		quantidade DOUBLE PRECISION NOT NULL DEFAULT 1,
		valor_venda DOUBLE PRECISION NOT NULL,
		desconto DOUBLE PRECISION NOT NULL DEFAULT 0,
		acrescimo DOUBLE PRECISION NOT NULL DEFAULT 0,
		lucro DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS venda_item_venda_id_idx ON venda_item (venda_id)`,
	`CREATE TABLE IF NOT EXISTS despesa (
		id SERIAL PRIMARY KEY,
		descricao VARCHAR(150) NOT NULL,
		valor DOUBLE PRECISION NOT NULL,
		data_despesa DATE NOT NULL,
		categoria VARCHAR(50) NOT NULL
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
