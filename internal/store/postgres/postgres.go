package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, 16)
	err := s.db.SelectContext(ctx, &categories, `SELECT id, nome FROM categoria ORDER BY nome`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, store.ErrInvalidInput
	}

	category := domain.Category{Name: name}
	err := s.db.QueryRowxContext(ctx, `INSERT INTO categoria (nome) VALUES ($1) RETURNING id`, name).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categoria WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return expectAffected(res)
}

const itemColumns = `
	i.id, i.nome, i.preco_compra, i.preco_venda, COALESCE(i.margem_lucro, 0) AS margem_lucro,
	i.categoria_id, COALESCE(c.nome, '') AS categoria_nome, i.data_cadastro
	FROM item i
	LEFT JOIN categoria c ON c.id = i.categoria_id`

func (s *Store) ListItems(ctx context.Context, query string) ([]domain.Item, error) {
	items := make([]domain.Item, 0, 64)
	var err error
	if query == "" {
		err = s.db.SelectContext(ctx, &items, `SELECT `+itemColumns+` ORDER BY i.nome, i.id`)
	} else {
		err = s.db.SelectContext(ctx, &items, `SELECT `+itemColumns+` WHERE strpos(i.nome, $1) > 0 ORDER BY i.nome, i.id`, query)
	}
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].CreatedAt = items[i].CreatedAt.UTC()
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	if err := s.db.GetContext(ctx, &item, `SELECT `+itemColumns+` WHERE i.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) GetItemByName(ctx context.Context, name string) (*domain.Item, error) {
	var item domain.Item
	if err := s.db.GetContext(ctx, &item, `SELECT `+itemColumns+` WHERE i.nome = $1 ORDER BY i.id LIMIT 1`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO item (nome, preco_compra, preco_venda, margem_lucro, categoria_id, data_cadastro)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, item.Name, item.PurchasePrice, item.SalePrice, item.MarginPercent, nullID(item.CategoryID), item.CreatedAt).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE item
		SET nome = $2, preco_compra = $3, preco_venda = $4, margem_lucro = $5, categoria_id = $6
		WHERE id = $1
	`, item.ID, item.Name, item.PurchasePrice, item.SalePrice, item.MarginPercent, nullID(item.CategoryID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, item.ID)
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM item WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO venda (forma_pagamento, data_venda, valor_total, lucro_total, conferido)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, sale.PaymentMethod, sale.SoldAt.UTC(), sale.TotalValue, sale.TotalProfit, sale.Reconciled).Scan(&sale.ID)
	if err != nil {
		return nil, err
	}

	if err := insertLines(ctx, tx, sale.ID, sale.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.GetContext(ctx, &sale, `
		SELECT id, forma_pagamento, data_venda, valor_total, lucro_total, conferido
		FROM venda
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	sales := []domain.Sale{sale}
	if err := s.attachLines(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, period domain.Period) ([]domain.Sale, error) {
	from, to, month, zone := periodArgs(period)
	sales := make([]domain.Sale, 0, 32)
	err := s.db.SelectContext(ctx, &sales, `
		SELECT id, forma_pagamento, data_venda, valor_total, lucro_total, conferido
		FROM venda
		WHERE ($1::timestamptz IS NULL OR data_venda >= $1)
			AND ($2::timestamptz IS NULL OR data_venda < $2)
			AND ($3::int = 0 OR EXTRACT(MONTH FROM data_venda AT TIME ZONE $4)::int = $3)
		ORDER BY data_venda ASC, id ASC
	`, from, to, month, zone)
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ReplaceSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE venda
		SET forma_pagamento = $2, valor_total = $3, lucro_total = $4
		WHERE id = $1
	`, sale.ID, sale.PaymentMethod, sale.TotalValue, sale.TotalProfit)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM venda_item WHERE venda_id = $1`, sale.ID); err != nil {
		return nil, err
	}
	if err := insertLines(ctx, tx, sale.ID, sale.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM venda WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) SetSaleReconciled(ctx context.Context, id int64, reconciled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE venda SET conferido = $2 WHERE id = $1`, id, reconciled)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO despesa (descricao, valor, data_despesa, categoria)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, expense.Description, expense.Value, expense.Date.UTC(), expense.Category).Scan(&expense.ID)
	if err != nil {
		return nil, err
	}
	expense.Date = expense.Date.UTC()
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	expenses := make([]domain.Expense, 0, 32)
	err := s.db.SelectContext(ctx, &expenses, `
		SELECT id, descricao, valor, data_despesa, categoria
		FROM despesa
		ORDER BY data_despesa ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Date = expenses[i].Date.UTC()
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM despesa WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.GetContext(ctx, &user, `
		SELECT usuario, senha, data_cadastro
		FROM usuario
		WHERE usuario = $1
	`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE usuario SET senha = $2 WHERE usuario = $1`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) attachLines(ctx context.Context, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(sales))
	index := make(map[int64]int, len(sales))
	for i := range sales {
		sales[i].SoldAt = sales[i].SoldAt.UTC()
		sales[i].Lines = make([]domain.SaleLine, 0, 4)
		ids = append(ids, sales[i].ID)
		index[sales[i].ID] = i
	}

	lines := make([]domain.SaleLine, 0, len(sales)*2)
	err := s.db.SelectContext(ctx, &lines, `
		SELECT vi.id, vi.venda_id, vi.item_id, it.nome AS item_nome, vi.quantidade,
			vi.valor_venda, vi.desconto, vi.acrescimo, vi.lucro
		FROM venda_item vi
		JOIN item it ON it.id = vi.item_id
		WHERE vi.venda_id = ANY($1)
		ORDER BY vi.id
	`, ids)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if i, ok := index[line.SaleID]; ok {
			sales[i].Lines = append(sales[i].Lines, line)
		}
	}
	return nil
}

func insertLines(ctx context.Context, tx *sqlx.Tx, saleID int64, lines []domain.SaleLine) error {
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venda_item (venda_id, item_id, quantidade, valor_venda, desconto, acrescimo, lucro)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, saleID, line.ItemID, line.Quantity, line.Value, line.Discount, line.Surcharge, line.Profit)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrInvalidInput
			}
			return err
		}
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// periodArgs returns the bounds, the month selector (0 for any) and the
// zone name used to bucket timestamps, in that order.
func periodArgs(period domain.Period) (any, any, int, string) {
	return nullTime(period.From), nullTime(period.To), int(period.Month), period.Zone().String()
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val.UTC()
}

func nullID(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

// SeedUser inserts the account unless the username already exists.
func (s *Store) SeedUser(ctx context.Context, user domain.UserAccount) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usuario (usuario, senha, data_cadastro)
		VALUES ($1,$2,$3)
		ON CONFLICT (usuario) DO NOTHING
	`, user.Username, user.Password, user.CreatedAt)
	return err
}
