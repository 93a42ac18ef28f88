package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	categories      map[int64]domain.Category
	items           map[int64]domain.Item
	sales           map[int64]*domain.Sale
	expenses        map[int64]domain.Expense
	usersByUsername map[string]domain.UserAccount
	nextCategoryID  int64
	nextItemID      int64
	nextSaleID      int64
	nextLineID      int64
	nextExpenseID   int64
}

func New() *Store {
	return &Store{
		categories:      make(map[int64]domain.Category),
		items:           make(map[int64]domain.Item),
		sales:           make(map[int64]*domain.Sale),
		expenses:        make(map[int64]domain.Expense),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the dev/demo admin account. The password comes from
// SEED_ADMIN_PASSWORD; without it a hardcoded dev default is used and a
// warning is logged. The postgres backend never uses these credentials.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPwd), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}
	return map[string]domain.UserAccount{
		"admin": {Username: "admin", Password: string(hash), CreatedAt: time.Now().UTC()},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	for _, name := range []string{"Bebidas", "Salgados", "Doces"} {
		s.nextCategoryID++
		s.categories[s.nextCategoryID] = domain.Category{ID: s.nextCategoryID, Name: name}
	}

	now := time.Now().UTC()
	for _, seed := range []struct {
		name     string
		purchase float64
		sale     float64
		category int64
	}{
		{"Café", 1.5, 5, 1},
		{"Refrigerante Lata", 3.2, 6, 1},
		{"Água Mineral", 1, 3.5, 1},
		{"Pão de Queijo", 2, 4.5, 2},
		{"Coxinha", 3, 7, 2},
		{"Brigadeiro", 1.2, 3, 3},
	} {
		s.nextItemID++
		category := seed.category
		s.items[s.nextItemID] = domain.Item{
			ID:            s.nextItemID,
			Name:          seed.name,
			PurchasePrice: seed.purchase,
			SalePrice:     seed.sale,
			MarginPercent: domain.MarginPercent(seed.purchase, seed.sale),
			CategoryID:    &category,
			CreatedAt:     now,
		}
	}

	return s
}

// AddUser registers an account directly; used for seeding and tests.
func (s *Store) AddUser(user domain.UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, c := range s.categories {
		if c.Name == name {
			return nil, store.ErrConflict
		}
	}

	s.nextCategoryID++
	category := domain.Category{ID: s.nextCategoryID, Name: name}
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, item := range s.items {
		if item.CategoryID != nil && *item.CategoryID == id {
			return store.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListItems(_ context.Context, query string) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if query != "" && !strings.Contains(item.Name, query) {
			continue
		}
		items = append(items, s.withCategoryName(item))
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if a.Name == b.Name {
			return cmpInt64(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return items, nil
}

func (s *Store) GetItem(_ context.Context, id int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := s.withCategoryName(item)
	return &found, nil
}

func (s *Store) GetItemByName(_ context.Context, name string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *domain.Item
	for _, item := range s.items {
		if item.Name != name {
			continue
		}
		if match == nil || item.ID < match.ID {
			candidate := item
			match = &candidate
		}
	}
	if match == nil {
		return nil, store.ErrNotFound
	}
	found := s.withCategoryName(*match)
	return &found, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkItemCategory(item); err != nil {
		return nil, err
	}

	s.nextItemID++
	item.ID = s.nextItemID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.CategoryName = ""
	s.items[item.ID] = item
	created := s.withCategoryName(item)
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkItemCategory(item); err != nil {
		return nil, err
	}

	item.CreatedAt = existing.CreatedAt
	item.CategoryName = ""
	s.items[item.ID] = item
	updated := s.withCategoryName(item)
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, line := range sale.Lines {
			if line.ItemID == id {
				return store.ErrConflict
			}
		}
	}
	delete(s.items, id)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, line := range sale.Lines {
		if _, ok := s.items[line.ItemID]; !ok {
			return nil, store.ErrInvalidInput
		}
	}

	s.nextSaleID++
	sale.ID = s.nextSaleID
	sale.SoldAt = sale.SoldAt.UTC()
	sale.Lines = s.numberLines(sale.ID, sale.Lines)
	s.sales[sale.ID] = cloneSale(&sale)

	return s.readSale(s.sales[sale.ID]), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.readSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, period domain.Period) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 32)
	for _, sale := range s.sales {
		if !period.Contains(sale.SoldAt) {
			continue
		}
		sales = append(sales, *s.readSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.SoldAt.Equal(b.SoldAt) {
			return cmpInt64(a.ID, b.ID)
		}
		return a.SoldAt.Compare(b.SoldAt)
	})
	return sales, nil
}

func (s *Store) ReplaceSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[sale.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, line := range sale.Lines {
		if _, ok := s.items[line.ItemID]; !ok {
			return nil, store.ErrInvalidInput
		}
	}

	updated := cloneSale(existing)
	updated.PaymentMethod = sale.PaymentMethod
	updated.TotalValue = sale.TotalValue
	updated.TotalProfit = sale.TotalProfit
	updated.Lines = s.numberLines(sale.ID, sale.Lines)
	s.sales[sale.ID] = updated

	return s.readSale(updated), nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) SetSaleReconciled(_ context.Context, id int64, reconciled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.Reconciled = reconciled
	return nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExpenseID++
	expense.ID = s.nextExpenseID
	expense.Date = expense.Date.UTC()
	s.expenses[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		expenses = append(expenses, expense)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return cmpInt64(a.ID, b.ID)
		}
		return a.Date.Compare(b.Date)
	})
	return expenses, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) withCategoryName(item domain.Item) domain.Item {
	item.CategoryName = ""
	if item.CategoryID != nil {
		if category, ok := s.categories[*item.CategoryID]; ok {
			item.CategoryName = category.Name
		}
	}
	return item
}

func (s *Store) checkItemCategory(item domain.Item) error {
	if item.CategoryID == nil {
		return nil
	}
	if _, ok := s.categories[*item.CategoryID]; !ok {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) numberLines(saleID int64, lines []domain.SaleLine) []domain.SaleLine {
	numbered := make([]domain.SaleLine, len(lines))
	for i, line := range lines {
		s.nextLineID++
		line.ID = s.nextLineID
		line.SaleID = saleID
		line.ItemName = ""
		numbered[i] = line
	}
	return numbered
}

// readSale returns a copy of sale with item names resolved from the catalog.
func (s *Store) readSale(sale *domain.Sale) *domain.Sale {
	dup := cloneSale(sale)
	for i := range dup.Lines {
		if item, ok := s.items[dup.Lines[i].ItemID]; ok {
			dup.Lines[i].ItemName = item.Name
		}
	}
	return dup
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Lines = make([]domain.SaleLine, len(src.Lines))
	copy(dup.Lines, src.Lines)
	return &dup
}

func cmpInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
