package httpapi

import (
	"errors"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/service"
	"caixa/backend/internal/store"
	"caixa/backend/internal/views"
)

const msgUnexpected = "Erro inesperado. Tente novamente."

func (a *API) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := a.loadSession(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.render(w, http.StatusOK, "login", views.LoginPage{Base: views.Base{Title: "Entrar"}})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	page := views.LoginPage{Base: views.Base{Title: "Entrar"}}
	if !a.loginLimiter.Allow(clientKey(r)) {
		page.Attempts = true
		a.render(w, http.StatusTooManyRequests, "login", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		page.Failed = true
		a.render(w, http.StatusBadRequest, "login", page)
		return
	}

	actor, err := a.auth.Authenticate(r.Context(), domain.LoginRequest{
		Username: r.PostForm.Get("usuario"),
		Password: r.PostForm.Get("senha"),
	})
	if err != nil {
		if !errors.Is(err, errInvalidCredentials) {
			log.Printf("[auth] login failed: %v", err)
		}
		page.Failed = true
		a.render(w, http.StatusUnauthorized, "login", page)
		return
	}

	token, sess, err := a.auth.IssueSession(actor.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	state := domain.SessionState{Username: actor.Username}
	if err := a.sessions.Save(r.Context(), sess.SessionID, state, a.auth.TTL()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("[auth] login user=%s", actor.Username)

	a.setSessionCookie(w, token, sess.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if token, err := a.auth.ParseToken(cookie.Value); err == nil {
			if err := a.sessions.Delete(r.Context(), token.SessionID); err != nil {
				log.Printf("[session] WARN: delete sid=%s failed: %v", token.SessionID, err)
			}
		}
	}
	a.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.YesterdaySummary(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.render(w, http.StatusOK, "dashboard", views.DashboardPage{
		Base:       a.base(r, "Dashboard", "dashboard"),
		Summary:    summary,
		PickerDate: a.service.Today().AddDate(0, 0, -1).Format(service.ISODateLayout),
	})
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	overview, err := a.service.ReportsOverview(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.render(w, http.StatusOK, "relatorios", views.ReportsPage{
		Base:     a.base(r, "Relatórios", "relatorios"),
		Overview: overview,
	})
}

func (a *API) handleSalesPage(w http.ResponseWriter, r *http.Request) {
	day, err := a.service.SalesForDay(r.Context(), r.URL.Query().Get("data"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	items, err := a.service.ListItems(r.Context(), "")
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.render(w, http.StatusOK, "vendas", views.SalesPage{
		Base:    a.base(r, "Vendas", "vendas"),
		Day:     day,
		Items:   items,
		Cart:    a.cart(r),
		Methods: paymentMethods,
	})
}

func salesURL(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return "/vendas"
	}
	return "/vendas?data=" + url.QueryEscape(date)
}

func (a *API) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	target := salesURL(r.PostFormValue("data"))

	quantity, errQty := parseOptionalFloat(r.PostFormValue("quantidade"))
	value, errValue := parseOptionalFloat(r.PostFormValue("valor"))
	discount, errDiscount := parseFloatOrZero(r.PostFormValue("desconto"))
	surcharge, errSurcharge := parseFloatOrZero(r.PostFormValue("acrescimo"))
	if err := errors.Join(errQty, errValue, errDiscount, errSurcharge); err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Valores inválidos.")
		return
	}

	cart, err := a.service.AddToCart(r.Context(), a.cart(r), domain.CartAddRequest{
		ItemName:    r.PostFormValue("item_nome"),
		Quantity:    quantity,
		TargetValue: value,
		Discount:    discount,
		Surcharge:   surcharge,
	})
	switch {
	case err == nil:
		a.setCart(r, cart)
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Item adicionado ao carrinho.")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item não encontrado.")
	case errors.Is(err, service.ErrZeroUnitPrice):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item sem preço de venda. Informe a quantidade.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleCartClear(w http.ResponseWriter, r *http.Request) {
	a.setCart(r, nil)
	a.redirectWithFlash(w, r, salesURL(r.PostFormValue("data")), domain.FlashSuccess, "Carrinho limpo.")
}

func (a *API) handleCartFinalize(w http.ResponseWriter, r *http.Request) {
	date := r.PostFormValue("data_venda")
	target := salesURL(date)

	_, err := a.service.FinalizeCart(r.Context(), a.cart(r), domain.FinalizeRequest{
		PaymentMethod: r.PostFormValue("forma_pagamento"),
		Date:          date,
	})
	switch {
	case err == nil:
		a.setCart(r, nil)
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Venda concluída!")
	case errors.Is(err, service.ErrEmptyCart):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Carrinho vazio.")
	case errors.Is(err, service.ErrFutureSale):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Não é possível registrar vendas em data futura.")
	case errors.Is(err, service.ErrInvalidDate):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Data da venda inválida.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleSaleCancel(w http.ResponseWriter, r *http.Request) {
	target := salesURL(r.PostFormValue("data"))
	id, err := parseID(r.PostFormValue("venda_id"))
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Venda não encontrada.")
		return
	}

	err = a.service.CancelSale(r.Context(), id)
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Venda cancelada com sucesso.")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Venda não encontrada.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleSaleEdit(w http.ResponseWriter, r *http.Request) {
	target := salesURL(r.PostFormValue("data"))
	id, err := parseID(r.PostFormValue("venda_id"))
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Venda não encontrada.")
		return
	}

	lines, err := parseSaleLines(r.PostForm)
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados da venda inválidos.")
		return
	}

	_, err = a.service.EditSale(r.Context(), domain.SaleEditRequest{
		SaleID:        id,
		PaymentMethod: r.PostFormValue("forma_pagamento"),
		Lines:         lines,
	})
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Venda atualizada com sucesso!")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Venda ou item não encontrado.")
	case errors.Is(err, store.ErrInvalidInput):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados da venda inválidos.")
	default:
		a.unexpected(w, r, target, err)
	}
}

// parseSaleLines reads the parallel item_nome[] ... acrescimo[] arrays of the
// edit form. Every array must have one entry per line.
func parseSaleLines(form url.Values) ([]domain.SaleLineInput, error) {
	names := form["item_nome[]"]
	quantities := form["quantidade[]"]
	values := form["valor[]"]
	discounts := form["desconto[]"]
	surcharges := form["acrescimo[]"]

	n := len(names)
	if len(quantities) != n || len(values) != n || len(discounts) != n || len(surcharges) != n {
		return nil, errors.New("sale line arrays differ in length")
	}

	lines := make([]domain.SaleLineInput, 0, n)
	for i := 0; i < n; i++ {
		quantity, err := parseFloat(quantities[i])
		if err != nil {
			return nil, err
		}
		value, err := parseFloat(values[i])
		if err != nil {
			return nil, err
		}
		discount, err := parseFloatOrZero(discounts[i])
		if err != nil {
			return nil, err
		}
		surcharge, err := parseFloatOrZero(surcharges[i])
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.SaleLineInput{
			ItemName:  names[i],
			Quantity:  quantity,
			Value:     value,
			Discount:  discount,
			Surcharge: surcharge,
		})
	}
	return lines, nil
}

func (a *API) handleItemsPage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := a.service.ListItems(r.Context(), query)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	categories, err := a.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.render(w, http.StatusOK, "itens", views.ItemsPage{
		Base:       a.base(r, "Itens", "itens"),
		Items:      items,
		Categories: categories,
		Query:      query,
	})
}

// handleItemsForm serves both forms posted to /itens: delete when delete_id is
// present, save otherwise.
func (a *API) handleItemsForm(w http.ResponseWriter, r *http.Request) {
	const target = "/itens"

	if raw := strings.TrimSpace(r.PostFormValue("delete_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item não encontrado.")
			return
		}
		err = a.service.DeleteItem(r.Context(), id)
		switch {
		case err == nil:
			a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Item excluído com sucesso!")
		case errors.Is(err, store.ErrNotFound):
			a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item não encontrado.")
		case errors.Is(err, store.ErrConflict):
			a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item possui vendas registradas e não pode ser excluído.")
		default:
			a.unexpected(w, r, target, err)
		}
		return
	}

	var itemID, categoryID int64
	var err error
	if raw := strings.TrimSpace(r.PostFormValue("item_id")); raw != "" {
		if itemID, err = parseID(raw); err != nil {
			a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados do item inválidos.")
			return
		}
	}
	if raw := strings.TrimSpace(r.PostFormValue("categoria_id")); raw != "" && raw != "0" {
		if categoryID, err = parseID(raw); err != nil {
			a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados do item inválidos.")
			return
		}
	}
	purchase, errPurchase := parseFloatOrZero(r.PostFormValue("preco_compra"))
	sale, errSale := parseFloatOrZero(r.PostFormValue("preco_venda"))
	if errors.Join(errPurchase, errSale) != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados do item inválidos.")
		return
	}

	_, err = a.service.SaveItem(r.Context(), domain.ItemSaveRequest{
		ItemID:        itemID,
		Name:          r.PostFormValue("nome"),
		PurchasePrice: purchase,
		SalePrice:     sale,
		CategoryID:    categoryID,
	})
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Item salvo com sucesso!")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Item não encontrado.")
	case errors.Is(err, store.ErrInvalidInput):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Dados do item inválidos.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	const target = "/itens"
	_, err := a.service.CreateCategory(r.Context(), r.PostFormValue("nome"))
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Categoria cadastrada com sucesso!")
	case errors.Is(err, store.ErrConflict):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Categoria já existe.")
	case errors.Is(err, store.ErrInvalidInput):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Informe o nome da categoria.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	const target = "/itens"
	id, err := parseID(r.PostFormValue("categoria_id"))
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Categoria não encontrada.")
		return
	}
	err = a.service.DeleteCategory(r.Context(), id)
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Categoria excluída com sucesso!")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Categoria não encontrada.")
	case errors.Is(err, store.ErrConflict):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Categoria possui itens e não pode ser excluída.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleFinancePage(w http.ResponseWriter, r *http.Request) {
	overview, err := a.service.FinancialOverview(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	a.render(w, http.StatusOK, "financeiro", views.FinancePage{
		Base:     a.base(r, "Financeiro", "financeiro"),
		Overview: overview,
	})
}

func (a *API) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	const target = "/financeiro"
	value, err := parseFloat(r.PostFormValue("valor"))
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Valor inválido.")
		return
	}

	_, err = a.service.CreateExpense(r.Context(), domain.ExpenseCreateRequest{
		Description: r.PostFormValue("descricao"),
		Value:       value,
		Date:        r.PostFormValue("data"),
		Category:    r.PostFormValue("categoria"),
	})
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Despesa cadastrada com sucesso!")
	case errors.Is(err, service.ErrInvalidDate):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Data inválida. Use DD/MM/AAAA.")
	case errors.Is(err, store.ErrInvalidInput):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Preencha todos os campos da despesa.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	const target = "/financeiro"
	id, err := parseID(r.PostFormValue("conta_id"))
	if err != nil {
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Despesa não encontrada.")
		return
	}
	err = a.service.DeleteExpense(r.Context(), id)
	switch {
	case err == nil:
		a.redirectWithFlash(w, r, target, domain.FlashSuccess, "Despesa excluída com sucesso!")
	case errors.Is(err, store.ErrNotFound):
		a.redirectWithFlash(w, r, target, domain.FlashDanger, "Despesa não encontrada.")
	default:
		a.unexpected(w, r, target, err)
	}
}

func (a *API) unexpected(w http.ResponseWriter, r *http.Request, target string, err error) {
	log.Printf("[http] %s %s failed: %v", r.Method, r.URL.Path, err)
	a.redirectWithFlash(w, r, target, domain.FlashDanger, msgUnexpected)
}

// parseFloat accepts both "1.5" and "1,5".
func parseFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty number")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("number out of range")
	}
	return v, nil
}

func parseFloatOrZero(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parseFloat(raw)
}

func parseOptionalFloat(raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := parseFloat(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
