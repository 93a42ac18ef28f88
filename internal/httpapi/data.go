package httpapi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

// monthParams reads {mes} from the path and the optional ?ano query. A missing
// year is returned as 0, meaning that month in every year.
func monthParams(r *http.Request) (int, int, error) {
	month, err := strconv.Atoi(chi.URLParam(r, "mes"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("mês inválido")
	}
	year := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("ano")); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1 {
			return 0, 0, errors.New("ano inválido")
		}
	}
	return year, month, nil
}

func writeDataError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"erro": message})
}

func (a *API) handlePaymentsData(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeDataError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.service.PaymentsByMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleCategoriesData(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeDataError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.service.CategoryQuantities(r.Context(), year, month)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleTopItemsData(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeDataError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.service.TopItems(r.Context(), year, month)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleAveragesData(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeDataError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.service.DailyAverages(r.Context(), year, month)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) daySummary(w http.ResponseWriter, r *http.Request) (domain.DaySummary, bool) {
	summary, err := a.service.DaySummary(r.Context(), chi.URLParam(r, "data"))
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			writeDataError(w, http.StatusBadRequest, "Data inválida")
			return domain.DaySummary{}, false
		}
		writeError(w, statusFor(err), err)
		return domain.DaySummary{}, false
	}
	return summary, true
}

func (a *API) handleDashboardData(w http.ResponseWriter, r *http.Request) {
	summary, ok := a.daySummary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDashboardCSV exports the day summary as secao,chave,valor rows.
func (a *API) handleDashboardCSV(w http.ResponseWriter, r *http.Request) {
	summary, ok := a.daySummary(w, r)
	if !ok {
		return
	}

	rows := [][]string{
		{"secao", "chave", "valor"},
		{"resumo", "data", summary.Date},
		{"resumo", "total_vendido", summary.TotalValue.Decimal().StringFixed(2)},
		{"resumo", "total_lucro", summary.TotalProfit.Decimal().StringFixed(2)},
		{"resumo", "quantidade_vendas", strconv.Itoa(summary.SalesCount)},
		{"resumo", "ticket_medio", summary.AverageTick.Decimal().StringFixed(2)},
	}

	methods := make([]string, 0, len(summary.ByPayment))
	for method := range summary.ByPayment {
		methods = append(methods, method)
	}
	slices.Sort(methods)
	for _, method := range methods {
		rows = append(rows, []string{"pagamento", method, summary.ByPayment[method].Decimal().StringFixed(2)})
	}
	for _, hour := range summary.ByHour {
		rows = append(rows, []string{"hora", fmt.Sprintf("%02d", hour.Hour), strconv.Itoa(hour.Count)})
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dashboard-%s.csv"`, chi.URLParam(r, "data")))
	w.WriteHeader(http.StatusOK)
	writer := csv.NewWriter(w)
	_ = writer.WriteAll(rows)
}

func (a *API) handleFinancialData(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "ano"))
	if err != nil || year < 1 {
		writeDataError(w, http.StatusBadRequest, "ano inválido")
		return
	}
	result, err := a.service.FinancialYear(r.Context(), year)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reconcileRequest struct {
	ID         int64 `json:"id"`
	Reconciled bool  `json:"conferido"`
}

func (a *API) handleSaleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil || req.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "erro": "requisição inválida"})
		return
	}

	err := a.service.SetReconciled(r.Context(), req.ID, req.Reconciled)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "erro": "Venda não encontrada"})
	default:
		writeError(w, statusFor(err), err)
	}
}
