package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"caixa/backend/internal/service"
	"caixa/backend/internal/session"
	"caixa/backend/internal/store"
	"caixa/backend/internal/views"
)

// paymentMethods are offered on the sales page; any other value posted is stored as is.
var paymentMethods = []string{"dinheiro", "pix", "credito", "debito"}

type Options struct {
	AllowedOrigin string
	CookieSecure  bool
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	sessions      session.Store
	views         *views.Renderer
	allowedOrigin string
	cookieSecure  bool
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, sessions session.Store, renderer *views.Renderer, opts Options) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		sessions:      sessions,
		views:         renderer,
		allowedOrigin: opts.AllowedOrigin,
		cookieSecure:  opts.CookieSecure,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour binds the token to one session and one hour bucket
// (Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(sessionID string, hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%s|%d", sessionID, hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken(sessionID string) string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(sessionID, bucket)
}

// validateCSRFToken accepts the current or the previous hour bucket, giving a
// two-hour validity window.
func (a *API) validateCSRFToken(sessionID string, token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(sessionID, currentBucket)
	expected2 := a.csrfTokenForHour(sessionID, prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

// checkCSRF enforces the token on state-changing methods. The token comes from
// the X-CSRF-Token header or the csrf_token form field.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch && r.Method != http.MethodDelete {
		return true
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if token == "" {
		token = strings.TrimSpace(r.PostFormValue("csrf_token"))
	}
	if !a.validateCSRFToken(sessionID, token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}))
	r.Use(limitBody)

	r.Get("/healthz", a.handleHealth)
	r.Get("/login", a.handleLoginPage)
	r.Post("/login", a.handleLogin)
	r.Get("/logout", a.handleLogout)

	r.Group(func(pages chi.Router) {
		pages.Use(a.requireSession(pageMode))

		pages.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		pages.Get("/dashboard", a.handleDashboard)
		pages.Get("/relatorios", a.handleReports)

		pages.Get("/vendas", a.handleSalesPage)
		pages.Post("/carrinho/adicionar", a.handleCartAdd)
		pages.Post("/carrinho/limpar", a.handleCartClear)
		pages.Post("/carrinho/finalizar", a.handleCartFinalize)
		pages.Post("/cancelar_venda", a.handleSaleCancel)
		pages.Post("/editar_venda", a.handleSaleEdit)

		pages.Get("/itens", a.handleItemsPage)
		pages.Post("/itens", a.handleItemsForm)
		pages.Post("/categorias", a.handleCategoryCreate)
		pages.Post("/categorias/excluir", a.handleCategoryDelete)

		pages.Get("/financeiro", a.handleFinancePage)
		pages.Post("/financeiro/cadastrar", a.handleExpenseCreate)
		pages.Post("/financeiro/excluir", a.handleExpenseDelete)
	})

	r.Group(func(data chi.Router) {
		data.Use(a.requireSession(dataMode))

		data.Get("/dados/pagamentos/{mes}", a.handlePaymentsData)
		data.Get("/dados/categorias/{mes}", a.handleCategoriesData)
		data.Get("/dados/top-itens/{mes}", a.handleTopItemsData)
		data.Get("/dados/medias/{mes}", a.handleAveragesData)
		data.Get("/dados/dashboard/{data}", a.handleDashboardData)
		data.Get("/dados/dashboard/{data}/csv", a.handleDashboardCSV)
		data.Get("/financeiro_dados/{ano}", a.handleFinancialData)
		data.Post("/conferir_venda", a.handleSaleReconcile)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		log.Printf("[http] %s %s %d %s req=%s", r.Method, r.URL.Path, ww.Status(), time.Since(startedAt), middleware.GetReqID(r.Context()))
	})
}

func (a *API) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := a.views.Render(&buf, name, data); err != nil {
		log.Printf("[http] render %s failed: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// statusFor maps domain and store errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, service.ErrZeroUnitPrice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("[http] internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
