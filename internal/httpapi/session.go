package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/service"
	"caixa/backend/internal/views"
)

const sessionCookieName = "caixa_session"

type authMode int

const (
	// pageMode redirects anonymous browsers to the login form.
	pageMode authMode = iota
	// dataMode answers 401 JSON so fetch callers can react.
	dataMode
)

type requestSession struct {
	id        string
	expiresAt time.Time
	state     domain.SessionState
}

type sessionKey struct{}

func sessionFromContext(ctx context.Context) *requestSession {
	sess, _ := ctx.Value(sessionKey{}).(*requestSession)
	return sess
}

func (a *API) requireSession(mode authMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := a.loadSession(r)
			if err != nil {
				if mode == dataMode {
					writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !a.checkCSRF(w, r, sess.id) {
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			ctx = service.WithActor(ctx, domain.Actor{Username: sess.state.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *API) loadSession(r *http.Request) (*requestSession, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, errors.New("missing session cookie")
	}
	token, err := a.auth.ParseToken(cookie.Value)
	if err != nil {
		return nil, err
	}
	state, ok, err := a.sessions.Load(r.Context(), token.SessionID)
	if err != nil {
		log.Printf("[session] WARN: load sid=%s failed: %v", token.SessionID, err)
		return nil, err
	}
	if !ok || state.Username != token.Username {
		return nil, errors.New("session not found")
	}
	return &requestSession{id: token.SessionID, expiresAt: token.ExpiresAt, state: state}, nil
}

// saveSession writes the request's session back with the remaining cookie lifetime.
func (a *API) saveSession(r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		return
	}
	ttl := time.Until(sess.expiresAt)
	if sess.expiresAt.IsZero() || ttl <= 0 {
		ttl = a.auth.TTL()
	}
	if err := a.sessions.Save(r.Context(), sess.id, sess.state, ttl); err != nil {
		log.Printf("[session] WARN: save sid=%s failed: %v", sess.id, err)
	}
}

func (a *API) addFlash(r *http.Request, kind string, message string) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		return
	}
	sess.state.Flashes = append(sess.state.Flashes, domain.Flash{Kind: kind, Message: message})
}

// redirectWithFlash queues one message and sends the browser back with 303.
func (a *API) redirectWithFlash(w http.ResponseWriter, r *http.Request, target string, kind string, message string) {
	a.addFlash(r, kind, message)
	a.saveSession(r)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (a *API) cart(r *http.Request) domain.Cart {
	if sess := sessionFromContext(r.Context()); sess != nil {
		return sess.state.Cart
	}
	return nil
}

func (a *API) setCart(r *http.Request, cart domain.Cart) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		sess.state.Cart = cart
	}
}

// base pops pending flashes into the page chrome.
func (a *API) base(r *http.Request, title string, active string) views.Base {
	b := views.Base{Title: title, Active: active}
	sess := sessionFromContext(r.Context())
	if sess == nil {
		return b
	}
	b.Username = sess.state.Username
	b.CSRFToken = a.generateCSRFToken(sess.id)
	if len(sess.state.Flashes) > 0 {
		b.Flashes = sess.state.Flashes
		sess.state.Flashes = nil
		a.saveSession(r)
	}
	return b
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
