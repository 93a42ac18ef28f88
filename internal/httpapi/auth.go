package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
}

type UserStore interface {
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	SessionID string `json:"sid"`
}

// SessionToken is what the session cookie carries once parsed.
type SessionToken struct {
	Username  string
	SessionID string
	ExpiresAt time.Time
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

func (a *AuthManager) TTL() time.Duration {
	return a.tokenTTL
}

// Authenticate checks the password against the stored bcrypt hash. Rows that
// still hold a plain-text password are accepted once and rewritten as bcrypt.
func (a *AuthManager) Authenticate(ctx context.Context, req domain.LoginRequest) (domain.Actor, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return domain.Actor{}, errInvalidCredentials
	}

	user, err := a.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, errInvalidCredentials
		}
		return domain.Actor{}, err
	}

	if isPasswordHash(user.Password) {
		if !verifyPassword(user.Password, req.Password) {
			return domain.Actor{}, errInvalidCredentials
		}
		return domain.Actor{Username: user.Username}, nil
	}

	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(req.Password)) != 1 {
		return domain.Actor{}, errInvalidCredentials
	}
	if hashed, err := hashPassword(req.Password); err == nil {
		if err := a.users.UpdateUserPassword(ctx, user.Username, hashed); err != nil {
			log.Printf("[auth] WARN: failed to upgrade legacy password user=%s: %v", user.Username, err)
		}
	}
	return domain.Actor{Username: user.Username}, nil
}

// IssueSession signs a cookie token for a fresh session id.
func (a *AuthManager) IssueSession(username string) (string, SessionToken, error) {
	session := SessionToken{
		Username:  username,
		SessionID: uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(a.tokenTTL),
	}
	token, err := a.sign(session)
	if err != nil {
		return "", SessionToken{}, err
	}
	return token, session, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (SessionToken, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return SessionToken{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.SessionID == "" {
		return SessionToken{}, errors.New("invalid token subject")
	}

	parsed := SessionToken{Username: sub, SessionID: claims.SessionID}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}

func (a *AuthManager) sign(session SessionToken) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   session.Username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(session.ExpiresAt),
			Issuer:    "caixa",
		},
		SessionID: session.SessionID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
