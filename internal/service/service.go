package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"caixa/backend/internal/domain"
	"caixa/backend/internal/store"
)

const (
	DefaultTimezone      = "America/Sao_Paulo"
	DefaultPaymentMethod = "dinheiro"

	FormDateLayout = "02/01/2006"
	ISODateLayout  = "2006-01-02"

	topItemsLimit = 10
)

var (
	ErrEmptyCart   = fmt.Errorf("cart is empty: %w", store.ErrInvalidInput)
	ErrFutureSale  = fmt.Errorf("sale date is in the future: %w", store.ErrInvalidInput)
	ErrInvalidDate = fmt.Errorf("invalid date: %w", store.ErrInvalidInput)
	// ErrZeroUnitPrice is returned when a quantity has to be derived from a
	// target value and the item sells for zero.
	ErrZeroUnitPrice = errors.New("item unit price is zero")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo store.Repository
	loc  *time.Location
	now  func() time.Time
}

func New(repo store.Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// LoadLocation resolves the business time zone, falling back to America/Sao_Paulo.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Today is the current calendar day in the business zone, at local midnight.
func (s *Service) Today() time.Time {
	return startOfDay(s.now().In(s.loc))
}

func (s *Service) CurrentYear() int {
	return s.now().In(s.loc).Year()
}

func (s *Service) parseDay(layout string, value string) (time.Time, error) {
	day, err := time.ParseInLocation(layout, strings.TrimSpace(value), s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

func (s *Service) dayPeriod(day time.Time) domain.Period {
	from := startOfDay(day.In(s.loc))
	return domain.Period{
		From:     from.UTC(),
		To:       from.AddDate(0, 0, 1).UTC(),
		Location: s.loc,
	}
}

func (s *Service) monthPeriod(year int, month int) (domain.Period, error) {
	if month < 1 || month > 12 {
		return domain.Period{}, fmt.Errorf("month %d: %w", month, store.ErrInvalidInput)
	}
	if year == 0 {
		return domain.Period{Month: time.Month(month), Location: s.loc}, nil
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	return domain.Period{
		From:     from.UTC(),
		To:       from.AddDate(0, 1, 0).UTC(),
		Location: s.loc,
	}, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entity string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system"}
	}
	log.Printf("[service] %s entity=%s actor=%s %s", action, entity, actor.Username, detail)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
