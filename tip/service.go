package tip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable signals that no tip could be produced for today.
var ErrUnavailable = errors.New("tip: unavailable")

// Store is the persistence used by Service.
type Store interface {
	GetByDate(ctx context.Context, day time.Time) (Tip, error)
	Insert(ctx context.Context, t Tip) (bool, error)
	List(ctx context.Context, limit int) ([]Tip, error)
}

// Generator drafts a new tip.
type Generator interface {
	DailyTip(ctx context.Context) (Draft, error)
}

// Service returns one tip per calendar day, generating it on first request.
type Service struct {
	store     Store
	generator Generator
	now       func() time.Time
	log       zerolog.Logger
	group     singleflight.Group

	generateTimeout time.Duration
}

// DefaultGenerateTimeout bounds one shared tip generation.
const DefaultGenerateTimeout = 30 * time.Second

// NewService builds the service. A nil generator only serves stored tips.
func NewService(store Store, generator Generator, log zerolog.Logger) *Service {
	return &Service{
		store:           store,
		generator:       generator,
		now:             time.Now,
		log:             log,
		generateTimeout: DefaultGenerateTimeout,
	}
}

// WithClock overrides the clock that decides what "today" is.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithGenerateTimeout overrides how long a shared generation may run.
func (s *Service) WithGenerateTimeout(d time.Duration) *Service {
	if d > 0 {
		s.generateTimeout = d
	}
	return s
}

// Today returns today's tip. Concurrent callers share one generation, and a
// tip stored by another process wins over a freshly generated one.
func (s *Service) Today(ctx context.Context) (Tip, error) {
	day := Day(s.now())

	t, err := s.store.GetByDate(ctx, day)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Tip{}, err
	}

	// The shared generation must outlive any single caller; each caller
	// still stops waiting when its own context ends.
	ch := s.group.DoChan(day.Format(time.DateOnly), func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generateTimeout)
		defer cancel()
		return s.generate(genCtx, day)
	})
	select {
	case <-ctx.Done():
		return Tip{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Tip{}, res.Err
		}
		return res.Val.(Tip), nil
	}
}

func (s *Service) generate(ctx context.Context, day time.Time) (Tip, error) {
	if s.generator == nil {
		return Tip{}, fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}
	draft, err := s.generator.DailyTip(ctx)
	if err != nil {
		s.log.Warn().Err(err).Time("day", day).Msg("daily tip generation failed")
		return Tip{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !draft.usable() {
		return Tip{}, fmt.Errorf("%w: empty draft", ErrUnavailable)
	}

	created, err := s.store.Insert(ctx, Tip{
		Title:       draft.Title,
		Category:    draft.Category,
		Content:     draft.Content,
		DisplayDate: day,
	})
	if err != nil {
		return Tip{}, err
	}
	if !created {
		s.log.Debug().Time("day", day).Msg("daily tip stored concurrently; using existing row")
	}
	return s.store.GetByDate(ctx, day)
}

// List returns past tips, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Tip, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return s.store.List(ctx, limit)
}
