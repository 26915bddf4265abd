package agreement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LifecycleStore is the persistence required by lifecycle transitions.
type LifecycleStore interface {
	Get(ctx context.Context, id string) (Agreement, error)
	Update(ctx context.Context, id string, patch Patch) error
	IncrementNegotiation(ctx context.Context, id, validity string) (int, error)
}

// LifecycleService applies ratification, closure and extension. Each call
// reads the agreement, writes one patch, and returns the re-fetched record;
// callers should not reuse the agreement they held before the call.
type LifecycleService struct {
	store  LifecycleStore
	policy ClosurePolicy
	now    func() time.Time
	log    zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewLifecycleService builds a service with the ClosureAnySubset policy.
func NewLifecycleService(store LifecycleStore, log zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		store:    store,
		policy:   ClosureAnySubset,
		now:      time.Now,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// WithClock overrides the timestamp source.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// WithClosurePolicy sets how many closure signatures Complete and Fail require.
func (s *LifecycleService) WithClosurePolicy(policy ClosurePolicy) *LifecycleService {
	s.policy = policy
	return s
}

// Load returns the owner's agreement as the starting point of a flow.
func (s *LifecycleService) Load(ctx context.Context, ownerID, id string) (Agreement, error) {
	return loadOwned(ctx, s.store, ownerID, id)
}

// Ratify activates a waiting agreement once every participant signed. On any
// error the collector is left as it was so the caller can retry.
func (s *LifecycleService) Ratify(ctx context.Context, ownerID, id string, sigs *Collector) (Agreement, error) {
	release, err := s.acquire(id)
	if err != nil {
		return Agreement{}, err
	}
	defer release()

	a, err := s.Load(ctx, ownerID, id)
	if err != nil {
		return Agreement{}, err
	}
	waiting, err := a.AsWaiting()
	if err != nil {
		return Agreement{}, err
	}
	patch, err := waiting.Ratify(sigs, s.now().UTC())
	if err != nil {
		return Agreement{}, err
	}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return Agreement{}, s.persistFailed(id, string(TransitionRatify), err)
	}

	s.log.Info().Str("agreement_id", id).Int("signatures", len(patch.Ratification)).Msg("agreement ratified")
	return s.store.Get(ctx, id)
}

// Complete closes an active agreement as fulfilled.
func (s *LifecycleService) Complete(ctx context.Context, ownerID, id string, sigs *Collector) (Agreement, error) {
	return s.close(ctx, ownerID, id, OutcomeSuccess, sigs)
}

// Fail closes an active agreement as broken; the penalty applies.
func (s *LifecycleService) Fail(ctx context.Context, ownerID, id string, sigs *Collector) (Agreement, error) {
	return s.close(ctx, ownerID, id, OutcomeFailure, sigs)
}

func (s *LifecycleService) close(ctx context.Context, ownerID, id string, outcome Outcome, sigs *Collector) (Agreement, error) {
	release, err := s.acquire(id)
	if err != nil {
		return Agreement{}, err
	}
	defer release()

	a, err := s.Load(ctx, ownerID, id)
	if err != nil {
		return Agreement{}, err
	}
	active, err := a.AsActive()
	if err != nil {
		return Agreement{}, err
	}
	patch, err := active.Close(outcome, sigs, s.policy, s.now().UTC())
	if err != nil {
		return Agreement{}, err
	}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return Agreement{}, s.persistFailed(id, string(outcome), err)
	}

	s.log.Info().
		Str("agreement_id", id).
		Str("status", string(*patch.Status)).
		Int("signatures", len(patch.Closure)).
		Msg("agreement closed")
	return s.store.Get(ctx, id)
}

// Extend renews an active agreement: validity is replaced and the
// negotiation count goes up by one. The atomic database path is tried first;
// when it is unavailable the count is read, incremented and written back,
// which can lose an update under concurrent extensions of the same agreement.
func (s *LifecycleService) Extend(ctx context.Context, ownerID, id, validity string) (Agreement, error) {
	release, err := s.acquire(id)
	if err != nil {
		return Agreement{}, err
	}
	defer release()

	a, err := s.Load(ctx, ownerID, id)
	if err != nil {
		return Agreement{}, err
	}
	active, err := a.AsActive()
	if err != nil {
		return Agreement{}, err
	}
	patch, err := active.Extend(validity)
	if err != nil {
		return Agreement{}, err
	}

	count, err := s.store.IncrementNegotiation(ctx, id, *patch.Validity)
	switch {
	case err == nil:
	case errors.Is(err, ErrAtomicUnavailable):
		s.log.Warn().Str("agreement_id", id).Msg("atomic negotiation increment unavailable; using read-modify-write")
		if err := s.store.Update(ctx, id, patch); err != nil {
			return Agreement{}, s.persistFailed(id, string(TransitionExtend), err)
		}
		count = *patch.NegotiationCount
	default:
		return Agreement{}, s.persistFailed(id, string(TransitionExtend), err)
	}

	s.log.Info().Str("agreement_id", id).Int("negotiation_count", count).Msg("agreement extended")
	return s.store.Get(ctx, id)
}

// acquire marks id as having a transition in flight.
func (s *LifecycleService) acquire(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, fmt.Errorf("%w: %s", ErrTransitionInProgress, id)
	}
	s.inflight[id] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}, nil
}

func (s *LifecycleService) persistFailed(id, op string, err error) error {
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
		return err
	}
	s.log.Error().Err(err).Str("agreement_id", id).Str("op", op).Msg("transition not applied")
	return fmt.Errorf("agreement: %s %s: %w", op, id, err)
}
