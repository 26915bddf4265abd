package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"concorda/agreement"
)

// Stats counts what the actors actually committed.
type Stats struct {
	Created  atomic.Int64
	Ratified atomic.Int64
	Closed   atomic.Int64
	Extended atomic.Int64
	Rejected atomic.Int64
	Dropped  atomic.Int64
}

// Env is shared by every actor of one run.
type Env struct {
	Pool    *pgxpool.Pool
	OwnerID string
	Stats   *Stats
	// Tolerant swallows infrastructure errors, for runs with backend chaos.
	Tolerant bool
}

func (e Env) crud() *agreement.CRUDService {
	return agreement.NewCRUDService(agreement.NewRepository(e.Pool), nil, zerolog.Nop())
}

// lifecycle gives every actor its own service so the in-process guard does
// not serialize them and the database does.
func (e Env) lifecycle() *agreement.LifecycleService {
	return agreement.NewLifecycleService(agreement.NewRepository(e.Pool), zerolog.Nop())
}

// classify reports whether err ends the actor.
func (e Env) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, agreement.ErrInvalidTransition),
		errors.Is(err, agreement.ErrTransitionInProgress),
		errors.Is(err, agreement.ErrNotFound):
		e.Stats.Rejected.Add(1)
		return nil
	case e.Tolerant:
		e.Stats.Dropped.Add(1)
		return nil
	default:
		return err
	}
}

func stopped(ctx context.Context, stop <-chan struct{}) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-stop:
		return true, nil
	default:
		return false, nil
	}
}

func pause(minMS, spreadMS int) {
	time.Sleep(time.Duration(minMS+rand.IntN(spreadMS)) * time.Millisecond)
}

// Creator keeps creating two-party agreements.
func Creator(ctx context.Context, env Env, stop <-chan struct{}) error {
	crud := env.crud()
	for i := 0; ; i++ {
		if done, err := stopped(ctx, stop); done {
			return err
		}
		_, err := crud.Create(ctx, env.OwnerID, agreement.CreateParams{
			Title:        fmt.Sprintf("Acordo de carga %d", i),
			Description:  "Quem lava a louça hoje",
			Category:     agreement.CategoryHome,
			Tone:         agreement.ToneNeutral,
			Participants: []string{"Ana", "Beto"},
			Rules:        []string{"Lavar antes de dormir"},
		})
		if err == nil {
			env.Stats.Created.Add(1)
		}
		if err := env.classify(err); err != nil {
			return fmt.Errorf("creator: %w", err)
		}
		pause(10, 20)
	}
}

// Ratifier races other ratifiers to activate waiting agreements.
func Ratifier(ctx context.Context, env Env, stop <-chan struct{}) error {
	crud, life := env.crud(), env.lifecycle()
	for {
		if done, err := stopped(ctx, stop); done {
			return err
		}
		err := func() error {
			waiting, _, err := crud.List(ctx, agreement.ListFilters{
				OwnerID:  env.OwnerID,
				Statuses: []agreement.Status{agreement.StatusWaitingSignatures},
				PageSize: 5,
			})
			if err != nil || len(waiting) == 0 {
				return err
			}
			target := waiting[rand.IntN(len(waiting))]
			sigs := agreement.NewCollector(agreement.FlowRatify, target.Participants)
			for _, p := range target.Participants {
				if err := sigs.Capture(p.ID, Signature); err != nil {
					return err
				}
			}
			if _, err := life.Ratify(ctx, env.OwnerID, target.ID, sigs); err != nil {
				return err
			}
			env.Stats.Ratified.Add(1)
			return nil
		}()
		if err := env.classify(err); err != nil {
			return fmt.Errorf("ratifier: %w", err)
		}
		pause(20, 40)
	}
}

// Closer completes or fails active agreements other than keep.
func Closer(ctx context.Context, env Env, keep string, stop <-chan struct{}) error {
	crud, life := env.crud(), env.lifecycle()
	for {
		if done, err := stopped(ctx, stop); done {
			return err
		}
		err := func() error {
			active, _, err := crud.List(ctx, agreement.ListFilters{
				OwnerID:  env.OwnerID,
				Statuses: []agreement.Status{agreement.StatusActive},
				PageSize: 10,
			})
			if err != nil {
				return err
			}
			for _, target := range active {
				if target.ID == keep {
					continue
				}
				flow, closeFn := agreement.FlowCloseSuccess, life.Complete
				if rand.IntN(2) == 0 {
					flow, closeFn = agreement.FlowCloseFailure, life.Fail
				}
				if _, err := closeFn(ctx, env.OwnerID, target.ID, agreement.NewCollector(flow, target.Participants)); err != nil {
					return err
				}
				env.Stats.Closed.Add(1)
				return nil
			}
			return nil
		}()
		if err := env.classify(err); err != nil {
			return fmt.Errorf("closer: %w", err)
		}
		pause(30, 50)
	}
}

// Extender renews target as fast as it can. Every success is counted so the
// final negotiation count can be checked against it.
func Extender(ctx context.Context, env Env, target string, stop <-chan struct{}) error {
	life := env.lifecycle()
	for i := 0; ; i++ {
		if done, err := stopped(ctx, stop); done {
			return err
		}
		_, err := life.Extend(ctx, env.OwnerID, target, fmt.Sprintf("%d Meses", 1+i%12))
		if err == nil {
			env.Stats.Extended.Add(1)
		}
		if err := env.classify(err); err != nil {
			return fmt.Errorf("extender: %w", err)
		}
		pause(1, 5)
	}
}

// Signature is a minimal valid signature image.
const Signature = agreement.SignatureImage("data:image/png;base64,iVBORw0KGgo=")
