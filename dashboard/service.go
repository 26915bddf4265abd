// Package dashboard assembles the home screen summary.
package dashboard

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"concorda/agreement"
	"concorda/tip"
)

// RecentLimit is how many active agreements the summary shows.
const RecentLimit = 5

// Agreements is the agreement access needed by the summary.
type Agreements interface {
	List(ctx context.Context, filters agreement.ListFilters) ([]agreement.Agreement, int, error)
	Count(ctx context.Context, ownerID string, status agreement.Status) (int, error)
}

// Tips provides today's tip.
type Tips interface {
	Today(ctx context.Context) (tip.Tip, error)
}

// Summary is the dashboard payload.
type Summary struct {
	Recent    []agreement.Agreement
	Active    int
	Completed int
	Tip       *tip.Tip
}

// Service builds summaries.
type Service struct {
	agreements Agreements
	tips       Tips
	log        zerolog.Logger
}

// NewService constructs a dashboard service. tips may be nil.
func NewService(agreements Agreements, tips Tips, log zerolog.Logger) *Service {
	return &Service{agreements: agreements, tips: tips, log: log}
}

// Summary loads the owner's dashboard. Agreement lookups run concurrently and
// any of their failures fails the summary; the tip is best effort.
func (s *Service) Summary(ctx context.Context, ownerID string) (Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, _, err := s.agreements.List(gctx, agreement.ListFilters{
			OwnerID:  ownerID,
			Statuses: []agreement.Status{agreement.StatusActive},
			PageSize: RecentLimit,
		})
		out.Recent = items
		return err
	})
	g.Go(func() error {
		n, err := s.agreements.Count(gctx, ownerID, agreement.StatusActive)
		out.Active = n
		return err
	})
	g.Go(func() error {
		n, err := s.agreements.Count(gctx, ownerID, agreement.StatusCompleted)
		out.Completed = n
		return err
	})

	if s.tips != nil {
		g.Go(func() error {
			t, err := s.tips.Today(gctx)
			if err != nil {
				if !errors.Is(err, tip.ErrUnavailable) && gctx.Err() == nil {
					s.log.Warn().Err(err).Msg("dashboard tip lookup failed")
				}
				return nil
			}
			out.Tip = &t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
