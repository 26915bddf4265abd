package test

import (
	"context"
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"concorda/agreement"
	"concorda/test/actors"
	"concorda/test/chaos"
	"concorda/test/infra"
	"concorda/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 20*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 4, "number of concurrent actors per role")
	flChaos       = flag.Bool("chaos", false, "terminate random backends while running")
)

func TestAgreementLifecycleConcurrency(t *testing.T) {
	h := infra.NewHarness(t)
	pool := h.Pool()

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	ownerID, err := h.SeedUser(ctx)
	if err != nil {
		t.Fatalf("%v", err)
	}
	target := mustActiveAgreement(t, ctx, pool, ownerID)

	stats := &actors.Stats{}
	env := actors.Env{Pool: pool, OwnerID: ownerID, Stats: stats, Tolerant: *flChaos}

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Creator(ctx2, env, stop) })
		g.Go(func() error { return actors.Ratifier(ctx2, env, stop) })
		g.Go(func() error { return actors.Closer(ctx2, env, target, stop) })
		g.Go(func() error { return actors.Extender(ctx2, env, target, stop) })
	}
	if *flChaos {
		go chaos.TerminateRandomBackend(ctx2, pool, 2*time.Second, stop)
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx2.Done():
			break loop
		case <-ticker.C:
			if failed := checkOracles(t, ctx2, pool); failed {
				break loop
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("actors errored: %v", err)
	}
	checkOracles(t, ctx, pool)

	count, err := oracles.NegotiationCount(ctx, pool, target)
	if err != nil {
		t.Fatalf("%v", err)
	}
	extended := int(stats.Extended.Load())
	switch {
	case *flChaos && count < extended:
		t.Fatalf("negotiation count %d below %d acknowledged renewals", count, extended)
	case !*flChaos && count != extended:
		t.Fatalf("negotiation count %d, want %d acknowledged renewals", count, extended)
	}
	t.Logf("created=%d ratified=%d closed=%d extended=%d rejected=%d dropped=%d",
		stats.Created.Load(), stats.Ratified.Load(), stats.Closed.Load(),
		extended, stats.Rejected.Load(), stats.Dropped.Load())
}

func checkOracles(t *testing.T, ctx context.Context, pool *pgxpool.Pool) bool {
	t.Helper()
	name, row, err := oracles.Run(ctx, pool)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		t.Errorf("oracle error: %v", err)
		return true
	}
	if name != "" {
		t.Errorf("oracle %s failed. First row: %s", name, row)
		return true
	}
	return false
}

func mustActiveAgreement(t *testing.T, ctx context.Context, pool *pgxpool.Pool, ownerID string) string {
	t.Helper()
	repo := agreement.NewRepository(pool)
	crud := agreement.NewCRUDService(repo, nil, zerolog.Nop())
	life := agreement.NewLifecycleService(repo, zerolog.Nop())

	a, err := crud.Create(ctx, ownerID, agreement.CreateParams{
		Title:        "Alvo das renovações",
		Description:  "Rodízio do carro",
		Category:     agreement.CategoryFamily,
		Tone:         agreement.ToneFun,
		Participants: []string{"Ana", "Beto", "Caio"},
	})
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	sigs := agreement.NewCollector(agreement.FlowRatify, a.Participants)
	for _, p := range a.Participants {
		if err := sigs.Capture(p.ID, actors.Signature); err != nil {
			t.Fatalf("capture: %v", err)
		}
	}
	if _, err := life.Ratify(ctx, ownerID, a.ID, sigs); err != nil {
		t.Fatalf("ratify target: %v", err)
	}
	return a.ID
}
