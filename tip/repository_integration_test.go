package tip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concorda/test/infra"
)

func TestRepository_Integration(t *testing.T) {
	h := infra.NewHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := NewRepository(h.Pool())
	day := time.Date(2025, 5, 10, 22, 30, 0, 0, time.UTC)

	_, err := repo.GetByDate(ctx, day)
	require.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	gen := &fakeGenerator{draft: sampleDraft()}
	svc := NewService(repo, gen, zerolog.Nop()).WithClock(func() time.Time { return day })

	first, err := svc.Today(ctx)
	require.NoError(t, err)
	second, err := svc.Today(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), gen.calls.Load())
	assert.Equal(t, Day(day), first.DisplayDate.UTC())
	assert.Len(t, first.Content.Steps, len(sampleDraft().Content.Steps))

	created, err := repo.Insert(ctx, Tip{Title: "late", Category: "x", DisplayDate: day})
	require.NoError(t, err)
	assert.False(t, created, "second tip for the same day must not be stored")

	items, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.Title, items[0].Title)
}
