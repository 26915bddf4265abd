package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concorda/agreement"
	"concorda/tip"
)

type fakeAgreements struct {
	items   []agreement.Agreement
	counts  map[agreement.Status]int
	listErr error
	filters agreement.ListFilters
}

func (f *fakeAgreements) List(_ context.Context, filters agreement.ListFilters) ([]agreement.Agreement, int, error) {
	f.filters = filters
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.items, len(f.items), nil
}

func (f *fakeAgreements) Count(_ context.Context, _ string, status agreement.Status) (int, error) {
	return f.counts[status], nil
}

type tipsFunc func(ctx context.Context) (tip.Tip, error)

func (f tipsFunc) Today(ctx context.Context) (tip.Tip, error) { return f(ctx) }

func TestSummary(t *testing.T) {
	agreements := &fakeAgreements{
		items:  []agreement.Agreement{{ID: "a1", Status: agreement.StatusActive}},
		counts: map[agreement.Status]int{agreement.StatusActive: 1, agreement.StatusCompleted: 4},
	}
	tips := tipsFunc(func(context.Context) (tip.Tip, error) { return tip.Tip{ID: "t1", Title: "Dica"}, nil })

	got, err := NewService(agreements, tips, zerolog.Nop()).Summary(context.Background(), "owner")
	require.NoError(t, err)

	assert.Equal(t, 1, got.Active)
	assert.Equal(t, 4, got.Completed)
	require.Len(t, got.Recent, 1)
	require.NotNil(t, got.Tip)
	assert.Equal(t, "t1", got.Tip.ID)
	assert.Equal(t, RecentLimit, agreements.filters.PageSize)
	assert.Equal(t, []agreement.Status{agreement.StatusActive}, agreements.filters.Statuses)
	assert.Equal(t, "owner", agreements.filters.OwnerID)
}

func TestSummary_TipIsOptional(t *testing.T) {
	agreements := &fakeAgreements{counts: map[agreement.Status]int{}}
	for name, tips := range map[string]Tips{
		"unavailable": tipsFunc(func(context.Context) (tip.Tip, error) { return tip.Tip{}, tip.ErrUnavailable }),
		"broken":      tipsFunc(func(context.Context) (tip.Tip, error) { return tip.Tip{}, errors.New("db down") }),
		"disabled":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := NewService(agreements, tips, zerolog.Nop()).Summary(context.Background(), "owner")
			require.NoError(t, err)
			assert.Nil(t, got.Tip)
		})
	}
}

func TestSummary_AgreementFailure(t *testing.T) {
	boom := errors.New("boom")
	agreements := &fakeAgreements{listErr: boom}
	_, err := NewService(agreements, nil, zerolog.Nop()).Summary(context.Background(), "owner")
	assert.ErrorIs(t, err, boom)
}
