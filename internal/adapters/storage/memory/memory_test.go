package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/confirmations"
	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationRepo_InsertIsUniquePerKey(t *testing.T) {
	repo := NewConfirmationRepo()
	date := clock.NewDate(2025, time.May, 20)
	tod := clock.MustTimeOfDay("08:00")

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, dup := 0, 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Insert(context.Background(), confirmations.Event{
				ID:           fmt.Sprintf("ev-%d", i),
				ElderID:      "elder-1",
				MedicationID: "med-1",
				Date:         date,
				TimeOfDay:    tod,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if err == confirmations.ErrDuplicate {
				dup++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 31, dup)

	items, err := repo.ListByElderDate(context.Background(), "elder-1", date)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAdherenceRepo_UpsertOverwritesAndListsInRange(t *testing.T) {
	repo := NewAdherenceRepo()
	ctx := context.Background()
	d := clock.NewDate(2025, time.May, 20)

	require.NoError(t, repo.Upsert(ctx, adherence.Fact{ElderID: "e1", Date: d, Expected: 2, Missed: 2}))
	require.NoError(t, repo.Upsert(ctx, adherence.Fact{ElderID: "e1", Date: d, Expected: 2, Confirmed: 2}))
	require.NoError(t, repo.Upsert(ctx, adherence.Fact{ElderID: "e1", Date: d.AddDays(-3), Expected: 1}))
	require.NoError(t, repo.Upsert(ctx, adherence.Fact{ElderID: "e1", Date: d.AddDays(2), Expected: 1}))

	f, err := repo.Get(ctx, "e1", d)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Missed)

	items, err := repo.ListByElder(ctx, "e1", d.AddDays(-3), d)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Date.Equal(d.AddDays(-3)))

	_, err = repo.Get(ctx, "e2", d)
	assert.ErrorIs(t, err, adherence.ErrNotFound)
}

func TestReadingRepo_FilterAndVoid(t *testing.T) {
	repo := NewReadingRepo()
	ctx := context.Background()
	base := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	for i, abnormal := range []bool{true, false, true} {
		require.NoError(t, repo.Create(ctx, readings.Record{
			ID:              fmt.Sprintf("r%d", i),
			ElderID:         "e1",
			RecordedAt:      base.Add(time.Duration(i) * time.Hour),
			FlaggedAbnormal: abnormal,
			Status:          readings.StatusActive,
		}))
	}
	assert.ErrorIs(t, repo.Create(ctx, readings.Record{ID: "r0", ElderID: "e1"}), readings.ErrDuplicate)

	to := base.Add(2 * time.Hour)
	items, err := repo.ListByElder(ctx, "e1", readings.ListFilter{From: &base, To: &to, OnlyAbnormal: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r0", items[0].ID)

	require.NoError(t, repo.Void(ctx, "r0"))
	items, err = repo.ListByElder(ctx, "e1", readings.ListFilter{OnlyAbnormal: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r2", items[0].ID)

	items, err = repo.ListByElder(ctx, "e1", readings.ListFilter{IncludeVoided: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
