package confirmations

import (
	"context"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test doubles
// -------------------------

type testRepo struct {
	mu    sync.Mutex
	byKey map[doses.Key]Event
}

func newTestRepo() *testRepo {
	return &testRepo{byKey: map[doses.Key]Event{}}
}

func (r *testRepo) Insert(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[e.Key()]; ok {
		return ErrDuplicate
	}
	r.byKey[e.Key()] = e
	return nil
}

func (r *testRepo) GetByKey(ctx context.Context, k doses.Key) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[k]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListByElderDate(ctx context.Context, elderID string, date clock.Date) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0)
	for _, e := range r.byKey {
		if e.ElderID == elderID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubMeds map[string]medications.Medication

func (s stubMeds) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	m, ok := s[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

var ict = time.FixedZone("ICT", 7*3600)

var dayN = clock.NewDate(2025, time.June, 10)

func fixture(now time.Time) (*Service, *testRepo) {
	meds := stubMeds{
		"med-1": {
			ID:         "med-1",
			ElderID:    "elder-1",
			Name:       "Metformin",
			DosageText: "500mg",
			TimesOfDay: []clock.TimeOfDay{clock.MustTimeOfDay("08:00"), clock.MustTimeOfDay("20:00")},
			StartDate:  dayN.AddDays(-10),
			CreatedAt:  dayN.AddDays(-10).Start(ict),
		},
	}
	repo := newTestRepo()
	return NewService(repo, meds, clock.Fixed(ict, now)), repo
}

func localAt(d clock.Date, hh, mm int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hh, mm, 0, 0, ict)
}

// -------------------------
// Tests
// -------------------------

func TestService_Confirm_AcceptedThenAlreadyConfirmed(t *testing.T) {
	svc, _ := fixture(localAt(dayN, 8, 5))
	in := ConfirmInput{ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00")}

	first, err := svc.Confirm(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, first.Outcome)
	assert.Equal(t, dayN, first.Event.Date)
	assert.Equal(t, "elder-1", first.Event.ActorID)

	second, err := svc.Confirm(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, second.Outcome)
	assert.Equal(t, first.Event.ID, second.Event.ID)
}

func TestService_Confirm_ConcurrentRace_ExactlyOneAccepted(t *testing.T) {
	svc, repo := fixture(localAt(dayN, 8, 5))
	in := ConfirmInput{ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00")}

	const n = 16
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.Confirm(context.Background(), in)
		}(i)
	}
	close(start)
	wg.Wait()

	accepted, already := 0, 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		switch results[i].Outcome {
		case OutcomeAccepted:
			accepted++
		case OutcomeAlreadyConfirmed:
			already++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, already)
	assert.Len(t, repo.byKey, 1)
}

func TestService_Confirm_LockedBeforeScheduledTime(t *testing.T) {
	svc, repo := fixture(localAt(dayN, 7, 59))

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00"),
	})
	assert.ErrorIs(t, err, ErrDoseLocked)
	assert.Empty(t, repo.byKey)
}

func TestService_Confirm_MissedDayIsOutOfWindow(t *testing.T) {
	// día N sin confirmar; al día siguiente ya no se puede
	svc, repo := fixture(localAt(dayN.AddDays(1), 9, 0))

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("20:00"), Date: dayN,
	})
	assert.ErrorIs(t, err, ErrOutOfWindow)
	assert.Empty(t, repo.byKey)

	_, err = svc.Confirm(context.Background(), ConfirmInput{
		ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00"), Date: dayN.AddDays(2),
	})
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestService_Confirm_UnknownInstance(t *testing.T) {
	svc, _ := fixture(localAt(dayN, 21, 0))

	cases := []ConfirmInput{
		{ElderID: "elder-1", MedicationID: "nope", TimeOfDay: clock.MustTimeOfDay("08:00")},
		{ElderID: "elder-2", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00")},
		{ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("09:00")},
	}
	for _, in := range cases {
		_, err := svc.Confirm(context.Background(), in)
		assert.ErrorIs(t, err, ErrNotFound, "input %+v", in)
	}

	_, err := svc.Confirm(context.Background(), ConfirmInput{MedicationID: "med-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Backfill(t *testing.T) {
	svc, _ := fixture(localAt(dayN.AddDays(1), 9, 0))

	res, err := svc.Backfill(context.Background(), BackfillInput{
		ElderID: "elder-1", ActorID: "admin-1", MedicationID: "med-1", Date: dayN, TimeOfDay: clock.MustTimeOfDay("20:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.True(t, res.Event.Backfilled)

	set, err := svc.ConfirmedOn(context.Background(), "elder-1", dayN)
	require.NoError(t, err)
	_, ok := set.ConfirmedAt(doses.Key{MedicationID: "med-1", Date: dayN, TimeOfDay: clock.MustTimeOfDay("20:00")})
	assert.True(t, ok)

	_, err = svc.Backfill(context.Background(), BackfillInput{
		ElderID: "elder-1", ActorID: "admin-1", MedicationID: "med-1", Date: dayN.AddDays(2), TimeOfDay: clock.MustTimeOfDay("08:00"),
	})
	assert.ErrorIs(t, err, ErrFutureDate)

	_, err = svc.Backfill(context.Background(), BackfillInput{
		ElderID: "elder-1", ActorID: "admin-1", MedicationID: "med-1", Date: dayN.AddDays(1), TimeOfDay: clock.MustTimeOfDay("20:00"),
	})
	assert.ErrorIs(t, err, ErrDoseLocked)
}

func TestService_Confirm_AlreadyConfirmedSurvivesDeactivation(t *testing.T) {
	meds := stubMeds{}
	repo := newTestRepo()
	clk := clock.Fixed(ict, localAt(dayN, 8, 5))
	svc := NewService(repo, meds, clk)

	med := medications.Medication{
		ID:         "med-1",
		ElderID:    "elder-1",
		Name:       "Metformin",
		TimesOfDay: []clock.TimeOfDay{clock.MustTimeOfDay("08:00"), clock.MustTimeOfDay("20:00")},
		StartDate:  dayN.AddDays(-3),
		CreatedAt:  dayN.AddDays(-3).Start(ict),
	}
	meds["med-1"] = med

	in := ConfirmInput{ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00")}
	first, err := svc.Confirm(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, first.Outcome)

	// baja a las 09:00 y además el horario de 08:00 ya no existiría hoy
	deactivatedAt := localAt(dayN, 9, 0)
	med.DeactivatedAt = &deactivatedAt
	med.TimesOfDay = []clock.TimeOfDay{clock.MustTimeOfDay("21:00")}
	meds["med-1"] = med

	clk.Set(func() time.Time { return localAt(dayN, 21, 30) })

	again, err := svc.Confirm(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, again.Outcome)
	assert.Equal(t, first.Event.ID, again.Event.ID)

	// la de 20:00 ya no se genera después de la baja
	_, err = svc.Confirm(context.Background(), ConfirmInput{ElderID: "elder-1", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("20:00")})
	assert.ErrorIs(t, err, ErrNotFound)

	// otro adulto mayor no ve la confirmación ajena
	_, err = svc.Confirm(context.Background(), ConfirmInput{ElderID: "elder-2", MedicationID: "med-1", TimeOfDay: clock.MustTimeOfDay("08:00")})
	assert.ErrorIs(t, err, ErrNotFound)
}
