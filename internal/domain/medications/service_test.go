package medications

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"medication-adherence/internal/platform/clock"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Medication
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medication{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) ListByElder(ctx context.Context, elderID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.ElderID == elderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) ListElderIDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, m := range r.byID {
		seen[m.ElderID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func validInput() CreateInput {
	return CreateInput{
		ElderID:         "elder-1",
		Name:            "Metformin",
		DosageText:      "500mg, 1 tablet",
		MealInstruction: MealAfter,
		TimesOfDay:      []string{"20:00", "08:00"},
		StartDate:       clock.NewDate(2025, time.March, 1),
	}
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_SortsTimesAndStampsActor(t *testing.T) {
	svc := NewService(newTestRepo())
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(m.TimesOfDay) != 2 || m.TimesOfDay[0].String() != "08:00" || m.TimesOfDay[1].String() != "20:00" {
		t.Fatalf("expected sorted times [08:00 20:00], got %v", m.TimesOfDay)
	}
	if m.CreatedBy != "caregiver-1" || m.CreatedAt != now || m.IsDeactivated() {
		t.Fatalf("unexpected metadata: %#v", m)
	}
}

func TestService_Create_ValidationFailures(t *testing.T) {
	end := clock.NewDate(2025, time.February, 1)

	cases := []struct {
		name  string
		mut   func(*CreateInput)
		field string
	}{
		{"empty times", func(in *CreateInput) { in.TimesOfDay = []string{} }, "times_of_day"},
		{"nil times", func(in *CreateInput) { in.TimesOfDay = nil }, "times_of_day"},
		{"duplicate times", func(in *CreateInput) { in.TimesOfDay = []string{"08:00", " 08:00"} }, "times_of_day"},
		{"malformed time", func(in *CreateInput) { in.TimesOfDay = []string{"25:00"} }, "times_of_day"},
		{"missing dosage", func(in *CreateInput) { in.DosageText = "   " }, "dosage_text"},
		{"missing name", func(in *CreateInput) { in.Name = "" }, "name"},
		{"bad meal", func(in *CreateInput) { in.MealInstruction = "sometimes" }, "meal_instruction"},
		{"end before start", func(in *CreateInput) { in.EndDate = &end }, "end_date"},
		{"missing start", func(in *CreateInput) { in.StartDate = clock.Date{} }, "start_date"},
		{"bad image url", func(in *CreateInput) { in.ImageRef = "not a url" }, "image_url"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			repo := newTestRepo()
			svc := NewService(repo)

			in := validInput()
			c.mut(&in)

			_, err := svc.Create(context.Background(), "caregiver-1", in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := verr.Fields[c.field]; !ok {
				t.Fatalf("expected field %q in %v", c.field, verr.Fields)
			}
			if len(repo.byID) != 0 {
				t.Fatalf("nothing should be stored on validation failure")
			}
		})
	}
}

func TestService_Create_EndDateEqualStartIsValid(t *testing.T) {
	svc := NewService(newTestRepo())
	in := validInput()
	end := in.StartDate
	in.EndDate = &end

	if _, err := svc.Create(context.Background(), "caregiver-1", in); err != nil {
		t.Fatalf("single-day regimen should be valid: %v", err)
	}
}

func TestService_Update_EndDateYesterday_RemovesTodayInstances(t *testing.T) {
	loc := time.UTC
	svc := NewService(newTestRepo())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 1, 0, 0, 0, loc) }

	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	today := clock.NewDate(2025, time.March, 10)
	yesterday := today.AddDays(-1)
	if !m.ActiveOn(today, loc) {
		t.Fatalf("expected active today before update")
	}

	updated, err := svc.Update(context.Background(), m.ID, UpdateInput{EndDate: &yesterday})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.ActiveOn(today, loc) {
		t.Fatalf("expected no instances today after endDate=yesterday")
	}
	if !updated.ActiveOn(yesterday, loc) {
		t.Fatalf("expected yesterday still active (inclusive end)")
	}
}

func TestService_Update_RevalidatesMergedDefinition(t *testing.T) {
	svc := NewService(newTestRepo())
	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	before := clock.NewDate(2025, time.January, 1)
	if _, err := svc.Update(context.Background(), m.ID, UpdateInput{EndDate: &before}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for end < start, got %v", err)
	}
	if _, err := svc.Update(context.Background(), m.ID, UpdateInput{TimesOfDay: []string{}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty times, got %v", err)
	}

	end := clock.NewDate(2025, time.April, 1)
	withEnd, err := svc.Update(context.Background(), m.ID, UpdateInput{EndDate: &end})
	if err != nil || withEnd.EndDate == nil {
		t.Fatalf("expected end date set, got %v / %v", withEnd.EndDate, err)
	}
	cleared, err := svc.Update(context.Background(), m.ID, UpdateInput{ClearEndDate: true})
	if err != nil || cleared.EndDate != nil {
		t.Fatalf("expected end date cleared, got %v / %v", cleared.EndDate, err)
	}
}

func TestService_Deactivate_IdempotentAndStopsFutureInstances(t *testing.T) {
	loc := time.UTC
	svc := NewService(newTestRepo())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 1, 0, 0, 0, loc) }

	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	deactivatedAt := time.Date(2025, 3, 5, 9, 0, 0, 0, loc)
	svc.now = func() time.Time { return deactivatedAt }

	d1, err := svc.Deactivate(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	svc.now = func() time.Time { return deactivatedAt.Add(time.Hour) }
	d2, err := svc.Deactivate(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Deactivate #2 error: %v", err)
	}
	if !d2.DeactivatedAt.Equal(*d1.DeactivatedAt) {
		t.Fatalf("expected idempotent deactivation timestamp")
	}

	if got := d1.DosesOn(clock.NewDate(2025, 3, 4), loc); len(got) != 2 {
		t.Fatalf("expected history before deactivation to remain, got %v", got)
	}
	// 09:00: la toma de 08:00 ya ocurrió y se conserva, la de 20:00 no
	if got := d1.DosesOn(clock.NewDate(2025, 3, 5), loc); len(got) != 1 || got[0].String() != "08:00" {
		t.Fatalf("expected only 08:00 on deactivation day, got %v", got)
	}
	if !d1.HasDoseAt(clock.NewDate(2025, 3, 5), clock.MustTimeOfDay("08:00"), loc) {
		t.Fatalf("expected 08:00 still a dose on deactivation day")
	}
	if got := d1.DosesOn(clock.NewDate(2025, 3, 6), loc); len(got) != 0 {
		t.Fatalf("expected no instances after deactivation day, got %v", got)
	}

	if _, err := svc.Update(context.Background(), m.ID, UpdateInput{}); !errors.Is(err, ErrDeactivated) {
		t.Fatalf("expected ErrDeactivated on update, got %v", err)
	}

	active, _ := svc.ListByElder(context.Background(), "elder-1", false)
	all, _ := svc.ListByElder(context.Background(), "elder-1", true)
	if len(active) != 0 || len(all) != 1 {
		t.Fatalf("expected 0 active / 1 total, got %d / %d", len(active), len(all))
	}
}

func TestMedication_ActiveOn_NoInstancesBeforeCreationDay(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	m := Medication{
		StartDate: clock.NewDate(2025, 1, 1),
		// 18:00 UTC = 01:00 del día siguiente en ICT
		CreatedAt: time.Date(2025, 1, 9, 18, 0, 0, 0, time.UTC),
	}

	if m.ActiveOn(clock.NewDate(2025, 1, 9), loc) {
		t.Fatalf("expected inactive before local creation day")
	}
	if !m.ActiveOn(clock.NewDate(2025, 1, 10), loc) {
		t.Fatalf("expected active on local creation day")
	}
}

func TestService_Update_TimesApplyOnlyToFutureDoses(t *testing.T) {
	loc := time.UTC
	svc := NewService(newTestRepo())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 1, 0, 0, 0, loc) }

	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	day1 := clock.NewDate(2025, time.March, 4)
	day2 := day1.AddDays(1)

	// edición el día 2 a las 10:00
	svc.now = func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, loc) }
	updated, err := svc.Update(context.Background(), m.ID, UpdateInput{TimesOfDay: []string{"09:00"}})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(updated.PastSchedules) != 1 {
		t.Fatalf("expected previous schedule kept, got %#v", updated.PastSchedules)
	}

	if got := timesString(updated.DosesOn(day1, loc)); got != "08:00,20:00" {
		t.Fatalf("expected day 1 untouched, got %s", got)
	}
	// 08:00 ya ocurrió con el horario viejo; 09:00 era pasado al editar; 20:00 ya no rige
	if got := timesString(updated.DosesOn(day2, loc)); got != "08:00" {
		t.Fatalf("expected only 08:00 on edit day, got %s", got)
	}
	if got := timesString(updated.DosesOn(day2.AddDays(1), loc)); got != "09:00" {
		t.Fatalf("expected new schedule after edit day, got %s", got)
	}

	// otra edición con los mismos horarios no agrega versión
	same, err := svc.Update(context.Background(), m.ID, UpdateInput{TimesOfDay: []string{"09:00"}})
	if err != nil || len(same.PastSchedules) != 1 {
		t.Fatalf("expected no new version for identical times, got %d / %v", len(same.PastSchedules), err)
	}
}

func TestService_Update_RejectsChangesOverElapsedDates(t *testing.T) {
	loc := time.UTC
	svc := NewService(newTestRepo())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 1, 0, 0, 0, loc) }

	m, err := svc.Create(context.Background(), "caregiver-1", validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, loc) }

	later := clock.NewDate(2025, time.March, 5)
	earlyEnd := clock.NewDate(2025, time.March, 3)
	cases := []struct {
		name  string
		in    UpdateInput
		field string
	}{
		{"start moved over elapsed dates", UpdateInput{StartDate: &later}, "start_date"},
		{"end moved into the past", UpdateInput{EndDate: &earlyEnd}, "end_date"},
	}
	for _, c := range cases {
		_, err := svc.Update(context.Background(), m.ID, c.in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected *ValidationError, got %v", c.name, err)
		}
		if verr.Fields[c.field] != "elapsed_dates" {
			t.Fatalf("%s: expected %s=elapsed_dates, got %v", c.name, c.field, verr.Fields)
		}
	}

	// ampliar hacia el futuro sí se acepta
	future := clock.NewDate(2025, time.March, 17)
	updated, err := svc.Update(context.Background(), m.ID, UpdateInput{EndDate: &future})
	if err != nil {
		t.Fatalf("expected future end date accepted, got %v", err)
	}
	if !updated.ActiveOn(clock.NewDate(2025, 3, 13), loc) || updated.ActiveOn(clock.NewDate(2025, 3, 18), loc) {
		t.Fatalf("expected instances through the new end date only")
	}
}

func timesString(times []clock.TimeOfDay) string {
	out := ""
	for i, t := range times {
		if i > 0 {
			out += ","
		}
		out += t.String()
	}
	return out
}
