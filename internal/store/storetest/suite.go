package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prodtrack/jornada/internal/calday"
	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	operatorID := "op-" + uuid.New().String()
	day := calday.MustParse("2025-06-14")

	// Activities: create / get
	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	a, err := s.Activities().Create(ctx, &model.Activity{
		OperatorID:      operatorID,
		Day:             day.Time(),
		Start:           &start,
		End:             &end,
		DurationMinutes: 120,
		WorkOrder:       "OTI-100",
		Process:         "cut",
		Machine:         "M1",
		Supplies:        []string{"blade"},
	})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if a.ActivityID == "" {
		t.Fatalf("CreateActivity: empty id")
	}
	got, err := s.Activities().Get(ctx, a.ActivityID)
	if err != nil || got.WorkOrder != "OTI-100" || got.DurationMinutes != 120 {
		t.Fatalf("GetActivity: got=%+v err=%v", got, err)
	}
	if _, err := s.Activities().Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetActivity missing: want ErrNotFound, got %v", err)
	}

	// Activities: update
	got.DurationMinutes = 90
	got.JornadaID = "j-temp"
	if _, err := s.Activities().Update(ctx, got); err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}
	if again, err := s.Activities().Get(ctx, a.ActivityID); err != nil || again.DurationMinutes != 90 || again.JornadaID != "j-temp" {
		t.Fatalf("GetActivity after update: got=%+v err=%v", again, err)
	}

	// Activities: ListByIDs ignores missing ids
	b, err := s.Activities().Create(ctx, &model.Activity{OperatorID: operatorID, Day: day.Time(), DurationMinutes: 30})
	if err != nil {
		t.Fatalf("CreateActivity b: %v", err)
	}
	lst, err := s.Activities().ListByIDs(ctx, []string{a.ActivityID, "missing", b.ActivityID})
	if err != nil || len(lst) != 2 {
		t.Fatalf("ListByIDs: n=%d err=%v", len(lst), err)
	}

	if byOp, err := s.Activities().ListByOperator(ctx, operatorID); err != nil || len(byOp) != 2 {
		t.Fatalf("ListByOperator: n=%d err=%v", len(byOp), err)
	}

	// Activities: batch paging walks everything exactly once
	seen := map[string]bool{}
	after := ""
	for {
		page, err := s.Activities().ListBatch(ctx, after, 1)
		if err != nil {
			t.Fatalf("ListBatch: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			if seen[rec.ActivityID] {
				t.Fatalf("ListBatch: id %s seen twice", rec.ActivityID)
			}
			seen[rec.ActivityID] = true
			after = rec.ActivityID
		}
	}
	if !seen[a.ActivityID] || !seen[b.ActivityID] {
		t.Fatalf("ListBatch: missing records, seen=%v", seen)
	}

	// Jornadas: create / find by day-range containment
	j, err := s.Jornadas().Create(ctx, &model.Jornada{
		OperatorID:  operatorID,
		Day:         day.Time(),
		ActivityIDs: []string{a.ActivityID},
	})
	if err != nil {
		t.Fatalf("CreateJornada: %v", err)
	}
	if j.JornadaID == "" || j.Revision != 1 {
		t.Fatalf("CreateJornada: id=%q revision=%d", j.JornadaID, j.Revision)
	}
	dayStart, dayEnd := day.Range()
	found, err := s.Jornadas().FindByOperatorAndDay(ctx, operatorID, dayStart, dayEnd)
	if err != nil || found.JornadaID != j.JornadaID {
		t.Fatalf("FindByOperatorAndDay: got=%+v err=%v", found, err)
	}
	otherStart, otherEnd := calday.MustParse("2025-06-15").Range()
	if _, err := s.Jornadas().FindByOperatorAndDay(ctx, operatorID, otherStart, otherEnd); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("FindByOperatorAndDay other day: want ErrNotFound, got %v", err)
	}

	// A legacy row with a drifted time-of-day is still found by containment.
	drifted, err := s.Jornadas().Create(ctx, &model.Jornada{
		OperatorID: operatorID,
		Day:        time.Date(2025, 6, 16, 22, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateJornada drifted: %v", err)
	}
	dStart, dEnd := calday.MustParse("2025-06-16").Range()
	if found, err := s.Jornadas().FindByOperatorAndDay(ctx, operatorID, dStart, dEnd); err != nil || found.JornadaID != drifted.JornadaID {
		t.Fatalf("FindByOperatorAndDay drifted: got=%+v err=%v", found, err)
	}

	// Jornadas: optimistic update
	j.EffectiveMinutes = 90
	j.RawSumMinutes = 120
	j.HasOverlap = true
	updated, err := s.Jornadas().Update(ctx, j, j.Revision)
	if err != nil {
		t.Fatalf("UpdateJornada: %v", err)
	}
	if updated.Revision != j.Revision+1 || updated.EffectiveMinutes != 90 || !updated.HasOverlap {
		t.Fatalf("UpdateJornada: got=%+v", updated)
	}
	// Stale revision must conflict.
	if _, err := s.Jornadas().Update(ctx, j, j.Revision); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("UpdateJornada stale: want ErrConflict, got %v", err)
	}

	if byOp, err := s.Jornadas().ListByOperator(ctx, operatorID); err != nil || len(byOp) != 2 {
		t.Fatalf("ListJornadasByOperator: n=%d err=%v", len(byOp), err)
	}

	// Jornadas: batch paging
	page, err := s.Jornadas().ListBatch(ctx, "", 100)
	if err != nil || len(page) < 2 {
		t.Fatalf("ListJornadaBatch: n=%d err=%v", len(page), err)
	}

	// Deletes
	if err := s.Jornadas().Delete(ctx, drifted.JornadaID); err != nil {
		t.Fatalf("DeleteJornada: %v", err)
	}
	if err := s.Jornadas().Delete(ctx, drifted.JornadaID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteJornada twice: want ErrNotFound, got %v", err)
	}
	if err := s.Activities().Delete(ctx, b.ActivityID); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}
	if _, err := s.Activities().Get(ctx, b.ActivityID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetActivity after delete: want ErrNotFound, got %v", err)
	}
}
