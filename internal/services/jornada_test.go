package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodtrack/jornada/internal/calday"
	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/store/memory"
)

func newTestService() *JornadaService {
	return NewJornadaService(memory.New(), zerolog.Nop())
}

func tp(t *testing.T, value string) *time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	ts = ts.UTC()
	return &ts
}

func TestRegisterActivity_CreatesJornadaLazily(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID:      "op-1",
		Day:             "2025-06-14T23:30:00Z",
		Start:           tp(t, "2025-06-14T08:00:00Z"),
		End:             tp(t, "2025-06-14T12:00:00Z"),
		DurationMinutes: 240,
		WorkOrder:       "wo-77",
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ActivityID)
	require.NotEmpty(t, a.JornadaID)

	// The timestamp portion is ignored: the activity is filed under the
	// literal date 2025-06-14.
	day := calday.MustParse("2025-06-14")
	assert.True(t, a.Day.Equal(day.Time()))

	j, err := svc.GetJornada(ctx, "op-1", day)
	require.NoError(t, err)
	assert.Equal(t, a.JornadaID, j.JornadaID)
	assert.Equal(t, []string{a.ActivityID}, j.ActivityIDs)
	assert.Equal(t, 240, j.EffectiveMinutes)
	assert.Equal(t, 240, j.RawSumMinutes)
	assert.False(t, j.HasOverlap)
}

func TestRegisterActivity_InvalidDayWritesNothing(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1",
		Day:        "2025-02-30",
	})
	require.ErrorIs(t, err, model.ErrInvalidDate)

	acts, err := svc.store.Activities().ListByOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func TestRegisterActivity_SameDayJoinsExistingJornada(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a1, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14",
		Start: tp(t, "2025-06-14T08:00:00Z"), End: tp(t, "2025-06-14T10:00:00Z"),
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	a2, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14",
		Start: tp(t, "2025-06-14T09:00:00Z"), End: tp(t, "2025-06-14T11:00:00Z"),
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	require.Equal(t, a1.JornadaID, a2.JornadaID)

	j, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1.ActivityID, a2.ActivityID}, j.ActivityIDs)
	assert.Equal(t, 180, j.EffectiveMinutes)
	assert.Equal(t, 240, j.RawSumMinutes)
	assert.True(t, j.HasOverlap)
	assert.Equal(t, 1, j.MergedIntervalCount)
}

func TestAttachActivity_Idempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	j1, err := svc.AttachActivity(ctx, a)
	require.NoError(t, err)
	j2, err := svc.AttachActivity(ctx, a)
	require.NoError(t, err)

	assert.Equal(t, j1.JornadaID, j2.JornadaID)
	assert.Equal(t, []string{a.ActivityID}, j2.ActivityIDs)
}

func TestMoveActivity_CrossDay(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14",
		Start: tp(t, "2025-06-14T08:00:00Z"), End: tp(t, "2025-06-14T12:00:00Z"),
		DurationMinutes: 240,
	})
	require.NoError(t, err)
	oldJornada := a.JornadaID

	other, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 30,
	})
	require.NoError(t, err)

	moved, err := svc.MoveActivity(ctx, a.ActivityID, calday.MustParse("2025-06-15"))
	require.NoError(t, err)
	assert.True(t, moved.Day.Equal(calday.MustParse("2025-06-15").Time()))
	assert.NotEqual(t, oldJornada, moved.JornadaID)

	// Old jornada survives with the remaining activity and fresh totals.
	j14, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, []string{other.ActivityID}, j14.ActivityIDs)
	assert.Equal(t, 0, j14.EffectiveMinutes)
	assert.Equal(t, 30, j14.RawSumMinutes)

	j15, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{moved.ActivityID}, j15.ActivityIDs)
	assert.Equal(t, 240, j15.EffectiveMinutes)
}

func TestMoveActivity_EmptiedJornadaIsDeleted(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = svc.MoveActivity(ctx, a.ActivityID, calday.MustParse("2025-06-15"))
	require.NoError(t, err)

	_, err = svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMoveActivity_SameDayIsANoOpMove(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)
	before := a.JornadaID

	moved, err := svc.MoveActivity(ctx, a.ActivityID, calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, before, moved.JornadaID)

	j, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, []string{a.ActivityID}, j.ActivityIDs)
}

func TestMoveActivity_Idempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	first, err := svc.MoveActivity(ctx, a.ActivityID, calday.MustParse("2025-06-15"))
	require.NoError(t, err)
	second, err := svc.MoveActivity(ctx, a.ActivityID, calday.MustParse("2025-06-15"))
	require.NoError(t, err)

	assert.Equal(t, first.JornadaID, second.JornadaID)
	j, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{a.ActivityID}, j.ActivityIDs)
}

func TestUpdateActivity_DayChangeRefiles(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	newDay := "2025-06-15T04:00:00Z"
	dur := 90
	updated, err := svc.UpdateActivity(ctx, UpdateActivityInput{
		ActivityID:      a.ActivityID,
		Day:             &newDay,
		DurationMinutes: &dur,
	})
	require.NoError(t, err)
	assert.True(t, updated.Day.Equal(calday.MustParse("2025-06-15").Time()))
	assert.Equal(t, 90, updated.DurationMinutes)

	j, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-15"))
	require.NoError(t, err)
	assert.Equal(t, 90, j.RawSumMinutes)
	_, err = svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateActivity_InvalidDayLeavesActivityUntouched(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60, WorkOrder: "wo-1",
	})
	require.NoError(t, err)

	badDay := "not-a-date"
	wo := "wo-2"
	_, err = svc.UpdateActivity(ctx, UpdateActivityInput{
		ActivityID: a.ActivityID,
		Day:        &badDay,
		WorkOrder:  &wo,
	})
	require.ErrorIs(t, err, model.ErrInvalidDate)

	got, err := svc.GetActivity(ctx, a.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, "wo-1", got.WorkOrder)
}

func TestUpdateActivity_TimesChangeRecomputesJornada(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14",
		Start: tp(t, "2025-06-14T08:00:00Z"), End: tp(t, "2025-06-14T10:00:00Z"),
		DurationMinutes: 120,
	})
	require.NoError(t, err)

	_, err = svc.UpdateActivity(ctx, UpdateActivityInput{
		ActivityID: a.ActivityID,
		End:        tp(t, "2025-06-14T12:00:00Z"),
	})
	require.NoError(t, err)

	j, err := svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, 240, j.EffectiveMinutes)
}

func TestDeleteActivity_DetachesAndDeletesEmptyJornada(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteActivity(ctx, a.ActivityID))

	_, err = svc.GetActivity(ctx, a.ActivityID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.GetJornada(ctx, "op-1", calday.MustParse("2025-06-14"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListJornadas_RangeFilter(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, day := range []string{"2025-06-13", "2025-06-14", "2025-06-15"} {
		_, err := svc.RegisterActivity(ctx, RegisterActivityInput{
			OperatorID: "op-1", Day: day, DurationMinutes: 60,
		})
		require.NoError(t, err)
	}

	all, err := svc.ListJornadas(ctx, "op-1", calday.Day{}, calday.Day{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bounded, err := svc.ListJornadas(ctx, "op-1", calday.MustParse("2025-06-14"), calday.MustParse("2025-06-14"))
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.True(t, bounded[0].Day.Equal(calday.MustParse("2025-06-14").Time()))
}

func TestOperatorsDoNotShareJornadas(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a1, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-1", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)
	a2, err := svc.RegisterActivity(ctx, RegisterActivityInput{
		OperatorID: "op-2", Day: "2025-06-14", DurationMinutes: 60,
	})
	require.NoError(t, err)

	assert.NotEqual(t, a1.JornadaID, a2.JornadaID)
}
