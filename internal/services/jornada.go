// Package services implements the jornada reconciliation use cases on top of
// the store interfaces. All jornada-activity links are created, moved and
// deleted here and nowhere else.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prodtrack/jornada/internal/calday"
	"github.com/prodtrack/jornada/internal/interval"
	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/observability"
	"github.com/prodtrack/jornada/internal/store"
)

const (
	defaultRetryAttempts = 4
	defaultRetryBackoff  = 25 * time.Millisecond
)

// JornadaService owns the invariant that every activity belongs to exactly
// one jornada whose calendar day equals the activity's day. Mutations are
// serialized per (operator, day) and retried on revision conflicts.
type JornadaService struct {
	store         store.Store
	locks         *dayLock
	retryAttempts int
	retryBackoff  time.Duration
	log           zerolog.Logger
}

// NewJornadaService constructs a JornadaService.
func NewJornadaService(s store.Store, log zerolog.Logger) *JornadaService {
	return &JornadaService{
		store:         s,
		locks:         newDayLock(),
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
		log:           log,
	}
}

func dayKey(operatorID string, day calday.Day) string {
	return operatorID + "@" + day.String()
}

// RegisterActivityInput captures the payload of the production-registration
// flow. Day is the raw submitted value and is canonicalized before anything
// is persisted.
type RegisterActivityInput struct {
	OperatorID      string
	Day             string
	Start           *time.Time
	End             *time.Time
	DurationMinutes int
	WorkOrder       string
	Process         string
	Machine         string
	Area            string
	Supplies        []string
}

// RegisterActivity creates an activity and files it under the operator's
// jornada for the canonical day, creating the jornada when absent. An
// unparseable day fails the whole operation before any write.
func (s *JornadaService) RegisterActivity(ctx context.Context, in RegisterActivityInput) (*model.Activity, error) {
	if in.OperatorID == "" {
		return nil, fmt.Errorf("%w: operator id is required", model.ErrValidation)
	}
	if in.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", model.ErrValidation)
	}
	day, err := calday.Parse(in.Day)
	if err != nil {
		return nil, err
	}

	a, err := s.store.Activities().Create(ctx, &model.Activity{
		OperatorID:      in.OperatorID,
		Day:             day.Time(),
		Start:           in.Start,
		End:             in.End,
		DurationMinutes: in.DurationMinutes,
		WorkOrder:       in.WorkOrder,
		Process:         in.Process,
		Machine:         in.Machine,
		Area:            in.Area,
		Supplies:        in.Supplies,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.AttachActivity(ctx, a); err != nil {
		return nil, err
	}
	observability.RecordActivityRegistered()
	return a, nil
}

// AttachActivity files the activity under the jornada for its (operator,
// canonical day), creating the jornada lazily. Re-attaching an already-filed
// activity is a no-op apart from recomputation. No other jornada is touched.
func (s *JornadaService) AttachActivity(ctx context.Context, a *model.Activity) (*model.Jornada, error) {
	day, err := calday.FromTime(a.Day)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(dayKey(a.OperatorID, day))
	defer unlock()
	return s.attachLocked(ctx, a, day)
}

// attachLocked is AttachActivity without lock acquisition; callers hold the
// (operator, day) lock.
func (s *JornadaService) attachLocked(ctx context.Context, a *model.Activity, day calday.Day) (*model.Jornada, error) {
	var out *model.Jornada
	err := s.withRetry(ctx, func() error {
		j, err := s.findOrCreate(ctx, a.OperatorID, day)
		if err != nil {
			return err
		}
		if !j.HasActivity(a.ActivityID) {
			j.ActivityIDs = append(j.ActivityIDs, a.ActivityID)
		}
		updated, err := s.saveRecomputed(ctx, j)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if a.JornadaID != out.JornadaID || !a.Day.Equal(day.Time()) {
		a.JornadaID = out.JornadaID
		a.Day = day.Time()
		if _, err := s.store.Activities().Update(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MoveActivity refiles the activity under newDay. Same-day moves only
// recompute the current jornada; cross-day moves detach from the old jornada
// (deleting it when left empty) and attach to the new one.
func (s *JornadaService) MoveActivity(ctx context.Context, activityID string, newDay calday.Day) (*model.Activity, error) {
	a, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	oldDay, err := calday.FromTime(a.Day)
	if err != nil {
		return nil, err
	}

	if oldDay.Equal(newDay) {
		unlock := s.locks.lock(dayKey(a.OperatorID, oldDay))
		defer unlock()
		if _, err := s.attachLocked(ctx, a, oldDay); err != nil {
			return nil, err
		}
		return a, nil
	}

	unlock := s.locks.lockPair(dayKey(a.OperatorID, oldDay), dayKey(a.OperatorID, newDay))
	defer unlock()

	if err := s.detachLocked(ctx, a, oldDay); err != nil {
		return nil, err
	}
	a.Day = newDay.Time()
	if _, err := s.attachLocked(ctx, a, newDay); err != nil {
		return nil, err
	}
	observability.RecordActivityMoved()
	s.log.Info().
		Str("activity_id", a.ActivityID).
		Str("operator_id", a.OperatorID).
		Str("from", oldDay.String()).
		Str("to", newDay.String()).
		Msg("activity moved between jornadas")
	return a, nil
}

// detachLocked removes the activity from the jornada covering day, deleting
// the jornada when its set becomes empty. Missing jornadas are tolerated.
func (s *JornadaService) detachLocked(ctx context.Context, a *model.Activity, day calday.Day) error {
	return s.withRetry(ctx, func() error {
		dayStart, dayEnd := day.Range()
		j, err := s.store.Jornadas().FindByOperatorAndDay(ctx, a.OperatorID, dayStart, dayEnd)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !j.HasActivity(a.ActivityID) {
			return nil
		}
		ids := make([]string, 0, len(j.ActivityIDs)-1)
		for _, id := range j.ActivityIDs {
			if id != a.ActivityID {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return s.store.Jornadas().Delete(ctx, j.JornadaID)
		}
		j.ActivityIDs = ids
		_, err = s.saveRecomputed(ctx, j)
		return err
	})
}

// UpdateActivityInput carries a partial edit; nil fields stay unchanged.
type UpdateActivityInput struct {
	ActivityID      string
	Day             *string
	Start           *time.Time
	End             *time.Time
	DurationMinutes *int
	WorkOrder       *string
	Process         *string
	Machine         *string
	Area            *string
	Supplies        []string
}

// UpdateActivity applies the production-edit flow: field changes always
// re-trigger recomputation of the owning jornada, and a day change refiles
// the activity via MoveActivity.
func (s *JornadaService) UpdateActivity(ctx context.Context, in UpdateActivityInput) (*model.Activity, error) {
	var newDay calday.Day
	if in.Day != nil {
		// Validate before any write so a bad date cannot leave a half-edit.
		d, err := calday.Parse(*in.Day)
		if err != nil {
			return nil, err
		}
		newDay = d
	}

	a, err := s.store.Activities().Get(ctx, in.ActivityID)
	if err != nil {
		return nil, err
	}
	if in.Start != nil {
		a.Start = in.Start
	}
	if in.End != nil {
		a.End = in.End
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return nil, fmt.Errorf("%w: duration must not be negative", model.ErrValidation)
		}
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.WorkOrder != nil {
		a.WorkOrder = *in.WorkOrder
	}
	if in.Process != nil {
		a.Process = *in.Process
	}
	if in.Machine != nil {
		a.Machine = *in.Machine
	}
	if in.Area != nil {
		a.Area = *in.Area
	}
	if in.Supplies != nil {
		a.Supplies = in.Supplies
	}
	if _, err := s.store.Activities().Update(ctx, a); err != nil {
		return nil, err
	}

	day, err := calday.FromTime(a.Day)
	if err != nil {
		return nil, err
	}
	if !newDay.IsZero() {
		day = newDay
	}
	return s.MoveActivity(ctx, a.ActivityID, day)
}

// DeleteActivity removes the activity and detaches it from its jornada,
// deleting the jornada when it becomes empty.
func (s *JornadaService) DeleteActivity(ctx context.Context, activityID string) error {
	a, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return err
	}
	day, err := calday.FromTime(a.Day)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(dayKey(a.OperatorID, day))
	defer unlock()

	if err := s.detachLocked(ctx, a, day); err != nil {
		return err
	}
	return s.store.Activities().Delete(ctx, activityID)
}

// GetActivity fetches a single activity.
func (s *JornadaService) GetActivity(ctx context.Context, activityID string) (*model.Activity, error) {
	return s.store.Activities().Get(ctx, activityID)
}

// GetJornada locates the operator's jornada for a day.
func (s *JornadaService) GetJornada(ctx context.Context, operatorID string, day calday.Day) (*model.Jornada, error) {
	dayStart, dayEnd := day.Range()
	return s.store.Jornadas().FindByOperatorAndDay(ctx, operatorID, dayStart, dayEnd)
}

// ListJornadas returns the operator's jornadas, optionally bounded to the
// inclusive [from, to] day range.
func (s *JornadaService) ListJornadas(ctx context.Context, operatorID string, from, to calday.Day) ([]*model.Jornada, error) {
	all, err := s.store.Jornadas().ListByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if from.IsZero() && to.IsZero() {
		return all, nil
	}
	out := make([]*model.Jornada, 0, len(all))
	for _, j := range all {
		d, err := calday.FromTime(j.Day)
		if err != nil {
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && to.Before(d) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// findOrCreate returns the jornada for (operator, day), creating an empty one
// when none exists. The range lookup tolerates legacy rows with drifted days.
func (s *JornadaService) findOrCreate(ctx context.Context, operatorID string, day calday.Day) (*model.Jornada, error) {
	dayStart, dayEnd := day.Range()
	j, err := s.store.Jornadas().FindByOperatorAndDay(ctx, operatorID, dayStart, dayEnd)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	return s.store.Jornadas().Create(ctx, &model.Jornada{
		OperatorID: operatorID,
		Day:        day.Time(),
	})
}

// saveRecomputed recomputes the jornada's derived time fields from its
// current activity set and persists it under its loaded revision.
func (s *JornadaService) saveRecomputed(ctx context.Context, j *model.Jornada) (*model.Jornada, error) {
	acts, err := s.store.Activities().ListByIDs(ctx, j.ActivityIDs)
	if err != nil {
		return nil, err
	}
	res := interval.ComputeEffectiveTime(acts)
	j.RangeStart = res.RangeStart
	j.RangeEnd = res.RangeEnd
	j.EffectiveMinutes = res.EffectiveMinutes
	j.RawSumMinutes = res.RawSumMinutes
	j.RangeMinutes = res.RangeMinutes
	j.HasOverlap = res.HasOverlap
	j.MergedIntervalCount = res.MergedIntervalCount
	return s.store.Jornadas().Update(ctx, j, j.Revision)
}

// withRetry runs fn, retrying revision conflicts with linear backoff.
func (s *JornadaService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.RecordConflictRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.retryBackoff):
			}
		}
		err = fn()
		if !errors.Is(err, model.ErrConflict) {
			return err
		}
	}
	return err
}
