package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/prodtrack/jornada/internal/calday"
	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/observability"
	"github.com/prodtrack/jornada/internal/store"
)

const defaultReconcileBatchSize = 100

// ReconcileService walks the stored jornadas and activities in batches and
// repairs the day-consistency invariants: every linked activity exists and
// shares its jornada's calendar day, every activity is filed under exactly one
// jornada, and an operator has at most one jornada per day. Each repair goes
// through JornadaService so recomputation and locking stay in one place.
type ReconcileService struct {
	store     store.Store
	jornadas  *JornadaService
	batchSize int
	log       zerolog.Logger
}

// NewReconcileService constructs a ReconcileService. batchSize bounds how many
// records a single store call may return; values below 1 fall back to the
// default.
func NewReconcileService(s store.Store, js *JornadaService, batchSize int, log zerolog.Logger) *ReconcileService {
	if batchSize < 1 {
		batchSize = defaultReconcileBatchSize
	}
	return &ReconcileService{store: s, jornadas: js, batchSize: batchSize, log: log}
}

// ReconcileAll repairs the whole dataset: a jornada pass (dangling links,
// day mismatches), an activity pass (orphans), and a consolidation pass over
// operators where duplicate days were seen. Per-record failures are reported
// in the result, never aborted on; cancellation is honored between batches.
func (s *ReconcileService) ReconcileAll(ctx context.Context) (*model.ReconcileReport, error) {
	rep := &model.ReconcileReport{StartedAt: time.Now().UTC()}

	dupOperators, err := s.scanJornadas(ctx, rep)
	if err != nil {
		return nil, err
	}
	if err := s.scanActivities(ctx, rep); err != nil {
		return nil, err
	}

	ops := make([]string, 0, len(dupOperators))
	for op := range dupOperators {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.consolidateOperator(ctx, op, rep); err != nil {
			return nil, err
		}
	}

	rep.FinishedAt = time.Now().UTC()
	resolved := rep.MismatchesResolved + rep.DanglingDropped + rep.OrphansAdopted + rep.DuplicatesMerged
	observability.RecordReconcileRun(resolved, len(rep.Unresolved), rep.FinishedAt)
	s.log.Info().
		Int("jornadas_scanned", rep.JornadasScanned).
		Int("activities_scanned", rep.ActivitiesScanned).
		Int("resolved", resolved).
		Int("unresolved", len(rep.Unresolved)).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("reconcile pass finished")
	return rep, nil
}

// ConsolidateDuplicates merges all duplicate same-day jornadas of a single
// operator and reports what it did.
func (s *ReconcileService) ConsolidateDuplicates(ctx context.Context, operatorID string) (*model.ReconcileReport, error) {
	rep := &model.ReconcileReport{StartedAt: time.Now().UTC()}
	if err := s.consolidateOperator(ctx, operatorID, rep); err != nil {
		return nil, err
	}
	rep.FinishedAt = time.Now().UTC()
	return rep, nil
}

// scanJornadas is the first reconcile pass. For every jornada it drops links
// to activities that no longer exist, refiles activities whose day disagrees
// with the jornada's, and deletes jornadas left empty. It returns the set of
// operators for which more than one jornada mapped to the same calendar day.
func (s *ReconcileService) scanJornadas(ctx context.Context, rep *model.ReconcileReport) (map[string]bool, error) {
	dayOwner := make(map[string]string)
	dupOperators := make(map[string]bool)

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := s.store.Jornadas().ListBatch(ctx, afterID, s.batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return dupOperators, nil
		}
		for _, j := range batch {
			rep.JornadasScanned++
			s.repairJornada(ctx, j, rep, dayOwner, dupOperators)
		}
		afterID = batch[len(batch)-1].JornadaID
	}
}

func (s *ReconcileService) repairJornada(ctx context.Context, j *model.Jornada, rep *model.ReconcileReport, dayOwner map[string]string, dupOperators map[string]bool) {
	day, err := calday.FromTime(j.Day)
	if err != nil {
		rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
			JornadaID: j.JornadaID,
			Reason:    "jornada has an invalid day: " + err.Error(),
		})
		return
	}
	key := dayKey(j.OperatorID, day)
	if owner, ok := dayOwner[key]; ok && owner != j.JornadaID {
		dupOperators[j.OperatorID] = true
	} else {
		dayOwner[key] = j.JornadaID
	}

	acts, err := s.store.Activities().ListByIDs(ctx, j.ActivityIDs)
	if err != nil {
		rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
			JornadaID: j.JornadaID,
			Reason:    "activity lookup failed: " + err.Error(),
		})
		return
	}
	byID := make(map[string]*model.Activity, len(acts))
	for _, a := range acts {
		byID[a.ActivityID] = a
	}

	keep := make([]string, 0, len(j.ActivityIDs))
	var misfiled []*model.Activity
	changed := false
	for _, id := range j.ActivityIDs {
		a, ok := byID[id]
		if !ok {
			rep.DanglingDropped++
			changed = true
			continue
		}
		aday, err := calday.FromTime(a.Day)
		if err != nil {
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				ActivityID: a.ActivityID,
				JornadaID:  j.JornadaID,
				JornadaDay: day.String(),
				Reason:     "activity has an invalid day: " + err.Error(),
			})
			keep = append(keep, id)
			continue
		}
		if !aday.Equal(day) {
			rep.MismatchesFound++
			misfiled = append(misfiled, a)
			changed = true
			continue
		}
		if a.JornadaID != j.JornadaID {
			// Day agrees but the back-pointer drifted; repair in place.
			rep.MismatchesFound++
			a.JornadaID = j.JornadaID
			if _, err := s.store.Activities().Update(ctx, a); err != nil {
				rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
					ActivityID:  a.ActivityID,
					JornadaID:   j.JornadaID,
					ActivityDay: aday.String(),
					JornadaDay:  day.String(),
					Reason:      "back-pointer repair failed: " + err.Error(),
				})
			} else {
				rep.MismatchesResolved++
			}
		}
		keep = append(keep, id)
	}

	if changed {
		if err := s.saveJornadaSet(ctx, j.OperatorID, j.JornadaID, day, keep, rep); err != nil {
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				JornadaID:  j.JornadaID,
				JornadaDay: day.String(),
				Reason:     "jornada update failed: " + err.Error(),
			})
			return
		}
	}

	// Refile after the source jornada is saved so a crash mid-way leaves an
	// orphan (recoverable) rather than a double-filed activity.
	for _, a := range misfiled {
		aday, _ := calday.FromTime(a.Day)
		if _, err := s.jornadas.AttachActivity(ctx, a); err != nil {
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				ActivityID:  a.ActivityID,
				JornadaID:   j.JornadaID,
				ActivityDay: aday.String(),
				JornadaDay:  day.String(),
				Reason:      "refile failed: " + err.Error(),
			})
			continue
		}
		rep.MismatchesResolved++
		s.log.Info().
			Str("activity_id", a.ActivityID).
			Str("from_jornada", j.JornadaID).
			Str("activity_day", aday.String()).
			Str("jornada_day", day.String()).
			Msg("misfiled activity moved to its own day")
	}
}

// saveJornadaSet replaces the activity set of the identified jornada under the
// day lock, deleting the jornada when the set is empty.
func (s *ReconcileService) saveJornadaSet(ctx context.Context, operatorID, jornadaID string, day calday.Day, ids []string, rep *model.ReconcileReport) error {
	unlock := s.jornadas.locks.lock(dayKey(operatorID, day))
	defer unlock()

	return s.jornadas.withRetry(ctx, func() error {
		cur, err := s.store.Jornadas().Get(ctx, jornadaID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			if err := s.store.Jornadas().Delete(ctx, jornadaID); err != nil {
				return err
			}
			rep.JornadasDeleted++
			return nil
		}
		cur.ActivityIDs = ids
		_, err = s.jornadas.saveRecomputed(ctx, cur)
		return err
	})
}

// scanActivities is the second reconcile pass: any activity without a live
// two-way link to a jornada is adopted into the jornada for its own day.
func (s *ReconcileService) scanActivities(ctx context.Context, rep *model.ReconcileReport) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := s.store.Activities().ListBatch(ctx, afterID, s.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, a := range batch {
			rep.ActivitiesScanned++
			s.adoptIfOrphaned(ctx, a, rep)
		}
		afterID = batch[len(batch)-1].ActivityID
	}
}

func (s *ReconcileService) adoptIfOrphaned(ctx context.Context, a *model.Activity, rep *model.ReconcileReport) {
	aday, err := calday.FromTime(a.Day)
	if err != nil {
		rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
			ActivityID: a.ActivityID,
			Reason:     "activity has an invalid day: " + err.Error(),
		})
		return
	}

	orphaned := a.JornadaID == ""
	if !orphaned {
		j, err := s.store.Jornadas().Get(ctx, a.JornadaID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			orphaned = true
		case err != nil:
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				ActivityID:  a.ActivityID,
				JornadaID:   a.JornadaID,
				ActivityDay: aday.String(),
				Reason:      "jornada lookup failed: " + err.Error(),
			})
			return
		default:
			orphaned = !j.HasActivity(a.ActivityID)
		}
	}
	if !orphaned {
		return
	}

	if _, err := s.jornadas.AttachActivity(ctx, a); err != nil {
		rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
			ActivityID:  a.ActivityID,
			JornadaID:   a.JornadaID,
			ActivityDay: aday.String(),
			Reason:      "orphan adoption failed: " + err.Error(),
		})
		return
	}
	rep.OrphansAdopted++
	s.log.Info().
		Str("activity_id", a.ActivityID).
		Str("operator_id", a.OperatorID).
		Str("day", aday.String()).
		Msg("orphaned activity adopted")
}

// consolidateOperator merges every group of same-day jornadas for one
// operator into a single survivor holding the union of their activities.
func (s *ReconcileService) consolidateOperator(ctx context.Context, operatorID string, rep *model.ReconcileReport) error {
	all, err := s.store.Jornadas().ListByOperator(ctx, operatorID)
	if err != nil {
		return err
	}

	groups := make(map[calday.Day][]*model.Jornada)
	var days []calday.Day
	for _, j := range all {
		day, err := calday.FromTime(j.Day)
		if err != nil {
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				JornadaID: j.JornadaID,
				Reason:    "jornada has an invalid day: " + err.Error(),
			})
			continue
		}
		if _, ok := groups[day]; !ok {
			days = append(days, day)
		}
		groups[day] = append(groups[day], j)
	}
	sort.Slice(days, func(i, k int) bool { return days[i].Before(days[k]) })

	for _, day := range days {
		group := groups[day]
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.mergeGroup(ctx, operatorID, day, group, rep); err != nil {
			rep.Unresolved = append(rep.Unresolved, model.ReconcileIssue{
				JornadaID:  group[0].JornadaID,
				JornadaDay: day.String(),
				Reason:     "duplicate merge failed: " + err.Error(),
			})
			continue
		}
		rep.DuplicatesMerged++
	}
	return nil
}

// mergeGroup collapses one group of same-day jornadas into the survivor.
// The survivor is the jornada already sitting at canonical midnight when one
// exists, otherwise the oldest; duplicates are deleted after their activities
// are re-pointed, so an interrupted merge loses no links.
func (s *ReconcileService) mergeGroup(ctx context.Context, operatorID string, day calday.Day, group []*model.Jornada, rep *model.ReconcileReport) error {
	sort.Slice(group, func(i, k int) bool {
		ci, ck := group[i].Day.Equal(day.Time()), group[k].Day.Equal(day.Time())
		if ci != ck {
			return ci
		}
		if !group[i].CreationTime.Equal(group[k].CreationTime) {
			return group[i].CreationTime.Before(group[k].CreationTime)
		}
		return group[i].JornadaID < group[k].JornadaID
	})
	survivor := group[0]

	seen := make(map[string]bool)
	var union []string
	for _, j := range group {
		for _, id := range j.ActivityIDs {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
			}
		}
	}

	unlock := s.jornadas.locks.lock(dayKey(operatorID, day))
	defer unlock()

	err := s.jornadas.withRetry(ctx, func() error {
		cur, err := s.store.Jornadas().Get(ctx, survivor.JornadaID)
		if err != nil {
			return err
		}
		cur.Day = day.Time()
		cur.ActivityIDs = union
		_, err = s.jornadas.saveRecomputed(ctx, cur)
		return err
	})
	if err != nil {
		return err
	}

	acts, err := s.store.Activities().ListByIDs(ctx, union)
	if err != nil {
		return err
	}
	for _, a := range acts {
		if a.JornadaID == survivor.JornadaID {
			continue
		}
		a.JornadaID = survivor.JornadaID
		if _, err := s.store.Activities().Update(ctx, a); err != nil {
			return err
		}
	}

	for _, j := range group[1:] {
		if err := s.store.Jornadas().Delete(ctx, j.JornadaID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		rep.JornadasDeleted++
	}

	s.log.Info().
		Str("operator_id", operatorID).
		Str("day", day.String()).
		Str("survivor", survivor.JornadaID).
		Int("merged", len(group)-1).
		Int("activities", len(union)).
		Msg("duplicate jornadas consolidated")
	return nil
}
