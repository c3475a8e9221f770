// Package memory provides an in-memory store.Store used by unit tests and
// the local dev target. It applies the same semantics as the SQL drivers,
// including revision-checked jornada updates.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/store"
)

type memStore struct {
	mu         sync.RWMutex
	activities map[string]*model.Activity
	jornadas   map[string]*model.Jornada
}

// New constructs an empty in-memory store.
func New() store.Store {
	return &memStore{
		activities: make(map[string]*model.Activity),
		jornadas:   make(map[string]*model.Jornada),
	}
}

func (s *memStore) Activities() store.Activities { return &activities{s} }
func (s *memStore) Jornadas() store.Jornadas     { return &jornadas{s} }

func copyActivity(a *model.Activity) *model.Activity {
	out := *a
	if a.Start != nil {
		v := *a.Start
		out.Start = &v
	}
	if a.End != nil {
		v := *a.End
		out.End = &v
	}
	out.Supplies = append([]string(nil), a.Supplies...)
	return &out
}

func copyJornada(j *model.Jornada) *model.Jornada {
	out := *j
	out.ActivityIDs = append([]string(nil), j.ActivityIDs...)
	if j.RangeStart != nil {
		v := *j.RangeStart
		out.RangeStart = &v
	}
	if j.RangeEnd != nil {
		v := *j.RangeEnd
		out.RangeEnd = &v
	}
	return &out
}

// --- Activities ---

type activities struct{ p *memStore }

func (a *activities) Create(_ context.Context, in *model.Activity) (*model.Activity, error) {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()

	rec := copyActivity(in)
	if rec.ActivityID == "" {
		rec.ActivityID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreationTime = now
	rec.UpdateTime = now
	a.p.activities[rec.ActivityID] = rec
	return copyActivity(rec), nil
}

func (a *activities) Get(_ context.Context, activityID string) (*model.Activity, error) {
	a.p.mu.RLock()
	defer a.p.mu.RUnlock()
	rec, ok := a.p.activities[activityID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyActivity(rec), nil
}

func (a *activities) Update(_ context.Context, in *model.Activity) (*model.Activity, error) {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	prev, ok := a.p.activities[in.ActivityID]
	if !ok {
		return nil, model.ErrNotFound
	}
	rec := copyActivity(in)
	rec.CreationTime = prev.CreationTime
	rec.UpdateTime = time.Now().UTC()
	a.p.activities[rec.ActivityID] = rec
	return copyActivity(rec), nil
}

func (a *activities) Delete(_ context.Context, activityID string) error {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	if _, ok := a.p.activities[activityID]; !ok {
		return model.ErrNotFound
	}
	delete(a.p.activities, activityID)
	return nil
}

func (a *activities) ListByIDs(_ context.Context, ids []string) ([]*model.Activity, error) {
	a.p.mu.RLock()
	defer a.p.mu.RUnlock()
	out := make([]*model.Activity, 0, len(ids))
	for _, id := range ids {
		if rec, ok := a.p.activities[id]; ok {
			out = append(out, copyActivity(rec))
		}
	}
	return out, nil
}

func (a *activities) ListByOperator(_ context.Context, operatorID string) ([]*model.Activity, error) {
	a.p.mu.RLock()
	defer a.p.mu.RUnlock()
	var out []*model.Activity
	for _, rec := range a.p.activities {
		if rec.OperatorID == operatorID {
			out = append(out, copyActivity(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

func (a *activities) ListBatch(_ context.Context, afterID string, limit int) ([]*model.Activity, error) {
	a.p.mu.RLock()
	defer a.p.mu.RUnlock()
	ids := make([]string, 0, len(a.p.activities))
	for id := range a.p.activities {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyActivity(a.p.activities[id]))
	}
	return out, nil
}

// --- Jornadas ---

type jornadas struct{ p *memStore }

func (j *jornadas) Create(_ context.Context, in *model.Jornada) (*model.Jornada, error) {
	j.p.mu.Lock()
	defer j.p.mu.Unlock()

	rec := copyJornada(in)
	if rec.JornadaID == "" {
		rec.JornadaID = uuid.New().String()
	}
	if rec.ActivityIDs == nil {
		rec.ActivityIDs = []string{}
	}
	now := time.Now().UTC()
	rec.Revision = 1
	rec.CreationTime = now
	rec.UpdateTime = now
	j.p.jornadas[rec.JornadaID] = rec
	return copyJornada(rec), nil
}

func (j *jornadas) Get(_ context.Context, jornadaID string) (*model.Jornada, error) {
	j.p.mu.RLock()
	defer j.p.mu.RUnlock()
	rec, ok := j.p.jornadas[jornadaID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyJornada(rec), nil
}

func (j *jornadas) FindByOperatorAndDay(_ context.Context, operatorID string, dayStart, dayEnd time.Time) (*model.Jornada, error) {
	j.p.mu.RLock()
	defer j.p.mu.RUnlock()
	var best *model.Jornada
	for _, rec := range j.p.jornadas {
		if rec.OperatorID != operatorID {
			continue
		}
		if rec.Day.Before(dayStart) || rec.Day.After(dayEnd) {
			continue
		}
		if best == nil || rec.CreationTime.Before(best.CreationTime) ||
			(rec.CreationTime.Equal(best.CreationTime) && rec.JornadaID < best.JornadaID) {
			best = rec
		}
	}
	if best == nil {
		return nil, model.ErrNotFound
	}
	return copyJornada(best), nil
}

func (j *jornadas) ListByOperator(_ context.Context, operatorID string) ([]*model.Jornada, error) {
	j.p.mu.RLock()
	defer j.p.mu.RUnlock()
	var out []*model.Jornada
	for _, rec := range j.p.jornadas {
		if rec.OperatorID == operatorID {
			out = append(out, copyJornada(rec))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Day.Before(out[k].Day) })
	return out, nil
}

func (j *jornadas) ListBatch(_ context.Context, afterID string, limit int) ([]*model.Jornada, error) {
	j.p.mu.RLock()
	defer j.p.mu.RUnlock()
	ids := make([]string, 0, len(j.p.jornadas))
	for id := range j.p.jornadas {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.Jornada, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyJornada(j.p.jornadas[id]))
	}
	return out, nil
}

func (j *jornadas) Update(_ context.Context, in *model.Jornada, expectedRevision int64) (*model.Jornada, error) {
	j.p.mu.Lock()
	defer j.p.mu.Unlock()
	prev, ok := j.p.jornadas[in.JornadaID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if prev.Revision != expectedRevision {
		return nil, model.ErrConflict
	}
	rec := copyJornada(in)
	if rec.ActivityIDs == nil {
		rec.ActivityIDs = []string{}
	}
	rec.Revision = expectedRevision + 1
	rec.CreationTime = prev.CreationTime
	rec.UpdateTime = time.Now().UTC()
	j.p.jornadas[rec.JornadaID] = rec
	return copyJornada(rec), nil
}

func (j *jornadas) Delete(_ context.Context, jornadaID string) error {
	j.p.mu.Lock()
	defer j.p.mu.Unlock()
	if _, ok := j.p.jornadas[jornadaID]; !ok {
		return model.ErrNotFound
	}
	delete(j.p.jornadas, jornadaID)
	return nil
}
