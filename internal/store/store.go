package store

import (
	"context"
	"time"

	"github.com/prodtrack/jornada/internal/model"
)

// Store exposes the persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite,
// memory). Lookups return model.ErrNotFound when no record matches.
type Store interface {
	Activities() Activities
	Jornadas() Jornadas
}

type Activities interface {
	Create(ctx context.Context, a *model.Activity) (*model.Activity, error)
	Get(ctx context.Context, activityID string) (*model.Activity, error)
	Update(ctx context.Context, a *model.Activity) (*model.Activity, error)
	Delete(ctx context.Context, activityID string) error
	// ListByIDs returns the activities that exist among ids; missing ids are
	// simply absent from the result, callers decide how to treat them.
	ListByIDs(ctx context.Context, ids []string) ([]*model.Activity, error)
	ListByOperator(ctx context.Context, operatorID string) ([]*model.Activity, error)
	// ListBatch pages through all activities by ascending id, returning up to
	// limit records with id greater than afterID.
	ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Activity, error)
}

type Jornadas interface {
	Create(ctx context.Context, j *model.Jornada) (*model.Jornada, error)
	Get(ctx context.Context, jornadaID string) (*model.Jornada, error)
	// FindByOperatorAndDay locates the operator's jornada whose stored day
	// falls inside [dayStart, dayEnd]. Containment rather than equality keeps
	// legacy rows with a drifted time-of-day reachable. With multiple matches
	// the oldest row wins.
	FindByOperatorAndDay(ctx context.Context, operatorID string, dayStart, dayEnd time.Time) (*model.Jornada, error)
	ListByOperator(ctx context.Context, operatorID string) ([]*model.Jornada, error)
	// ListBatch pages through all jornadas by ascending id, for bulk repair.
	ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Jornada, error)
	// Update persists j only if the stored revision equals expectedRevision,
	// returning model.ErrConflict otherwise. On success the returned jornada
	// carries the incremented revision.
	Update(ctx context.Context, j *model.Jornada, expectedRevision int64) (*model.Jornada, error)
	Delete(ctx context.Context, jornadaID string) error
}
