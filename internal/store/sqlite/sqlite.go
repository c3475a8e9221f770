// Package sqlite provides a SQLite-backed store.Store for the local target.
// All timestamps are written in UTC so range comparisons stay consistent.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// New opens (or creates) the database at path and applies the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB allows wiring with an existing connection.
func NewWithDB(db *sql.DB) store.Store { return &liteStore{db: db} }

// EnsureSchema applies the embedded DDL. Statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

type liteStore struct{ db *sql.DB }

func (s *liteStore) Activities() store.Activities { return &activities{db: s.db} }
func (s *liteStore) Jornadas() store.Jornadas     { return &jornadas{db: s.db} }

// HealthPing implements store.HealthPinger.
func (s *liteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const activityColumns = `activity_id, operator_id, day, start_time, end_time, duration_minutes,
        jornada_id, work_order, process, machine, area, supplies, creation_time, update_time`

const jornadaColumns = `jornada_id, operator_id, day, activity_ids, range_start, range_end,
        effective_minutes, raw_sum_minutes, range_minutes, has_overlap, merged_interval_count,
        revision, creation_time, update_time`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanActivity(row rowScanner) (*model.Activity, error) {
	var a model.Activity
	var start, end sql.NullTime
	var supplies string
	if err := row.Scan(&a.ActivityID, &a.OperatorID, &a.Day, &start, &end, &a.DurationMinutes,
		&a.JornadaID, &a.WorkOrder, &a.Process, &a.Machine, &a.Area, &supplies,
		&a.CreationTime, &a.UpdateTime); err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		a.Start = &t
	}
	if end.Valid {
		t := end.Time
		a.End = &t
	}
	if supplies != "" {
		if err := json.Unmarshal([]byte(supplies), &a.Supplies); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func scanJornada(row rowScanner) (*model.Jornada, error) {
	var j model.Jornada
	var rangeStart, rangeEnd sql.NullTime
	var ids string
	if err := row.Scan(&j.JornadaID, &j.OperatorID, &j.Day, &ids, &rangeStart, &rangeEnd,
		&j.EffectiveMinutes, &j.RawSumMinutes, &j.RangeMinutes, &j.HasOverlap,
		&j.MergedIntervalCount, &j.Revision, &j.CreationTime, &j.UpdateTime); err != nil {
		return nil, err
	}
	if rangeStart.Valid {
		t := rangeStart.Time
		j.RangeStart = &t
	}
	if rangeEnd.Valid {
		t := rangeEnd.Time
		j.RangeEnd = &t
	}
	j.ActivityIDs = []string{}
	if ids != "" {
		if err := json.Unmarshal([]byte(ids), &j.ActivityIDs); err != nil {
			return nil, err
		}
	}
	return &j, nil
}

// --- Activities ---

type activities struct{ db *sql.DB }

func (a *activities) Create(ctx context.Context, in *model.Activity) (*model.Activity, error) {
	out := *in
	if out.ActivityID == "" {
		out.ActivityID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.CreationTime = now
	out.UpdateTime = now

	supplies := out.Supplies
	if supplies == nil {
		supplies = []string{}
	}
	suppliesJSON, err := json.Marshal(supplies)
	if err != nil {
		return nil, err
	}
	_, err = a.db.ExecContext(ctx, `
        INSERT INTO activities (`+activityColumns+`)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, out.ActivityID, out.OperatorID, out.Day.UTC(), utcPtr(out.Start), utcPtr(out.End),
		out.DurationMinutes, out.JornadaID, out.WorkOrder, out.Process, out.Machine,
		out.Area, string(suppliesJSON), out.CreationTime, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *activities) Get(ctx context.Context, activityID string) (*model.Activity, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id = ?
    `, activityID)
	out, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return out, err
}

func (a *activities) Update(ctx context.Context, in *model.Activity) (*model.Activity, error) {
	supplies := in.Supplies
	if supplies == nil {
		supplies = []string{}
	}
	suppliesJSON, err := json.Marshal(supplies)
	if err != nil {
		return nil, err
	}
	out := *in
	out.UpdateTime = time.Now().UTC()
	res, err := a.db.ExecContext(ctx, `
        UPDATE activities
        SET day=?, start_time=?, end_time=?, duration_minutes=?, jornada_id=?,
            work_order=?, process=?, machine=?, area=?, supplies=?, update_time=?
        WHERE activity_id=?
    `, out.Day.UTC(), utcPtr(out.Start), utcPtr(out.End), out.DurationMinutes, out.JornadaID,
		out.WorkOrder, out.Process, out.Machine, out.Area, string(suppliesJSON),
		out.UpdateTime, out.ActivityID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, model.ErrNotFound
	}
	return &out, nil
}

func (a *activities) Delete(ctx context.Context, activityID string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM activities WHERE activity_id=?`, activityID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (a *activities) ListByIDs(ctx context.Context, ids []string) ([]*model.Activity, error) {
	if len(ids) == 0 {
		return []*model.Activity{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id IN (`+placeholders+`)
    `, args...)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (a *activities) ListByOperator(ctx context.Context, operatorID string) ([]*model.Activity, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE operator_id=? ORDER BY activity_id
    `, operatorID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (a *activities) ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Activity, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id > ? ORDER BY activity_id LIMIT ?
    `, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]*model.Activity, error) {
	defer func() { _ = rows.Close() }()
	out := []*model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Jornadas ---

type jornadas struct{ db *sql.DB }

func (j *jornadas) Create(ctx context.Context, in *model.Jornada) (*model.Jornada, error) {
	out := *in
	if out.JornadaID == "" {
		out.JornadaID = uuid.New().String()
	}
	if out.ActivityIDs == nil {
		out.ActivityIDs = []string{}
	}
	now := time.Now().UTC()
	out.Revision = 1
	out.CreationTime = now
	out.UpdateTime = now

	ids, err := json.Marshal(out.ActivityIDs)
	if err != nil {
		return nil, err
	}
	_, err = j.db.ExecContext(ctx, `
        INSERT INTO jornadas (`+jornadaColumns+`)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, out.JornadaID, out.OperatorID, out.Day.UTC(), string(ids), utcPtr(out.RangeStart),
		utcPtr(out.RangeEnd), out.EffectiveMinutes, out.RawSumMinutes, out.RangeMinutes,
		out.HasOverlap, out.MergedIntervalCount, out.Revision, out.CreationTime, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (j *jornadas) Get(ctx context.Context, jornadaID string) (*model.Jornada, error) {
	row := j.db.QueryRowContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE jornada_id=?
    `, jornadaID)
	out, err := scanJornada(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return out, err
}

func (j *jornadas) FindByOperatorAndDay(ctx context.Context, operatorID string, dayStart, dayEnd time.Time) (*model.Jornada, error) {
	row := j.db.QueryRowContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas
        WHERE operator_id=? AND day >= ? AND day <= ?
        ORDER BY creation_time, jornada_id LIMIT 1
    `, operatorID, dayStart.UTC(), dayEnd.UTC())
	out, err := scanJornada(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return out, err
}

func (j *jornadas) ListByOperator(ctx context.Context, operatorID string) ([]*model.Jornada, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE operator_id=? ORDER BY day
    `, operatorID)
	if err != nil {
		return nil, err
	}
	return collectJornadas(rows)
}

func (j *jornadas) ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Jornada, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE jornada_id > ? ORDER BY jornada_id LIMIT ?
    `, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectJornadas(rows)
}

func (j *jornadas) Update(ctx context.Context, in *model.Jornada, expectedRevision int64) (*model.Jornada, error) {
	ids, err := json.Marshal(in.ActivityIDs)
	if err != nil {
		return nil, err
	}
	out := *in
	out.UpdateTime = time.Now().UTC()
	out.Revision = expectedRevision + 1
	res, err := j.db.ExecContext(ctx, `
        UPDATE jornadas
        SET day=?, activity_ids=?, range_start=?, range_end=?, effective_minutes=?,
            raw_sum_minutes=?, range_minutes=?, has_overlap=?, merged_interval_count=?,
            revision=?, update_time=?
        WHERE jornada_id=? AND revision=?
    `, out.Day.UTC(), string(ids), utcPtr(out.RangeStart), utcPtr(out.RangeEnd),
		out.EffectiveMinutes, out.RawSumMinutes, out.RangeMinutes, out.HasOverlap,
		out.MergedIntervalCount, out.Revision, out.UpdateTime, out.JornadaID, expectedRevision)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var one int
		err := j.db.QueryRowContext(ctx, `SELECT 1 FROM jornadas WHERE jornada_id=?`, out.JornadaID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, model.ErrConflict
	}
	return &out, nil
}

func (j *jornadas) Delete(ctx context.Context, jornadaID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM jornadas WHERE jornada_id=?`, jornadaID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func collectJornadas(rows *sql.Rows) ([]*model.Jornada, error) {
	defer func() { _ = rows.Close() }()
	out := []*model.Jornada{}
	for rows.Next() {
		j, err := scanJornada(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
