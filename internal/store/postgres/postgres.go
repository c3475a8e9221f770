package postgres

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
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

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

type pgStore struct{ db *sql.DB }

func (s *pgStore) Activities() store.Activities { return &activities{db: s.db} }
func (s *pgStore) Jornadas() store.Jornadas     { return &jornadas{db: s.db} }

// HealthPing implements store.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
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

func scanActivity(row rowScanner) (*model.Activity, error) {
	var a model.Activity
	var start, end sql.NullTime
	var supplies []byte
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
	if len(supplies) > 0 {
		if err := json.Unmarshal(supplies, &a.Supplies); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func scanJornada(row rowScanner) (*model.Jornada, error) {
	var j model.Jornada
	var rangeStart, rangeEnd sql.NullTime
	var ids []byte
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
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &j.ActivityIDs); err != nil {
			return nil, err
		}
	}
	return &j, nil
}

func suppliesJSON(supplies []string) ([]byte, error) {
	if supplies == nil {
		supplies = []string{}
	}
	return json.Marshal(supplies)
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

	supplies, err := suppliesJSON(out.Supplies)
	if err != nil {
		return nil, err
	}
	_, err = a.db.ExecContext(ctx, `
        INSERT INTO activities (`+activityColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, out.ActivityID, out.OperatorID, out.Day, out.Start, out.End, out.DurationMinutes,
		out.JornadaID, out.WorkOrder, out.Process, out.Machine, out.Area, supplies,
		out.CreationTime, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *activities) Get(ctx context.Context, activityID string) (*model.Activity, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id=$1
    `, activityID)
	out, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return out, err
}

func (a *activities) Update(ctx context.Context, in *model.Activity) (*model.Activity, error) {
	supplies, err := suppliesJSON(in.Supplies)
	if err != nil {
		return nil, err
	}
	out := *in
	out.UpdateTime = time.Now().UTC()
	res, err := a.db.ExecContext(ctx, `
        UPDATE activities
        SET day=$2, start_time=$3, end_time=$4, duration_minutes=$5, jornada_id=$6,
            work_order=$7, process=$8, machine=$9, area=$10, supplies=$11, update_time=$12
        WHERE activity_id=$1
    `, out.ActivityID, out.Day, out.Start, out.End, out.DurationMinutes, out.JornadaID,
		out.WorkOrder, out.Process, out.Machine, out.Area, supplies, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, model.ErrNotFound
	}
	return &out, nil
}

func (a *activities) Delete(ctx context.Context, activityID string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM activities WHERE activity_id=$1`, activityID)
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
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id = ANY($1)
    `, ids)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (a *activities) ListByOperator(ctx context.Context, operatorID string) ([]*model.Activity, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE operator_id=$1 ORDER BY activity_id
    `, operatorID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (a *activities) ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Activity, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+activityColumns+` FROM activities WHERE activity_id > $1 ORDER BY activity_id LIMIT $2
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
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, out.JornadaID, out.OperatorID, out.Day, ids, out.RangeStart, out.RangeEnd,
		out.EffectiveMinutes, out.RawSumMinutes, out.RangeMinutes, out.HasOverlap,
		out.MergedIntervalCount, out.Revision, out.CreationTime, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (j *jornadas) Get(ctx context.Context, jornadaID string) (*model.Jornada, error) {
	row := j.db.QueryRowContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE jornada_id=$1
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
        WHERE operator_id=$1 AND day >= $2 AND day <= $3
        ORDER BY creation_time, jornada_id LIMIT 1
    `, operatorID, dayStart, dayEnd)
	out, err := scanJornada(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return out, err
}

func (j *jornadas) ListByOperator(ctx context.Context, operatorID string) ([]*model.Jornada, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE operator_id=$1 ORDER BY day
    `, operatorID)
	if err != nil {
		return nil, err
	}
	return collectJornadas(rows)
}

func (j *jornadas) ListBatch(ctx context.Context, afterID string, limit int) ([]*model.Jornada, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT `+jornadaColumns+` FROM jornadas WHERE jornada_id > $1 ORDER BY jornada_id LIMIT $2
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
        SET day=$2, activity_ids=$3, range_start=$4, range_end=$5, effective_minutes=$6,
            raw_sum_minutes=$7, range_minutes=$8, has_overlap=$9, merged_interval_count=$10,
            revision=$11, update_time=$12
        WHERE jornada_id=$1 AND revision=$13
    `, out.JornadaID, out.Day, ids, out.RangeStart, out.RangeEnd, out.EffectiveMinutes,
		out.RawSumMinutes, out.RangeMinutes, out.HasOverlap, out.MergedIntervalCount,
		out.Revision, out.UpdateTime, expectedRevision)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Distinguish a stale revision from a missing row.
		var one int
		err := j.db.QueryRowContext(ctx, `SELECT 1 FROM jornadas WHERE jornada_id=$1`, out.JornadaID).Scan(&one)
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
	res, err := j.db.ExecContext(ctx, `DELETE FROM jornadas WHERE jornada_id=$1`, jornadaID)
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
