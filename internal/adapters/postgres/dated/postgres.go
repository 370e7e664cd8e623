// Package dated implements internal/jobs.DatedStore against a
// `dated_jobs(id PRIMARY KEY, job_type, fire_at, payload)` table, backing
// the delinquency-progression scheduler (obligation due/overdue/
// defaulted) per spec.md §9 Design Notes "dated jobs are persisted
// rows ... a scheduler polls for due rows."
package dated

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
)

// Store implements jobs.DatedStore over a *pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a postgres-backed Store.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

var _ jobs.DatedStore = (*Store)(nil)

// Spawn persists a new dated job row. Idempotent on id: a duplicate
// spawn (e.g. a retried obligation-creation consumer) is silently
// ignored.
func (s *Store) Spawn(ctx context.Context, job jobs.DatedJob) error {
	insert := sq.Insert("dated_jobs").
		Columns("id", "job_type", "fire_at", "payload").
		Values(job.ID, job.JobType, job.FireAt, job.Payload).
		Suffix("ON CONFLICT (id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(err, "build dated job insert")
	}

	_, err = s.pool.Exec(ctx, sqlStr, args...)
	return errors.Wrap(err, "insert dated job")
}

// DueBefore returns every job with fire_at <= at, oldest first.
func (s *Store) DueBefore(ctx context.Context, at time.Time, limit int) ([]jobs.DatedJob, error) {
	query := sq.Select("id", "job_type", "fire_at", "payload").
		From("dated_jobs").
		Where(sq.LtOrEq{"fire_at": at}).
		OrderBy("fire_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build due jobs query")
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query due jobs")
	}
	defer rows.Close()

	var out []jobs.DatedJob

	for rows.Next() {
		var job jobs.DatedJob

		if err := rows.Scan(&job.ID, &job.JobType, &job.FireAt, &job.Payload); err != nil {
			return nil, errors.Wrap(err, "scan dated job row")
		}

		out = append(out, job)
	}

	return out, rows.Err()
}

// Delete removes a job row once it has fired.
func (s *Store) Delete(ctx context.Context, id string) error {
	del := sq.Delete("dated_jobs").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := del.ToSql()
	if err != nil {
		return errors.Wrap(err, "build dated job delete")
	}

	_, err = s.pool.Exec(ctx, sqlStr, args...)
	return errors.Wrap(err, "delete dated job")
}
