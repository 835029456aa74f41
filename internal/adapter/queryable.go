package adapter

import (
	"context"
	"errors"
	"math"

	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/logger"
)

// queryable runs statements on one handle. lock serialises access to that
// handle: the connection lock for the root adapter, a handle-local lock for
// transaction contexts and transactions (whose connection lock is already
// held through a Release token).
type queryable struct {
	exec     Executor
	classify func(error) (*errs.DatabaseError, bool)
	provider Provider
	lock     *Lock
	name     string
	log      *logger.Logger

	// guard, when set, runs once the lock is held and vetoes the call if
	// the handle is no longer usable.
	guard func() error
}

func newQueryable(exec Executor, conn Conn, lock *Lock, name string, log *logger.Logger) *queryable {
	return &queryable{
		exec:     exec,
		classify: conn.Classify,
		provider: conn.Provider(),
		lock:     lock,
		name:     name,
		log:      log,
	}
}

func (q *queryable) Provider() Provider  { return q.provider }
func (q *queryable) AdapterName() string { return q.name }

func (q *queryable) QueryRaw(ctx context.Context, query Query) (*ResultSet, error) {
	q.log.Query("query_raw", query.SQL, query.Args)

	var raw *RawResult
	err := q.performIO(ctx, func(ctx context.Context) error {
		var err error
		raw, err = q.exec.Query(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	types := InferColumnTypes(raw.DeclaredTypes, raw.Rows)
	rows, err := MapRows(raw.Rows, types)
	if err != nil {
		return nil, err
	}

	return &ResultSet{
		ColumnNames: raw.Columns,
		ColumnTypes: types,
		Rows:        rows,
	}, nil
}

func (q *queryable) ExecuteRaw(ctx context.Context, query Query) (int32, error) {
	q.log.Query("execute_raw", query.SQL, query.Args)

	var res *ExecResult
	err := q.performIO(ctx, func(ctx context.Context) error {
		var err error
		res, err = q.exec.Exec(ctx, query)
		return err
	})
	if err != nil {
		return 0, err
	}

	if res == nil || res.RowsAffected == nil {
		return 0, nil
	}
	n := *res.RowsAffected
	if n > math.MaxInt32 {
		q.log.WarnWith("affected row count narrowed", nil, map[string]any{
			"rows_affected": n,
			"reported":      math.MaxInt32,
		})
		return math.MaxInt32, nil
	}
	return int32(n), nil
}

// performIO holds the handle lock for the duration of fn and translates the
// driver error, if any.
func (q *queryable) performIO(ctx context.Context, fn func(context.Context) error) error {
	release, err := q.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if q.guard != nil {
		if err := q.guard(); err != nil {
			return err
		}
	}
	if err := fn(ctx); err != nil {
		q.log.DebugWith("error in performIO", err, nil)
		return q.mapError(err, "query failed")
	}
	return nil
}

// mapError returns a *errs.DatabaseError when a recognised engine error is
// found within errs.MaxCauseDepth links of err, and a fatal *errs.Error
// otherwise.
func (q *queryable) mapError(err error, msg string) error {
	if dbErr, ok := errs.FindCause(err, errs.MaxCauseDepth, q.classify); ok {
		return dbErr
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return errs.Wrap(errs.ErrKindDriver, msg, err)
}
