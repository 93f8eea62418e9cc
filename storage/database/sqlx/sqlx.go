package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
)

const uniqueViolation = "23505"

var (
	psql   = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	mapper = reflectx.NewMapperFunc("db", sqlx.NameMapper)
)

// repository holds what every repository of this package shares.
type repository struct {
	db *sqlx.DB
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// selectRows scans every row returned by query into dest, a pointer to a slice of structs.
func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// getRow scans the first row returned by query into dest, a pointer to a struct.
// It returns sql.ErrNoRows when there is no row.
func getRow(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	r := &sqlx.Rows{Rows: rows, Mapper: mapper}
	defer func() { _ = r.Close() }()

	if !r.Next() {
		if err = r.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err = r.StructScan(dest); err != nil {
		return err
	}
	return r.Close()
}

func execStmt(ctx context.Context, exec core.DBExecutor, query sq.Sqlizer) (sql.Result, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return exec.ExecContext(ctx, q, args...)
}

// trapNoRowsErr maps psql "no rows" err to a core.NotFoundError, other errors to a core.PersistenceError.
func trapNoRowsErr(err error, resource string, id interface{}, op string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return core.NewNotFoundError(resource, id)
	}
	return core.NewPersistenceError(err, op)
}

// isUniqueViolation reports whether err is a psql unique violation of the given constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

// prefixed returns the columns qualified with the table alias.
func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
