package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/model"
)

// sqlConn implements Conn over database/sql, shared by the MySQL and SQLite
// backends.
type sqlConn struct {
	db        *sql.DB
	tx        *sql.Tx
	dialect   Dialect
	committed bool
}

// beginSQL pings db and starts a transaction. db is closed on failure.
func beginSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*sqlConn, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "%s: ping", dialect.Name())
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "%s: begin tx", dialect.Name())
	}
	return &sqlConn{db: db, tx: tx, dialect: dialect}, nil
}

func (c *sqlConn) Dialect() Dialect { return c.dialect }

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) ([]model.Row, error) {
	rows, err := c.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: query", c.dialect.Name())
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "%s: columns", c.dialect.Name())
	}

	var out []model.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "%s: scan row", c.dialect.Name())
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "%s: iterate rows", c.dialect.Name())
	}
	return out, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: exec", c.dialect.Name())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrapf(err, "%s: rows affected", c.dialect.Name())
	}
	return n, nil
}

func (c *sqlConn) Commit(_ context.Context) error {
	if err := c.tx.Commit(); err != nil {
		return eris.Wrapf(err, "%s: commit", c.dialect.Name())
	}
	c.committed = true
	return nil
}

func (c *sqlConn) Close(_ context.Context) error {
	var rbErr error
	if !c.committed {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rbErr = eris.Wrapf(err, "%s: rollback", c.dialect.Name())
		}
	}
	if err := c.db.Close(); err != nil {
		return eris.Wrapf(err, "%s: close", c.dialect.Name())
	}
	return rbErr
}
