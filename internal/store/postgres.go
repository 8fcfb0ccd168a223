package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/secret"
)

// DefaultPostgresPort is the standard Postgres listener port.
const DefaultPostgresPort = 5432

// pgxConn is the subset of *pgx.Conn the dialer needs. pgxmock satisfies it.
type pgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// PostgresDialer connects with pgx.
type PostgresDialer struct {
	Secrets secret.Provider
	// Attributes are reported through application_name.
	Attributes map[string]string

	connect func(ctx context.Context, cfg *pgx.ConnConfig) (pgxConn, error)
}

// ConnConfig builds the pgx configuration, resolving the password.
func (d *PostgresDialer) ConnConfig(ctx context.Context, coords Coordinates) (*pgx.ConnConfig, error) {
	if err := coords.CheckPort(); err != nil {
		return nil, err
	}
	if d.Secrets == nil {
		return nil, eris.New("postgres: no secret provider")
	}
	pw, err := d.Secrets.Secret(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: resolve password")
	}

	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	port := coords.Port
	if port == 0 {
		port = DefaultPostgresPort
	}
	cfg.Host = coords.Host
	cfg.Port = uint16(port)
	cfg.User = coords.User
	cfg.Password = pw
	cfg.Database = coords.Database
	cfg.RuntimeParams["application_name"] = applicationName(d.Attributes)
	return cfg, nil
}

func (d *PostgresDialer) Dial(ctx context.Context, coords Coordinates) (Conn, error) {
	cfg, err := d.ConnConfig(ctx, coords)
	if err != nil {
		return nil, err
	}
	connect := d.connect
	if connect == nil {
		connect = func(ctx context.Context, cfg *pgx.ConnConfig) (pgxConn, error) {
			return pgx.ConnectConfig(ctx, cfg)
		}
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Close(ctx) //nolint:errcheck
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	return &pgConn{conn: conn, tx: tx}, nil
}

// applicationName folds client attributes into a single application_name.
func applicationName(attrs map[string]string) string {
	if name := attrs["program_name"]; name != "" {
		return name
	}
	return ConnectorName
}

type pgConn struct {
	conn      pgxConn
	tx        pgx.Tx
	committed bool
}

func (c *pgConn) Dialect() Dialect { return Postgres }

func (c *pgConn) Query(ctx context.Context, query string, args ...any) ([]model.Row, error) {
	rows, err := c.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []model.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: row values")
		}
		row := make(model.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rows")
	}
	return out, nil
}

func (c *pgConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: exec")
	}
	return tag.RowsAffected(), nil
}

func (c *pgConn) Commit(ctx context.Context) error {
	if err := c.tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	c.committed = true
	return nil
}

func (c *pgConn) Close(ctx context.Context) error {
	var rbErr error
	if !c.committed {
		if err := c.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			rbErr = eris.Wrap(err, "postgres: rollback")
		}
	}
	if err := c.conn.Close(ctx); err != nil {
		return eris.Wrap(err, "postgres: close")
	}
	return rbErr
}
