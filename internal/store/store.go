// Package store opens scoped connections to the relational table that holds
// prompts and reviewer responses.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/secret"
)

// Coordinates locate one database. The password is never part of it; dialers
// obtain it from a secret.Provider.
type Coordinates struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port,omitempty" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Database string `json:"database" mapstructure:"database"`
}

// MaxPort is the largest valid TCP port.
const MaxPort = 65535

// CheckPort rejects ports that are not valid TCP ports. Zero selects the
// driver default.
func (c Coordinates) CheckPort() error {
	if c.Port < 0 || c.Port > MaxPort {
		return eris.Errorf("store: port %d out of range 0..%d", c.Port, MaxPort)
	}
	return nil
}

// Conn is one open connection with an active transaction.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) ([]model.Row, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	// Close rolls back any uncommitted work and releases the connection.
	Close(ctx context.Context) error
	Dialect() Dialect
}

// Dialer opens connections for a specific database client.
type Dialer interface {
	Dial(ctx context.Context, coords Coordinates) (Conn, error)
}

// Driver names accepted by NewDialer.
const (
	DriverSingleStore = "singlestore"
	DriverMySQL       = "mysql"
	DriverPostgres    = "postgres"
	DriverSQLite      = "sqlite"
)

// NewDialer returns the dialer for the named driver.
func NewDialer(driver string, secrets secret.Provider, attrs map[string]string) (Dialer, error) {
	switch strings.ToLower(driver) {
	case DriverSingleStore, DriverMySQL, "":
		return &MySQLDialer{Secrets: secrets, Attributes: attrs}, nil
	case DriverPostgres:
		return &PostgresDialer{Secrets: secrets, Attributes: attrs}, nil
	case DriverSQLite:
		return &SQLiteDialer{}, nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

// SelectAll fetches every row of table over a fresh connection.
func SelectAll(ctx context.Context, d Dialer, coords Coordinates, table Table) ([]model.Row, error) {
	conn, err := d.Dial(ctx, coords)
	if err != nil {
		return nil, eris.Wrapf(err, "store: connect to %s", coords.Host)
	}
	defer conn.Close(ctx) //nolint:errcheck

	rows, err := conn.Query(ctx, conn.Dialect().SelectAll(table))
	if err != nil {
		return nil, eris.Wrapf(err, "store: select from %s", table)
	}
	zap.L().Debug("store: selected rows",
		zap.String("host", coords.Host),
		zap.String("database", coords.Database),
		zap.String("table", table.String()),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// SetResponse writes value into the RESPONSE column of the row with the given
// id and commits before the connection is released. It returns the number of
// rows the update matched.
func SetResponse(ctx context.Context, d Dialer, coords Coordinates, table Table, id int64, value string) (int64, error) {
	conn, err := d.Dial(ctx, coords)
	if err != nil {
		return 0, eris.Wrapf(err, "store: connect to %s", coords.Host)
	}
	defer conn.Close(ctx) //nolint:errcheck

	n, err := conn.Exec(ctx, conn.Dialect().UpdateResponse(table), value, id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: update %s id %d", table, id)
	}
	if err := conn.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "store: commit %s id %d", table, id)
	}
	zap.L().Debug("store: response written",
		zap.String("host", coords.Host),
		zap.String("table", table.String()),
		zap.Int64("id", id),
		zap.Int64("matched", n),
	)
	return n, nil
}
