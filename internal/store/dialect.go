package store

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Dialect renders the two statements the transfer runs.
type Dialect interface {
	Name() string
	Quote(t Table) string
	SelectAll(t Table) string
	// UpdateResponse takes the response value then the row id as parameters.
	UpdateResponse(t Table) string
}

// Dialects for the supported backends.
var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return DriverMySQL }

func (mysqlDialect) Quote(t Table) string {
	if t.schema != "" {
		return "`" + t.schema + "`.`" + t.name + "`"
	}
	return "`" + t.name + "`"
}

func (d mysqlDialect) SelectAll(t Table) string {
	return "SELECT * FROM " + d.Quote(t)
}

func (d mysqlDialect) UpdateResponse(t Table) string {
	return fmt.Sprintf("UPDATE %s SET RESPONSE = ? WHERE id = ?", d.Quote(t))
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return DriverPostgres }

func (postgresDialect) Quote(t Table) string {
	if t.schema != "" {
		return pgx.Identifier{t.schema, t.name}.Sanitize()
	}
	return pgx.Identifier{t.name}.Sanitize()
}

func (d postgresDialect) SelectAll(t Table) string {
	return "SELECT * FROM " + d.Quote(t)
}

func (d postgresDialect) UpdateResponse(t Table) string {
	return fmt.Sprintf("UPDATE %s SET RESPONSE = $1 WHERE id = $2", d.Quote(t))
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DriverSQLite }

func (sqliteDialect) Quote(t Table) string {
	if t.schema != "" {
		return `"` + t.schema + `"."` + t.name + `"`
	}
	return `"` + t.name + `"`
}

func (d sqliteDialect) SelectAll(t Table) string {
	return "SELECT * FROM " + d.Quote(t)
}

func (d sqliteDialect) UpdateResponse(t Table) string {
	return fmt.Sprintf("UPDATE %s SET RESPONSE = ? WHERE id = ?", d.Quote(t))
}
