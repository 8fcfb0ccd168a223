package store

import (
	"context"
	"database/sql"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/secret"
)

// DefaultMySQLPort is the SingleStore / MySQL listener port.
const DefaultMySQLPort = 3306

// ConnectorName identifies this client to the server in connection attributes.
const ConnectorName = "tablesync"

// Version is reported as _connector_version. Overridden at build time.
var Version = "dev"

// MySQLDialer connects to SingleStore over the MySQL wire protocol.
type MySQLDialer struct {
	Secrets secret.Provider
	// Attributes are extra client-identification key/value pairs.
	Attributes map[string]string
	// Timeout bounds the TCP dial. Zero uses the driver default.
	Timeout time.Duration
}

// Config builds the driver configuration, resolving the password.
func (d *MySQLDialer) Config(ctx context.Context, coords Coordinates) (*mysql.Config, error) {
	if err := coords.CheckPort(); err != nil {
		return nil, err
	}
	if d.Secrets == nil {
		return nil, eris.New("mysql: no secret provider")
	}
	pw, err := d.Secrets.Secret(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "mysql: resolve password")
	}

	port := coords.Port
	if port == 0 {
		port = DefaultMySQLPort
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(coords.Host, strconv.Itoa(port))
	cfg.User = coords.User
	cfg.Passwd = pw
	cfg.DBName = coords.Database
	cfg.ConnectionAttributes = formatAttributes(d.Attributes)
	if d.Timeout > 0 {
		cfg.Timeout = d.Timeout
	}
	return cfg, nil
}

func (d *MySQLDialer) Dial(ctx context.Context, coords Coordinates) (Conn, error) {
	cfg, err := d.Config(ctx, coords)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "mysql: new connector")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	return beginSQL(ctx, db, MySQL)
}

// formatAttributes renders connection attributes as sorted "key:value" pairs.
// The connector name and version are always present.
func formatAttributes(extra map[string]string) string {
	attrs := map[string]string{
		"_connector_name":    ConnectorName,
		"_connector_version": Version,
	}
	for k, v := range extra {
		attrs[k] = v
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+attrs[k])
	}
	return strings.Join(pairs, ",")
}
