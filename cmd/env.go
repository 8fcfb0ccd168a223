package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tablesync/internal/config"
	"github.com/sells-group/tablesync/internal/platform"
	"github.com/sells-group/tablesync/internal/secret"
	"github.com/sells-group/tablesync/internal/store"
	"github.com/sells-group/tablesync/internal/transfer"
	"github.com/sells-group/tablesync/pkg/dataloop"
	"github.com/sells-group/tablesync/pkg/notion"
)

// initService builds the transfer service from configuration. The store
// password is read from the environment only when a connection is opened.
func initService(c *config.Config) (*transfer.Service, error) {
	dialer, err := store.NewDialer(c.Store.Driver, secret.FromEnv(c.Store.PasswordEnv), c.Store.Attributes)
	if err != nil {
		return nil, err
	}
	p, err := newPlatform(c)
	if err != nil {
		return nil, err
	}
	return transfer.New(dialer, p), nil
}

func newPlatform(c *config.Config) (platform.Platform, error) {
	switch c.Platform.Provider {
	case platform.ProviderDataloop, "":
		opts := []dataloop.Option{dataloop.WithRateLimit(c.Dataloop.RateLimit)}
		if c.Dataloop.BaseURL != "" {
			opts = append(opts, dataloop.WithBaseURL(c.Dataloop.BaseURL))
		}
		return platform.NewDataloop(dataloop.NewClient(c.Dataloop.Token, opts...)), nil
	case platform.ProviderNotion:
		client := notion.NewClient(c.Notion.Token, notion.WithRateLimit(c.Notion.RateLimit))
		return platform.NewNotion(client, c.Notion.ResponseDB), nil
	default:
		return nil, eris.Errorf("unsupported platform provider %q", c.Platform.Provider)
	}
}

// tableFlags are the store location flags shared by export, update and sweep.
// Unset flags fall back to the store section of the config.
type tableFlags struct {
	host     string
	port     int
	user     string
	database string
	table    string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "database host (default from config)")
	cmd.Flags().IntVar(&f.port, "port", 0, "database port (default per driver)")
	cmd.Flags().StringVar(&f.user, "user", "", "database user (default from config)")
	cmd.Flags().StringVar(&f.database, "database", "", "database name, or file path for sqlite")
	cmd.Flags().StringVar(&f.table, "table", "", "table holding id, prompt and RESPONSE columns")
}

// resolve merges flags over config and validates the table name.
func (f *tableFlags) resolve(sc config.StoreConfig) (store.Coordinates, store.Table, error) {
	coords := store.Coordinates{
		Host:     firstNonEmpty(f.host, sc.Host),
		Port:     resolvePort(f.port, sc.Port),
		User:     firstNonEmpty(f.user, sc.User),
		Database: firstNonEmpty(f.database, sc.Database),
	}
	if err := coords.CheckPort(); err != nil {
		return coords, store.Table{}, err
	}
	name := firstNonEmpty(f.table, sc.Table)
	if name == "" {
		return coords, store.Table{}, eris.New("--table is required")
	}
	table, err := store.ParseTable(name)
	if err != nil {
		return coords, store.Table{}, err
	}
	return coords, table, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolvePort returns the flag port if non-zero, otherwise the config port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}
