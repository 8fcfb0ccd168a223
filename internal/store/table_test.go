package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		schema  string
		name    string
		wantErr bool
	}{
		{"prompts", "", "prompts", false},
		{"  prompts  ", "", "prompts", false},
		{"analytics.prompts", "analytics", "prompts", false},
		{"_t$1", "", "_t$1", false},
		{"", "", "", true},
		{"a.b.c", "", "", true},
		{"1prompts", "", "", true},
		{"prompts; DROP TABLE users", "", "", true},
		{"prompts`", "", "", true},
		{"schema.", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTable(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.schema, got.Schema())
			assert.Equal(t, tt.name, got.Name())
		})
	}
}

func TestTableString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "prompts", MustParseTable("prompts").String())
	assert.Equal(t, "s.prompts", MustParseTable("s.prompts").String())
	assert.True(t, Table{}.IsZero())
}

func TestMustParseTablePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParseTable("bad name") })
}

func TestDialectStatements(t *testing.T) {
	t.Parallel()

	plain := MustParseTable("prompts")
	qualified := MustParseTable("app.prompts")

	assert.Equal(t, "SELECT * FROM `prompts`", MySQL.SelectAll(plain))
	assert.Equal(t, "UPDATE `app`.`prompts` SET RESPONSE = ? WHERE id = ?", MySQL.UpdateResponse(qualified))

	assert.Equal(t, `SELECT * FROM "prompts"`, Postgres.SelectAll(plain))
	assert.Equal(t, `UPDATE "app"."prompts" SET RESPONSE = $1 WHERE id = $2`, Postgres.UpdateResponse(qualified))

	assert.Equal(t, `SELECT * FROM "prompts"`, SQLite.SelectAll(plain))
	assert.Equal(t, `UPDATE "prompts" SET RESPONSE = ? WHERE id = ?`, SQLite.UpdateResponse(plain))
}
