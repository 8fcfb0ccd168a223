package store

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Table is a trusted table identifier. It is interpolated into SQL text, so it
// can only be built through ParseTable.
type Table struct {
	schema string
	name   string
}

// ParseTable validates a table name of the form "name" or "schema.name".
func ParseTable(s string) (Table, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > 2 {
		return Table{}, eris.Errorf("store: table %q has too many parts", s)
	}
	for _, p := range parts {
		if !identRe.MatchString(p) {
			return Table{}, eris.Errorf("store: invalid table identifier %q", s)
		}
	}
	if len(parts) == 2 {
		return Table{schema: parts[0], name: parts[1]}, nil
	}
	return Table{name: parts[0]}, nil
}

// MustParseTable is ParseTable for compile-time constants.
func MustParseTable(s string) Table {
	t, err := ParseTable(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Schema returns the schema qualifier, if any.
func (t Table) Schema() string { return t.schema }

// Name returns the unqualified table name.
func (t Table) Name() string { return t.name }

// IsZero reports whether t was never parsed.
func (t Table) IsZero() bool { return t.name == "" }

func (t Table) String() string {
	if t.schema != "" {
		return t.schema + "." + t.name
	}
	return t.name
}
