package model

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Column names every exported row must carry.
const (
	ColumnID     = "id"
	ColumnPrompt = "prompt"
)

// Row is one relational record keyed by column name, as returned by the store.
type Row map[string]any

// Get returns the value of a column. An exact match wins; otherwise a single
// case-insensitive match is used, since MySQL column names are not case
// sensitive. Several columns differing only by case are an error.
func (r Row) Get(column string) (any, error) {
	if v, ok := r[column]; ok {
		return v, nil
	}
	var matches []string
	for k := range r {
		if strings.EqualFold(k, column) {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return nil, eris.Errorf("model: row has no %s column", column)
	case 1:
		return r[matches[0]], nil
	default:
		slices.Sort(matches)
		return nil, eris.Errorf("model: column %s is ambiguous: %s", column, strings.Join(matches, ", "))
	}
}

// ID returns the numeric row identifier.
func (r Row) ID() (int64, error) {
	v, err := r.Get(ColumnID)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, eris.Errorf("model: id %d overflows int64", n)
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, eris.Errorf("model: id %v is not an integer", n)
		}
		return int64(n), nil
	case []byte:
		return parseID(string(n))
	case string:
		return parseID(n)
	case nil:
		return 0, eris.New("model: row id is null")
	default:
		return 0, eris.Errorf("model: unsupported id type %T", v)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: parse id %q", s)
	}
	return id, nil
}

// Prompt returns the prompt text. NULL reads as an empty prompt.
func (r Row) Prompt() (string, error) {
	v, err := r.Get(ColumnPrompt)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", nil
	default:
		return "", eris.Errorf("model: unsupported prompt type %T", v)
	}
}
