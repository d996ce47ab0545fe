// Package header derives the ordered CSV column list from flattened rows.
package header

import (
	"fmt"
	"sort"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/json2csv/internal/types"
)

// Mode selects how the header is derived.
type Mode string

const (
	// Union takes every column of every row in first-seen order.
	Union Mode = "union"
	// First takes the columns of the first row only.
	First Mode = "first"
	// Sorted takes the union sorted lexicographically.
	Sorted Mode = "sorted"
)

// ParseMode converts a configuration value into a Mode.
// The empty string selects Union.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return Union, nil
	case Union, First, Sorted:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown header mode %q", s)
	}
}

// Derive returns the header for rows. A non-empty explicit list is
// returned as is and overrides mode.
func Derive(rows []*types.Row, mode Mode, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicitHeader(explicit)
	}

	switch mode {
	case Union, "":
		return union(rows), nil
	case First:
		if len(rows) == 0 {
			return []string{}, nil
		}
		return rows[0].Columns(), nil
	case Sorted:
		cols := union(rows)
		sort.Strings(cols)
		return cols, nil
	default:
		return nil, fmt.Errorf("unknown header mode %q", mode)
	}
}

func union(rows []*types.Row) []string {
	seen := orderedmap.NewOrderedMap[string, struct{}]()
	for _, row := range rows {
		for _, col := range row.Columns() {
			if _, ok := seen.Get(col); !ok {
				seen.Set(col, struct{}{})
			}
		}
	}
	cols := make([]string, 0, seen.Len())
	for el := seen.Front(); el != nil; el = el.Next() {
		cols = append(cols, el.Key)
	}
	return cols
}

func explicitHeader(cols []string) ([]string, error) {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		if col == "" {
			return nil, fmt.Errorf("empty column name in explicit header")
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate column %q in explicit header", col)
		}
		seen[col] = true
		out = append(out, col)
	}
	return out, nil
}

// Dropped returns the columns present in rows but missing from header,
// in first-seen order.
func Dropped(rows []*types.Row, header []string) []string {
	in := make(map[string]bool, len(header))
	for _, col := range header {
		in[col] = true
	}
	var out []string
	for _, col := range union(rows) {
		if !in[col] {
			out = append(out, col)
		}
	}
	return out
}
