// Package flatten turns decoded Records into Rows of cell text.
package flatten

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbsmedya/json2csv/internal/source"
	"github.com/dbsmedya/json2csv/internal/types"
)

// Strategy selects how nested objects and arrays become cells.
type Strategy string

const (
	// JSONString writes nested objects and arrays as compact JSON text.
	JSONString Strategy = "json_string"
	// DotNotation flattens objects into parent.child columns and joins
	// arrays of scalars with the list separator.
	DotNotation Strategy = "dot_notation"
	// SeparateColumns flattens objects and gives every array element its
	// own key_<i> column.
	SeparateColumns Strategy = "separate_columns"
	// Normalize flattens objects and keeps arrays as compact JSON.
	Normalize Strategy = "normalize"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{JSONString, DotNotation, SeparateColumns, Normalize}

// ParseStrategy converts a configuration value into a Strategy.
// The empty string selects JSONString.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return JSONString, nil
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown flatten strategy %q", s)
}

// Options configures a Flattener.
type Options struct {
	Strategy      Strategy
	Separator     string // joins parent and child keys
	ListSeparator string // joins scalar array elements under DotNotation
	Explode       string // array field exploded into one row per element
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Strategy:      JSONString,
		Separator:     ".",
		ListSeparator: ", ",
	}
}

// Flattener converts Records to Rows under one strategy.
type Flattener struct {
	opts Options
}

// New creates a Flattener. Empty separators fall back to the defaults.
func New(opts Options) (*Flattener, error) {
	st, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	opts.Strategy = st

	def := DefaultOptions()
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	if opts.ListSeparator == "" {
		opts.ListSeparator = def.ListSeparator
	}
	return &Flattener{opts: opts}, nil
}

// Strategy returns the strategy in use.
func (f *Flattener) Strategy() Strategy {
	return f.opts.Strategy
}

// FlattenAll flattens every record of rs, exploding when configured.
// Row order follows record order.
func (f *Flattener) FlattenAll(rs *types.RecordSet) ([]*types.Row, error) {
	rows := make([]*types.Row, 0, rs.Len())
	for i, rec := range rs.Records {
		recRows, err := f.Rows(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, recRows...)
	}
	return rows, nil
}

// Rows returns the rows produced by one record: exactly one unless an
// explode field is configured.
func (f *Flattener) Rows(rec *types.Record) ([]*types.Row, error) {
	records := []*types.Record{rec}
	if f.opts.Explode != "" {
		var err error
		if records, err = Explode(rec, f.opts.Explode); err != nil {
			return nil, err
		}
	}

	rows := make([]*types.Row, 0, len(records))
	for _, r := range records {
		row, err := f.Flatten(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Flatten converts one record to a row. Column order follows field order.
func (f *Flattener) Flatten(rec *types.Record) (*types.Row, error) {
	row := types.NewRow()
	if err := f.flattenRecord(row, "", rec); err != nil {
		return nil, err
	}
	return row, nil
}

func (f *Flattener) flattenRecord(row *types.Row, prefix string, rec *types.Record) error {
	for _, key := range rec.Keys() {
		value, _ := rec.Get(key)
		if err := f.flattenValue(row, f.join(prefix, key), value); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) flattenValue(row *types.Row, key string, raw json.RawMessage) error {
	switch types.KindOf(raw) {
	case types.KindObject:
		if f.opts.Strategy == JSONString {
			return setCell(row, key, raw)
		}
		obj, err := source.DecodeObject(raw)
		if err != nil {
			return types.MalformedInput(err, "field %q", key)
		}
		return f.flattenRecord(row, key, obj)

	case types.KindArray:
		switch f.opts.Strategy {
		case DotNotation:
			return f.joinList(row, key, raw)
		case SeparateColumns:
			return f.separateColumns(row, key, raw)
		default:
			return setCell(row, key, raw)
		}

	default:
		return setCell(row, key, raw)
	}
}

// joinList writes an array of non-null scalars as one joined cell.
// Any other array is kept as compact JSON.
func (f *Flattener) joinList(row *types.Row, key string, raw json.RawMessage) error {
	elems, err := source.DecodeArray(raw)
	if err != nil {
		return types.MalformedInput(err, "field %q", key)
	}

	parts := make([]string, 0, len(elems))
	for _, el := range elems {
		if !types.KindOf(el).IsScalar() {
			return setCell(row, key, raw)
		}
		cell, err := types.ToCell(el)
		if err != nil {
			return types.MalformedInput(err, "field %q", key)
		}
		parts = append(parts, cell)
	}
	row.Set(key, strings.Join(parts, f.opts.ListSeparator))
	return nil
}

func (f *Flattener) separateColumns(row *types.Row, key string, raw json.RawMessage) error {
	elems, err := source.DecodeArray(raw)
	if err != nil {
		return types.MalformedInput(err, "field %q", key)
	}

	for i, el := range elems {
		col := fmt.Sprintf("%s_%d", key, i)
		if types.KindOf(el) == types.KindObject {
			obj, err := source.DecodeObject(el)
			if err != nil {
				return types.MalformedInput(err, "field %q", col)
			}
			if err := f.flattenRecord(row, col, obj); err != nil {
				return err
			}
			continue
		}
		if err := setCell(row, col, el); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + f.opts.Separator + key
}

func setCell(row *types.Row, key string, raw json.RawMessage) error {
	cell, err := types.ToCell(raw)
	if err != nil {
		return types.MalformedInput(err, "field %q", key)
	}
	row.Set(key, cell)
	return nil
}
