// Package converter turns an issue or pull request JSON export into CSV.
//
// A conversion is a single linear pass: the whole input is decoded into a
// RecordSet, every Record is flattened into Rows, the header is derived from
// the Rows and the resulting Table is written to the output path. Malformed
// input is detected before the output is touched and the output file is
// replaced atomically, so a failed run never leaves a partial CSV behind.
package converter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbsmedya/json2csv/internal/config"
	"github.com/dbsmedya/json2csv/internal/csvout"
	"github.com/dbsmedya/json2csv/internal/flatten"
	"github.com/dbsmedya/json2csv/internal/header"
	"github.com/dbsmedya/json2csv/internal/logger"
	"github.com/dbsmedya/json2csv/internal/source"
	"github.com/dbsmedya/json2csv/internal/types"
)

// Error kinds returned by Convert. Use errors.Is to test for them.
var (
	ErrMalformedInput = types.ErrMalformedInput
	ErrIOFailure      = types.ErrIOFailure
)

// StdoutPath as an output path streams the CSV to standard output.
const StdoutPath = "-"

// Options configures a Converter.
type Options struct {
	Strategy      flatten.Strategy
	HeaderMode    header.Mode
	Columns       []string // explicit header, overrides HeaderMode
	Separator     string
	ListSeparator string
	Explode       string
	DataPath      string
	Delimiter     rune
	UseCRLF       bool
}

// CSV returns the encoding options of the written output.
func (o Options) CSV() csvout.Options {
	return csvout.Options{Delimiter: o.Delimiter, UseCRLF: o.UseCRLF}
}

// DefaultOptions returns the options used by the package-level Convert:
// nested values as JSON text, union header, comma delimiter.
func DefaultOptions() Options {
	f := flatten.DefaultOptions()
	return Options{
		Strategy:      f.Strategy,
		HeaderMode:    header.Union,
		Separator:     f.Separator,
		ListSeparator: f.ListSeparator,
		Delimiter:     ',',
	}
}

// OptionsFromConfig builds Options from a job and its effective processing
// settings. job may be nil for ad hoc conversions.
func OptionsFromConfig(job *config.JobConfig, p config.ProcessingConfig) (Options, error) {
	strategy, err := flatten.ParseStrategy(p.Strategy)
	if err != nil {
		return Options{}, err
	}
	mode, err := header.ParseMode(p.HeaderMode)
	if err != nil {
		return Options{}, err
	}
	delim, err := csvout.ParseDelimiter(p.Delimiter)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Strategy:      strategy,
		HeaderMode:    mode,
		Separator:     p.Separator,
		ListSeparator: p.ListSeparator,
		Delimiter:     delim,
		UseCRLF:       p.UseCRLF,
	}
	if job != nil {
		opts.Columns = job.Columns
		opts.Explode = job.Explode
		opts.DataPath = job.DataPath
	}
	return opts, nil
}

// Result describes a completed conversion.
type Result struct {
	InputPath     string
	OutputPath    string
	RecordsRead   int
	WrappedValues int
	RowsWritten   int
	Columns       []string
	Duration      time.Duration
	Table         *types.Table // the written table, for verification
}

// Converter runs conversions with fixed options.
type Converter struct {
	opts      Options
	flattener *flatten.Flattener
	log       *logger.Logger
	stdout    io.Writer
}

// New creates a Converter. A nil logger discards log output.
func New(opts Options, log *logger.Logger) (*Converter, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.HeaderMode == "" {
		opts.HeaderMode = header.Union
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	f, err := flatten.New(flatten.Options{
		Strategy:      opts.Strategy,
		Separator:     opts.Separator,
		ListSeparator: opts.ListSeparator,
		Explode:       opts.Explode,
	})
	if err != nil {
		return nil, err
	}
	opts.Strategy = f.Strategy()

	return &Converter{
		opts:      opts,
		flattener: f,
		log:       log,
		stdout:    os.Stdout,
	}, nil
}

// Options returns the effective options.
func (c *Converter) Options() Options {
	return c.opts
}

// SetStdout redirects output written to StdoutPath.
func (c *Converter) SetStdout(w io.Writer) {
	c.stdout = w
}

// Convert converts inputPath and writes the CSV to outputPath.
func Convert(inputPath, outputPath string) error {
	c, err := New(DefaultOptions(), nil)
	if err != nil {
		return err
	}
	_, err = c.Convert(inputPath, outputPath)
	return err
}

// Build reads and flattens inputPath into a Table without writing anything.
func (c *Converter) Build(inputPath string) (*types.Table, *types.RecordSet, error) {
	table, rs, _, err := c.BuildRows(inputPath)
	return table, rs, err
}

// BuildRows is Build that also returns the flattened Rows, including
// cells for columns the header drops.
func (c *Converter) BuildRows(inputPath string) (*types.Table, *types.RecordSet, []*types.Row, error) {
	log := c.log.WithInput(inputPath)

	rs, err := source.ReadFile(inputPath, source.Options{DataPath: c.opts.DataPath}, log)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := c.flattener.FlattenAll(rs)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debugw("Flattened records",
		"strategy", c.opts.Strategy,
		"records", rs.Len(),
		"rows", len(rows),
	)

	cols, err := header.Derive(rows, c.opts.HeaderMode, c.opts.Columns)
	if err != nil {
		return nil, nil, nil, err
	}
	if dropped := header.Dropped(rows, cols); len(dropped) > 0 {
		log.Warnw("Columns not in header are dropped",
			"header_mode", c.opts.HeaderMode,
			"dropped", dropped,
		)
	}

	table := types.NewTable(cols, rows)
	if err := table.Validate(); err != nil {
		return nil, nil, nil, err
	}
	return table, rs, rows, nil
}

// Convert converts inputPath and writes the CSV to outputPath.
// Errors are marked ErrMalformedInput or ErrIOFailure.
func (c *Converter) Convert(inputPath, outputPath string) (*Result, error) {
	start := time.Now()
	log := c.log.WithInput(inputPath)
	log.Infow("Starting conversion", "output", outputPath, "strategy", c.opts.Strategy)

	table, rs, err := c.Build(inputPath)
	if err != nil {
		return nil, err
	}

	if err := c.Write(outputPath, table); err != nil {
		return nil, err
	}

	res := &Result{
		InputPath:     inputPath,
		OutputPath:    outputPath,
		RecordsRead:   rs.Len(),
		WrappedValues: rs.Stats.WrappedValues,
		RowsWritten:   table.Len(),
		Columns:       table.Header,
		Duration:      time.Since(start),
		Table:         table,
	}
	log.Infow("Conversion complete",
		"output", outputPath,
		"records", res.RecordsRead,
		"rows", res.RowsWritten,
		"columns", len(res.Columns),
		"duration", res.Duration,
	)
	return res, nil
}

// Write encodes table to outputPath, or to standard output for StdoutPath.
func (c *Converter) Write(outputPath string, table *types.Table) error {
	opts := c.opts.CSV()
	if outputPath == StdoutPath {
		if err := csvout.Encode(c.stdout, table, opts); err != nil {
			return types.IOFailure(err, "failed to write CSV to stdout")
		}
		return nil
	}
	return csvout.WriteFile(outputPath, table, opts)
}

// DefaultOutputPath names the output after the input file and strategy,
// e.g. prs9.json -> output_prs9_json_string.csv.
func DefaultOutputPath(inputPath string, strategy flatten.Strategy) string {
	if strategy == "" {
		strategy = flatten.JSONString
	}
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("output_%s_%s.csv", base, strategy)
}
