// Package csvout encodes Tables as RFC 4180 CSV.
package csvout

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/dbsmedya/json2csv/internal/types"
)

// Options controls CSV encoding.
type Options struct {
	Delimiter rune
	UseCRLF   bool
}

// DefaultOptions returns comma-delimited output with LF line endings.
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// ParseDelimiter converts a configured delimiter into a rune.
// The empty string selects a comma and the escape `\t` a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

// Encode writes the header row followed by every data row to w.
//
// Cells are written byte for byte. Only the record terminator follows
// UseCRLF, so a CR or CRLF inside a quoted cell is never altered.
func Encode(w io.Writer, t *types.Table, opts Options) error {
	rw := newRecordWriter(w, opts)

	if err := rw.write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := rw.write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return nil
}

// recordWriter quotes one record at a time with encoding/csv in LF mode
// and then swaps the trailing newline for the configured terminator.
// encoding/csv in CRLF mode drops a lone CR inside a field.
type recordWriter struct {
	w       io.Writer
	buf     bytes.Buffer
	cw      *csv.Writer
	newline string
}

func newRecordWriter(w io.Writer, opts Options) *recordWriter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	rw := &recordWriter{w: w, newline: "\n"}
	if opts.UseCRLF {
		rw.newline = "\r\n"
	}
	rw.cw = csv.NewWriter(&rw.buf)
	rw.cw.Comma = opts.Delimiter
	return rw
}

func (rw *recordWriter) write(record []string) error {
	rw.buf.Reset()
	if err := rw.cw.Write(record); err != nil {
		return err
	}
	rw.cw.Flush()
	if err := rw.cw.Error(); err != nil {
		return err
	}

	line := bytes.TrimSuffix(rw.buf.Bytes(), []byte("\n"))
	// A lone empty field would encode as a blank line, which readers skip.
	if len(record) == 1 && record[0] == "" {
		line = []byte(`""`)
	}
	if _, err := rw.w.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(rw.w, rw.newline)
	return err
}

// WriteFile writes t to path. The data goes to a temporary file in the same
// directory which is renamed over path only after a successful write, so
// path is never left partially written. An existing file keeps its
// permissions. Errors are marked types.ErrIOFailure.
func WriteFile(path string, t *types.Table, opts Options) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	perm, existing := os.FileMode(0644), false
	if fi, statErr := os.Stat(path); statErr == nil {
		perm, existing = fi.Mode().Perm(), true
	}

	tmp, err := createTemp(dir, base, perm)
	if err != nil {
		return types.IOFailure(err, "failed to create output for %s", path)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = Encode(bw, t, opts); err != nil {
		return types.IOFailure(err, "failed to encode %s", path)
	}
	if err = bw.Flush(); err != nil {
		return types.IOFailure(err, "failed to write %s", path)
	}
	if err = tmp.Sync(); err != nil {
		return types.IOFailure(err, "failed to sync %s", path)
	}
	if err = tmp.Close(); err != nil {
		return types.IOFailure(err, "failed to close %s", path)
	}
	if existing {
		// the umask applied at creation may have narrowed it
		if err = os.Chmod(tmp.Name(), perm); err != nil {
			return types.IOFailure(err, "failed to set permissions on %s", path)
		}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return types.IOFailure(err, "failed to move output into place at %s", path)
	}
	return nil
}

// createTemp creates a new hidden file next to base with mode perm, subject
// to the process umask.
func createTemp(dir, base string, perm os.FileMode) (*os.File, error) {
	for i := 0; ; i++ {
		name := filepath.Join(dir, "."+base+"."+strconv.FormatUint(uint64(rand.Uint32()), 36)+".tmp")
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
		if err == nil || !errors.Is(err, fs.ErrExist) || i >= 100 {
			return f, err
		}
	}
}

// ReadFile parses the CSV file at path into records, header first.
// Blank lines are skipped, as encoding/csv does.
func ReadFile(path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.IOFailure(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	return Decode(f, delimiter)
}

// Decode parses CSV from r. As with any encoding/csv reader, a CRLF inside
// a quoted field comes back as LF; compare raw bytes when that matters.
func Decode(r io.Reader, delimiter rune) ([][]string, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return records, nil
}
