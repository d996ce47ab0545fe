// Package verifier checks that written output matches the converted Table.
package verifier

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/dbsmedya/json2csv/internal/csvout"
	"github.com/dbsmedya/json2csv/internal/logger"
	"github.com/dbsmedya/json2csv/internal/sqlutil"
	"github.com/dbsmedya/json2csv/internal/types"
)

// VerificationMethod defines how to verify data integrity.
type VerificationMethod string

const (
	// MethodCount compares row counts (fast)
	MethodCount VerificationMethod = "count"
	// MethodSHA256 compares a SHA256 hash of every cell (slower but more thorough)
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// ParseMethod converts a configured method into a VerificationMethod.
// skip wins over any method; the empty string selects MethodCount.
func ParseMethod(method string, skip bool) (VerificationMethod, error) {
	if skip {
		return MethodSkip, nil
	}
	switch VerificationMethod(method) {
	case "":
		return MethodCount, nil
	case MethodCount, MethodSHA256, MethodSkip:
		return VerificationMethod(method), nil
	default:
		return "", fmt.Errorf("unsupported verification method: %s", method)
	}
}

// VerifyResult holds the outcome of verifying one target.
type VerifyResult struct {
	Target        string
	Method        VerificationMethod
	ExpectedCount int64
	ActualCount   int64
	ExpectedHash  string
	ActualHash    string
	Match         bool
	ErrorMessage  string
}

// Verifier compares written output against the in-memory Table.
type Verifier struct {
	method    VerificationMethod
	chunkSize int // rows per SELECT when hashing a MySQL table
	logger    *logger.Logger
}

// NewVerifier creates a verifier. An empty method selects MethodCount.
func NewVerifier(method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodCount
	}
	if _, err := ParseMethod(string(method), false); err != nil {
		return nil, err
	}

	return &Verifier{
		method:    method,
		chunkSize: 1000,
		logger:    log,
	}, nil
}

// VerifyCSV re-reads the CSV file at path and compares it with table.
// The count method compares parsed records. The sha256 method compares the
// file's bytes with the encoding of table under opts, so cells containing
// CRLF are checked exactly. A mismatch is returned as an error together
// with the result.
func (v *Verifier) VerifyCSV(path string, opts csvout.Options, table *types.Table) (*VerifyResult, error) {
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyResult{Target: path, Method: MethodSkip, Match: true}, nil
	}

	records, err := csvout.ReadFile(path, opts.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("verification failed for %s: %w", path, err)
	}

	result := &VerifyResult{
		Target:        path,
		Method:        v.method,
		ExpectedCount: int64(len(readableRecords(table))),
		ActualCount:   int64(len(records)),
	}

	if v.method == MethodSHA256 {
		if result.ExpectedHash, err = encodedHash(table, opts); err != nil {
			return nil, fmt.Errorf("failed to encode expected output for %s: %w", path, err)
		}
		if result.ActualHash, err = fileHash(path); err != nil {
			return nil, fmt.Errorf("verification failed for %s: %w", path, err)
		}
	}
	return v.finish(result)
}

// VerifyMySQL compares the rows of tableName numbered from firstRow with
// the data rows of table. Columns are matched by header name.
func (v *Verifier) VerifyMySQL(ctx context.Context, db *sql.DB, tableName string, table *types.Table, firstRow int64) (*VerifyResult, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyResult{Target: tableName, Method: MethodSkip, Match: true}, nil
	}

	lastRow := firstRow + int64(table.Len())
	result := &VerifyResult{
		Target:        tableName,
		Method:        v.method,
		ExpectedCount: int64(table.Len()),
	}

	switch v.method {
	case MethodCount:
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s >= ? AND %s < ?",
			sqlutil.QuoteIdentifier(tableName), sqlutil.QuoteIdentifier(sqlutil.RowNumColumn), sqlutil.QuoteIdentifier(sqlutil.RowNumColumn))
		if err := db.QueryRowContext(ctx, query, firstRow, lastRow).Scan(&result.ActualCount); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", tableName, err)
		}

	case MethodSHA256:
		result.ExpectedHash = hashRecords(table.Rows)
		hash, count, err := v.computeTableHash(ctx, db, tableName, table.Header, firstRow, lastRow)
		if err != nil {
			return nil, fmt.Errorf("failed to compute hash for %s: %w", tableName, err)
		}
		result.ActualHash = hash
		result.ActualCount = count
	}

	return v.finish(result)
}

func (v *Verifier) finish(result *VerifyResult) (*VerifyResult, error) {
	result.Match = result.ExpectedCount == result.ActualCount && result.ExpectedHash == result.ActualHash

	if !result.Match {
		if result.ExpectedCount != result.ActualCount {
			result.ErrorMessage = fmt.Sprintf("count mismatch: expected=%d, actual=%d", result.ExpectedCount, result.ActualCount)
		} else {
			result.ErrorMessage = fmt.Sprintf("hash mismatch: expected=%s, actual=%s", result.ExpectedHash[:16], result.ActualHash[:16])
		}
		v.logger.Errorf("Verification FAILED for %q: %s", result.Target, result.ErrorMessage)
		return result, fmt.Errorf("verification mismatch in %s: %s", result.Target, result.ErrorMessage)
	}

	v.logger.Infof("Verification PASSED for %q (method=%s, %d records)", result.Target, result.Method, result.ActualCount)
	return result, nil
}

// computeTableHash hashes the rows numbered [firstRow, lastRow) in row
// number order, chunkSize rows per query.
func (v *Verifier) computeTableHash(ctx context.Context, db *sql.DB, tableName string, columns []string, firstRow, lastRow int64) (string, int64, error) {
	hasher := sha256.New()
	var totalRows int64

	selectList := sqlutil.QuoteList(columns...)
	if len(columns) == 0 {
		selectList = sqlutil.QuoteIdentifier(sqlutil.RowNumColumn)
	}
	rowNum := sqlutil.QuoteIdentifier(sqlutil.RowNumColumn)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= ? AND %s < ? ORDER BY %s",
		selectList, sqlutil.QuoteIdentifier(tableName), rowNum, rowNum, rowNum)

	for start := firstRow; start < lastRow; start += int64(v.chunkSize) {
		end := start + int64(v.chunkSize)
		if end > lastRow {
			end = lastRow
		}

		n, err := v.hashChunk(ctx, db, hasher, query, len(columns), start, end)
		if err != nil {
			return "", 0, err
		}
		totalRows += n
	}

	return hex.EncodeToString(hasher.Sum(nil)), totalRows, nil
}

func (v *Verifier) hashChunk(ctx context.Context, db *sql.DB, hasher hash.Hash, query string, numCols int, start, end int64) (int64, error) {
	rows, err := db.QueryContext(ctx, query, start, end)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var n int64
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("hash computation interrupted: %w", err)
		}

		cells := make([]string, numCols)
		values := make([]sql.NullString, numCols)
		ptrs := make([]interface{}, numCols)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if numCols == 0 {
			var discard int64
			ptrs = []interface{}{&discard}
		}
		if err := rows.Scan(ptrs...); err != nil {
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, val := range values {
			cells[i] = val.String
		}

		writeRecord(hasher, cells)
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating rows: %w", err)
	}
	return n, nil
}

// readableRecords returns what a CSV reader sees in the encoded table:
// the header and every row, or nothing when there are no columns since
// every line is then blank.
func readableRecords(t *types.Table) [][]string {
	if len(t.Header) == 0 {
		return nil
	}
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

func encodedHash(table *types.Table, opts csvout.Options) (string, error) {
	hasher := sha256.New()
	if err := csvout.Encode(hasher, table, opts); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func hashRecords(records [][]string) string {
	hasher := sha256.New()
	for _, rec := range records {
		writeRecord(hasher, rec)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// writeRecord hashes one record. Null byte separators keep cells that
// contain commas or newlines unambiguous.
func writeRecord(h hash.Hash, cells []string) {
	h.Write([]byte(strings.Join(cells, "\x00")))
	h.Write([]byte("\n"))
}

// SetChunkSize sets the number of rows fetched per query when hashing.
func (v *Verifier) SetChunkSize(size int) {
	if size > 0 {
		v.chunkSize = size
	}
}
