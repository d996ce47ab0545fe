// Package loader loads a converted Table into a MySQL table.
package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/json2csv/internal/logger"
	"github.com/dbsmedya/json2csv/internal/sqlutil"
	"github.com/dbsmedya/json2csv/internal/types"
)

// Mode selects what happens to an existing destination table.
type Mode string

const (
	// ModeReplace swaps in a freshly created table.
	ModeReplace Mode = "replace"
	// ModeAppend keeps existing rows and numbers new rows after them.
	ModeAppend Mode = "append"
)

const (
	// maxIdentifierLength is the MySQL limit for table and column names.
	maxIdentifierLength = 64
	// maxPlaceholders is the MySQL limit of bound parameters per statement.
	maxPlaceholders = 65535

	stagingSuffix  = "__json2csv_new"
	oldSuffix      = "__json2csv_old"
	cleanupTimeout = 10 * time.Second
)

// ParseMode converts a configured mode. The empty string selects ModeReplace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeReplace, nil
	case ModeReplace, ModeAppend:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported load mode: %s", s)
	}
}

// LoadStats contains statistics about a load.
type LoadStats struct {
	Table      string
	RowsLoaded int64
	Batches    int
	FirstRow   int64 // row number of the first loaded row
	Duration   time.Duration
}

// Loader inserts Table rows into a MySQL table. Every row gets a
// _row_num primary key holding its position; each cell is stored as TEXT.
type Loader struct {
	db        *sql.DB
	mode      Mode
	batchSize int
	logger    *logger.Logger
}

// NewLoader creates a loader. batchSize is the number of rows per INSERT.
func NewLoader(db *sql.DB, mode Mode, batchSize int, log *logger.Logger) (*Loader, error) {
	if db == nil {
		return nil, fmt.Errorf("destination database is nil")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeReplace
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Loader{
		db:        db,
		mode:      mode,
		batchSize: batchSize,
		logger:    log,
	}, nil
}

// Load writes table into tableName. All rows are inserted in one
// transaction, which is rolled back on any error.
//
// In replace mode the rows go into a staging table that is swapped in with
// one RENAME TABLE after the commit, so a failed or cancelled load leaves
// the existing table untouched. In append mode the table is created or
// extended with missing columns before the transaction; that DDL is kept
// even if the insert fails.
func (l *Loader) Load(ctx context.Context, tableName string, table *types.Table) (stats *LoadStats, err error) {
	startTime := time.Now()
	log := l.logger.WithTable(tableName)

	quotedTable, err := sqlutil.QuoteIdentifierSafe(tableName)
	if err != nil {
		return nil, err
	}
	if err := l.validateNames(tableName, table.Header); err != nil {
		return nil, err
	}

	target := quotedTable
	if l.mode == ModeReplace {
		target = sqlutil.QuoteIdentifier(StagingTableName(tableName))
	}

	staged := false
	defer func() {
		if err != nil && staged {
			l.dropTable(log, target)
		}
	}()

	if err := l.prepareTable(ctx, target, table.Header); err != nil {
		return nil, fmt.Errorf("failed to prepare table %s: %w", tableName, err)
	}
	staged = l.mode == ModeReplace

	firstRow := int64(1)
	if l.mode == ModeAppend {
		var maxRow int64
		query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", sqlutil.QuoteIdentifier(sqlutil.RowNumColumn), quotedTable)
		if err := l.db.QueryRowContext(ctx, query).Scan(&maxRow); err != nil {
			return nil, fmt.Errorf("failed to read last row number of %s: %w", tableName, err)
		}
		firstRow = maxRow + 1
	}

	stats = &LoadStats{Table: tableName, FirstRow: firstRow}

	log.Debug("Starting destination transaction")
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin destination transaction: %w", err)
	}

	defer func() {
		if tx != nil {
			// Transaction not yet committed - rollback
			log.Warn("Rolling back destination transaction due to error or panic")
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	batchSize := l.effectiveBatchSize(len(table.Header))
	for start := 0; start < table.Len(); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load interrupted: %w", err)
		}

		end := start + batchSize
		if end > table.Len() {
			end = table.Len()
		}

		n, err := l.insertBatch(ctx, tx, target, table.Header, table.Rows[start:end], firstRow+int64(start))
		if err != nil {
			return nil, fmt.Errorf("failed to insert batch %d into %s: %w", stats.Batches+1, tableName, err)
		}
		stats.Batches++
		stats.RowsLoaded += n
		log.WithBatch(stats.Batches).Debugf("Inserted %d rows", n)
	}

	log.Debug("Committing destination transaction")
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit destination transaction: %w", err)
	}
	tx = nil

	if l.mode == ModeReplace {
		if err := l.swapIn(ctx, log, tableName); err != nil {
			return nil, fmt.Errorf("failed to replace %s: %w", tableName, err)
		}
		staged = false
	}

	stats.Duration = time.Since(startTime)
	log.Infof("Load complete: %d rows in %d batches, duration: %s", stats.RowsLoaded, stats.Batches, stats.Duration)
	return stats, nil
}

// StagingTableName is the table a replace load fills before the swap.
func StagingTableName(tableName string) string {
	return tableName + stagingSuffix
}

// swapIn atomically exchanges tableName with its committed staging table
// and drops the previous contents.
func (l *Loader) swapIn(ctx context.Context, log *logger.Logger, tableName string) error {
	table := sqlutil.QuoteIdentifier(tableName)
	staging := sqlutil.QuoteIdentifier(StagingTableName(tableName))
	old := sqlutil.QuoteIdentifier(tableName + oldSuffix)

	stmts := []string{
		"DROP TABLE IF EXISTS " + old,
		// RENAME needs the target to exist
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s LIKE %s", table, staging),
		fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", table, old, staging, table),
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	log.Debug("Swapped staging table into place")

	l.dropTable(log, old)
	return nil
}

// dropTable removes a helper table. It runs after errors and cancellation,
// so it does not use the load's context; failures are only logged.
func (l *Loader) dropTable(log *logger.Logger, quotedTable string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if _, err := l.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quotedTable); err != nil {
		log.Warnf("Failed to drop %s: %v", quotedTable, err)
	}
}

// effectiveBatchSize caps the batch so one INSERT stays within the
// placeholder limit.
func (l *Loader) effectiveBatchSize(numCols int) int {
	limit := maxPlaceholders / (numCols + 1)
	if l.batchSize > limit {
		return limit
	}
	return l.batchSize
}

// prepareTable creates the table for header. In replace mode quotedTable is
// the staging table and any leftover from an earlier run is dropped first.
// In append mode missing columns are added to an existing table.
func (l *Loader) prepareTable(ctx context.Context, quotedTable string, header []string) error {
	if l.mode == ModeReplace {
		if _, err := l.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quotedTable); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	if _, err := l.db.ExecContext(ctx, buildCreateTableQuery(quotedTable, header)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if l.mode != ModeAppend {
		return nil
	}

	existing, err := l.tableColumns(ctx, quotedTable)
	if err != nil {
		return err
	}
	for _, col := range header {
		if existing[col] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quotedTable, sqlutil.QuoteIdentifier(col))
		if _, err := l.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
		l.logger.Infof("Added column %q to existing table", col)
	}
	return nil
}

func (l *Loader) tableColumns(ctx context.Context, quotedTable string) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", quotedTable))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}
	return out, nil
}

func (l *Loader) insertBatch(ctx context.Context, tx *sql.Tx, quotedTable string, header []string, rows [][]string, firstRow int64) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := buildInsertQuery(quotedTable, header, len(rows))
	args := make([]interface{}, 0, len(rows)*(len(header)+1))
	for i, row := range rows {
		args = append(args, firstRow+int64(i))
		for _, cell := range row {
			args = append(args, cell)
		}
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func buildCreateTableQuery(quotedTable string, header []string) string {
	defs := make([]string, 0, len(header)+1)
	defs = append(defs, sqlutil.QuoteIdentifier(sqlutil.RowNumColumn)+" BIGINT NOT NULL PRIMARY KEY")
	for _, col := range header {
		defs = append(defs, sqlutil.QuoteIdentifier(col)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) DEFAULT CHARSET=utf8mb4",
		quotedTable, strings.Join(defs, ", "))
}

// buildInsertQuery builds a multi-row INSERT for n rows.
func buildInsertQuery(quotedTable string, header []string, n int) string {
	cols := append([]string{sqlutil.RowNumColumn}, header...)

	groups := make([]string, n)
	for i := range groups {
		groups[i] = sqlutil.Placeholders(len(cols))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quotedTable, sqlutil.QuoteList(cols...), strings.Join(groups, ", "))
}

func (l *Loader) validateNames(tableName string, header []string) error {
	limit := maxIdentifierLength
	if l.mode == ModeReplace {
		limit -= len(stagingSuffix)
	}
	if len(tableName) > limit {
		return fmt.Errorf("table name %q exceeds %d characters for %s mode", tableName, limit, l.mode)
	}
	for _, col := range header {
		if col == sqlutil.RowNumColumn {
			return fmt.Errorf("column %q is reserved for row numbers", col)
		}
		if len(col) > maxIdentifierLength {
			return fmt.Errorf("column %q exceeds %d characters", col, maxIdentifierLength)
		}
		if strings.TrimSpace(col) == "" || strings.HasSuffix(col, " ") {
			return fmt.Errorf("column %q is not a valid MySQL column name", col)
		}
	}
	return nil
}
