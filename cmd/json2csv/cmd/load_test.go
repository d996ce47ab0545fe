package cmd

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const destinationConfig = `destination:
  enabled: true
  host: db.example.com
  user: loader
  password: secret
  database: exports
`

// useMockDB routes the destination connection to a sqlmock database.
func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dbOpener = func(dsn string) (*sql.DB, error) {
		assert.Contains(t, dsn, "loader:secret@tcp(db.example.com:3306)/exports")
		return db, nil
	}
	t.Cleanup(func() { dbOpener = nil })
	return mock
}

// expectSwap expects the staging table of a replace load to be renamed
// over table.
func expectSwap(mock sqlmock.Sqlmock, table string) {
	staging, old := "`"+table+"__json2csv_new`", "`"+table+"__json2csv_old`"
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS " + old)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `" + table + "` LIKE " + staging)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RENAME TABLE `" + table + "` TO " + old + ", " + staging + " TO `" + table + "`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS " + old)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestLoadCommandStructure(t *testing.T) {
	assert.Equal(t, "load", loadCmd.Use)
	assert.NotEmpty(t, loadCmd.Short)
	assert.Contains(t, loadCmd.Long, "json2csv load")
	assert.Equal(t, "t", loadCmd.Flags().Lookup("table").Shorthand)
	assert.NotNil(t, loadCmd.Flags().Lookup("mode"))
	assert.NotNil(t, loadCmd.Flags().Lookup("force"))
}

func TestLoadReplace(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)
	mock := useMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs("json2csv:load:exports.pull_requests", 1).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `pull_requests__json2csv_new`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `pull_requests__json2csv_new` (`_row_num` BIGINT NOT NULL PRIMARY KEY, `number` TEXT, `title` TEXT, `user` TEXT, `labels` TEXT, `draft` TEXT, `merged_at` TEXT)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `pull_requests__json2csv_new`")).
		WithArgs(
			int64(1), "1", "Fix, bug", `{"login":"octo"}`, `[{"name":"bug"}]`, "false", "",
			int64(2), "2", `Add "quotes"`, `{"login":"hubot"}`, "[]", "", "",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	expectSwap(mock, "pull_requests")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `pull_requests` WHERE `_row_num` >= ? AND `_row_num` < ?")).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectClose()

	output, err := execute(t, "load", "--config", cfg, "--job", "prs")
	require.NoError(t, err)

	assert.Contains(t, output, "=== Load Complete ===")
	assert.Contains(t, output, "Table: exports.pull_requests")
	assert.Contains(t, output, "Mode: replace")
	assert.Contains(t, output, "Rows Loaded: 2")
	assert.Contains(t, output, "Row Numbers: 1-2")
	assert.Contains(t, output, "passed (count)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAppendWithTableFlag(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)
	mock := useMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs("json2csv:load:exports.pr_history", 1).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `pr_history`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `pr_history` WHERE 1 = 0")).
		WillReturnRows(sqlmock.NewRows([]string{"_row_num", "number", "title"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `pr_history` ADD COLUMN `user.login` TEXT")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(`_row_num`), 0) FROM `pr_history`")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(10))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `pr_history`").
		WithArgs(int64(11), "1", "Fix, bug", "octo", int64(12), "2", `Add "quotes"`, "hubot").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectClose()

	output, err := execute(t, "load", "--config", cfg, "--job", "prs",
		"--table", "pr_history",
		"--mode", "append",
		"--strategy", "dot_notation",
		"--columns", "number,title,user.login",
		"--skip-verify",
	)
	require.NoError(t, err)
	assert.Contains(t, output, "Row Numbers: 11-12")
	assert.Contains(t, output, "skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadInsertFailureKeepsExistingTable(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)
	mock := useMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs("json2csv:load:exports.pull_requests", 1).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectExec("DROP TABLE IF EXISTS `pull_requests__json2csv_new`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `pull_requests__json2csv_new`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `pull_requests__json2csv_new`").WillReturnError(errors.New("Error 1406: Data too long"))
	mock.ExpectRollback()
	// only the staging table is cleaned up; pull_requests is never dropped
	mock.ExpectExec("^" + regexp.QuoteMeta("DROP TABLE IF EXISTS `pull_requests__json2csv_new`") + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectClose()

	_, err := execute(t, "load", "--config", cfg, "--job", "prs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load into pull_requests failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDestinationDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	_, err := execute(t, "load", "--config", cfg, "--job", "prs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestLoadNeedsTableForAdHocInput(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "prs.json", samplePRs)

	_, err := execute(t, "load", "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no destination table")
}

func TestLoadInvalidMode(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)

	_, err := execute(t, "load", "--config", cfg, "--job", "prs", "--mode", "upsert")
	assert.Error(t, err)
}

func TestLoadTableLockedElsewhere(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)
	mock := useMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(0))
	mock.ExpectClose()

	_, err := execute(t, "load", "--config", cfg, "--job", "prs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "being loaded by another instance")
	assert.NotEmpty(t, cerrors.GetAllHints(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadForceSkipsLock(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, destinationConfig)
	mock := useMockDB(t)

	mock.ExpectPing()
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	expectSwap(mock, "pull_requests")
	mock.ExpectClose()

	output, err := execute(t, "load", "--config", cfg, "--job", "prs", "--force", "--skip-verify")
	require.NoError(t, err)
	assert.Contains(t, output, "Rows Loaded: 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
