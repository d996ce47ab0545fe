package cmd

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.Contains(t, validateCmd.Long, "Example:")
	assert.Contains(t, validateCmd.Long, "json2csv validate")
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandNoJobFlag(t *testing.T) {
	// Validate operates on all jobs, not a specific one
	assert.Nil(t, validateCmd.Flags().Lookup("job"), "validate command should not have a job flag")
}

func TestValidateAllJobsPass(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	output, err := execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, output, "--- Job: prs ---")
	assert.Contains(t, output, "2 records -> 2 rows x 6 columns")
	assert.Contains(t, output, "All jobs validated successfully")
}

func TestValidateReportsMalformedInput(t *testing.T) {
	dir := t.TempDir()
	bad := writeTestFile(t, dir, "bad.json", "{not valid json")
	cfg := writeTestConfig(t, dir, "  broken:\n    input: "+bad+"\n")

	output, err := execute(t, "validate", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, output, "--- Job: broken ---")
	assert.Contains(t, output, "Input check failed")
	assert.Contains(t, output, "Hint:")
	// the good job is still checked
	assert.Contains(t, output, "2 records -> 2 rows x 6 columns")
}

func TestValidateConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestFile(t, dir, "bad.yaml", "jobs:\n  nothing:\n    output: out.csv\n")

	_, err := execute(t, "validate", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.nothing.input")
}

func TestValidateChecksEnabledDestination(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, `destination:
  enabled: true
  host: db.example.com
  user: loader
  database: exports
`)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()
	dbOpener = func(dsn string) (*sql.DB, error) { return db, nil }
	defer func() { dbOpener = nil }()

	output, err := execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, output, "--- Destination: db.example.com:3306/exports ---")
	assert.Contains(t, output, "Connection OK")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateUnreachableDestinationSingleAttempt(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, `destination:
  enabled: true
  host: db.example.com
  user: loader
  database: exports
`)

	opens := 0
	dbOpener = func(dsn string) (*sql.DB, error) {
		opens++
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()
		return db, nil
	}
	defer func() { dbOpener = nil }()

	output, err := execute(t, "validate", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, output, "failed after 1 retries")
	assert.Equal(t, 1, opens)
}
