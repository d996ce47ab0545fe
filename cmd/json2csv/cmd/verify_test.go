package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCommandStructure(t *testing.T) {
	assert.Equal(t, "verify", verifyCmd.Use)
	assert.NotEmpty(t, verifyCmd.Short)
	assert.NotNil(t, verifyCmd.Flags().Lookup("method"))
	assert.NotNil(t, verifyCmd.RunE)
}

func TestVerifyAfterConvert(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	_, err := execute(t, "convert", "--config", cfg, "--job", "prs", "--skip-verify")
	require.NoError(t, err)

	output, err := execute(t, "verify", "--config", cfg, "--job", "prs")
	require.NoError(t, err)
	assert.Contains(t, output, "(method=count, 3 records)")

	output, err = execute(t, "verify", "--config", cfg, "--job", "prs", "--method", "sha256")
	require.NoError(t, err)
	assert.Contains(t, output, "(method=sha256, 3 records)")
	assert.Contains(t, output, "sha256: ")
}

func TestVerifyDetectsTamperedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	_, err := execute(t, "convert", "--config", cfg, "--job", "prs")
	require.NoError(t, err)

	out := filepath.Join(dir, "prs.csv")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tampered := []byte(string(data[:len(data)-1]) + "x\n")
	require.NoError(t, os.WriteFile(out, tampered, 0644))

	// same record count, so count passes and sha256 fails
	_, err = execute(t, "verify", "--config", cfg, "--job", "prs")
	require.NoError(t, err)

	output, err := execute(t, "verify", "--config", cfg, "--job", "prs", "--method", "sha256")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification mismatch")
	assert.Contains(t, output, "MISMATCH")
}

func TestVerifyIgnoresSkipSetting(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "verification:\n  skip_verification: true\n")

	_, err := execute(t, "convert", "--config", cfg, "--job", "prs")
	require.NoError(t, err)

	output, err := execute(t, "verify", "--config", cfg, "--job", "prs")
	require.NoError(t, err)
	assert.Contains(t, output, "method=count")
}

func TestVerifyMissingOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	_, err := execute(t, "verify", "--config", cfg, "--job", "prs")
	assert.Error(t, err)
}

func TestVerifyStdoutRejected(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "prs.json", samplePRs)

	_, err := execute(t, "verify", "--input", input, "--output", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdout")
}

func TestVerifyUnknownMethod(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	_, err := execute(t, "verify", "--config", cfg, "--job", "prs", "--method", "md5")
	assert.Error(t, err)
}
