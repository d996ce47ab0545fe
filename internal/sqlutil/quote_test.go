package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pull_requests", "`pull_requests`"},
		{"user.login", "`user.login`"},
		{"labels_0.name", "`labels_0.name`"},
		{"a b", "`a b`"},
		{"my`col", "`my``col`"},
		{"`", "````"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "`_row_num`, `number`, `user.login`", QuoteList(RowNumColumn, "number", "user.login"))
	assert.Equal(t, "", QuoteList())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "(?)", Placeholders(1))
	assert.Equal(t, "(?, ?, ?)", Placeholders(3))
	assert.Equal(t, "()", Placeholders(0))
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"issues", "pull_requests", "PRs2024", "___"}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), name)
	}

	invalid := []string{
		"",
		"pull requests",
		"pull-requests",
		"forge.issues",
		"my`table",
		"issues; DROP TABLE issues--",
		"table$name",
		"table'name",
	}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), name)
	}
}

func TestQuoteIdentifierSafe(t *testing.T) {
	quoted, err := QuoteIdentifierSafe("issues")
	require.NoError(t, err)
	assert.Equal(t, "`issues`", quoted)

	quoted, err = QuoteIdentifierSafe("issues; DROP TABLE issues--")
	assert.Empty(t, quoted)
	require.Error(t, err)
	assert.IsType(t, &InvalidIdentifierError{}, err)
	assert.Contains(t, err.Error(), "invalid identifier: issues; DROP TABLE issues--")
}
