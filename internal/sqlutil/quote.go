// Package sqlutil provides SQL helpers for the MySQL sink.
package sqlutil

import (
	"regexp"
	"strings"
)

// RowNumColumn is the primary key column holding a loaded row's position.
const RowNumColumn = "_row_num"

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// backtick inside it. Flattened column names such as "user.login" stay a
// single identifier: "user.login" -> "`user.login`".
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteList quotes every name and joins them with ", ".
func QuoteList(names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// Placeholders returns n comma-separated "?" markers in parentheses.
func Placeholders(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

// validIdentifierRegex restricts table names to alphanumerics and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name is a plain table name.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes name after validating it with IsValidIdentifier.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
