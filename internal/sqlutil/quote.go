// Package sqlutil provides SQL identifier helpers for sqlora.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes an Oracle identifier (table name, column name) with
// double quotes, escaping any embedded double quote by doubling it.
// Example: "my_table" -> "\"my_table\""
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// validIdentifierRegex matches unquoted Oracle identifiers: a leading letter
// followed by letters, digits, underscore, $ or #. Generated identifiers are
// restricted further (letters, digits, underscore) by the DDL generator.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_$#]*$`)

// IsValidIdentifier checks if a name can stand unquoted in Oracle SQL.
// This is a defense-in-depth measure against SQL injection.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this when identifiers might come from untrusted sources.
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
	return "invalid identifier: " + e.Name + " (must start with a letter and contain only letters, digits, _, $ or #)"
}
