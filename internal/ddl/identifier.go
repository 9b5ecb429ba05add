// Package ddl renders the extracted schema model into Oracle DDL.
package ddl

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxIdentifierLength is the Oracle identifier byte limit this generator
// targets. 12.2+ allows 128, but 30 keeps the output portable to every
// supported server version.
const MaxIdentifierLength = 30

// GenerationError reports an unresolvable naming collision or a residual
// cycle. It is fatal for the affected source file.
type GenerationError struct {
	Subject string
	Reason  string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ddl generation failed for %q: %s", e.Subject, e.Reason)
}

// oracleReservedWords are words that cannot stand as unquoted identifiers.
// Covers Oracle reserved words plus keywords that break DDL in practice.
var oracleReservedWords = map[string]bool{
	"ACCESS": true, "ADD": true, "ALL": true, "ALTER": true, "AND": true,
	"ANY": true, "AS": true, "ASC": true, "AUDIT": true, "BETWEEN": true,
	"BY": true, "CHAR": true, "CHECK": true, "CLUSTER": true, "COLUMN": true,
	"COMMENT": true, "COMPRESS": true, "CONNECT": true, "CREATE": true,
	"CURRENT": true, "DATE": true, "DECIMAL": true, "DEFAULT": true,
	"DELETE": true, "DESC": true, "DISTINCT": true, "DROP": true,
	"ELSE": true, "EXCLUSIVE": true, "EXISTS": true, "FILE": true,
	"FLOAT": true, "FOR": true, "FROM": true, "GRANT": true, "GROUP": true,
	"HAVING": true, "IDENTIFIED": true, "IMMEDIATE": true, "IN": true,
	"INCREMENT": true, "INDEX": true, "INITIAL": true, "INSERT": true,
	"INTEGER": true, "INTERSECT": true, "INTO": true, "IS": true,
	"LEVEL": true, "LIKE": true, "LOCK": true, "LONG": true,
	"MAXEXTENTS": true, "MINUS": true, "MLSLABEL": true, "MODE": true,
	"MODIFY": true, "NOAUDIT": true, "NOCOMPRESS": true, "NOT": true,
	"NOWAIT": true, "NULL": true, "NUMBER": true, "OF": true,
	"OFFLINE": true, "ON": true, "ONLINE": true, "OPTION": true,
	"OR": true, "ORDER": true, "PCTFREE": true, "PRIOR": true,
	"PUBLIC": true, "RAW": true, "RENAME": true, "RESOURCE": true,
	"REVOKE": true, "ROW": true, "ROWID": true, "ROWNUM": true,
	"ROWS": true, "SELECT": true, "SESSION": true, "SET": true,
	"SHARE": true, "SIZE": true, "SMALLINT": true, "START": true,
	"SUCCESSFUL": true, "SYNONYM": true, "SYSDATE": true, "TABLE": true,
	"THEN": true, "TO": true, "TRIGGER": true, "UID": true, "UNION": true,
	"UNIQUE": true, "UPDATE": true, "USER": true, "VALIDATE": true,
	"VALUES": true, "VARCHAR": true, "VARCHAR2": true, "VIEW": true,
	"WHENEVER": true, "WHERE": true, "WITH": true,
}

// Mangler maps source identifiers to valid Oracle identifiers. The mapping
// is deterministic and injective within one generation run: the same source
// name always maps to the same target, and no two distinct sources in the
// same scope ever collapse to the same target.
type Mangler struct {
	bySource map[string]string // scope:source -> target
	taken    map[string]string // scope:target -> source that claimed it
}

// NewMangler creates an empty Mangler for one generation run.
func NewMangler() *Mangler {
	return &Mangler{
		bySource: make(map[string]string),
		taken:    make(map[string]string),
	}
}

// Table mangles a table name. Reserved words are suffixed _T.
func (m *Mangler) Table(name string) (string, error) {
	return m.mangle("T", name, "_T")
}

// Column mangles a column name within its table's scope, so columns only
// need to be unique per table. Reserved words are suffixed _C.
func (m *Mangler) Column(table, name string) (string, error) {
	return m.mangle("C:"+strings.ToUpper(table), name, "_C")
}

// Constraint mangles a constraint or index name in the global namespace,
// where Oracle requires uniqueness across the whole schema.
func (m *Mangler) Constraint(name string) (string, error) {
	return m.mangle("K", name, "_K")
}

func (m *Mangler) mangle(scope, source, reservedSuffix string) (string, error) {
	sourceKey := scope + ":" + strings.ToUpper(source)
	if target, ok := m.bySource[sourceKey]; ok {
		return target, nil
	}

	target := sanitize(source)
	if oracleReservedWords[target] {
		target += reservedSuffix
	}
	if len(target) > MaxIdentifierLength {
		target = target[:MaxIdentifierLength]
	}

	target, err := m.claim(scope, sourceKey, target)
	if err != nil {
		return "", err
	}
	m.bySource[sourceKey] = target
	return target, nil
}

// claim reserves a target name, disambiguating collisions with a numeric
// suffix: the candidate is cut to 27 bytes and _NN appended.
func (m *Mangler) claim(scope, sourceKey, candidate string) (string, error) {
	key := scope + ":" + candidate
	if _, clash := m.taken[key]; !clash {
		m.taken[key] = sourceKey
		return candidate, nil
	}

	stem := candidate
	if len(stem) > MaxIdentifierLength-3 {
		stem = stem[:MaxIdentifierLength-3]
	}
	for n := 1; n <= 99; n++ {
		next := fmt.Sprintf("%s_%02d", stem, n)
		key = scope + ":" + next
		if _, clash := m.taken[key]; !clash {
			m.taken[key] = sourceKey
			return next, nil
		}
	}

	return "", &GenerationError{
		Subject: sourceKey,
		Reason:  fmt.Sprintf("could not disambiguate identifier %q after 99 attempts", candidate),
	}
}

// sanitize uppercases and replaces anything outside [A-Z0-9_] with an
// underscore, prefixing names that do not start with a letter.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	if out == "" {
		out = "X"
	}
	if !unicode.IsLetter(rune(out[0])) {
		out = "X" + out
	}
	return out
}
