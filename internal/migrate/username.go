// Package migrate orchestrates the end-to-end migration of one or many
// SQLite files into Oracle.
package migrate

import (
	"path/filepath"
	"strings"
)

const maxUsernameLength = 30

// DeriveUsername maps a source file path to the Oracle username owning its
// schema: basename without extension, lowercased, non-alphanumerics
// stripped, prefixed "db" when the remainder does not start with a letter.
func DeriveUsername(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "db" + name
	}
	if len(name) > maxUsernameLength {
		name = name[:maxUsernameLength]
	}
	return name
}
