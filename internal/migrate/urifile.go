package migrate

import (
	"fmt"
	"os"
	"strings"
)

// writeURIs writes one oracle:// URI per successful result, atomically via a
// temp file rename so readers never observe a partial file.
func writeURIs(path string, results []BatchResult) error {
	var b strings.Builder
	for _, r := range results {
		if r.Err == nil && r.Result != nil {
			b.WriteString(r.Result.URI)
			b.WriteString("\n")
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("writing URI file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing URI file: %w", err)
	}
	return nil
}
