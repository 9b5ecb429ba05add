package migrate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/sqlora/internal/lock"
)

// BatchResult is the outcome of one source file within a batch run.
type BatchResult struct {
	Source string
	Result *Result
	Err    error
}

// ListSources finds source databases under dir matching the configured
// patterns (comma-separated globs). The result is sorted and deduplicated so
// batch runs process files in a stable order.
func ListSources(dir, patterns string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range strings.Split(patterns, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// RunBatch migrates every matching file under dir, each into its own derived
// Oracle user. Workers bound the number of files migrated concurrently.
// Under ContinueOnError every file is attempted and failures are recorded in
// the results; otherwise the first failure cancels the remaining files.
func (p *Pipeline) RunBatch(ctx context.Context, dir string) ([]BatchResult, error) {
	files, err := ListSources(dir, p.cfg.Pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no source databases matching %q under %s", p.cfg.Pattern, dir)
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	p.log.Infow("starting batch run", "dir", dir, "files", len(files), "workers", workers)

	var mu sync.Mutex
	results := make([]BatchResult, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			user, password := p.batchCredentials(file)
			res, err := p.run(gctx, file, user, password)
			mu.Lock()
			results = append(results, BatchResult{Source: file, Result: res, Err: err})
			mu.Unlock()

			if err != nil && !p.cfg.ContinueOnError {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}

	runErr := g.Wait()

	// Re-sort to input order: workers finish in arbitrary order.
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f] = i
	}
	sort.Slice(results, func(i, j int) bool {
		return index[results[i].Source] < index[results[j].Source]
	})

	if p.cfg.OutputURIFile != "" {
		if err := WriteURIFile(p.cfg.OutputURIFile, results); err != nil {
			return results, err
		}
	}

	return results, runErr
}

// batchCredentials resolves the target user for one file in a batch run.
// A shared admin user applies to every file; otherwise usernames are always
// derived per file, since a single configured NewUsername would collide
// across schemas.
func (p *Pipeline) batchCredentials(file string) (user, password string) {
	if p.cfg.UseAdminUser {
		return p.cfg.AdminUser, p.cfg.AdminPassword
	}
	user = DeriveUsername(file)
	password = p.cfg.NewPassword
	if password == "" {
		password = user
	}
	return user, password
}

// WriteURIFile records one connection URI per successful migration. The
// write happens under a file lock so concurrent batch runs sharing an output
// file cannot interleave.
func WriteURIFile(path string, results []BatchResult) error {
	return lock.WithLock(path, 10*time.Second, func() error {
		return writeURIs(path, results)
	})
}
