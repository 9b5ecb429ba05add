package migrate

import (
	"context"
	"fmt"

	"github.com/dbsmedya/sqlora/internal/oracle"
	"github.com/dbsmedya/sqlora/internal/sqlite"
)

// Preflight checks everything a migration needs without changing anything:
// the source is a readable SQLite database, the admin connection works and
// answers a trivial query, and destructive flags carry their confirmation.
func (p *Pipeline) Preflight(ctx context.Context, sourcePath string) error {
	if p.cfg.ForceRecreate && !p.cfg.ConfirmDestructive {
		return fmt.Errorf("--force-recreate is destructive; confirm with --yes")
	}

	src, err := sqlite.Open(sourcePath, p.log)
	if err != nil {
		return err
	}
	defer src.Close()

	schema, err := src.Extract(ctx)
	if err != nil {
		return err
	}
	if schema.Len() == 0 {
		return fmt.Errorf("source database %s has no tables", sourcePath)
	}

	mgr, err := oracle.NewManager(p.cfg.AdminDSN, p.log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.ConnectAdmin(ctx, p.cfg.AdminUser, p.cfg.AdminPassword); err != nil {
		return err
	}
	if err := oracle.Preflight(ctx, mgr.Admin); err != nil {
		return err
	}

	p.log.Infow("preflight passed",
		"source", sourcePath,
		"tables", schema.Len(),
		"dsn", p.cfg.AdminDSN)
	return nil
}
