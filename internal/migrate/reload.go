package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/oracle"
	"github.com/dbsmedya/sqlora/internal/report"
	"github.com/dbsmedya/sqlora/internal/sqlite"
	"github.com/dbsmedya/sqlora/internal/transfer"
	"github.com/dbsmedya/sqlora/internal/typemap"
	"github.com/dbsmedya/sqlora/internal/types"
	"github.com/dbsmedya/sqlora/internal/validate"
)

// ReloadOptions adjust how missing tables are re-created.
type ReloadOptions struct {
	// Retry is the number of create-and-reload attempts per run.
	Retry int

	// UseVarchar re-creates the missing tables with the always-safe
	// VARCHAR2 encoding, the fallback for tables that failed on type
	// fidelity the first time.
	UseVarchar bool

	// Tables restricts the reload to the named source tables.
	Tables []string

	// ReportFile, when set, receives a plain-text validation report.
	ReportFile string
}

// Check validates an earlier migration without changing the target.
func (p *Pipeline) Check(ctx context.Context, sourcePath string) (*validate.Report, error) {
	user, password := p.credentials(sourcePath)
	log := p.log.WithDatabase(sourcePath).WithUser(user)

	src, err := sqlite.Open(sourcePath, log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	schema, err := src.Extract(ctx)
	if err != nil {
		return nil, err
	}

	script, err := p.generate(ctx, src, schema, p.Mode(), user, password, typemap.Options{
		UseVarchar: p.cfg.UseVarchar,
		SampleText: p.cfg.SampleText,
	})
	if err != nil {
		return nil, err
	}

	mgr, err := oracle.NewManager(p.cfg.AdminDSN, log)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()
	if err := mgr.ConnectTarget(ctx, user, password); err != nil {
		return nil, err
	}

	v, err := validate.New(src, mgr.Target, schema, script, p.Mode(), log)
	if err != nil {
		return nil, err
	}
	rep, err := v.Validate(ctx)
	if err != nil {
		return nil, err
	}
	rep.Username = user
	return rep, nil
}

// Reload validates an earlier migration and re-creates only the tables that
// never made it to the target, retrying up to opts.Retry times.
func (p *Pipeline) Reload(ctx context.Context, sourcePath string, opts ReloadOptions) (*validate.Report, error) {
	if opts.Retry < 1 {
		opts.Retry = 1
	}
	user, password := p.credentials(sourcePath)
	log := p.log.WithDatabase(sourcePath).WithUser(user)

	src, err := sqlite.Open(sourcePath, log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	schema, err := src.Extract(ctx)
	if err != nil {
		return nil, err
	}

	script, err := p.generate(ctx, src, schema, p.Mode(), user, password, typemap.Options{
		UseVarchar: opts.UseVarchar || p.cfg.UseVarchar,
		SampleText: p.cfg.SampleText,
	})
	if err != nil {
		return nil, err
	}

	mgr, err := oracle.NewManager(p.cfg.AdminDSN, log)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()
	if err := mgr.ConnectTarget(ctx, user, password); err != nil {
		return nil, err
	}

	v, err := validate.New(src, mgr.Target, schema, script, p.Mode(), log)
	if err != nil {
		return nil, err
	}

	rep, err := v.Validate(ctx)
	if err != nil {
		return nil, err
	}
	rep.Username = user

	for attempt := 1; attempt <= opts.Retry; attempt++ {
		missing := restrictTables(rep.MissingTables(), opts.Tables)
		if len(missing) == 0 {
			break
		}
		log.Infow("reloading missing tables", "attempt", attempt, "tables", missing)

		if err := p.reloadTables(ctx, mgr, src, script, missing); err != nil {
			return rep, err
		}

		rep, err = v.Validate(ctx)
		if err != nil {
			return rep, err
		}
		rep.Username = user
	}

	if opts.ReportFile != "" {
		if err := writeReportFile(opts.ReportFile, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// reloadTables re-creates the named tables, transfers their rows and replays
// the constraint and index statements (already-present objects are skipped).
func (p *Pipeline) reloadTables(ctx context.Context, mgr *oracle.Manager, src *sqlite.DB, script *ddl.Script, tables []string) error {
	stmtFor := make(map[string]string, len(script.CreationOrder))
	for i, name := range script.CreationOrder {
		stmtFor[strings.ToUpper(name)] = script.TableStatements[i]
	}

	var creates []string
	for _, t := range tables {
		stmt, ok := stmtFor[strings.ToUpper(t)]
		if !ok {
			return fmt.Errorf("table %s is not part of the generated script", t)
		}
		creates = append(creates, stmt)
	}
	if err := mgr.ExecScript(ctx, mgr.Target, creates); err != nil {
		return err
	}

	if p.Mode() == types.ModeFull {
		engine, err := transfer.New(src, mgr.Target, script, transfer.Options{
			BatchSize:       p.cfg.BatchSize,
			ContinueOnError: p.cfg.ContinueOnError,
			Progress:        p.cfg.Progress,
			Only:            tables,
		}, p.log)
		if err != nil {
			return err
		}
		if _, err := engine.Transfer(ctx); err != nil {
			return err
		}
	}

	if err := mgr.ExecScript(ctx, mgr.Target, script.ConstraintStatements); err != nil {
		return err
	}
	return mgr.ExecScript(ctx, mgr.Target, script.IndexStatements)
}

func restrictTables(missing, requested []string) []string {
	if len(requested) == 0 {
		return missing
	}
	want := make(map[string]bool, len(requested))
	for _, t := range requested {
		want[strings.ToUpper(t)] = true
	}
	var out []string
	for _, t := range missing {
		if want[strings.ToUpper(t)] {
			out = append(out, t)
		}
	}
	return out
}

func writeReportFile(path string, rep *validate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	report.NewPrinter(f, false).Validation(rep)
	return nil
}
