package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/logger"
	"github.com/dbsmedya/sqlora/internal/oracle"
	"github.com/dbsmedya/sqlora/internal/sqlite"
	"github.com/dbsmedya/sqlora/internal/transfer"
	"github.com/dbsmedya/sqlora/internal/typemap"
	"github.com/dbsmedya/sqlora/internal/types"
	"github.com/dbsmedya/sqlora/internal/validate"
)

// Result is the outcome of migrating one source database.
type Result struct {
	SourcePath string
	Username   string
	URI        string
	Mode       types.MigrationMode
	Script     *ddl.Script
	Transfer   *transfer.Stats
	Validation *validate.Report
}

// Pipeline runs the extract, generate, provision, execute, transfer and
// validate phases for one source file at a time.
type Pipeline struct {
	cfg *config.Config
	log *logger.Logger
}

// NewPipeline creates a Pipeline from resolved configuration.
func NewPipeline(cfg *config.Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pipeline{cfg: cfg, log: log}
}

// Mode derives the migration mode from configuration.
func (p *Pipeline) Mode() types.MigrationMode {
	switch {
	case p.cfg.OnlyFKKeys:
		return types.ModeFKSkeleton
	case p.cfg.SchemaOnly:
		return types.ModeSchemaOnly
	default:
		return types.ModeFull
	}
}

// credentials resolves the target user and password for one source file.
// The password defaults to the username when not configured.
func (p *Pipeline) credentials(sourcePath string) (user, password string) {
	if p.cfg.UseAdminUser {
		return p.cfg.AdminUser, p.cfg.AdminPassword
	}
	user = p.cfg.NewUsername
	if user == "" {
		user = DeriveUsername(sourcePath)
	}
	password = p.cfg.NewPassword
	if password == "" {
		password = user
	}
	return user, password
}

// Run migrates a single source database using configured credentials.
func (p *Pipeline) Run(ctx context.Context, sourcePath string) (*Result, error) {
	user, password := p.credentials(sourcePath)
	return p.run(ctx, sourcePath, user, password)
}

func (p *Pipeline) run(ctx context.Context, sourcePath, user, password string) (*Result, error) {
	cfg := p.cfg
	log := p.log.WithDatabase(sourcePath).WithUser(user)
	mode := p.Mode()

	if cfg.ForceRecreate && !cfg.ConfirmDestructive {
		return nil, fmt.Errorf("--force-recreate drops user %s and everything it owns; confirm with --yes", user)
	}

	src, err := sqlite.Open(sourcePath, log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	schema, err := src.Extract(ctx)
	if err != nil {
		return nil, err
	}
	if schema.Len() == 0 {
		return nil, fmt.Errorf("source database %s has no tables", sourcePath)
	}

	script, err := p.generate(ctx, src, schema, mode, user, password, typemap.Options{
		UseVarchar: cfg.UseVarchar,
		SampleText: cfg.SampleText,
	})
	if err != nil {
		return nil, err
	}

	var out *scriptFile
	if cfg.OutputSQLFile != "" {
		out, err = newScriptFile(cfg.OutputSQLFile, script)
		if err != nil {
			return nil, err
		}
		defer out.close()
	}

	mgr, err := oracle.NewManager(cfg.AdminDSN, log)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	if err := mgr.ConnectAdmin(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
		return nil, err
	}
	if err := oracle.Preflight(ctx, mgr.Admin); err != nil {
		return nil, err
	}

	target := mgr.Admin
	if !cfg.UseAdminUser {
		if cfg.ForceRecreate {
			if err := mgr.DropUser(ctx, user); err != nil {
				return nil, err
			}
		}
		if err := mgr.Provision(ctx, user, password); err != nil {
			return nil, err
		}
		if err := mgr.ConnectTarget(ctx, user, password); err != nil {
			return nil, err
		}
		target = mgr.Target
	}

	// Dropping tables is redundant after a user recreate.
	if cfg.DropTables && !cfg.ForceRecreate {
		if err := mgr.DropTables(ctx, target); err != nil {
			return nil, err
		}
	}

	log.Infow("executing DDL",
		"tables", len(script.TableStatements),
		"deferred_constraints", len(script.ConstraintStatements),
		"indexes", len(script.IndexStatements))
	if err := mgr.ExecScript(ctx, target, script.TableStatements); err != nil {
		return nil, err
	}

	var stats *transfer.Stats
	if mode == types.ModeFull {
		engine, err := transfer.New(src, target, script, transfer.Options{
			BatchSize:       cfg.BatchSize,
			ContinueOnError: cfg.ContinueOnError,
			Progress:        cfg.Progress,
			EmitSQL:         out.emitFunc(),
		}, log)
		if err != nil {
			return nil, err
		}
		stats, err = engine.Transfer(ctx)
		if err != nil {
			return nil, err
		}
	}

	// Deferred constraints go in after the data so cyclic rows load.
	if err := mgr.ExecScript(ctx, target, script.ConstraintStatements); err != nil {
		return nil, err
	}
	if err := mgr.ExecScript(ctx, target, script.IndexStatements); err != nil {
		return nil, err
	}
	if out != nil {
		if err := out.finish(script); err != nil {
			return nil, err
		}
	}

	result := &Result{
		SourcePath: sourcePath,
		Username:   user,
		URI:        mgr.Endpoint().ConnectURI(user, password),
		Mode:       mode,
		Script:     script,
		Transfer:   stats,
	}

	if !cfg.SkipValidation {
		v, err := validate.New(src, target, schema, script, mode, log)
		if err != nil {
			return nil, err
		}
		report, err := v.Validate(ctx)
		if err != nil {
			return nil, err
		}
		report.Username = user
		result.Validation = report
	}

	return result, nil
}

// generate resolves target types and produces the DDL script.
func (p *Pipeline) generate(ctx context.Context, src *sqlite.DB, schema *types.Schema, mode types.MigrationMode, user, password string, opts typemap.Options) (*ddl.Script, error) {
	if opts.SampleText {
		lengths, err := sampleTextLengths(ctx, src, schema)
		if err != nil {
			return nil, err
		}
		opts.MaxTextLength = lengths
	}
	if err := typemap.Resolve(schema, opts); err != nil {
		return nil, err
	}

	return ddl.Generate(schema, ddl.Options{
		Mode:       mode,
		CreateUser: !p.cfg.UseAdminUser,
		Username:   user,
		Password:   password,
	})
}

// sampleTextLengths observes the maximum stored length per TEXT column,
// keyed "table.column" so a long column in one table never promotes a
// same-named column elsewhere.
func sampleTextLengths(ctx context.Context, src *sqlite.DB, schema *types.Schema) (map[string]int64, error) {
	lengths := make(map[string]int64)
	for _, table := range schema.Tables() {
		for _, col := range table.Columns {
			if col.Affinity != types.AffinityText {
				continue
			}
			max, err := src.MaxTextLength(ctx, table.Name, col.Name)
			if err != nil {
				return nil, err
			}
			lengths[table.Name+"."+col.Name] = max
		}
	}
	return lengths, nil
}

// scriptFile accumulates a replayable script: header and CREATE statements
// first, the transferred rows as literal INSERTs, constraints and indexes
// last, matching the execution order against the live target.
type scriptFile struct {
	f *os.File
}

func newScriptFile(path string, script *ddl.Script) (*scriptFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating script file: %w", err)
	}

	fmt.Fprintln(f, "-- Generated by sqlora")
	fmt.Fprintf(f, "-- Source: %s\n\n", script.Source)
	for _, stmt := range script.UserStatements {
		fmt.Fprintf(f, "%s;\n\n", stmt)
	}
	for _, stmt := range script.TableStatements {
		fmt.Fprintf(f, "%s;\n\n", stmt)
	}
	return &scriptFile{f: f}, nil
}

// emitFunc returns the insert sink, or nil when no script file is open.
func (s *scriptFile) emitFunc() func(string) {
	if s == nil {
		return nil
	}
	return func(stmt string) {
		fmt.Fprintf(s.f, "%s;\n", stmt)
	}
}

func (s *scriptFile) finish(script *ddl.Script) error {
	fmt.Fprintln(s.f)
	for _, stmt := range script.ConstraintStatements {
		fmt.Fprintf(s.f, "%s;\n\n", stmt)
	}
	for _, stmt := range script.IndexStatements {
		fmt.Fprintf(s.f, "%s;\n\n", stmt)
	}
	return s.f.Sync()
}

func (s *scriptFile) close() {
	if s != nil && s.f != nil {
		s.f.Close()
	}
}
