package ddl

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/sqlora/internal/graph"
	"github.com/dbsmedya/sqlora/internal/types"
)

// Options control what the generator emits.
type Options struct {
	Mode types.MigrationMode

	// CreateUser adds user provisioning statements to the script. Off when
	// migrating into the admin user's own schema.
	CreateUser bool
	Username   string
	Password   string
}

// ColumnMapping links one source column to its generated Oracle column.
type ColumnMapping struct {
	Source     string
	Target     string
	TargetType string
}

// TableMapping links one source table to its generated Oracle table. Columns
// appear in source declaration order, filtered by the migration mode.
type TableMapping struct {
	Source  string
	Target  string
	Columns []ColumnMapping
}

// SourceColumns returns the source column names in order.
func (tm *TableMapping) SourceColumns() []string {
	out := make([]string, len(tm.Columns))
	for i, c := range tm.Columns {
		out[i] = c.Source
	}
	return out
}

// TargetColumns returns the generated column names in order.
func (tm *TableMapping) TargetColumns() []string {
	out := make([]string, len(tm.Columns))
	for i, c := range tm.Columns {
		out[i] = c.Target
	}
	return out
}

// Column returns the mapping for a source column name, or nil.
func (tm *TableMapping) Column(source string) *ColumnMapping {
	for i := range tm.Columns {
		if strings.EqualFold(tm.Columns[i].Source, source) {
			return &tm.Columns[i]
		}
	}
	return nil
}

// Script is the generated statement set, split by phase. Tables are created
// first, deferred foreign keys added after data transfer, indexes last.
type Script struct {
	// Source is the source database path, recorded in the script header.
	Source string

	UserStatements       []string
	TableStatements      []string
	ConstraintStatements []string
	IndexStatements      []string

	// CreationOrder lists source table names in CREATE TABLE order.
	CreationOrder []string

	mappings map[string]*TableMapping
}

// Mapping returns the table mapping for a source table name, or nil.
func (s *Script) Mapping(source string) *TableMapping {
	return s.mappings[strings.ToUpper(source)]
}

// Mappings returns all table mappings in creation order.
func (s *Script) Mappings() []*TableMapping {
	out := make([]*TableMapping, 0, len(s.CreationOrder))
	for _, name := range s.CreationOrder {
		out = append(out, s.Mapping(name))
	}
	return out
}

// Statements returns every statement in execution order.
func (s *Script) Statements() []string {
	out := make([]string, 0, len(s.UserStatements)+len(s.TableStatements)+len(s.ConstraintStatements)+len(s.IndexStatements))
	out = append(out, s.UserStatements...)
	out = append(out, s.TableStatements...)
	out = append(out, s.ConstraintStatements...)
	out = append(out, s.IndexStatements...)
	return out
}

// Render produces replayable SQL text, one terminated statement per block.
func (s *Script) Render() string {
	var b strings.Builder
	b.WriteString("-- Generated by sqlora\n")
	if s.Source != "" {
		b.WriteString("-- Source: " + s.Source + "\n")
	}
	b.WriteString("\n")
	for _, stmt := range s.Statements() {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	return b.String()
}

// Generate builds the Oracle DDL for a schema whose target types have been
// resolved. Foreign keys that participate in a reference cycle, and all
// self-references, are emitted as deferred ALTER TABLE constraints so the
// CREATE TABLE sequence never depends on a table that does not exist yet.
func Generate(schema *types.Schema, opts Options) (*Script, error) {
	g := graph.Build(schema)
	order, deferredEdges, err := g.CreationOrder()
	if err != nil {
		return nil, &GenerationError{Subject: schema.SourcePath, Reason: err.Error()}
	}

	mangler := NewMangler()
	script := &Script{
		Source:        schema.SourcePath,
		CreationOrder: order,
		mappings:      make(map[string]*TableMapping, len(order)),
	}

	if opts.CreateUser {
		script.UserStatements = userStatements(opts.Username, opts.Password)
	}

	type deferredFK struct {
		table *types.TableDescriptor
		fk    types.ForeignKeyDescriptor
		seq   int
	}
	var deferred []deferredFK

	for _, name := range order {
		table := schema.Table(name)

		cols := modeColumns(table, opts.Mode)
		if len(cols) == 0 {
			return nil, &GenerationError{Subject: table.Name, Reason: "no columns left after applying migration mode"}
		}

		mapping, err := buildMapping(mangler, table, cols)
		if err != nil {
			return nil, err
		}
		script.mappings[strings.ToUpper(table.Name)] = mapping

		stmt, err := createTable(mangler, schema, table, mapping, deferredEdges, func(fk types.ForeignKeyDescriptor, seq int) {
			deferred = append(deferred, deferredFK{table: table, fk: fk, seq: seq})
		})
		if err != nil {
			return nil, err
		}
		script.TableStatements = append(script.TableStatements, stmt)
	}

	for _, d := range deferred {
		stmt, err := addConstraint(mangler, schema, script, d.table, d.fk, d.seq)
		if err != nil {
			return nil, err
		}
		script.ConstraintStatements = append(script.ConstraintStatements, stmt)
	}

	for _, name := range order {
		table := schema.Table(name)
		stmts, err := indexStatements(mangler, table, script.Mapping(name))
		if err != nil {
			return nil, err
		}
		script.IndexStatements = append(script.IndexStatements, stmts...)
	}

	return script, nil
}

func userStatements(username, password string) []string {
	return []string{
		fmt.Sprintf(`CREATE USER %s IDENTIFIED BY "%s"`, username, strings.ReplaceAll(password, `"`, `""`)),
		fmt.Sprintf("GRANT CONNECT, RESOURCE TO %s", username),
		fmt.Sprintf("ALTER USER %s QUOTA UNLIMITED ON USERS", username),
	}
}

// modeColumns applies the migration mode's column filter. FK-skeleton mode
// keeps only primary-key and foreign-key columns, preserving order.
func modeColumns(table *types.TableDescriptor, mode types.MigrationMode) []types.ColumnDescriptor {
	if mode != types.ModeFKSkeleton {
		return table.Columns
	}

	var cols []types.ColumnDescriptor
	for _, c := range table.Columns {
		if table.IsPrimaryKey(c.Name) || table.IsForeignKey(c.Name) {
			cols = append(cols, c)
		}
	}
	return cols
}

func buildMapping(m *Mangler, table *types.TableDescriptor, cols []types.ColumnDescriptor) (*TableMapping, error) {
	target, err := m.Table(table.Name)
	if err != nil {
		return nil, err
	}

	mapping := &TableMapping{
		Source:  table.Name,
		Target:  target,
		Columns: make([]ColumnMapping, 0, len(cols)),
	}
	for _, c := range cols {
		if c.TargetType == "" {
			return nil, &GenerationError{
				Subject: table.Name + "." + c.Name,
				Reason:  "column has no resolved target type",
			}
		}
		tc, err := m.Column(table.Name, c.Name)
		if err != nil {
			return nil, err
		}
		mapping.Columns = append(mapping.Columns, ColumnMapping{
			Source:     c.Name,
			Target:     tc,
			TargetType: c.TargetType,
		})
	}
	return mapping, nil
}

// createTable renders one CREATE TABLE statement. Foreign keys that must wait
// until every referenced table exists are handed to deferFn instead of being
// inlined.
func createTable(m *Mangler, schema *types.Schema, table *types.TableDescriptor, mapping *TableMapping, deferredEdges map[graph.Edge]bool, deferFn func(types.ForeignKeyDescriptor, int)) (string, error) {
	var lines []string

	for _, cm := range mapping.Columns {
		col := table.Column(cm.Source)
		line := "  " + cm.Target + " " + cm.TargetType
		if col.HasDefault && col.Default != "" && !isIdentity(cm.TargetType) {
			line += " DEFAULT " + col.Default
		}
		if col.NotNull && !table.IsPrimaryKey(col.Name) {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}

	if pkCols := presentColumns(mapping, table.PrimaryKeys); len(pkCols) > 0 {
		name, err := m.Constraint("pk_" + table.Name)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("  CONSTRAINT %s PRIMARY KEY (%s)", name, strings.Join(pkCols, ", ")))
	}

	for i, fk := range table.ForeignKeys {
		ref := schema.Table(fk.RefTable)
		if ref == nil {
			// Dangling reference, already warned about at extraction.
			continue
		}
		if strings.EqualFold(ref.Name, table.Name) || deferredEdges[graph.Edge{From: ref.Name, To: table.Name}] {
			deferFn(fk, i+1)
			continue
		}
		clause, err := foreignKeyClause(m, schema, table, mapping, fk, i+1)
		if err != nil {
			return "", err
		}
		if clause == "" {
			continue
		}
		lines = append(lines, "  "+clause)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", mapping.Target, strings.Join(lines, ",\n")), nil
}

// foreignKeyClause renders a CONSTRAINT ... FOREIGN KEY clause, or "" when
// the migration mode dropped a participating column.
func foreignKeyClause(m *Mangler, schema *types.Schema, table *types.TableDescriptor, mapping *TableMapping, fk types.ForeignKeyDescriptor, seq int) (string, error) {
	localCols := presentColumns(mapping, fk.Columns)
	if len(localCols) != len(fk.Columns) {
		return "", nil
	}

	ref := schema.Table(fk.RefTable)
	refCols := make([]string, 0, len(fk.RefColumns))
	for _, rc := range fk.RefColumns {
		target, err := m.Column(ref.Name, rc)
		if err != nil {
			return "", err
		}
		refCols = append(refCols, target)
	}
	refTable, err := m.Table(ref.Name)
	if err != nil {
		return "", err
	}

	name, err := m.Constraint(fmt.Sprintf("fk_%s_%d", table.Name, seq))
	if err != nil {
		return "", err
	}

	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		name, strings.Join(localCols, ", "), refTable, strings.Join(refCols, ", "))

	// Oracle supports ON DELETE CASCADE and SET NULL only; other actions
	// already downgraded to NO ACTION at extraction.
	switch fk.OnDelete {
	case types.ActionCascade:
		clause += " ON DELETE CASCADE"
	case types.ActionSetNull:
		clause += " ON DELETE SET NULL"
	}
	return clause, nil
}

func addConstraint(m *Mangler, schema *types.Schema, script *Script, table *types.TableDescriptor, fk types.ForeignKeyDescriptor, seq int) (string, error) {
	mapping := script.Mapping(table.Name)
	clause, err := foreignKeyClause(m, schema, table, mapping, fk, seq)
	if err != nil {
		return "", err
	}
	if clause == "" {
		return "", &GenerationError{
			Subject: table.Name,
			Reason:  fmt.Sprintf("deferred foreign key %d lost a column to the migration mode", seq),
		}
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s", mapping.Target, clause), nil
}

func indexStatements(m *Mangler, table *types.TableDescriptor, mapping *TableMapping) ([]string, error) {
	var stmts []string
	for _, idx := range table.Indexes {
		if sameColumnSet(idx.Columns, table.PrimaryKeys) {
			// The primary key constraint already owns this index.
			continue
		}
		cols := presentColumns(mapping, idx.Columns)
		if len(cols) != len(idx.Columns) {
			continue
		}

		prefix := "ix_"
		keyword := "INDEX"
		if idx.Unique {
			prefix = "ux_"
			keyword = "UNIQUE INDEX"
		}
		name, err := m.Constraint(prefix + idx.Name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %s %s ON %s (%s)",
			keyword, name, mapping.Target, strings.Join(cols, ", ")))
	}
	return stmts, nil
}

// presentColumns maps source column names to target names, skipping any the
// migration mode removed. Order follows the input slice.
func presentColumns(mapping *TableMapping, sources []string) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if cm := mapping.Column(s); cm != nil {
			out = append(out, cm.Target)
		}
	}
	return out
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[strings.ToUpper(c)] = true
	}
	for _, c := range b {
		if !set[strings.ToUpper(c)] {
			return false
		}
	}
	return true
}

func isIdentity(targetType string) bool {
	return strings.Contains(targetType, "GENERATED")
}
