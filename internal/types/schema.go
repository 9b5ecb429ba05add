// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Affinity is a SQLite column type affinity, resolved once at extraction time.
type Affinity int

const (
	AffinityText Affinity = iota
	AffinityInteger
	AffinityReal
	AffinityBlob
	AffinityNumeric
)

// String returns the affinity name as SQLite documents it.
func (a Affinity) String() string {
	switch a {
	case AffinityText:
		return "TEXT"
	case AffinityInteger:
		return "INTEGER"
	case AffinityReal:
		return "REAL"
	case AffinityBlob:
		return "BLOB"
	case AffinityNumeric:
		return "NUMERIC"
	default:
		return fmt.Sprintf("Affinity(%d)", int(a))
	}
}

// MigrationMode selects how much of the schema is generated and transferred.
type MigrationMode int

const (
	// ModeFull creates user, tables, constraints and indexes, then transfers data.
	ModeFull MigrationMode = iota
	// ModeSchemaOnly creates the same objects as ModeFull but transfers no rows.
	ModeSchemaOnly
	// ModeFKSkeleton keeps only primary-key and foreign-key columns,
	// preserving referential structure without payload columns.
	ModeFKSkeleton
)

func (m MigrationMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeSchemaOnly:
		return "schema-only"
	case ModeFKSkeleton:
		return "fk-skeleton"
	default:
		return fmt.Sprintf("MigrationMode(%d)", int(m))
	}
}

// RefAction is a foreign key ON DELETE / ON UPDATE action.
type RefAction string

const (
	ActionNoAction   RefAction = "NO ACTION"
	ActionCascade    RefAction = "CASCADE"
	ActionSetNull    RefAction = "SET NULL"
	ActionSetDefault RefAction = "SET DEFAULT"
	ActionRestrict   RefAction = "RESTRICT"
)

// ColumnDescriptor describes one source column. TargetType is empty until the
// type mapper resolves it; DDL generation requires it to be populated.
type ColumnDescriptor struct {
	Name         string
	DeclaredType string
	Affinity     Affinity
	NotNull      bool
	Default      string
	HasDefault   bool
	PrimaryKey   bool
	TargetType   string
}

// ForeignKeyDescriptor describes one foreign key in declaration order.
// Columns and RefColumns are parallel slices.
type ForeignKeyDescriptor struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   RefAction
	OnUpdate   RefAction
}

// IndexDescriptor describes a secondary index on a table.
type IndexDescriptor struct {
	Name    string
	Columns []string
	Unique  bool
}

// TableDescriptor is the extracted shape of one source table. Column and
// foreign key order match the source declaration order.
type TableDescriptor struct {
	Name        string
	Columns     []ColumnDescriptor
	PrimaryKeys []string
	ForeignKeys []ForeignKeyDescriptor
	Indexes     []IndexDescriptor
}

// Column returns the column with the given name, or nil.
func (t *TableDescriptor) Column(name string) *ColumnDescriptor {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether the named column is part of the primary key.
func (t *TableDescriptor) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKeys {
		if strings.EqualFold(pk, name) {
			return true
		}
	}
	return false
}

// IsForeignKey reports whether the named column participates in any foreign key.
func (t *TableDescriptor) IsForeignKey(name string) bool {
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if strings.EqualFold(c, name) {
				return true
			}
		}
	}
	return false
}

// Schema is the ordered set of tables extracted from one source database.
// Iteration order is source declaration order; lookup is case-insensitive.
type Schema struct {
	SourcePath string
	tables     *orderedmap.OrderedMap[string, *TableDescriptor]
}

// NewSchema creates an empty schema for the given source path.
func NewSchema(sourcePath string) *Schema {
	return &Schema{
		SourcePath: sourcePath,
		tables:     orderedmap.NewOrderedMap[string, *TableDescriptor](),
	}
}

// AddTable registers a table. Table names must be unique within a schema.
func (s *Schema) AddTable(t *TableDescriptor) error {
	key := strings.ToUpper(t.Name)
	if _, exists := s.tables.Get(key); exists {
		return fmt.Errorf("duplicate table name %q", t.Name)
	}
	s.tables.Set(key, t)
	return nil
}

// Table returns the table with the given name (case-insensitive), or nil.
func (s *Schema) Table(name string) *TableDescriptor {
	t, _ := s.tables.Get(strings.ToUpper(name))
	return t
}

// Tables returns all tables in declaration order.
func (s *Schema) Tables() []*TableDescriptor {
	out := make([]*TableDescriptor, 0, s.tables.Len())
	for el := s.tables.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// TableNames returns all table names in declaration order.
func (s *Schema) TableNames() []string {
	out := make([]string, 0, s.tables.Len())
	for _, t := range s.Tables() {
		out = append(out, t.Name)
	}
	return out
}

// Len returns the number of tables.
func (s *Schema) Len() int {
	return s.tables.Len()
}
