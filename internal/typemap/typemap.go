// Package typemap translates SQLite column type affinities to Oracle column types.
package typemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dbsmedya/sqlora/internal/types"
)

const (
	// MaxVarcharLength is the VARCHAR2 byte limit used for TEXT columns.
	// Columns observed to exceed it promote to CLOB.
	MaxVarcharLength = 4000

	// MaxPrecision is Oracle's NUMBER precision ceiling.
	MaxPrecision = 38

	defaultVarchar  = "VARCHAR2(4000)"
	defaultNumeric  = "NUMBER(38,10)"
	integerNumber   = "NUMBER(19)"
	identityInteger = "NUMBER GENERATED BY DEFAULT AS IDENTITY"
)

// TypeMappingError reports an affinity the mapper does not recognize.
// Given ResolveAffinity is total over declared types, hitting this indicates
// a descriptor constructed outside the extractor.
type TypeMappingError struct {
	Column   string
	Affinity types.Affinity
}

func (e *TypeMappingError) Error() string {
	return fmt.Sprintf("column %q: no Oracle mapping for affinity %s", e.Column, e.Affinity)
}

// Options adjust how target types are chosen.
type Options struct {
	// UseVarchar forces VARCHAR2(4000) for INTEGER, REAL and NUMERIC
	// columns: an always-safe string encoding used as a reload fallback.
	UseVarchar bool

	// SampleText indicates text lengths were sampled. For MapType the
	// MaxTextLength map is keyed by bare column name; Resolve accepts
	// "table.column" keys and narrows them per table.
	SampleText    bool
	MaxTextLength map[string]int64
}

// ResolveAffinity applies SQLite's declared-type affinity rules.
// The substring checks run in the order SQLite documents them.
func ResolveAffinity(declaredType string) types.Affinity {
	dt := strings.ToUpper(strings.TrimSpace(declaredType))

	switch {
	case strings.Contains(dt, "INT"):
		return types.AffinityInteger
	case strings.Contains(dt, "CHAR"), strings.Contains(dt, "CLOB"), strings.Contains(dt, "TEXT"):
		return types.AffinityText
	case dt == "" || strings.Contains(dt, "BLOB"):
		return types.AffinityBlob
	case strings.Contains(dt, "REAL"), strings.Contains(dt, "FLOA"), strings.Contains(dt, "DOUB"):
		return types.AffinityReal
	default:
		return types.AffinityNumeric
	}
}

// precisionPattern extracts (p) or (p,s) from a declared type such as DECIMAL(10,2).
var precisionPattern = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)

// MapType returns the Oracle type for a column. It is total and
// deterministic: the same descriptor and options always yield the same type,
// and every affinity has a mapping.
//
// A single-column INTEGER primary key becomes an identity column, matching
// SQLite's rowid-alias semantics.
func MapType(col types.ColumnDescriptor, singlePK bool, opts Options) (string, error) {
	switch col.Affinity {
	case types.AffinityText:
		if opts.SampleText {
			if max, ok := opts.MaxTextLength[col.Name]; ok && max > MaxVarcharLength {
				return "CLOB", nil
			}
		}
		return defaultVarchar, nil

	case types.AffinityInteger:
		if col.PrimaryKey && singlePK {
			return identityInteger, nil
		}
		if opts.UseVarchar {
			return defaultVarchar, nil
		}
		return integerNumber, nil

	case types.AffinityReal:
		if opts.UseVarchar {
			return defaultVarchar, nil
		}
		return "BINARY_DOUBLE", nil

	case types.AffinityNumeric:
		if opts.UseVarchar {
			return defaultVarchar, nil
		}
		if p, s, ok := declaredPrecision(col.DeclaredType); ok {
			return fmt.Sprintf("NUMBER(%d,%d)", p, s), nil
		}
		return defaultNumeric, nil

	case types.AffinityBlob:
		return "BLOB", nil

	default:
		return "", &TypeMappingError{Column: col.Name, Affinity: col.Affinity}
	}
}

// declaredPrecision parses precision and scale from the declared type,
// clamping precision to [1,38] and scale to [0,precision]. SQLite does not
// enforce either, so out-of-range declarations are tolerated, not rejected.
func declaredPrecision(declaredType string) (precision, scale int, ok bool) {
	m := precisionPattern.FindStringSubmatch(declaredType)
	if m == nil {
		return 0, 0, false
	}

	precision, _ = strconv.Atoi(m[1])
	if precision < 1 {
		precision = 1
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}

	if m[2] != "" {
		scale, _ = strconv.Atoi(m[2])
		if scale < 0 {
			scale = 0
		}
		if scale > precision {
			scale = precision
		}
	}

	return precision, scale, true
}

// Resolve populates TargetType on every column of every table in the schema.
// Target types must be resolved before DDL generation.
func Resolve(schema *types.Schema, opts Options) error {
	for _, table := range schema.Tables() {
		topts := opts
		if opts.SampleText {
			topts.MaxTextLength = tableTextLengths(opts.MaxTextLength, table.Name)
		}

		singlePK := len(table.PrimaryKeys) == 1
		for i := range table.Columns {
			target, err := MapType(table.Columns[i], singlePK, topts)
			if err != nil {
				return err
			}
			table.Columns[i].TargetType = target
		}
	}
	return nil
}

// tableTextLengths narrows sampled lengths keyed "table.column" down to one
// table, keyed by bare column name as MapType expects.
func tableTextLengths(sampled map[string]int64, table string) map[string]int64 {
	prefix := table + "."
	out := make(map[string]int64, len(sampled))
	for key, max := range sampled {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = max
		}
	}
	return out
}
