package ddl

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// BindInsert renders the positional-bind INSERT used for batched transfer.
func BindInsert(mapping *TableMapping) string {
	binds := make([]string, len(mapping.Columns))
	for i := range mapping.Columns {
		binds[i] = ":" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		mapping.Target,
		strings.Join(mapping.TargetColumns(), ", "),
		strings.Join(binds, ", "))
}

// LiteralInsert renders an INSERT with inlined values for the replayable
// script file. Values follow SQLite's storage classes: nil, int64, float64,
// string and []byte.
func LiteralInsert(mapping *TableMapping, values []any) string {
	literals := make([]string, len(values))
	for i, v := range values {
		literals[i] = sqlLiteral(v)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		mapping.Target,
		strings.Join(mapping.TargetColumns(), ", "),
		strings.Join(literals, ", "))
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		if len(x) == 0 {
			return "NULL"
		}
		return "HEXTORAW('" + strings.ToUpper(hex.EncodeToString(x)) + "')"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
