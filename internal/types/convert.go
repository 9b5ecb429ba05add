package types

import "strconv"

// ToInt64 converts a scanned database value to int64. Oracle NUMBER columns
// surface through database/sql as int64, float64 or string depending on the
// driver's round-trip, so count comparisons normalize through this helper.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	case string:
		n, err := strconv.ParseInt(i, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case []byte:
		n, err := strconv.ParseInt(string(i), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
