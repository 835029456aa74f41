package sqlite

import (
	"strings"

	"github.com/koustreak/sqlbridge/internal/adapter"
)

// ColumnType maps a declared column type to a ColumnType. Well-known names
// are matched first; anything else falls back to SQLite's affinity rules.
// Expression columns have no declared type and are left to value inference.
//
// SQLite integers are 64-bit, so INT and INTEGER map to Int64.
func ColumnType(declared string) adapter.ColumnType {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "" {
		return adapter.ColumnTypeUnknown
	}

	switch t {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT2":
		return adapter.ColumnTypeInt32
	case "INT", "INTEGER", "BIGINT", "INT8", "UNSIGNED BIG INT":
		return adapter.ColumnTypeInt64
	case "FLOAT":
		return adapter.ColumnTypeFloat
	case "REAL", "DOUBLE", "DOUBLE PRECISION":
		return adapter.ColumnTypeDouble
	case "DECIMAL", "NUMERIC":
		return adapter.ColumnTypeNumeric
	case "BOOLEAN", "BOOL":
		return adapter.ColumnTypeBoolean
	case "DATE":
		return adapter.ColumnTypeDate
	case "TIME":
		return adapter.ColumnTypeTime
	case "DATETIME", "TIMESTAMP":
		return adapter.ColumnTypeDateTime
	case "JSON", "JSONB":
		return adapter.ColumnTypeJson
	case "UUID":
		return adapter.ColumnTypeUuid
	case "BLOB":
		return adapter.ColumnTypeBytes
	}

	// https://www.sqlite.org/datatype3.html#determination_of_column_affinity
	switch {
	case strings.Contains(t, "INT"):
		return adapter.ColumnTypeInt64
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return adapter.ColumnTypeText
	case strings.Contains(t, "BLOB"):
		return adapter.ColumnTypeBytes
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return adapter.ColumnTypeDouble
	default:
		// NUMERIC affinity stores whatever it is given; let the values decide.
		return adapter.ColumnTypeUnknown
	}
}
