package schema

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/koustreak/sqlbridge/internal/adapter"
)

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name         string             `json:"name"`
	DataType     string             `json:"data_type"` // as the engine names it: int4, varchar, INTEGER
	Type         adapter.ColumnType `json:"type"`
	IsNullable   bool               `json:"is_nullable"`
	IsPrimaryKey bool               `json:"is_primary_key"`
	IsUnique     bool               `json:"is_unique"`
	DefaultValue *string            `json:"default_value"` // nil if no default
	MaxLength    *int               `json:"max_length"`    // nil for non-char types
}

// TableInfo describes a table and its columns
type TableInfo struct {
	Schema  string       `json:"schema"`
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ForeignKey describes a relationship between two tables
type ForeignKey struct {
	Name       string `json:"name"`
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// SchemaInfo is the full introspected database schema
type SchemaInfo struct {
	Tables      []TableInfo  `json:"tables"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Normalised result values are read back through these helpers so each
// inspector can stay ignorant of how its driver reports integers.

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

func strPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := str(v)
	return &s
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int32:
		return b != 0
	}
	return false
}

func intPtr(v any) *int {
	var n int
	switch i := v.(type) {
	case int64:
		n = int(i)
	case int32:
		n = int(i)
	case decimal.Decimal:
		n = int(i.IntPart())
	default:
		return nil
	}
	return &n
}
