package postgres

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/koustreak/sqlbridge/internal/adapter"
)

// ColumnTypeOID maps a result field's type OID to a ColumnType.
func ColumnTypeOID(oid uint32) adapter.ColumnType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID:
		return adapter.ColumnTypeInt32
	case pgtype.Int8OID:
		return adapter.ColumnTypeInt64
	case pgtype.Float4OID:
		return adapter.ColumnTypeFloat
	case pgtype.Float8OID:
		return adapter.ColumnTypeDouble
	case pgtype.NumericOID:
		return adapter.ColumnTypeNumeric
	case pgtype.BoolOID:
		return adapter.ColumnTypeBoolean
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		return adapter.ColumnTypeText
	case pgtype.DateOID:
		return adapter.ColumnTypeDate
	case pgtype.TimeOID:
		return adapter.ColumnTypeTime
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return adapter.ColumnTypeDateTime
	case pgtype.JSONOID, pgtype.JSONBOID:
		return adapter.ColumnTypeJson
	case pgtype.ByteaOID:
		return adapter.ColumnTypeBytes
	case pgtype.UUIDOID:
		return adapter.ColumnTypeUuid
	default:
		return adapter.ColumnTypeUnknown
	}
}

// ColumnTypeName maps the type names lib/pq reports to a ColumnType.
func ColumnTypeName(name string) adapter.ColumnType {
	switch strings.ToUpper(name) {
	case "INT2", "INT4":
		return adapter.ColumnTypeInt32
	case "INT8":
		return adapter.ColumnTypeInt64
	case "FLOAT4":
		return adapter.ColumnTypeFloat
	case "FLOAT8":
		return adapter.ColumnTypeDouble
	case "NUMERIC":
		return adapter.ColumnTypeNumeric
	case "BOOL":
		return adapter.ColumnTypeBoolean
	case "TEXT", "VARCHAR", "BPCHAR", "NAME":
		return adapter.ColumnTypeText
	case "DATE":
		return adapter.ColumnTypeDate
	case "TIME":
		return adapter.ColumnTypeTime
	case "TIMESTAMP", "TIMESTAMPTZ":
		return adapter.ColumnTypeDateTime
	case "JSON", "JSONB":
		return adapter.ColumnTypeJson
	case "BYTEA":
		return adapter.ColumnTypeBytes
	case "UUID":
		return adapter.ColumnTypeUuid
	default:
		return adapter.ColumnTypeUnknown
	}
}
