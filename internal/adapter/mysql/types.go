package mysql

import (
	"strings"

	"github.com/koustreak/sqlbridge/internal/adapter"
)

// ColumnType maps the driver's DatabaseTypeName to a ColumnType.
func ColumnType(dbType string) adapter.ColumnType {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "YEAR",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT":
		return adapter.ColumnTypeInt32
	case "BIGINT", "UNSIGNED INT":
		return adapter.ColumnTypeInt64
	case "UNSIGNED BIGINT", "DECIMAL":
		return adapter.ColumnTypeNumeric
	case "FLOAT":
		return adapter.ColumnTypeFloat
	case "DOUBLE":
		return adapter.ColumnTypeDouble
	case "CHAR", "VARCHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET":
		return adapter.ColumnTypeText
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return adapter.ColumnTypeBytes
	case "DATE":
		return adapter.ColumnTypeDate
	case "TIME":
		return adapter.ColumnTypeTime
	case "DATETIME", "TIMESTAMP":
		return adapter.ColumnTypeDateTime
	case "JSON":
		return adapter.ColumnTypeJson
	default:
		return adapter.ColumnTypeUnknown
	}
}
