package schema

import (
	"context"
	"strings"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/mysql"
)

// mysqlInspector reads MySQL's information_schema. The schema is the
// database name.
type mysqlInspector struct {
	q      adapter.Queryable
	schema string
}

func (m *mysqlInspector) listTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rs, err := m.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{m.schema}})
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		tables = append(tables, str(row[0]))
	}
	return tables, nil
}

func (m *mysqlInspector) columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'                         AS is_nullable,
			c.column_default,
			c.character_maximum_length,
			(c.column_key = 'PRI')                        AS is_primary_key,
			(c.column_key = 'UNI')                        AS is_unique
		FROM information_schema.columns c
		WHERE c.table_schema = ?
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rs, err := m.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{m.schema, table}})
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnInfo, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		dataType := str(row[1])
		cols = append(cols, ColumnInfo{
			Name:         str(row[0]),
			DataType:     dataType,
			Type:         mysql.ColumnType(strings.ToUpper(dataType)),
			IsNullable:   boolean(row[2]),
			DefaultValue: strPtr(row[3]),
			MaxLength:    intPtr(row[4]),
			IsPrimaryKey: boolean(row[5]),
			IsUnique:     boolean(row[6]),
		})
	}
	return cols, nil
}

func (m *mysqlInspector) foreignKeys(ctx context.Context, _ []string) ([]ForeignKey, error) {
	const q = `
		SELECT
			rc.constraint_name,
			kcu.table_name             AS from_table,
			kcu.column_name            AS from_column,
			kcu.referenced_table_name  AS to_table,
			kcu.referenced_column_name AS to_column
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON rc.constraint_name = kcu.constraint_name
			AND rc.constraint_schema = kcu.table_schema
		WHERE rc.constraint_schema = ?
		ORDER BY rc.constraint_name`

	rs, err := m.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{m.schema}})
	if err != nil {
		return nil, err
	}
	return scanForeignKeys(rs), nil
}
