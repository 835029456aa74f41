package schema

import (
	"context"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/postgres"
)

// pgInspector reads PostgreSQL's information_schema.
type pgInspector struct {
	q      adapter.Queryable
	schema string
}

func (p *pgInspector) listTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rs, err := p.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{p.schema}})
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		tables = append(tables, str(row[0]))
	}
	return tables, nil
}

func (p *pgInspector) columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	const q = `
		SELECT
			c.column_name::text,
			c.udt_name::text,
			c.is_nullable = 'YES'              AS is_nullable,
			c.column_default::text,
			c.character_maximum_length::int4,
			COALESCE(pk.is_pk, false)          AS is_primary_key,
			COALESCE(uq.is_unique, false)      AS is_unique
		FROM information_schema.columns c

		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = $1
			  AND tc.table_name   = $2
		) pk ON pk.column_name = c.column_name

		LEFT JOIN (
			SELECT kcu.column_name, true AS is_unique
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'UNIQUE'
			  AND tc.table_schema = $1
			  AND tc.table_name   = $2
		) uq ON uq.column_name = c.column_name

		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rs, err := p.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{p.schema, table}})
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnInfo, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		udt := str(row[1])
		cols = append(cols, ColumnInfo{
			Name:         str(row[0]),
			DataType:     udt,
			Type:         postgres.ColumnTypeName(udt),
			IsNullable:   boolean(row[2]),
			DefaultValue: strPtr(row[3]),
			MaxLength:    intPtr(row[4]),
			IsPrimaryKey: boolean(row[5]),
			IsUnique:     boolean(row[6]),
		})
	}
	return cols, nil
}

func (p *pgInspector) foreignKeys(ctx context.Context, _ []string) ([]ForeignKey, error) {
	const q = `
		SELECT
			tc.constraint_name::text,
			kcu.table_name::text   AS from_table,
			kcu.column_name::text  AS from_column,
			ccu.table_name::text   AS to_table,
			ccu.column_name::text  AS to_column
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.constraint_name`

	rs, err := p.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{p.schema}})
	if err != nil {
		return nil, err
	}
	return scanForeignKeys(rs), nil
}

func scanForeignKeys(rs *adapter.ResultSet) []ForeignKey {
	fks := make([]ForeignKey, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		fks = append(fks, ForeignKey{
			Name:       str(row[0]),
			FromTable:  str(row[1]),
			FromColumn: str(row[2]),
			ToTable:    str(row[3]),
			ToColumn:   str(row[4]),
		})
	}
	return fks
}
