package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/sqlite"
)

// sqliteInspector reads sqlite_master and the table-valued pragmas.
type sqliteInspector struct {
	q adapter.Queryable
}

func (s *sqliteInspector) listTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rs, err := s.q.QueryRaw(ctx, adapter.Query{SQL: q})
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		tables = append(tables, str(row[0]))
	}
	return tables, nil
}

func (s *sqliteInspector) columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	const q = `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	rs, err := s.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{table}})
	if err != nil {
		return nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, nil
	}

	unique, err := s.uniqueColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnInfo, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		name, declared := str(row[0]), str(row[1])
		pk := boolean(row[4])
		cols = append(cols, ColumnInfo{
			Name:         name,
			DataType:     declared,
			Type:         sqlite.ColumnType(declared),
			IsNullable:   !boolean(row[2]) && !pk,
			DefaultValue: strPtr(row[3]),
			IsPrimaryKey: pk,
			IsUnique:     unique[name],
		})
	}
	return cols, nil
}

// uniqueColumns returns columns covered on their own by a UNIQUE constraint
// or unique index.
func (s *sqliteInspector) uniqueColumns(ctx context.Context, table string) (map[string]bool, error) {
	const q = `
		SELECT ii.name
		FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
		WHERE il."unique" = 1
		  AND il.origin <> 'pk'
		  AND (SELECT COUNT(*) FROM pragma_index_info(il.name)) = 1`

	rs, err := s.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{table}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rs.Rows))
	for _, row := range rs.Rows {
		out[str(row[0])] = true
	}
	return out, nil
}

// foreignKeys has no schema-wide source in SQLite, so each table is asked
// in turn. Constraints are unnamed; they are labelled table_fk_<id>.
func (s *sqliteInspector) foreignKeys(ctx context.Context, tables []string) ([]ForeignKey, error) {
	const q = `
		SELECT id, "table", "from", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`

	var fks []ForeignKey
	for _, table := range tables {
		rs, err := s.q.QueryRaw(ctx, adapter.Query{SQL: q, Args: []any{table}})
		if err != nil {
			return nil, err
		}
		for _, row := range rs.Rows {
			fks = append(fks, ForeignKey{
				Name:       fmt.Sprintf("%s_fk_%s", table, str(row[0])),
				FromTable:  table,
				FromColumn: str(row[2]),
				ToTable:    str(row[1]),
				ToColumn:   str(row[3]),
			})
		}
	}
	return fks, nil
}
