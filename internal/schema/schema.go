// Package schema introspects tables through an adapter.Queryable, so it
// runs under the same connection lock as every other statement.
package schema

import (
	"context"
	"fmt"
	"slices"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// Reader is the interface for introspecting a database schema
type Reader interface {
	// ListTables returns all user tables, sorted by name
	ListTables(ctx context.Context) ([]string, error)

	// TableExists checks whether a table exists
	TableExists(ctx context.Context, table string) (bool, error)

	// InspectTable returns full column info for a table
	InspectTable(ctx context.Context, table string) (*TableInfo, error)

	// InspectSchema returns the full schema (all tables + foreign keys)
	InspectSchema(ctx context.Context) (*SchemaInfo, error)
}

// NewReader returns the Reader for q's provider. schema is the namespace to
// inspect; SQLite ignores it.
func NewReader(q adapter.Queryable, schema string) (Reader, error) {
	var in inspector
	switch q.Provider() {
	case adapter.ProviderPostgres:
		in = &pgInspector{q: q, schema: schema}
	case adapter.ProviderMysql:
		in = &mysqlInspector{q: q, schema: schema}
	case adapter.ProviderSqlite:
		in = &sqliteInspector{q: q}
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no introspection for provider %q", q.Provider()))
	}
	return &reader{in: in, schema: schema}, nil
}

// inspector is the provider-specific half of a Reader.
type inspector interface {
	listTables(ctx context.Context) ([]string, error)
	columns(ctx context.Context, table string) ([]ColumnInfo, error)
	foreignKeys(ctx context.Context, tables []string) ([]ForeignKey, error)
}

type reader struct {
	in     inspector
	schema string
}

func (r *reader) ListTables(ctx context.Context) ([]string, error) {
	tables, err := r.in.listTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (r *reader) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := r.ListTables(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(tables, table), nil
}

func (r *reader) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	cols, err := r.in.columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %s not found or has no columns", table))
	}
	return &TableInfo{Schema: r.schema, Name: table, Columns: cols}, nil
}

func (r *reader) InspectSchema(ctx context.Context) (*SchemaInfo, error) {
	tables, err := r.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{Tables: make([]TableInfo, 0, len(tables))}
	for _, table := range tables {
		ti, err := r.InspectTable(ctx, table)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)
	}

	fks, err := r.in.foreignKeys(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	info.ForeignKeys = fks
	return info, nil
}
