// Package database opens the adapter for a configured provider.
//
// Callers depend on this package and on internal/adapter only; the engine
// packages under internal/adapter are wired here.
//
//	ad, err := database.Open(ctx, database.DefaultConfig("file:app.db"), log)
//	if err != nil { ... }
//	defer ad.Close(ctx)
package database

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/mysql"
	"github.com/koustreak/sqlbridge/internal/adapter/postgres"
	"github.com/koustreak/sqlbridge/internal/adapter/sqlite"
	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/logger"
)

// Open validates cfg, connects and wraps the connection in an Adapter.
func Open(ctx context.Context, cfg *Config, log *logger.Logger) (*adapter.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	conn, info, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.With().
		Str("provider", string(cfg.Provider)).
		Str("schema", info.SchemaName).
		Logger().
		Info("database connected")

	opts := []adapter.Option{
		adapter.WithLogger(log),
		adapter.WithConnectionInfo(info),
		adapter.WithName(cfg.Name),
	}
	if cfg.TxMode != "" {
		opts = append(opts, adapter.WithTxMode(cfg.TxMode))
	}
	return adapter.New(conn, opts...), nil
}

func connect(ctx context.Context, cfg *Config) (adapter.Conn, adapter.ConnectionInfo, error) {
	switch cfg.Provider {
	case adapter.ProviderSqlite:
		conn, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, adapter.ConnectionInfo{}, err
		}
		return conn, sqlite.Info(), nil

	case adapter.ProviderMysql:
		dsn, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, adapter.ConnectionInfo{}, err
		}
		conn, err := mysql.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, adapter.ConnectionInfo{}, err
		}
		return conn, mysql.Info(dsn.DBName), nil

	case adapter.ProviderPostgres:
		var (
			conn adapter.Conn
			err  error
		)
		if cfg.Driver == DriverPq {
			conn, err = postgres.OpenPQ(ctx, cfg.DSN)
		} else {
			conn, err = postgres.Open(ctx, cfg.DSN)
		}
		if err != nil {
			return nil, adapter.ConnectionInfo{}, err
		}
		schema, err := currentSchema(ctx, conn)
		if err != nil {
			_ = conn.Close(ctx)
			return nil, adapter.ConnectionInfo{}, err
		}
		return conn, postgres.Info(schema), nil
	}
	return nil, adapter.ConnectionInfo{}, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown provider %q", cfg.Provider))
}

func currentSchema(ctx context.Context, conn adapter.Conn) (string, error) {
	res, err := conn.Query(ctx, adapter.Query{SQL: "SELECT current_schema()"})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindConnectionFailed, "failed to read current schema", err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 || res.Rows[0][0] == nil {
		return "public", nil
	}
	if b, ok := res.Rows[0][0].([]byte); ok {
		return string(b), nil
	}
	return fmt.Sprint(res.Rows[0][0]), nil
}
