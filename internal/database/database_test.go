package database

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/logger"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "mysql", mutate: func(c *Config) { c.Provider = adapter.ProviderMysql }},
		{name: "postgres pq", mutate: func(c *Config) { c.Provider = adapter.ProviderPostgres; c.Driver = DriverPq }},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "oracle" }, wantErr: true},
		{name: "missing dsn", mutate: func(c *Config) { c.DSN = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Driver = "odbc" }, wantErr: true},
		{name: "unknown tx mode", mutate: func(c *Config) { c.TxMode = "serializable" }, wantErr: true},
		{name: "empty tx mode", mutate: func(c *Config) { c.TxMode = "" }},
		{name: "negative timeout", mutate: func(c *Config) { c.ConnectTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("file:test.db")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpen_Sqlite(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Output: &buf})

	cfg := DefaultConfig("file:open_test?mode=memory")
	cfg.Name = "orders-db"
	cfg.TxMode = adapter.TxModeImmediate

	ad, err := Open(ctx, cfg, log)
	require.NoError(t, err)
	defer ad.Close(ctx)

	assert.Equal(t, "orders-db", ad.AdapterName())
	assert.Equal(t, adapter.ProviderSqlite, ad.Provider())
	assert.Equal(t, "main", ad.ConnectionInfo().SchemaName)
	assert.Contains(t, buf.String(), "database connected")

	require.NoError(t, ad.ExecuteScript(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT);"))
	n, err := ad.ExecuteRaw(ctx, adapter.Query{SQL: "INSERT INTO t (v) VALUES (?), (?)", Args: []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), &Config{Provider: "oracle", DSN: "x"}, nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOpen_MysqlBadDSN(t *testing.T) {
	cfg := DefaultConfig("no-slash-here")
	cfg.Provider = adapter.ProviderMysql

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
