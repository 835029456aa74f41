package gateway

import (
	"time"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TxIdleTimeout is how long an open transaction may go without a request
	// before it is rolled back. An idle transaction holds the connection
	// lock, so every other caller waits on it.
	TxIdleTimeout time.Duration `yaml:"tx_idle_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		TxIdleTimeout:   30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errs.New(errs.ErrKindInvalidInput, "gateway addr is required")
	}
	if c.TxIdleTimeout <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "gateway tx_idle_timeout must be positive")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "gateway timeouts must not be negative")
	}
	return nil
}

// reapInterval is how often idle transactions are checked.
func (c *Config) reapInterval() time.Duration {
	d := c.TxIdleTimeout / 4
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}
