package adapter

import "github.com/koustreak/sqlbridge/internal/logger"

// Option configures an Adapter.
type Option func(*options)

type options struct {
	name   string
	logger *logger.Logger
	txMode TxMode
	info   ConnectionInfo
}

func defaultOptions(conn Conn) options {
	return options{
		name:   "sqlbridge-" + string(conn.Provider()),
		logger: logger.Nop(),
		txMode: TxModeDeferred,
	}
}

// WithName overrides the adapter name reported by AdapterName.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger. Statements are logged at debug level,
// swallowed rollback failures and narrowed row counts at warn level.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTxMode sets the mode used by StartTransaction. Invalid modes are ignored.
func WithTxMode(mode TxMode) Option {
	return func(o *options) {
		if mode.Valid() {
			o.txMode = mode
		}
	}
}

// WithConnectionInfo sets what ConnectionInfo reports.
func WithConnectionInfo(info ConnectionInfo) Option {
	return func(o *options) {
		o.info = info
	}
}
