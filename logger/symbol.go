package logger

import (
	"go.uber.org/zap"

	"github.com/teranos/mangasync/sym"
)

// WithSymbol returns base tagged with a symbol field.
// A nil base falls back to the global Logger.
func WithSymbol(base *zap.SugaredLogger, symbol string) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	return base.With(FieldSymbol, symbol)
}

// FieldSymbol carries the sym glyph of the emitting subsystem.
const FieldSymbol = "symbol"

// DBInfow logs a database-layer info message on base
func DBInfow(base *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	WithSymbol(base, sym.DB).Infow(msg, keysAndValues...)
}

// DBDebugw logs a database-layer debug message on base
func DBDebugw(base *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	WithSymbol(base, sym.DB).Debugw(msg, keysAndValues...)
}
