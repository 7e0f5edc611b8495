package richtext

import (
	"log/slog"

	"github.com/Mlleters/rich-text/internal/logging"
)

// SetLogger configures the logger for richtext and all its subpackages.
// By default no log output is produced. Pass nil to restore the silent
// default.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
//
// Log levels used:
//   - [slog.LevelWarn]: non-fatal issues (font load or parse failures)
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
