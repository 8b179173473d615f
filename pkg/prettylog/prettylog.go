// Package prettylog installs a charmbracelet/log handler as the slog default.
package prettylog

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// SetupPrettyLogger installs a console handler writing to w as the default
// slog logger and returns it so callers can adjust the level.
func SetupPrettyLogger(w io.Writer) *log.Logger {
	logHandler := log.NewWithOptions(
		w,
		log.Options{
			// Default level. Callers can use SetLevel on the returned handler to change.
			Level:           log.InfoLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          "themepipe",
		},
	)
	slog.SetDefault(slog.New(logHandler))

	return logHandler
}

// Setup installs the console handler at debug level when debug is set.
func Setup(w io.Writer, debug bool) *log.Logger {
	logger := SetupPrettyLogger(w)
	if debug {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	}
	return logger
}
