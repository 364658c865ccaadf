package utils

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// NewLogger builds the console + file logger used by the CLI.
// The console side is colored only when stdout is a terminal; the file side
// is plain text routed through a LogInterceptor, which adds its own time.
func NewLogger(console *os.File, file io.Writer, level slog.Leveler) *slog.Logger {
	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: consoleTimeFormat,
		NoColor:    !isatty.IsTerminal(console.Fd()),
	})
	if file == nil {
		return slog.New(consoleHandler)
	}

	fileHandler := slog.NewTextHandler(NewLogInterceptor(file), &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	return slog.New(NewMultiLogHandler(consoleHandler, fileHandler))
}
