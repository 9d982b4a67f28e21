package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options selects the logging backend and its output shape.
//
// Backend is "slog" (default) or "zerolog". Format is "json", "text" or
// "auto"; auto picks text when the writer is a terminal.
type Options struct {
	Backend string
	Format  string
	Level   string
}

// isTerminal is a seam for tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New builds a Logger writing to w according to opts.
func New(w io.Writer, opts Options) (Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(opts.Format)
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		ho := &slog.HandlerOptions{Level: level}
		var h slog.Handler = slog.NewJSONHandler(w, ho)
		if format == "text" {
			h = slog.NewTextHandler(w, ho)
		}
		return NewSlogLogger(slog.New(h)), nil
	case "zerolog":
		out := w
		if format == "text" {
			out = zerolog.ConsoleWriter{Out: w, NoColor: true}
		}
		zl := zerolog.New(out).Level(zerologLevel(level)).With().Timestamp().Logger()
		return NewZerologLogger(zl), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
