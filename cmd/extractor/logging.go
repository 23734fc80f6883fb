package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-scrape-catalog/config"
)

func newLogger(w io.Writer, verbose bool, format string) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case config.LogFormatText:
		handler = slog.NewTextHandler(w, opts)
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		if f, ok := w.(*os.File); ok && isTerminal(f) {
			handler = slog.NewTextHandler(w, opts)
		} else {
			handler = slog.NewJSONHandler(w, opts)
		}
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
