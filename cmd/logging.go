package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// newLogger builds the slog logger described by log.level and log.format.
// --verbose forces debug level.
func newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(viper.GetString("log.level"))}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	if strings.EqualFold(viper.GetString("log.format"), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
