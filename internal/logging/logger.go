package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ftmazzone/bme680/internal/config"
)

// New returns the process logger: colored text for dev builds, JSON otherwise. Every
// record carries the app name and, when configured, the station id.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	var h slog.Handler
	if version == "dev" {
		h = tint.NewHandler(w, &tint.Options{
			Level:       cfg.LogLevel,
			AddSource:   true,
			TimeFormat:  time.Kitchen,
			ReplaceAttr: shortDurations,
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       cfg.LogLevel,
			ReplaceAttr: shortDurations,
		}).WithAttrs([]slog.Attr{
			slog.String("version", version),
			slog.String("env", cfg.AppEnv),
		})
	}

	l := slog.New(h).With("app", appName)
	if cfg.DeviceStationID != "" {
		l = l.With("station", cfg.DeviceStationID)
	}
	return l
}

// shortDurations renders durations as "150ms" instead of nanosecond counts.
func shortDurations(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}
