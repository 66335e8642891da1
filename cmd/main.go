package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ftmazzone/bme680"
	"github.com/ftmazzone/bme680/internal/app"
	"github.com/ftmazzone/bme680/internal/config"
	"github.com/ftmazzone/bme680/internal/logging"
)

var version = "dev"
var appName = "bme680-gateway"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(cfg, version, appName))
	slog.Info("starting",
		"version", version,
		"log_level", cfg.LogLevel.String(),
		"i2c_bus", cfg.I2CBus,
		"address", fmt.Sprintf("0x%02X", cfg.BME680Address),
		"poll", cfg.SensorPollInterval,
		"mqtt", cfg.MQTTEnabled,
		"ble", cfg.BLEEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx, cfg)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		slog.Info("shutting down")
	case errors.Is(err, bme680.ErrChipIDMismatch):
		slog.Error("no BME680 at the configured address", "address", fmt.Sprintf("0x%02X", cfg.BME680Address), "err", err)
		os.Exit(2)
	default:
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}
