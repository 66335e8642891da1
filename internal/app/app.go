package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ftmazzone/bme680"
	"github.com/ftmazzone/bme680/internal/ble"
	"github.com/ftmazzone/bme680/internal/config"
	"github.com/ftmazzone/bme680/internal/mqtt"
	"github.com/ftmazzone/bme680/internal/utils"
	"github.com/ftmazzone/bme680/shared/types"
	"github.com/ftmazzone/bme680/transport"
)

type publisher interface {
	Connect(ctx context.Context) error
	PublishTelemetry(t types.Telemetry) error
	PublishStationHealth(h types.StationHealth) error
	IsConnected() bool
	Disconnect()
}

type beacon interface {
	Enable() error
	Update(r ble.Reading) error
	Stop() error
}

// Gateway polls one sensor and fans readings out to the enabled sinks.
type Gateway struct {
	cfg    config.Config
	dev    *bme680.Device
	pub    publisher // nil when MQTT is disabled
	beacon beacon    // nil when BLE is disabled
	logger *slog.Logger
	seq    int
}

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("initializing gateway",
		"i2c_bus", cfg.I2CBus,
		"address", fmt.Sprintf("0x%02X", cfg.BME680Address),
		"poll_interval", cfg.SensorPollInterval,
		"mqtt_enabled", cfg.MQTTEnabled,
		"ble_enabled", cfg.BLEEnabled,
	)

	bus, err := transport.Open(cfg.I2CBus, cfg.BME680Address)
	if err != nil {
		return err
	}
	defer bus.Close()

	g := &Gateway{
		cfg:    cfg,
		dev:    bme680.New(bus, cfg.DeviceOpts(logger)),
		logger: logger,
	}
	if cfg.MQTTEnabled {
		g.pub = mqtt.NewClient(cfg, logger)
	}
	if cfg.BLEEnabled {
		g.beacon = ble.NewAdvertiser(ble.Options{Adapter: cfg.BLEAdapter}, logger)
	}
	return g.Run(ctx)
}

// Run initializes the device and polls it until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.dev.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize %s: %w", g.dev, err)
	}
	defer func() {
		if err := g.dev.Halt(); err != nil {
			g.logger.Warn("halt failed", "error", err)
		}
	}()
	g.dev.SetTempOffset(g.cfg.TempOffset)
	g.logger.Info("sensor ready", "chip", g.dev.ChipName(), "temp_offset_c", g.cfg.TempOffset)

	if g.pub != nil {
		go func() {
			if err := g.pub.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				g.logger.Error("mqtt connect failed", "error", err)
			}
		}()
		defer g.pub.Disconnect()
	}
	if g.beacon != nil {
		if err := g.beacon.Enable(); err != nil {
			g.logger.Warn("ble could not be initialized; gateway continues without BLE", "error", err)
			g.beacon = nil
		} else {
			defer g.beacon.Stop()
		}
	}

	ticker := time.NewTicker(g.cfg.SensorPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("gateway shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := g.poll(ctx); err != nil {
				return err
			}
		}
	}
}

// poll runs one measurement cycle. Only device errors are returned; sink failures are logged.
func (g *Gateway) poll(ctx context.Context) error {
	fd, ok, err := g.dev.Measure(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("measure: %w", err)
	}
	if !ok {
		g.logger.Debug("no new data")
		return nil
	}
	g.seq++

	g.logger.Info("reading",
		"seq", g.seq,
		"temperature_c", fd.Temperature,
		"pressure_hpa", fd.Pressure,
		"humidity_pct", fd.Humidity,
		"gas_ohm", fd.GasResistance,
		"gas_valid", fd.GasValid,
		"heat_stable", fd.HeatStable,
	)
	if g.logger.Enabled(ctx, slog.LevelDebug) {
		if raw, err := g.dev.ReadBlock(bme680.RegField0, 15); err == nil {
			g.logger.Debug("field block", "data", utils.BytesToHex(raw))
		}
	}

	now := time.Now()
	if g.pub != nil && g.pub.IsConnected() {
		t := mqtt.TelemetryFromReading(g.cfg.DeviceStationID, g.seq, fd, now)
		if err := g.pub.PublishTelemetry(t); err != nil {
			g.logger.Warn("publish telemetry failed", "error", err)
		}
		h := types.StationHealth{StationID: g.cfg.DeviceStationID, Chip: g.dev.ChipName(), LastSeen: now, Healthy: true}
		if err := g.pub.PublishStationHealth(h); err != nil {
			g.logger.Warn("publish health failed", "error", err)
		}
	}
	if g.beacon != nil {
		r := ble.Reading{
			ReadingID:     uint32(g.seq),
			Temperature:   fd.Temperature,
			Pressure:      fd.Pressure,
			Humidity:      fd.Humidity,
			GasResistance: fd.GasResistance,
		}
		if err := g.beacon.Update(r); err != nil {
			g.logger.Warn("ble update failed", "error", err)
		}
	}
	return nil
}
