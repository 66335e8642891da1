package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ftmazzone/bme680"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	I2CBus             string
	BME680Address      uint16
	SensorPollInterval time.Duration
	DeviceStationID    string

	HeaterTemperature int
	HeaterDuration    time.Duration
	HeaterProfile     int
	TempOffset        float64

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	BLEEnabled bool
	BLEAdapter string
}

// DeviceOpts maps the sensor settings onto driver options.
func (c Config) DeviceOpts(logger *slog.Logger) *bme680.Opts {
	opts := bme680.DefaultOpts
	opts.Logger = logger
	opts.HeaterTemperature = c.HeaterTemperature
	opts.HeaterDuration = c.HeaterDuration
	opts.HeaterProfile = c.HeaterProfile
	return &opts
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	addrStr := env("BME680_ADDRESS", "0x76")
	addr, err := strconv.ParseUint(addrStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BME680_ADDRESS %q: %w", addrStr, err)
	}
	if uint16(addr) != bme680.AddressPrimary && uint16(addr) != bme680.AddressSecondary {
		return Config{}, fmt.Errorf("invalid BME680_ADDRESS %q (allowed: 0x76, 0x77)", addrStr)
	}

	pollStr := env("SENSOR_POLL_INTERVAL", "3s")
	poll, err := time.ParseDuration(pollStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SENSOR_POLL_INTERVAL %q: %w", pollStr, err)
	}
	if poll <= 0 {
		return Config{}, fmt.Errorf("SENSOR_POLL_INTERVAL must be positive, got %v", poll)
	}

	heaterTempStr := env("HEATER_TEMPERATURE", "320")
	heaterTemp, err := strconv.Atoi(heaterTempStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HEATER_TEMPERATURE %q: %w", heaterTempStr, err)
	}
	if heaterTemp < 200 || heaterTemp > 400 {
		return Config{}, fmt.Errorf("HEATER_TEMPERATURE must be between 200 and 400, got %d", heaterTemp)
	}

	heaterDurStr := env("HEATER_DURATION", "150ms")
	heaterDur, err := time.ParseDuration(heaterDurStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HEATER_DURATION %q: %w", heaterDurStr, err)
	}
	if heaterDur <= 0 {
		return Config{}, fmt.Errorf("HEATER_DURATION must be positive, got %v", heaterDur)
	}

	profileStr := env("HEATER_PROFILE", "0")
	profile, err := strconv.Atoi(profileStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HEATER_PROFILE %q: %w", profileStr, err)
	}
	if profile < bme680.ProfileMin || profile > bme680.ProfileMax {
		return Config{}, fmt.Errorf("HEATER_PROFILE must be between %d and %d, got %d", bme680.ProfileMin, bme680.ProfileMax, profile)
	}

	offsetStr := env("TEMP_OFFSET", "0")
	offset, err := strconv.ParseFloat(offsetStr, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TEMP_OFFSET %q: %w", offsetStr, err)
	}

	mqttEnabled, err := parseBool("MQTT_ENABLED")
	if err != nil {
		return Config{}, err
	}

	mqttPortStr := env("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	bleEnabled, err := parseBool("BLE_ENABLED")
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		I2CBus:             env("I2C_BUS", ""),
		BME680Address:      uint16(addr),
		SensorPollInterval: poll,
		DeviceStationID:    env("DEVICE_STATION_ID", "home"),
		HeaterTemperature:  heaterTemp,
		HeaterDuration:     heaterDur,
		HeaterProfile:      profile,
		TempOffset:         offset,
		MQTTEnabled:        mqttEnabled,
		MQTTBroker:         env("MQTT_BROKER", "localhost"),
		MQTTPort:           mqttPort,
		MQTTClientID:       env("MQTT_CLIENT_ID", "bme680-gateway"),
		BLEEnabled:         bleEnabled,
		BLEAdapter:         env("BLE_ADAPTER", "hci0"),
	}, nil
}

func parseBool(key string) (bool, error) {
	s := env(key, "false")
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
