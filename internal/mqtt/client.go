package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ftmazzone/bme680"
	"github.com/ftmazzone/bme680/internal/config"
	"github.com/ftmazzone/bme680/shared/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var errNotConnected = errors.New("mqtt client not connected")

type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func TelemetryTopic(stationID string) string { return fmt.Sprintf("stations/%s/telemetry", stationID) }
func HealthTopic(stationID string) string { return fmt.Sprintf("stations/%s/health", stationID) }

// TelemetryFromReading builds the telemetry message for one measurement.
func TelemetryFromReading(stationID string, seq int, fd bme680.FieldData, at time.Time) types.Telemetry {
	temp, hum, press := fd.Temperature, fd.Humidity, fd.Pressure
	gasValid, heatStable := fd.GasValid, fd.HeatStable
	t := types.Telemetry{
		StationID:   stationID,
		Timestamp:   at,
		Temperature: &temp,
		Humidity:    &hum,
		Pressure:    &press,
		GasValid:    &gasValid,
		HeatStable:  &heatStable,
		Sequence:    &seq,
	}
	// Without a stable heater the resistance is meaningless.
	if fd.GasValid && fd.HeatStable {
		gas := fd.GasResistance
		t.GasResistance = &gas
	}
	return t
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect waits for the initial connection. It returns early on ctx cancellation or Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}
	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry the token may stay pending while paho keeps retrying.
	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishTelemetry publishes t under its station topic with QoS 1.
func (c *Client) PublishTelemetry(t types.Telemetry) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	topic := TelemetryTopic(t.StationID)
	if err := c.publish(topic, false, t); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	c.logger.Debug("published telemetry", "topic", topic, "station_id", t.StationID)
	return nil
}

// PublishStationHealth publishes the retained health state.
func (c *Client) PublishStationHealth(h types.StationHealth) error {
	if h.LastSeen.IsZero() {
		h.LastSeen = time.Now()
	}
	topic := HealthTopic(h.StationID)
	if err := c.publish(topic, true, h); err != nil {
		return fmt.Errorf("publish health: %w", err)
	}
	c.logger.Debug("published station health",
		"topic", topic,
		"station_id", h.StationID,
		"healthy", h.Healthy,
	)
	return nil
}

func (c *Client) publish(topic string, retained bool, v any) error {
	if !c.IsConnected() {
		return errNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	token := c.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		c.logger.Error("publish failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
