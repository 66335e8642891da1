package types

import "time"

// Telemetry is one reading as published to stations/<id>/telemetry.
type Telemetry struct {
	StationID     string    `json:"station_id"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   *float64  `json:"temperature_c,omitempty"`
	Humidity      *float64  `json:"humidity_pct,omitempty"`
	Pressure      *float64  `json:"pressure_hpa,omitempty"`
	GasResistance *float64  `json:"gas_resistance_ohm,omitempty"`
	GasValid      *bool     `json:"gas_valid,omitempty"`
	HeatStable    *bool     `json:"heat_stable,omitempty"`
	Sequence      *int      `json:"sequence,omitempty"`
}

// StationHealth is the retained last-seen state of a station.
type StationHealth struct {
	StationID string    `json:"station_id"`
	Chip      string    `json:"chip,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}
