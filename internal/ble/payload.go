package ble

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Manufacturer data layout (little-endian): magic 0x01 0xD0, reading_id uint32,
// temperature float32 (°C), pressure float32 (hPa), humidity float32 (%),
// gas resistance float32 (Ω), 22 bytes total.
const (
	payloadMagic0 = 0x01
	payloadMagic1 = 0xD0
	PayloadLen    = 22
)

// Reading is one measurement as carried in an advertisement.
type Reading struct {
	ReadingID     uint32
	Temperature   float64
	Pressure      float64
	Humidity      float64
	GasResistance float64
}

// EncodePayload writes r into dst, which must hold PayloadLen bytes.
func EncodePayload(dst []byte, r Reading) {
	_ = dst[PayloadLen-1]
	dst[0] = payloadMagic0
	dst[1] = payloadMagic1
	binary.LittleEndian.PutUint32(dst[2:6], r.ReadingID)
	binary.LittleEndian.PutUint32(dst[6:10], math.Float32bits(float32(r.Temperature)))
	binary.LittleEndian.PutUint32(dst[10:14], math.Float32bits(float32(r.Pressure)))
	binary.LittleEndian.PutUint32(dst[14:18], math.Float32bits(float32(r.Humidity)))
	binary.LittleEndian.PutUint32(dst[18:22], math.Float32bits(float32(r.GasResistance)))
}

// ParsePayload decodes manufacturer data written by EncodePayload. Receivers scanning
// for the beacon use it to turn the advertisement back into a Reading.
func ParsePayload(data []byte) (Reading, error) {
	if len(data) < PayloadLen {
		return Reading{}, fmt.Errorf("payload too short: %d", len(data))
	}
	if data[0] != payloadMagic0 || data[1] != payloadMagic1 {
		return Reading{}, fmt.Errorf("invalid magic: %02X %02X", data[0], data[1])
	}
	f := func(b []byte) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return Reading{
		ReadingID:     binary.LittleEndian.Uint32(data[2:6]),
		Temperature:   f(data[6:10]),
		Pressure:      f(data[10:14]),
		Humidity:      f(data[14:18]),
		GasResistance: f(data[18:22]),
	}, nil
}
