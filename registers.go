// Package bme680 provides a driver for Bosch's BME680 temperature, pressure, humidity and gas sensor.
// The datasheet can be found here: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme680-ds001.pdf
package bme680

import "time"

// I2C addresses, selected by the SDO pin.
const (
	AddressPrimary   uint16 = 0x76
	AddressSecondary uint16 = 0x77
)

const (
	RegChipID         byte = 0xD0 // useful for checking the connection
	RegVariant        byte = 0xF0
	RegSoftReset      byte = 0xE0
	RegField0         byte = 0x1D // start of the status and data block
	RegResHeat0       byte = 0x5A // heater resistance, one per profile
	RegGasWait0       byte = 0x64 // heating duration, one per profile
	RegCtrlGas0       byte = 0x70 // heater control
	RegCtrlGas1       byte = 0x71 // run_gas and nb_conv
	RegCtrlHum        byte = 0x72 // humidity oversampling
	RegCtrlMeas       byte = 0x74 // temperature/pressure oversampling, mode
	RegConfig         byte = 0x75 // IIR filter
	RegCoeff1         byte = 0x89 // first calibration block
	RegCoeff2         byte = 0xE1 // second calibration block
	RegResHeatVal     byte = 0x00
	RegResHeatRange   byte = 0x02
	RegRangeSwitchErr byte = 0x04
)

const (
	ChipID         byte = 0x61 // correct response if reading from chip id register
	SoftResetCmd   byte = 0xB6
	VariantBME680  byte = 0x00
	VariantBME688  byte = 0x01
	coeff1Len           = 25
	coeff2Len           = 16
	calibrationLen      = coeff1Len + coeff2Len
	fieldLen            = 15
)

// Bit-field masks and positions.
const (
	mskOST       byte = 0xE0
	posOST            = 5
	mskOSP       byte = 0x1C
	posOSP            = 2
	mskOSH       byte = 0x07
	posOSH            = 0
	mskFilter    byte = 0x1C
	posFilter         = 2
	mskMode      byte = 0x03
	posMode           = 0
	mskRunGas    byte = 0x10
	posRunGas         = 4
	mskNBConv    byte = 0x0F
	posNBConv         = 0
	mskHeatOff   byte = 0x08
	posHeatOff        = 3
	mskNewData   byte = 0x80
	mskGasIndex  byte = 0x0F
	mskGasRange  byte = 0x0F
	mskGasValid  byte = 0x20
	mskHeatStab  byte = 0x10
	mskResHeatRg byte = 0x30
	mskRangeSwEr byte = 0xF0
	mskH1Data    byte = 0x0F
)

// Heater profiles are numbered 0 to 9.
const (
	ProfileMin = 0
	ProfileMax = 9
)

const (
	resetPeriod = 10 * time.Millisecond
	pollPeriod  = 10 * time.Millisecond
	maxPolls    = 1000
)

// Oversampling trades measurement time for noise. Skipped disables the channel.
type Oversampling byte

const (
	Skipped Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// Filter is the IIR filter coefficient, higher values means steadier measurements but slower reaction times.
type Filter byte

const (
	FilterOff Filter = iota
	Filter1
	Filter3
	Filter7
	Filter15
	Filter31
	Filter63
	Filter127
)

// PowerMode is the value of the mode field. The device falls back to Sleep by itself once a
// forced measurement completes.
type PowerMode byte

const (
	Sleep  PowerMode = 0x00
	Forced PowerMode = 0x01
)

func (m PowerMode) String() string {
	switch m {
	case Sleep:
		return "sleep"
	case Forced:
		return "forced"
	default:
		return "invalid"
	}
}
