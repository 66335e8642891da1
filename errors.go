package bme680

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPowerMode  = errors.New("bme680: power mode should be sleep or forced")
	ErrUnsupportedWidth  = errors.New("bme680: two's complement only supports widths up to 32 bits")
	ErrChipIDMismatch    = errors.New("bme680: not found, invalid chip id")
	ErrProfileOutOfRange = errors.New("bme680: heater profile out of range")
	ErrPowerModeTimeout  = errors.New("bme680: power mode could not be updated")
	ErrNotCalibrated     = errors.New("bme680: calibration data not loaded")
	ErrNoSample          = errors.New("bme680: no new data available")
	errCalibrationLength = errors.New("bme680: unexpected calibration block length")
	errShortRead         = errors.New("bme680: short read")
)

// TransportError is returned when a bus read or write fails. Addr is the register that
// was being accessed.
type TransportError struct {
	Op   string
	Addr byte
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bme680: %s register 0x%02X: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ChipIDMismatchError carries the id read back from a device that is not a BME680.
type ChipIDMismatchError struct {
	Got byte
}

func (e *ChipIDMismatchError) Error() string {
	return fmt.Sprintf("%v: 0x%02X (want 0x%02X)", ErrChipIDMismatch, e.Got, ChipID)
}

func (e *ChipIDMismatchError) Is(target error) bool { return target == ErrChipIDMismatch }

// ProfileOutOfRangeError is returned before any register write when a heater profile is
// outside [ProfileMin, ProfileMax].
type ProfileOutOfRangeError struct {
	Profile int
}

func (e *ProfileOutOfRangeError) Error() string {
	return fmt.Sprintf("bme680: profile '%d' should be between %d and %d", e.Profile, ProfileMin, ProfileMax)
}

func (e *ProfileOutOfRangeError) Is(target error) bool { return target == ErrProfileOutOfRange }

// PowerModeTimeoutError is returned by a blocking SetPowerMode whose read-back never matched.
type PowerModeTimeoutError struct {
	Mode    PowerMode
	Polls   int
	Elapsed time.Duration
}

func (e *PowerModeTimeoutError) Error() string {
	return fmt.Sprintf("%v to %s after %d polls (%s)", ErrPowerModeTimeout, e.Mode, e.Polls, e.Elapsed)
}

func (e *PowerModeTimeoutError) Is(target error) bool { return target == ErrPowerModeTimeout }

func checkProfile(profile int) error {
	if profile < ProfileMin || profile > ProfileMax {
		return &ProfileOutOfRangeError{Profile: profile}
	}
	return nil
}
