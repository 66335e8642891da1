package bme680

import (
	"context"
	"time"
)

// PowerModeOptions controls how SetPowerMode waits for the device to confirm a mode change.
type PowerModeOptions struct {
	// Blocking makes SetPowerMode read the mode back until it matches.
	Blocking     bool
	PollInterval time.Duration
	MaxPolls     int
}

// DefaultPowerModeOptions returns without waiting for confirmation.
var DefaultPowerModeOptions = PowerModeOptions{
	PollInterval: pollPeriod,
	MaxPolls:     100,
}

// SetPowerMode writes the mode field of the measurement control register. A nil opts
// means DefaultPowerModeOptions.
func (d *Device) SetPowerMode(ctx context.Context, mode PowerMode, opts *PowerModeOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPowerMode(ctx, mode, opts)
}

// PowerMode returns the mode last written.
func (d *Device) PowerMode() PowerMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Device) setPowerMode(ctx context.Context, mode PowerMode, opts *PowerModeOptions) error {
	if mode != Sleep && mode != Forced {
		return ErrInvalidPowerMode
	}
	if opts == nil {
		opts = &DefaultPowerModeOptions
	}
	if err := d.setBits(RegCtrlMeas, mskMode, posMode, byte(mode)); err != nil {
		return err
	}
	d.mode = mode
	if !opts.Blocking {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPowerModeOptions.PollInterval
	}
	polls := opts.MaxPolls
	if polls <= 0 {
		polls = DefaultPowerModeOptions.MaxPolls
	}
	start := time.Now()
	for i := 1; i <= polls; i++ {
		v, err := d.readByte(RegCtrlMeas)
		if err != nil {
			return err
		}
		if PowerMode(v&mskMode) == mode {
			return nil
		}
		if i == polls {
			break
		}
		if err := d.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return &PowerModeTimeoutError{Mode: mode, Polls: polls, Elapsed: time.Since(start)}
}
