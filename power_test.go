package bme680

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSetPowerMode_Invalid(t *testing.T) {
	m := &regMap{}
	d, _ := newTestDevice(t, m, nil)

	err := d.SetPowerMode(context.Background(), PowerMode(2), nil)
	if !errors.Is(err, ErrInvalidPowerMode) {
		t.Errorf("SetPowerMode(2) error = %v; want ErrInvalidPowerMode", err)
	}
	if len(m.writes) != 0 || len(m.reads) != 0 {
		t.Errorf("bus traffic = %v reads, %v writes; want none", m.reads, m.writes)
	}
}

func TestSetPowerMode_NonBlocking(t *testing.T) {
	m := &regMap{}
	m.regs[RegCtrlMeas] = 0x8C
	d, slept := newTestDevice(t, m, nil)

	if err := d.SetPowerMode(context.Background(), Forced, nil); err != nil {
		t.Fatalf("SetPowerMode() error = %v", err)
	}
	if got := m.regs[RegCtrlMeas]; got != 0x8D {
		t.Errorf("ctrl_meas = 0x%02X; want 0x8D", got)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v; want no wait", *slept)
	}
	if got := d.PowerMode(); got != Forced {
		t.Errorf("PowerMode() = %v; want %v", got, Forced)
	}
}

func TestSetPowerMode_BlockingConfirms(t *testing.T) {
	m := &regMap{}
	d, slept := newTestDevice(t, m, nil)

	opts := &PowerModeOptions{Blocking: true, PollInterval: 5 * time.Millisecond, MaxPolls: 3}
	if err := d.SetPowerMode(context.Background(), Forced, opts); err != nil {
		t.Fatalf("SetPowerMode() error = %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v; want immediate match", *slept)
	}
}

// stuckMap ignores writes to the mode field, like a device that never leaves sleep.
type stuckMap struct{ regMap }

func (s *stuckMap) WriteRegister(reg, v byte) error {
	if reg == RegCtrlMeas {
		v &^= mskMode
	}
	return s.regMap.WriteRegister(reg, v)
}

func TestSetPowerMode_Timeout(t *testing.T) {
	s := &stuckMap{}
	d := New(s, nil)
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}

	opts := &PowerModeOptions{Blocking: true, PollInterval: 5 * time.Millisecond, MaxPolls: 3}
	err := d.SetPowerMode(context.Background(), Forced, opts)
	if !errors.Is(err, ErrPowerModeTimeout) {
		t.Fatalf("SetPowerMode() error = %v; want ErrPowerModeTimeout", err)
	}
	var pe *PowerModeTimeoutError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T; want *PowerModeTimeoutError", err)
	}
	if pe.Polls != 3 || pe.Mode != Forced {
		t.Errorf("timeout = %+v; want 3 polls for forced", pe)
	}
	if len(slept) != 2 || slept[0] != 5*time.Millisecond {
		t.Errorf("slept = %v; want 2 x 5ms between 3 polls", slept)
	}
}

func TestSetPowerMode_ZeroPollsUsesDefaults(t *testing.T) {
	s := &stuckMap{}
	d := New(s, nil)
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}

	err := d.SetPowerMode(context.Background(), Forced, &PowerModeOptions{Blocking: true})
	var pe *PowerModeTimeoutError
	if !errors.As(err, &pe) {
		t.Fatalf("SetPowerMode() error = %v; want *PowerModeTimeoutError", err)
	}
	want := DefaultPowerModeOptions.MaxPolls
	// One read for the read-modify-write, then one per poll.
	if pe.Polls != want || len(s.reads) != want+1 {
		t.Errorf("polls = %d, reads = %d; want %d polls", pe.Polls, len(s.reads), want)
	}
	if len(slept) != want-1 {
		t.Fatalf("slept %d times; want %d", len(slept), want-1)
	}
	if slept[0] != DefaultPowerModeOptions.PollInterval {
		t.Errorf("interval = %v; want %v", slept[0], DefaultPowerModeOptions.PollInterval)
	}
}

func TestSetPowerMode_Cancelled(t *testing.T) {
	s := &stuckMap{}
	d := New(s, nil)
	d.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := &PowerModeOptions{Blocking: true, PollInterval: time.Hour, MaxPolls: 3}
	if err := d.SetPowerMode(ctx, Forced, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("SetPowerMode() error = %v; want context.Canceled", err)
	}
}
