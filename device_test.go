package bme680

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func initDevice(t *testing.T, m *regMap, opts *Opts) (*Device, *[]time.Duration) {
	t.Helper()
	d, slept := newTestDevice(t, m, opts)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return d, slept
}

func TestInitialize(t *testing.T) {
	m := newSampleMap()
	d, slept := initDevice(t, m, nil)

	if got := d.State(); got != Ready {
		t.Errorf("State() = %v; want %v", got, Ready)
	}
	if len(m.writes) < 2 || m.writes[0] != (regWrite{RegSoftReset, SoftResetCmd}) {
		t.Fatalf("first write = %v; want soft reset", m.writes)
	}
	if m.writes[1] != (regWrite{RegCtrlMeas, 0x00}) {
		t.Errorf("second write = %v; want sleep mode", m.writes[1])
	}
	if len(*slept) == 0 || (*slept)[0] != resetPeriod {
		t.Errorf("slept = %v; want reset delay first", *slept)
	}

	c, ok := d.Calibration()
	if !ok || c.T1 != 26136 || c.ResHeatRange != 1 || c.ResHeatVal != 47 || c.RangeSwErr != 0 {
		t.Errorf("Calibration() = %+v, %v", c, ok)
	}

	want := map[byte]byte{
		RegCtrlHum:  0x02,
		RegCtrlMeas: 0x8D, // forced by the discard measurement
		RegConfig:   0x08,
		RegCtrlGas1: 0x10,
		RegResHeat0: 115,
		RegGasWait0: 101,
	}
	for reg, v := range want {
		if got := m.regs[reg]; got != v {
			t.Errorf("register 0x%02X = %d; want %d", reg, got, v)
		}
	}

	if amb, ok := d.AmbientTemperature(); !ok || amb != 2414 {
		t.Errorf("AmbientTemperature() = %d, %v; want 2414, true", amb, ok)
	}
	if got := d.ChipName(); got != "bme680" {
		t.Errorf("ChipName() = %q; want bme680", got)
	}
	if got := d.String(); got != "bme680{ready}" {
		t.Errorf("String() = %q; want bme680{ready}", got)
	}
}

func TestInitialize_ChipIDMismatch(t *testing.T) {
	m := newSampleMap()
	m.regs[RegChipID] = 0x60
	d, _ := newTestDevice(t, m, nil)

	err := d.Initialize(context.Background())
	if !errors.Is(err, ErrChipIDMismatch) {
		t.Fatalf("Initialize() error = %v; want ErrChipIDMismatch", err)
	}
	var ce *ChipIDMismatchError
	if !errors.As(err, &ce) || ce.Got != 0x60 {
		t.Errorf("error = %v; want id 0x60", err)
	}
	if len(m.writes) != 0 {
		t.Errorf("writes = %v; want none", m.writes)
	}
	if got := d.State(); got != Uninitialized {
		t.Errorf("State() = %v; want %v", got, Uninitialized)
	}
}

func TestInitialize_TransportError(t *testing.T) {
	m := newSampleMap()
	m.failRead = map[byte]bool{RegCoeff2: true}
	d, _ := newTestDevice(t, m, nil)

	err := d.Initialize(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.Addr != RegCoeff2 {
		t.Fatalf("Initialize() error = %v; want TransportError at 0xE1", err)
	}
	if got := d.State(); got != Identified {
		t.Errorf("State() = %v; want %v", got, Identified)
	}
}

func TestInitialize_BME688(t *testing.T) {
	m := newSampleMap()
	m.regs[RegVariant] = VariantBME688
	d, _ := initDevice(t, m, nil)

	if got := d.ChipName(); got != "bme688" {
		t.Errorf("ChipName() = %q; want bme688", got)
	}
}

func TestMeasure(t *testing.T) {
	m := newSampleMap()
	d, _ := initDevice(t, m, nil)

	fd, ok, err := d.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if !ok {
		t.Fatalf("Measure() ok = false; want true")
	}

	if fd.Temperature != 24.14 {
		t.Errorf("Temperature = %v; want 24.14", fd.Temperature)
	}
	if fd.Pressure != 1008.8 {
		t.Errorf("Pressure = %v; want 1008.8", fd.Pressure)
	}
	if fd.Humidity != 49.072 {
		t.Errorf("Humidity = %v; want 49.072", fd.Humidity)
	}
	if math.Abs(fd.GasResistance-1850.91) > 0.01 {
		t.Errorf("GasResistance = %v; want ~1850.91", fd.GasResistance)
	}
	if fd.Status != 0xB0 || !fd.NewData || !fd.GasValid || !fd.HeatStable {
		t.Errorf("status = 0x%02X %+v", fd.Status, fd)
	}
	if fd.GasIndex != 0 || fd.MeasIndex != 0 {
		t.Errorf("indexes = (%d, %d); want (0, 0)", fd.GasIndex, fd.MeasIndex)
	}
	if amb, _ := d.AmbientTemperature(); amb != 2414 {
		t.Errorf("AmbientTemperature() = %d; want 2414", amb)
	}
}

func TestMeasure_ReentersReady(t *testing.T) {
	m := newSampleMap()
	m.failWrite = map[byte]bool{RegResHeat0: true}
	d, _ := newTestDevice(t, m, nil)

	if err := d.Initialize(context.Background()); err == nil {
		t.Fatalf("Initialize() error = nil; want heater write failure")
	}
	if got := d.State(); got != Configured {
		t.Fatalf("State() = %v; want %v", got, Configured)
	}

	m.failWrite = nil
	if _, ok, err := d.Measure(context.Background()); err != nil || !ok {
		t.Fatalf("Measure() = %v, %v", ok, err)
	}
	if got := d.State(); got != Ready {
		t.Errorf("State() = %v; want %v", got, Ready)
	}
}

func TestMeasure_TempOffset(t *testing.T) {
	m := newSampleMap()
	d, _ := initDevice(t, m, nil)
	d.SetTempOffset(2)

	fd, ok, err := d.Measure(context.Background())
	if err != nil || !ok {
		t.Fatalf("Measure() = %v, %v", ok, err)
	}
	if fd.Temperature != 26.13 {
		t.Errorf("Temperature = %v; want 26.13", fd.Temperature)
	}
}

func TestMeasure_NoSample(t *testing.T) {
	m := newSampleMap()
	m.regs[RegField0] = 0x00
	d, slept := initDevice(t, m, &Opts{MaxPolls: 4, PollPeriod: 7 * time.Millisecond})
	*slept = nil

	fd, ok, err := d.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if ok {
		t.Errorf("Measure() ok = true; want false")
	}
	if fd != (FieldData{}) {
		t.Errorf("Measure() = %+v; want zero value", fd)
	}
	if len(*slept) != 4 || (*slept)[0] != 7*time.Millisecond {
		t.Errorf("slept = %v; want 4 x 7ms", *slept)
	}
	if _, ok := d.AmbientTemperature(); ok {
		t.Errorf("AmbientTemperature() set without a sample")
	}
}

func TestMeasure_NotCalibrated(t *testing.T) {
	m := newSampleMap()
	d, _ := newTestDevice(t, m, nil)

	if _, _, err := d.Measure(context.Background()); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("Measure() error = %v; want ErrNotCalibrated", err)
	}
}

func TestMeasure_Cancelled(t *testing.T) {
	m := newSampleMap()
	d, _ := initDevice(t, m, nil)
	m.regs[RegField0] = 0x00

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := d.Measure(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Measure() error = %v; want context.Canceled", err)
	}
}

func TestSense(t *testing.T) {
	m := newSampleMap()
	d, _ := initDevice(t, m, nil)

	var e physic.Env
	gas, err := d.SenseGas(context.Background(), &e)
	if err != nil {
		t.Fatalf("SenseGas() error = %v", err)
	}
	wantT := physic.Temperature(2414)*10*physic.MilliCelsius + physic.ZeroCelsius
	if e.Temperature != wantT {
		t.Errorf("Temperature = %v; want %v", e.Temperature, wantT)
	}
	if e.Pressure != 100880*physic.Pascal {
		t.Errorf("Pressure = %v; want %v", e.Pressure, 100880*physic.Pascal)
	}
	if e.Humidity != 490720*physic.MicroRH {
		t.Errorf("Humidity = %v; want %v", e.Humidity, 490720*physic.MicroRH)
	}
	if gas < 1850*physic.Ohm || gas > 1851*physic.Ohm {
		t.Errorf("gas = %v; want ~1850.91Ω", gas)
	}

	m.regs[RegField0] = 0x00
	d.opts.MaxPolls = 1
	if err := d.Sense(&e); !errors.Is(err, ErrNoSample) {
		t.Errorf("Sense() error = %v; want ErrNoSample", err)
	}
}

func TestHalt(t *testing.T) {
	m := newSampleMap()
	d, _ := initDevice(t, m, nil)

	if err := d.Halt(); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	if got := m.regs[RegCtrlMeas] & mskMode; got != byte(Sleep) {
		t.Errorf("mode = %d; want sleep", got)
	}
}
