package bme680

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// State is the lifecycle position of a Device.
type State int

const (
	Uninitialized State = iota
	Identified
	Configured
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Identified:
		return "identified"
	case Configured:
		return "configured"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Opts holds the settings Initialize programs into the device.
type Opts struct {
	Logger *slog.Logger

	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter

	HeaterTemperature int // °C, clamped to [200, 400]
	HeaterDuration    time.Duration
	HeaterProfile     int

	// PollPeriod and MaxPolls bound how long Measure waits for new data.
	PollPeriod time.Duration
	MaxPolls   int
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Temperature:       Sampling8X,
	Pressure:          Sampling4X,
	Humidity:          Sampling2X,
	Filter:            Filter3,
	HeaterTemperature: 320,
	HeaterDuration:    150 * time.Millisecond,
	HeaterProfile:     0,
	PollPeriod:        pollPeriod,
	MaxPolls:          maxPolls,
}

// FieldData is one compensated measurement.
type FieldData struct {
	Status     byte
	GasIndex   byte
	MeasIndex  byte
	NewData    bool
	GasValid   bool
	HeatStable bool

	Temperature   float64 // °C
	Pressure      float64 // hPa
	Humidity      float64 // %RH
	GasResistance float64 // Ω
}

// rawField holds the ADC codes of one field block.
type rawField struct {
	status, gasIndex, measIndex byte

	pressure    int32
	temperature int32
	humidity    int32
	gas         uint16
	gasRange    uint8
}

func decodeField(b []byte) rawField {
	return rawField{
		status:      b[0]&mskNewData | b[14]&mskGasValid | b[14]&mskHeatStab,
		gasIndex:    b[0] & mskGasIndex,
		measIndex:   b[1],
		pressure:    int32(b[2])<<12 | int32(b[3])<<4 | int32(b[4])>>4,
		temperature: int32(b[5])<<12 | int32(b[6])<<4 | int32(b[7])>>4,
		humidity:    int32(b[8])<<8 | int32(b[9]),
		gas:         uint16(b[13])<<2 | uint16(b[14])>>6,
		gasRange:    b[14] & mskGasRange,
	}
}

// Device is a handle to one BME680. All methods are safe for concurrent use; multi-step
// operations hold the lock for their whole duration.
type Device struct {
	mu     sync.Mutex
	t      Transport
	opts   Opts
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error

	state   State
	chipID  byte
	variant byte
	mode    PowerMode

	calib      CalibrationData
	calibrated bool
	tph        TPHSettings
	gas        GasSettings
	offset     int32

	ambient    int32 // centi °C, from the last measurement
	hasAmbient bool
}

// New returns an uninitialized Device on t. A nil opts means DefaultOpts.
func New(t Transport, opts *Opts) *Device {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.PollPeriod <= 0 {
		o.PollPeriod = pollPeriod
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = maxPolls
	}
	return &Device{
		t:      t,
		opts:   o,
		logger: o.Logger.With("component", "bme680"),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Initialize identifies, resets and configures the device, then programs the heater
// profile from the options.
func (d *Device) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.readByte(RegChipID)
	if err != nil {
		return fmt.Errorf("read chip id: %w", err)
	}
	if id != ChipID {
		d.logger.Error("unexpected chip id", "chip_id", fmt.Sprintf("0x%02X", id))
		return &ChipIDMismatchError{Got: id}
	}
	d.chipID = id
	if d.variant, err = d.readByte(RegVariant); err != nil {
		return fmt.Errorf("read variant: %w", err)
	}
	d.state = Identified
	d.logger.Debug("chip identified", "chip", d.chipName(), "variant", d.variant)

	if err := d.writeByte(RegSoftReset, SoftResetCmd); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	if err := d.sleep(ctx, resetPeriod); err != nil {
		return err
	}
	if err := d.setPowerMode(ctx, Sleep, nil); err != nil {
		return err
	}
	if err := d.loadCalibration(); err != nil {
		return fmt.Errorf("load calibration: %w", err)
	}
	d.logger.Debug("calibration loaded",
		"res_heat_range", d.calib.ResHeatRange,
		"res_heat_val", d.calib.ResHeatVal,
		"range_sw_err", d.calib.RangeSwErr)

	if err := d.applySettings(); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	d.state = Configured

	if _, _, err := d.measure(ctx); err != nil {
		return fmt.Errorf("discard measurement: %w", err)
	}

	p := d.opts.HeaterProfile
	if err := d.setHeaterTemperature(d.opts.HeaterTemperature, p); err != nil {
		return fmt.Errorf("heater temperature: %w", err)
	}
	if err := d.setHeaterDuration(d.opts.HeaterDuration, p); err != nil {
		return fmt.Errorf("heater duration: %w", err)
	}
	if err := d.selectHeaterProfile(p); err != nil {
		return fmt.Errorf("heater profile: %w", err)
	}
	d.state = Ready
	d.logger.Debug("initialized", "profile", p, "heater_c", d.gas.HeaterTemperature, "heater_ms", d.gas.HeaterDuration.Milliseconds())
	return nil
}

func (d *Device) loadCalibration() error {
	c1, err := d.readBlock(RegCoeff1, coeff1Len)
	if err != nil {
		return err
	}
	c2, err := d.readBlock(RegCoeff2, coeff2Len)
	if err != nil {
		return err
	}
	block := make([]byte, 0, calibrationLen)
	block = append(append(block, c1...), c2...)
	calib, err := DecodeCalibration(block)
	if err != nil {
		return err
	}

	heatRange, err := d.readByte(RegResHeatRange)
	if err != nil {
		return err
	}
	heatVal, err := d.readByte(RegResHeatVal)
	if err != nil {
		return err
	}
	swErr, err := d.readByte(RegRangeSwitchErr)
	if err != nil {
		return err
	}
	calib.ApplyDeviceScalars(heatRange, int8(heatVal), int8(swErr))

	d.calib = calib
	d.calibrated = true
	return nil
}

func (d *Device) applySettings() error {
	if err := d.setHumidityOversample(d.opts.Humidity); err != nil {
		return err
	}
	if err := d.setPressureOversample(d.opts.Pressure); err != nil {
		return err
	}
	if err := d.setTemperatureOversample(d.opts.Temperature); err != nil {
		return err
	}
	if err := d.setFilter(d.opts.Filter); err != nil {
		return err
	}
	if err := d.setGasStatus(true); err != nil {
		return err
	}
	d.gas.HeaterEnabled = true
	d.offset = 0
	return nil
}

// Measure triggers a forced conversion and waits for it. ok is false, with a nil error,
// when no new data showed up within the poll budget. A sample puts the device back in Ready.
func (d *Device) Measure(ctx context.Context) (FieldData, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fd, ok, err := d.measure(ctx)
	if ok {
		d.state = Ready
	}
	return fd, ok, err
}

func (d *Device) measure(ctx context.Context) (FieldData, bool, error) {
	if !d.calibrated {
		return FieldData{}, false, ErrNotCalibrated
	}
	if err := d.setPowerMode(ctx, Forced, nil); err != nil {
		return FieldData{}, false, err
	}

	for i := 0; i < d.opts.MaxPolls; i++ {
		status, err := d.readByte(RegField0)
		if err != nil {
			return FieldData{}, false, err
		}
		if status&mskNewData == 0 {
			if err := d.sleep(ctx, d.opts.PollPeriod); err != nil {
				return FieldData{}, false, err
			}
			continue
		}

		b, err := d.readBlock(RegField0, fieldLen)
		if err != nil {
			return FieldData{}, false, err
		}
		return d.compensate(decodeField(b)), true, nil
	}
	d.logger.Debug("no new data", "polls", d.opts.MaxPolls)
	return FieldData{}, false, nil
}

// compensate converts raw codes and records the ambient temperature.
func (d *Device) compensate(r rawField) FieldData {
	tFine, centi := CompensateTemperature(r.temperature, d.offset, &d.calib)
	pa := CompensatePressure(r.pressure, tFine, &d.calib)
	hum := CompensateHumidity(r.humidity, tFine, &d.calib)
	gas := CompensateGasResistance(r.gas, r.gasRange, d.calib.RangeSwErr)

	d.ambient = centi
	d.hasAmbient = true

	return FieldData{
		Status:        r.status,
		GasIndex:      r.gasIndex,
		MeasIndex:     r.measIndex,
		NewData:       r.status&mskNewData != 0,
		GasValid:      r.status&mskGasValid != 0,
		HeatStable:    r.status&mskHeatStab != 0,
		Temperature:   float64(centi) / 100,
		Pressure:      float64(pa) / 100,
		Humidity:      float64(hum) / 1000,
		GasResistance: gas,
	}
}

// Sense measures once and stores the result in e.
func (d *Device) Sense(e *physic.Env) error {
	_, err := d.SenseGas(context.Background(), e)
	return err
}

// SenseGas is Sense with a context, also returning the gas resistance that physic.Env
// has no field for.
func (d *Device) SenseGas(ctx context.Context, e *physic.Env) (physic.ElectricResistance, error) {
	fd, ok, err := d.Measure(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoSample
	}
	// Convert centi Celsius to Kelvin.
	e.Temperature = physic.Temperature(math.Round(fd.Temperature*100))*10*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(math.Round(fd.Pressure*100)) * physic.Pascal
	// Milli percent to physic units, 1%rH being 10000 MicroRH.
	e.Humidity = physic.RelativeHumidity(math.Round(fd.Humidity*1000)) * 10 * physic.MicroRH
	return physic.ElectricResistance(fd.GasResistance * float64(physic.Ohm)), nil
}

// Halt puts the device to sleep.
func (d *Device) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPowerMode(context.Background(), Sleep, nil)
}

// State returns the lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Calibration returns the loaded coefficients and false if Initialize has not loaded them.
func (d *Device) Calibration() (CalibrationData, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calib, d.calibrated
}

// AmbientTemperature returns the last measured temperature in centi °C.
func (d *Device) AmbientTemperature() (int32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ambient, d.hasAmbient
}

// ChipName returns "bme680" or "bme688" once identified.
func (d *Device) ChipName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chipName()
}

func (d *Device) chipName() string {
	if d.variant == VariantBME688 {
		return "bme688"
	}
	return "bme680"
}

func (d *Device) String() string {
	return fmt.Sprintf("%s{%s}", d.ChipName(), d.State())
}
