package bme680

import (
	"math"
	"time"
)

// TPHSettings mirrors the oversampling and filter fields last written to the device.
type TPHSettings struct {
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter
}

// GasSettings mirrors the gas measurement and heater fields last written to the device.
type GasSettings struct {
	RunGas            bool
	HeaterEnabled     bool
	Profile           int
	HeaterTemperature int // °C
	HeaterDuration    time.Duration
}

// SetHumidityOversample sets osrs_h.
func (d *Device) SetHumidityOversample(o Oversampling) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setHumidityOversample(o)
}

func (d *Device) setHumidityOversample(o Oversampling) error {
	if err := d.setBits(RegCtrlHum, mskOSH, posOSH, byte(o)); err != nil {
		return err
	}
	d.tph.Humidity = o
	return nil
}

// SetPressureOversample sets osrs_p.
func (d *Device) SetPressureOversample(o Oversampling) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPressureOversample(o)
}

func (d *Device) setPressureOversample(o Oversampling) error {
	if err := d.setBits(RegCtrlMeas, mskOSP, posOSP, byte(o)); err != nil {
		return err
	}
	d.tph.Pressure = o
	return nil
}

// SetTemperatureOversample sets osrs_t.
func (d *Device) SetTemperatureOversample(o Oversampling) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setTemperatureOversample(o)
}

func (d *Device) setTemperatureOversample(o Oversampling) error {
	if err := d.setBits(RegCtrlMeas, mskOST, posOST, byte(o)); err != nil {
		return err
	}
	d.tph.Temperature = o
	return nil
}

// SetFilter sets the IIR filter coefficient.
func (d *Device) SetFilter(f Filter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setFilter(f)
}

func (d *Device) setFilter(f Filter) error {
	if err := d.setBits(RegConfig, mskFilter, posFilter, byte(f)); err != nil {
		return err
	}
	d.tph.Filter = f
	return nil
}

// SetGasStatus enables or disables the gas conversion (run_gas).
func (d *Device) SetGasStatus(run bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setGasStatus(run)
}

func (d *Device) setGasStatus(run bool) error {
	var v byte
	if run {
		v = 1
	}
	if err := d.setBits(RegCtrlGas1, mskRunGas, posRunGas, v); err != nil {
		return err
	}
	d.gas.RunGas = run
	return nil
}

// SetTempOffset shifts every following temperature reading by celsius degrees. The offset
// is applied to t_fine so pressure and humidity follow it.
func (d *Device) SetTempOffset(celsius float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset = TempOffset(celsius)
}

// TempOffset converts degrees Celsius to the t_fine units used by CompensateTemperature.
func TempOffset(celsius float64) int32 {
	if celsius == 0 {
		return 0
	}
	centi := int32(math.Abs(celsius) * 100)
	v := ((centi << 8) - 128) / 5
	if celsius < 0 {
		return -v
	}
	return v
}

// Settings returns a copy of the configuration last written.
func (d *Device) Settings() (TPHSettings, GasSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tph, d.gas
}
