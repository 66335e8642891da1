package bme680

import "time"

const (
	heaterMinC       = 200
	heaterMaxC       = 400
	heaterDurMax     = 0xFC0
	defaultAmbientCC = 2500
)

// HeaterResistance returns the res_heat register value that brings the hot plate to
// targetC degrees Celsius. ambientCC is the ambient temperature in hundredths of a degree.
// The target is clamped to [200, 400]. Every step truncates as integer division does, so
// results can sit one below a floating point evaluation of the same formula.
func HeaterResistance(targetC int, ambientCC int32, c *CalibrationData) byte {
	targetC = clampHeater(targetC)
	var1 := (int64(ambientCC) * int64(c.GH3) / 1000) * 256
	var2 := (int64(c.GH1) + 784) * (((int64(c.GH2)+154009)*int64(targetC)*5/100 + 3276800) / 10)
	var3 := var1 + var2/2
	var4 := var3 / (int64(c.ResHeatRange) + 4)
	var5 := 131*int64(c.ResHeatVal) + 65536
	x := (var4/var5 - 250) * 34
	return byte((x + 50) / 100)
}

// HeaterDuration encodes a heating time as the gas_wait register value: a 6 bit mantissa
// and a 2 bit multiplier of 1, 4, 16 or 64 ms. Durations of 0xFC0 ms or more saturate.
// Each division by 4 truncates, so 255ms encodes as 127 (252ms).
func HeaterDuration(d time.Duration) byte {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms >= heaterDurMax {
		return 0xFF
	}
	var factor int64
	for ms > 0x3F {
		ms /= 4
		factor++
	}
	return byte(ms + factor*64)
}

// SetHeaterTemperature programs the target temperature of one heater profile.
func (d *Device) SetHeaterTemperature(targetC int, profile int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setHeaterTemperature(targetC, profile)
}

func (d *Device) setHeaterTemperature(targetC int, profile int) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	if !d.calibrated {
		return ErrNotCalibrated
	}
	ambient := d.ambient
	if !d.hasAmbient {
		ambient = defaultAmbientCC
	}
	v := HeaterResistance(targetC, ambient, &d.calib)
	if err := d.writeByte(RegResHeat0+byte(profile), v); err != nil {
		return err
	}
	d.gas.HeaterTemperature = clampHeater(targetC)
	return nil
}

// SetHeaterDuration programs the heating time of one heater profile.
func (d *Device) SetHeaterDuration(dur time.Duration, profile int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setHeaterDuration(dur, profile)
}

func (d *Device) setHeaterDuration(dur time.Duration, profile int) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	if err := d.writeByte(RegGasWait0+byte(profile), HeaterDuration(dur)); err != nil {
		return err
	}
	d.gas.HeaterDuration = dur
	return nil
}

// SelectHeaterProfile makes profile the one used by the next forced measurement.
func (d *Device) SelectHeaterProfile(profile int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectHeaterProfile(profile)
}

func (d *Device) selectHeaterProfile(profile int) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	if err := d.setBits(RegCtrlGas1, mskNBConv, posNBConv, byte(profile)); err != nil {
		return err
	}
	d.gas.Profile = profile
	return nil
}

// SetHeaterEnabled switches the hot plate on or off without touching the profiles.
func (d *Device) SetHeaterEnabled(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var off byte
	if !on {
		off = 1
	}
	if err := d.setBits(RegCtrlGas0, mskHeatOff, posHeatOff, off); err != nil {
		return err
	}
	d.gas.HeaterEnabled = on
	return nil
}

func clampHeater(t int) int {
	return min(max(t, heaterMinC), heaterMaxC)
}
