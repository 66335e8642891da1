package bme680

import "math"

// Shifts in the reference algorithm act on 32 bit registers, products and sums do not.
func sar(x int64, n uint) int64 { return int64(int32(x) >> n) }
func shl(x int64, n uint) int64 { return int64(int32(x) << n) }

// floorDiv rounds toward negative infinity, unlike Go's / operator.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CompensateTemperature converts a raw temperature code. offset is added to t_fine and
// comes from SetTempOffset. It returns t_fine, which pressure and humidity compensation
// need, and the temperature in hundredths of a degree Celsius.
func CompensateTemperature(adc int32, offset int32, c *CalibrationData) (tFine int32, centi int32) {
	v1 := sar(int64(adc), 3) - shl(int64(c.T1), 1)
	v2 := sar(v1*int64(c.T2), 11)
	v3 := sar(sar(v1, 1)*sar(v1, 1), 12)
	v3 = sar(v3*shl(int64(c.T3), 4), 14)
	tf := v2 + v3 + int64(offset)
	return int32(tf), int32(sar(tf*5+128, 8))
}

// CompensatePressure converts a raw pressure code to Pascal.
func CompensatePressure(adc int32, tFine int32, c *CalibrationData) int32 {
	v1 := sar(int64(tFine), 1) - 64000
	v2 := sar(sar(sar(v1, 2)*sar(v1, 2), 11)*int64(c.P6), 2)
	v2 += shl(v1*int64(c.P5), 1)
	v2 = sar(v2, 2) + shl(int64(c.P4), 16)
	v1 = sar(sar(sar(v1, 2)*sar(v1, 2), 13)*shl(int64(c.P3), 5), 3) + sar(int64(c.P2)*v1, 1)
	v1 = sar(v1, 18)
	v1 = sar((32768+v1)*int64(c.P1), 15)
	if v1 == 0 {
		return 0
	}

	p := 1048576 - int64(adc)
	p = (p - sar(v2, 12)) * 3125
	// Divide first unless the product has already wrapped below int32.
	if p >= math.MinInt32 {
		p = shl(floorDiv(p, v1), 1)
	} else {
		p = floorDiv(shl(p, 1), v1)
	}

	v1 = sar(int64(c.P9)*sar(sar(p, 3)*sar(p, 3), 13), 12)
	v2 = sar(sar(p, 2)*int64(c.P8), 13)
	v3 := sar(sar(p, 8)*sar(p, 8)*sar(p, 8)*int64(c.P10), 17)
	p += sar(v1+v2+v3+shl(int64(c.P7), 7), 4)
	return int32(p)
}

// CompensateHumidity converts a raw humidity code to thousandths of a percent, clamped to
// [0, 100000].
func CompensateHumidity(adc int32, tFine int32, c *CalibrationData) int32 {
	ts := sar(int64(tFine)*5+128, 8)
	v1 := (int64(adc) - int64(c.H1)*16) - sar(floorDiv(ts*int64(c.H3), 100), 1)
	v2 := sar(int64(c.H2)*(floorDiv(ts*int64(c.H4), 100)+
		floorDiv(sar(ts*floorDiv(ts*int64(c.H5), 100), 6), 100)+16384), 10)
	v3 := v1 * v2
	v4 := shl(int64(c.H6), 7)
	v4 = sar(floorDiv(v4*100+ts*int64(c.H7), 100), 4)
	v5 := sar(sar(v3, 14)*sar(v3, 14), 10)
	v6 := sar(v4*v5, 1)
	h := sar(sar(v3+v6, 10)*1000, 12)
	switch {
	case h > 100000:
		h = 100000
	case h < 0:
		h = 0
	}
	return int32(h)
}

var (
	gasRangeK1 = [16]float64{0, 0, 0, 0, 0, -1, 0, -0.8, 0, 0, -0.2, -0.5, 0, -1, 0, 0}
	gasRangeK2 = [16]float64{0, 0, 0, 0, 0.1, 0.7, 0, -0.8, -0.1, 0, 0, 0, 0, 0, 0, 0}
)

// CompensateGasResistance converts a raw gas code and its range to Ohm.
func CompensateGasResistance(adc uint16, gasRange uint8, rangeSwErr int8) float64 {
	r := gasRange & mskGasRange
	var1 := 1340 + 5*float64(rangeSwErr)
	var2 := var1 * (1 + gasRangeK1[r]/100)
	var3 := 1 + gasRangeK2[r]/100
	return 1 / (var3 * 0.000000125 * math.Pow(2, float64(r)) * ((float64(adc)-512)/var2 + 1))
}
