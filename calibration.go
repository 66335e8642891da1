package bme680

import "fmt"

// Byte offsets of the coefficients inside the 41 byte calibration block
// (25 bytes read at RegCoeff1 followed by 16 bytes read at RegCoeff2).
const (
	offT2LSB  = 1
	offT2MSB  = 2
	offT3     = 3
	offP1LSB  = 5
	offP1MSB  = 6
	offP2LSB  = 7
	offP2MSB  = 8
	offP3     = 9
	offP4LSB  = 11
	offP4MSB  = 12
	offP5LSB  = 13
	offP5MSB  = 14
	offP7     = 15
	offP6     = 16
	offP8LSB  = 19
	offP8MSB  = 20
	offP9LSB  = 21
	offP9MSB  = 22
	offP10    = 23
	offH2MSB  = 25
	offH2LSB  = 26
	offH1LSB  = 26
	offH1MSB  = 27
	offH3     = 28
	offH4     = 29
	offH5     = 30
	offH6     = 31
	offH7     = 32
	offT1LSB  = 33
	offT1MSB  = 34
	offGH2LSB = 35
	offGH2MSB = 36
	offGH1    = 37
	offGH3    = 38
)

// CalibrationData holds the factory trimming coefficients of one device. The zero value
// is not usable; build it with DecodeCalibration.
type CalibrationData struct {
	// Humidity compensation
	H1, H2         uint16
	H3, H4, H5, H7 int8
	H6             uint8

	// Gas heater
	GH1, GH3 int8
	GH2      int16

	// Temperature compensation
	T1 uint16
	T2 int16
	T3 int8

	// Pressure compensation
	P1                 uint16
	P2, P4, P5, P8, P9 int16
	P3, P6, P7         int8
	P10                uint8

	// Measured per device, set by ApplyDeviceScalars.
	ResHeatRange uint8
	ResHeatVal   int8
	RangeSwErr   int8

	scalars bool
}

// HasDeviceScalars reports whether ApplyDeviceScalars has run.
func (c *CalibrationData) HasDeviceScalars() bool {
	return c.scalars
}

// DecodeCalibration parses the concatenated calibration block.
func DecodeCalibration(block []byte) (CalibrationData, error) {
	var c CalibrationData
	if len(block) != calibrationLen {
		return c, fmt.Errorf("%w: got %d bytes, want %d", errCalibrationLength, len(block), calibrationLen)
	}

	word := func(msb, lsb int) int32 {
		return int32(block[msb])<<8 | int32(block[lsb])
	}
	signed := func(msb, lsb int, bits int) (int32, error) {
		return BytesToWord(block[msb], block[lsb], bits, true)
	}
	s8 := func(off int) (int8, error) {
		v, err := TwosComplement(uint32(block[off]), 8)
		return int8(v), err
	}

	var err error
	var v int32
	c.T1 = uint16(word(offT1MSB, offT1LSB))
	if v, err = signed(offT2MSB, offT2LSB, 16); err != nil {
		return c, err
	}
	c.T2 = int16(v)
	if c.T3, err = s8(offT3); err != nil {
		return c, err
	}

	c.P1 = uint16(word(offP1MSB, offP1LSB))
	for _, p := range []struct {
		dst      *int16
		msb, lsb int
	}{
		{&c.P2, offP2MSB, offP2LSB},
		{&c.P4, offP4MSB, offP4LSB},
		{&c.P5, offP5MSB, offP5LSB},
		{&c.P8, offP8MSB, offP8LSB},
		{&c.P9, offP9MSB, offP9LSB},
	} {
		if v, err = signed(p.msb, p.lsb, 16); err != nil {
			return c, err
		}
		*p.dst = int16(v)
	}
	for _, p := range []struct {
		dst *int8
		off int
	}{
		{&c.P3, offP3}, {&c.P6, offP6}, {&c.P7, offP7},
		{&c.H3, offH3}, {&c.H4, offH4}, {&c.H5, offH5}, {&c.H7, offH7},
		{&c.GH1, offGH1}, {&c.GH3, offGH3},
	} {
		if *p.dst, err = s8(p.off); err != nil {
			return c, err
		}
	}
	c.P10 = block[offP10]

	c.H1 = uint16(block[offH1MSB])<<4 | uint16(block[offH1LSB]&mskH1Data)
	c.H2 = uint16(block[offH2MSB])<<4 | uint16(block[offH2LSB])>>4
	c.H6 = block[offH6]

	if v, err = signed(offGH2MSB, offGH2LSB, 16); err != nil {
		return c, err
	}
	c.GH2 = int16(v)

	return c, nil
}

// ApplyDeviceScalars stores the heater range, heater value and range switching error
// read from their own registers. Range and error are bit-fields, not raw bytes.
func (c *CalibrationData) ApplyDeviceScalars(heatRange uint8, heatValue, swError int8) {
	c.ResHeatRange = (heatRange & mskResHeatRg) >> 4
	c.ResHeatVal = heatValue
	c.RangeSwErr = int8((uint8(swError) & mskRangeSwEr) >> 4)
	c.scalars = true
}

// TwosComplement interprets the low bits of v as a signed integer of the given width.
func TwosComplement(v uint32, bits int) (int32, error) {
	if bits < 1 || bits > 32 {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedWidth, bits)
	}
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift, nil
}

// BytesToWord combines msb and lsb into a 16 bit word, sign extended at bits when
// signed is set.
func BytesToWord(msb, lsb byte, bits int, signed bool) (int32, error) {
	word := uint32(msb)<<8 | uint32(lsb)
	if !signed {
		return int32(word), nil
	}
	return TwosComplement(word, bits)
}
