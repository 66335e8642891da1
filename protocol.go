package bme680

// Transport is the register-addressed bus a Device talks through. Implementations must
// return exactly n bytes from ReadRegister or an error.
type Transport interface {
	ReadRegister(reg byte, n int) ([]byte, error)
	WriteRegister(reg, v byte) error
}

// ReadByte reads a single register.
func (d *Device) ReadByte(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readByte(reg)
}

// ReadBlock reads n consecutive registers starting at reg.
func (d *Device) ReadBlock(reg byte, n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readBlock(reg, n)
}

// WriteByte writes a single register.
func (d *Device) WriteByte(reg, v byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeByte(reg, v)
}

// SetBits replaces the bits of reg selected by mask with value shifted left by shift.
// Bits of value that fall outside mask are dropped.
func (d *Device) SetBits(reg, mask byte, shift uint, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBits(reg, mask, shift, value)
}

func (d *Device) readByte(reg byte) (byte, error) {
	b, err := d.readBlock(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) readBlock(reg byte, n int) ([]byte, error) {
	b, err := d.t.ReadRegister(reg, n)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, &TransportError{Op: "read", Addr: reg, Err: errShortRead}
	}
	return b, nil
}

func (d *Device) writeByte(reg, v byte) error {
	return d.t.WriteRegister(reg, v)
}

func (d *Device) setBits(reg, mask byte, shift uint, value byte) error {
	cur, err := d.readByte(reg)
	if err != nil {
		return err
	}
	return d.writeByte(reg, cur&^mask|(value<<shift)&mask)
}
