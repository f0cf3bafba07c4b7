package iceburn

// Comm is the byte-register channel between the host and logic in the FPGA
// fabric. It shares the data endpoints with the SPI port but uses its own
// command group.
type Comm struct {
	b     *Board
	state openState
}

func (c *Comm) Open() error {
	return c.state.open("comm", func() error {
		_, err := c.b.checkedSend("bcommopen", cmdComm, commOpen, []byte{0x00}, true)
		return err
	})
}

func (c *Comm) isOpen() bool { return bool(c.state) }

func (c *Comm) Close() error {
	return c.state.close("comm", func() error {
		_, err := c.b.checkedSend("bcommclose", cmdComm, commClose, []byte{0x00}, true)
		return err
	})
}

// regArgs addresses a single byte register.
func regArgs(reg byte) []byte {
	return []byte{0x00, reg, 0x01, 0x00, 0x00, 0x00}
}

// ReadReg reads one register.
func (c *Comm) ReadReg(reg byte) (byte, error) {
	if err := c.state.check("comm"); err != nil {
		return 0, err
	}
	if _, err := c.b.checkedSend("bcommread", cmdComm, commRead, regArgs(reg), false); err != nil {
		return 0, err
	}
	v, err := c.b.t.BulkRead(EndpointDataIn, 1)
	if err != nil {
		return 0, err
	}
	if err := c.status(0, 1); err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, &TransferLengthError{Command: "bcommread", Direction: "read", Want: 1, Got: uint32(len(v))}
	}
	return v[0], nil
}

// WriteReg writes one register.
func (c *Comm) WriteReg(reg, value byte) error {
	if err := c.state.check("comm"); err != nil {
		return err
	}
	if _, err := c.b.checkedSend("bcommwrite", cmdComm, commWrite, regArgs(reg), false); err != nil {
		return err
	}
	if err := c.b.t.BulkWrite(EndpointDataOut, []byte{value}); err != nil {
		return err
	}
	return c.status(1, 0)
}

func (c *Comm) status(wrote, read int) error {
	status, pl, err := c.b.send(cmdComm, commStatus, []byte{0x00}, defaultResponseSize)
	if err != nil {
		return err
	}
	return checkCounts("bcommstatus", status, pl, wrote, read)
}
