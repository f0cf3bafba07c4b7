package iceburn

// GPIO is the board's GPIO block. Its only use here is the iCE40 CRESET_B
// line: holding it low keeps the FPGA off the SPI bus so the host can drive
// the flash.
type GPIO struct {
	b     *Board
	state openState
}

type gpioDirection byte

const (
	gpioInput  gpioDirection = 0
	gpioOutput gpioDirection = 1
)

func (g *GPIO) Open() error {
	return g.state.open("gpio", func() error {
		_, err := g.b.checkedSend("gpioopen", cmdGPIO, gpioOpen, []byte{0x00}, true)
		return err
	})
}

func (g *GPIO) isOpen() bool { return bool(g.state) }

func (g *GPIO) Close() error {
	return g.state.close("gpio", func() error {
		// The close command takes no arguments.
		_, err := g.b.checkedSend("gpioclose", cmdGPIO, gpioClose, nil, false)
		return err
	})
}

// SetReset asserts (true) or releases (false) the FPGA reset. Asserting
// drives the line low; releasing tri-states it so the FPGA pull-up takes
// over and configuration restarts from flash.
func (g *GPIO) SetReset(assert bool) error {
	if err := g.state.check("gpio"); err != nil {
		return err
	}
	if !assert {
		return g.setDirection(gpioInput)
	}
	if err := g.setDirection(gpioOutput); err != nil {
		return err
	}
	return g.setValue(0)
}

func (g *GPIO) setDirection(d gpioDirection) error {
	_, err := g.b.checkedSend("gpiosetdir", cmdGPIO, gpioSetDir, []byte{0x00, byte(d), 0x00, 0x00, 0x00}, false)
	return err
}

func (g *GPIO) setValue(v byte) error {
	_, err := g.b.checkedSend("gpiosetvalue", cmdGPIO, gpioSetValue, []byte{0x00, v, 0x00, 0x00, 0x00}, true)
	return err
}
