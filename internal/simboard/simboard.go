// Package simboard is an in-memory iCEblink40 for tests. It speaks the
// board's command protocol on the bulk endpoints and routes SPI traffic to
// a modelled M25P10-A.
package simboard

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gentam/iceburn"
	"periph.io/x/conn/v3/physic"
)

// Board implements iceburn.Transport.
type Board struct {
	Type   string
	Serial string
	Flash  *Flash
	Regs   [256]byte

	// MaxSpeed is the fastest SPI clock the board grants.
	MaxSpeed physic.Frequency

	// Fail makes the command with the given group and subcommand answer
	// with a status code instead of executing.
	Fail map[[2]byte]byte
	// WriteCountSkew and ReadCountSkew are added to the byte counts in SPI
	// end-of-transaction status.
	WriteCountSkew int
	ReadCountSkew  int

	// Frames logs every command frame received.
	Frames [][]byte
	// DataReads logs the size of every data-in request.
	DataReads []int
	Closed    bool

	gpioOpen  bool
	gpioDir   byte
	gpioValue byte
	spiOpen   bool
	csActive  bool
	speed     physic.Frequency
	commOpen  bool

	pending []byte // response waiting on the command-in endpoint
	spi     spiIO
	comm    commIO
}

type spiIO struct {
	active    bool
	read      bool
	written   uint32
	delivered uint32
	miso      []byte
}

type commIO struct {
	write, read     bool
	reg             byte
	nwritten, nread uint32
}

// New returns a board with an erased flash.
func New() *Board {
	return &Board{
		Type:     iceburn.ExpectedBoardType,
		Serial:   "SIM00001",
		Flash:    NewFlash(),
		MaxSpeed: 12 * physic.MegaHertz,
	}
}

// ResetAsserted reports whether the FPGA reset line is driven low.
func (b *Board) ResetAsserted() bool {
	return b.gpioDir == 1 && b.gpioValue == 0
}

// ChipSelected reports whether SPI chip-select is asserted.
func (b *Board) ChipSelected() bool { return b.csActive }

// Speed returns the granted SPI clock.
func (b *Board) Speed() physic.Frequency { return b.speed }

// OpenResources reports which sub-resources are open.
func (b *Board) OpenResources() (gpio, spi, comm bool) {
	return b.gpioOpen, b.spiOpen, b.commOpen
}

func controlString(s string, size int) []byte {
	buf := make([]byte, size)
	copy(buf, s)
	return buf
}

func (b *Board) ControlIn(selector uint8, size int) ([]byte, error) {
	switch selector {
	case 0xE2:
		return controlString(b.Type, size), nil
	case 0xE4:
		return controlString(b.Serial, size), nil
	}
	return nil, fmt.Errorf("simboard: unknown control selector 0x%02X", selector)
}

func (b *Board) BulkWrite(ep iceburn.Endpoint, p []byte) error {
	switch ep {
	case iceburn.EndpointCmdOut:
		return b.command(p)
	case iceburn.EndpointDataOut:
		return b.dataOut(p)
	}
	return fmt.Errorf("simboard: write to endpoint 0x%02X", uint8(ep))
}

func (b *Board) BulkRead(ep iceburn.Endpoint, size int) ([]byte, error) {
	switch ep {
	case iceburn.EndpointCmdIn:
		if b.pending == nil {
			return nil, errors.New("simboard: no response pending")
		}
		res := b.pending
		b.pending = nil
		if len(res) > size {
			res = res[:size]
		}
		return res, nil
	case iceburn.EndpointDataIn:
		b.DataReads = append(b.DataReads, size)
		return b.dataIn(size)
	}
	return nil, fmt.Errorf("simboard: read from endpoint 0x%02X", uint8(ep))
}

func (b *Board) Close() error {
	b.Closed = true
	return nil
}

func (b *Board) respond(status byte, payload ...byte) {
	b.pending = append([]byte{byte(1 + len(payload)), status}, payload...)
}

func (b *Board) command(p []byte) error {
	if len(p) < 3 || int(p[0]) != len(p)-1 {
		return fmt.Errorf("simboard: malformed frame % X", p)
	}
	b.Frames = append(b.Frames, append([]byte(nil), p...))
	cmd, sub, args := p[1], p[2], p[3:]
	if status, ok := b.Fail[[2]byte{cmd, sub}]; ok {
		b.respond(status)
		return nil
	}

	switch cmd {
	case 0x03:
		b.gpioCommand(sub, args)
	case 0x04:
		b.commCommand(sub, args)
	case 0x06:
		b.spiCommand(sub, args)
	default:
		b.respond(iceburn.StatusInvalidEnum)
	}
	return nil
}

func (b *Board) gpioCommand(sub byte, args []byte) {
	if sub != 0x00 && !b.gpioOpen {
		b.respond(iceburn.StatusNotOpened)
		return
	}
	switch sub {
	case 0x00:
		if b.gpioOpen {
			b.respond(iceburn.StatusResourceInUse)
			return
		}
		b.gpioOpen = true
	case 0x01:
		b.gpioOpen = false
	case 0x04:
		b.gpioDir = arg(args, 1)
	case 0x06:
		b.gpioValue = arg(args, 1)
	default:
		b.respond(iceburn.StatusInvalidEnum)
		return
	}
	b.respond(iceburn.StatusOK)
}

func (b *Board) spiCommand(sub byte, args []byte) {
	if sub != 0x00 && !b.spiOpen {
		b.respond(iceburn.StatusNotOpened)
		return
	}
	switch sub {
	case 0x00:
		if arg(args, 0) != 0 {
			b.respond(iceburn.StatusInvalidEnum)
			return
		}
		if b.spiOpen {
			b.respond(iceburn.StatusResourceInUse)
			return
		}
		b.spiOpen = true
	case 0x01:
		b.spiOpen = false
	case 0x03:
		if len(args) < 5 {
			b.respond(iceburn.StatusInvalidEnum)
			return
		}
		b.speed = min(physic.Frequency(binary.LittleEndian.Uint32(args[1:]))*physic.Hertz, b.MaxSpeed)
		b.respond(iceburn.StatusOK, binary.LittleEndian.AppendUint32(nil, uint32(b.speed/physic.Hertz))...)
		return
	case 0x05:
	case 0x06:
		if arg(args, 1) == 0 {
			b.csActive = true
			b.Flash.selectChip()
		} else {
			b.csActive = false
			b.Flash.deselect()
		}
	case 0x07:
		if len(args) < 8 {
			b.respond(iceburn.StatusInvalidEnum)
			return
		}
		b.spi = spiIO{
			active: true,
			read:   args[3] != 0,
		}
	case 0x87:
		status := byte(0x80)
		payload := binary.LittleEndian.AppendUint32(nil, uint32(int(b.spi.written)+b.WriteCountSkew))
		if b.spi.read {
			status |= 0x40
			payload = binary.LittleEndian.AppendUint32(payload, uint32(int(b.spi.delivered)+b.ReadCountSkew))
		}
		b.spi = spiIO{}
		b.respond(status, payload...)
		return
	default:
		b.respond(iceburn.StatusInvalidEnum)
		return
	}
	b.respond(iceburn.StatusOK)
}

func (b *Board) commCommand(sub byte, args []byte) {
	if sub != 0x00 && !b.commOpen {
		b.respond(iceburn.StatusNotOpened)
		return
	}
	switch sub {
	case 0x00:
		if b.commOpen {
			b.respond(iceburn.StatusResourceInUse)
			return
		}
		b.commOpen = true
	case 0x01:
		b.commOpen = false
	case 0x04:
		b.comm = commIO{write: true, reg: arg(args, 1)}
	case 0x05:
		b.comm = commIO{read: true, reg: arg(args, 1)}
	case 0x85:
		payload := binary.LittleEndian.AppendUint32(nil, b.comm.nwritten)
		payload = binary.LittleEndian.AppendUint32(payload, b.comm.nread)
		b.comm = commIO{}
		b.respond(0xC0, payload...)
		return
	default:
		b.respond(iceburn.StatusInvalidEnum)
		return
	}
	b.respond(iceburn.StatusOK)
}

func (b *Board) dataOut(p []byte) error {
	if b.comm.write {
		b.Regs[b.comm.reg] = p[0]
		b.comm.nwritten += uint32(len(p))
		return nil
	}
	if !b.spi.active {
		return errors.New("simboard: data written outside a transaction")
	}
	for _, c := range p {
		b.spi.written++
		miso := b.Flash.transfer(c)
		if b.spi.read {
			b.spi.miso = append(b.spi.miso, miso)
		}
	}
	return nil
}

func (b *Board) dataIn(size int) ([]byte, error) {
	if b.comm.read {
		b.comm.nread++
		return []byte{b.Regs[b.comm.reg]}, nil
	}
	if !b.spi.active || !b.spi.read {
		return nil, errors.New("simboard: data read outside a read transaction")
	}
	n := min(size, len(b.spi.miso))
	out := b.spi.miso[:n]
	b.spi.miso = b.spi.miso[n:]
	b.spi.delivered += uint32(n)
	return out, nil
}

func arg(args []byte, i int) byte {
	if i < len(args) {
		return args[i]
	}
	return 0
}
