package iceburn

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Fixed argument bytes whose meaning is unknown. They are sent exactly as
// the vendor software sends them.
var (
	spiModeArgs    = []byte{0x00, 0x00}
	spiStartIOArgs = []byte{0x00, 0x00, 0x00}
)

const (
	csAssert   = 0x00
	csDeassert = 0x01
)

// DefaultSPISpeed is the clock requested before talking to the flash. The
// board grants the nearest rate it supports.
const DefaultSPISpeed = 50 * physic.MegaHertz

// SPIPort is the board's SPI master. Every transaction frames its own
// chip-select.
//
// SPIPort implements spi.PortCloser and, once open, spi.Conn.
type SPIPort struct {
	b     *Board
	port  byte
	state openState
	speed physic.Frequency
}

var (
	_ spi.PortCloser = (*SPIPort)(nil)
	_ spi.Conn       = (*SPIPort)(nil)
)

func (p *SPIPort) String() string {
	return fmt.Sprintf("iCEblink40 SPI%d", p.port)
}

func (p *SPIPort) Open() error {
	return p.state.open(p.String(), func() error {
		_, err := p.b.checkedSend("spiopen", cmdSPI, spiOpen, []byte{p.port}, true)
		return err
	})
}

func (p *SPIPort) isOpen() bool { return bool(p.state) }

func (p *SPIPort) Close() error {
	return p.state.close(p.String(), func() error {
		_, err := p.b.checkedSend("spiclose", cmdSPI, spiClose, []byte{p.port}, true)
		return err
	})
}

// SetSpeed requests a clock rate and returns the rate the board granted.
func (p *SPIPort) SetSpeed(f physic.Frequency) (physic.Frequency, error) {
	if err := p.state.check(p.String()); err != nil {
		return 0, err
	}
	hz := f / physic.Hertz
	if hz <= 0 || hz > 0xFFFFFFFF {
		return 0, fmt.Errorf("spi speed %s out of range", f)
	}
	payload := make([]byte, 5)
	payload[0] = p.port
	binary.LittleEndian.PutUint32(payload[1:], uint32(hz))

	pl, err := p.b.checkedSend("spisetspeed", cmdSPI, spiSetSpeed, payload, false)
	if err != nil {
		return 0, err
	}
	if len(pl) < 4 {
		return 0, fmt.Errorf("command spisetspeed: %w: %d byte result", ErrFraming, len(pl))
	}
	p.speed = physic.Frequency(binary.LittleEndian.Uint32(pl)) * physic.Hertz
	glog.V(1).Infof("%s: requested %s, granted %s", p, f, p.speed)
	return p.speed, nil
}

// SetMode sends the fixed mode configuration.
func (p *SPIPort) SetMode() error {
	if err := p.state.check(p.String()); err != nil {
		return err
	}
	_, err := p.b.checkedSend("spisetmode", cmdSPI, spiSetMode, spiModeArgs, true)
	return err
}

// Transact clocks out w and returns the first readCount bytes clocked in.
// w is zero padded to readCount bytes.
func (p *SPIPort) Transact(w []byte, readCount int) (r []byte, err error) {
	if err := p.state.check(p.String()); err != nil {
		return nil, err
	}
	if readCount < 0 {
		return nil, fmt.Errorf("negative read count %d", readCount)
	}
	if len(w) < readCount {
		padded := make([]byte, readCount)
		copy(padded, w)
		w = padded
	}

	if err := p.chipSelect(csAssert); err != nil {
		return nil, err
	}
	defer func() {
		if csErr := p.chipSelect(csDeassert); csErr != nil {
			err = errors.Join(err, csErr)
		}
		if err != nil {
			r = nil
		}
	}()

	args := make([]byte, 0, 8)
	args = append(args, spiStartIOArgs...)
	if readCount > 0 {
		args = append(args, 0x01)
	} else {
		args = append(args, 0x00)
	}
	args = binary.LittleEndian.AppendUint32(args, uint32(len(w)))
	if _, err := p.b.checkedSend("spistartio", cmdSPI, spiStartIO, args, true); err != nil {
		return nil, err
	}

	r = make([]byte, 0, readCount)
	for off := 0; off < len(w) || len(r) < readCount; {
		if off < len(w) {
			n := min(usbMaxPacket, len(w)-off)
			if err := p.b.t.BulkWrite(EndpointDataOut, w[off:off+n]); err != nil {
				return nil, err
			}
			off += n
		}
		if len(r) < readCount {
			chunk, err := p.b.t.BulkRead(EndpointDataIn, min(usbMaxPacket, readCount-len(r)))
			if err != nil {
				return nil, err
			}
			if len(chunk) == 0 {
				return nil, fmt.Errorf("%w: empty SPI data read", ErrFraming)
			}
			r = append(r, chunk...)
		}
	}

	status, pl, err := p.b.send(cmdSPI, spiEndIOStatus, []byte{0x00}, defaultResponseSize)
	if err != nil {
		return nil, err
	}
	if err := checkCounts("spiendio", status, pl, len(w), readCount); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *SPIPort) chipSelect(v byte) error {
	_, err := p.b.checkedSend("spichipselect", cmdSPI, spiChipSelect, []byte{0x00, v}, false)
	return err
}

// Tx implements conn.Conn. It writes w and reads len(r) bytes into r.
func (p *SPIPort) Tx(w, r []byte) error {
	out, err := p.Transact(w, len(r))
	if err != nil {
		return err
	}
	copy(r, out)
	return nil
}

// Duplex implements conn.Conn.
func (p *SPIPort) Duplex() conn.Duplex {
	return conn.Full
}

// TxPackets implements spi.Conn. Chip-select is released after every
// packet, so KeepCS is not supported.
func (p *SPIPort) TxPackets(pkts []spi.Packet) error {
	for i := range pkts {
		pkt := &pkts[i]
		if pkt.KeepCS {
			return errors.New("iceburn: KeepCS is not supported")
		}
		if pkt.BitsPerWord != 0 && pkt.BitsPerWord != 8 {
			return fmt.Errorf("iceburn: %d bits per word not supported", pkt.BitsPerWord)
		}
		if err := p.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// Connect implements spi.Port. The port must already be open. Only 8 bit
// words are supported; the board's fixed mode setting serves SPI modes 0
// and 3, which is what SPI NOR parts accept.
func (p *SPIPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("iceburn: %d bits per word not supported", bits)
	}
	if mode != spi.Mode0 && mode != spi.Mode3 {
		return nil, fmt.Errorf("iceburn: SPI mode %v not supported", mode)
	}
	if f != 0 {
		if _, err := p.SetSpeed(f); err != nil {
			return nil, err
		}
	}
	if err := p.SetMode(); err != nil {
		return nil, err
	}
	return p, nil
}

// LimitSpeed implements spi.Port.
func (p *SPIPort) LimitSpeed(f physic.Frequency) error {
	_, err := p.SetSpeed(f)
	return err
}
