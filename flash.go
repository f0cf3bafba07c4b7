package iceburn

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/spi"
)

// PageSize is the largest region a single page program may write.
const PageSize = 256

// Flash drives an SPI NOR flash over any spi.Conn. The conn is expected to
// frame each Tx with chip-select, as SPIPort does.
type Flash struct {
	conn spi.Conn
	cfg  config
	id   [3]byte // JEDEC ID of the flash chip
	pr   *flashParams
}

func NewFlash(conn spi.Conn, opts ...Option) *Flash {
	f := &Flash{conn: conn, cfg: defaultConfig()}
	for _, opt := range opts {
		opt(&f.cfg)
	}
	return f
}

// Flash commands:
//   - [M25P10-A|Table 4: Instruction set]
const (
	flashCmdPowerUp            = 0xAB // Release from Deep Power-down
	flashCmdReadID             = 0x9F
	flashCmdFastRead           = 0x0B
	flashCmdWriteEnable        = 0x06
	flashCmdPageProgram        = 0x02
	flashCmdEraseChip          = 0xC7 // Bulk Erase
	flashCmdReadStatusRegister = 0x05
)

// fastReadHeader is the opcode, 24-bit address and dummy byte preceding
// fast read data.
const fastReadHeader = 5

// tx runs one chip-select framed transaction and returns the first
// readCount bytes clocked in.
func (f *Flash) tx(w []byte, readCount int) ([]byte, error) {
	if len(w) < readCount {
		padded := make([]byte, readCount)
		copy(padded, w)
		w = padded
	}
	var r []byte
	if readCount > 0 {
		r = make([]byte, readCount)
	}
	if err := f.conn.Tx(w, r); err != nil {
		return nil, err
	}
	return r, nil
}

func addr24(op byte, addr int) ([]byte, error) {
	const max24 = 1<<24 - 1 // 0xFFFFFF
	if addr < 0 || addr > max24 {
		return nil, fmt.Errorf("address 0x%X out of 24-bit range", addr)
	}
	return []byte{op, byte(addr >> 16), byte(addr >> 8), byte(addr)}, nil
}

// PowerUp wakes the part from deep power-down.
func (f *Flash) PowerUp() error {
	if _, err := f.tx([]byte{flashCmdPowerUp}, 0); err != nil {
		return err
	}
	time.Sleep(f.tRES1())
	return nil
}

// ReadID returns the JEDEC ID of the flash chip and configures its parameters.
// It returns a non-empty name for known IDs.
func (f *Flash) ReadID() (id [3]byte, name string, err error) {
	buf, err := f.tx([]byte{flashCmdReadID}, 4)
	if err != nil {
		return
	}

	f.id = [3]byte(buf[1:])
	if params, ok := knownFlash[f.id]; ok {
		f.pr = &params
		name = params.name
	}
	return f.id, name, nil
}

// CheckID reads the JEDEC ID and refuses anything but the M25P10-A.
func (f *Flash) CheckID() (string, error) {
	id, name, err := f.ReadID()
	if err != nil {
		return "", err
	}
	if id != ExpectedFlashID {
		return "", fmt.Errorf("%w: %X, want %X", ErrUnexpectedFlashID, id, ExpectedFlashID)
	}
	return name, nil
}

// Read returns n bytes starting at addr using a single fast read.
func (f *Flash) Read(addr, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	cmd, err := addr24(flashCmdFastRead, addr)
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, 0x00) // dummy byte

	buf, err := f.tx(cmd, n+fastReadHeader)
	if err != nil {
		return nil, err
	}
	return buf[fastReadHeader:], nil
}

// WriteEnable sets the write enable latch. Page program and erase clear it
// again when they complete.
func (f *Flash) WriteEnable() error {
	_, err := f.tx([]byte{flashCmdWriteEnable}, 0)
	return err
}

// PageProgram writes up to one page at a page aligned addr. Bad arguments
// are rejected with ErrInvalidPageWrite before anything is sent.
func (f *Flash) PageProgram(addr int, data []byte) error {
	if addr%PageSize != 0 {
		return fmt.Errorf("%w: address 0x%06X not page aligned", ErrInvalidPageWrite, addr)
	}
	if len(data) > PageSize {
		return fmt.Errorf("%w: %d bytes exceeds page size", ErrInvalidPageWrite, len(data))
	}
	cmd, err := addr24(flashCmdPageProgram, addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPageWrite, err)
	}

	if err := f.WriteEnable(); err != nil {
		return err
	}
	glog.V(2).Infof("page program 0x%06X, %d bytes", addr, len(data))
	if _, err := f.tx(append(cmd, data...), 0); err != nil {
		return err
	}
	return f.BusyWait()
}

// EraseChip bulk erases the entire chip.
func (f *Flash) EraseChip() error {
	if err := f.WriteEnable(); err != nil {
		return err
	}
	if _, err := f.tx([]byte{flashCmdEraseChip}, 0); err != nil {
		return err
	}
	return f.BusyWait()
}

// BusyWait polls the status register until the write in progress bit
// clears. By default it polls back to back with no limit, so a part that
// never finishes blocks forever; WithPollInterval and WithPollLimit bound it.
func (f *Flash) BusyWait() error {
	for polls := 1; ; polls++ {
		sr, err := f.ReadStatusRegister()
		if err != nil {
			return err
		}
		if !sr.Busy() {
			return nil
		}
		if f.cfg.pollLimit > 0 && polls >= f.cfg.pollLimit {
			return fmt.Errorf("%w (%d polls, status %s)", ErrBusyTimeout, polls, sr)
		}
		if f.cfg.pollInterval > 0 {
			time.Sleep(f.cfg.pollInterval)
		}
	}
}

// StatusRegister represents the status register of the flash chip.
//
//	Bits| [M25P10-A|Table 5: Status Register format]
//	----+--------------------------------------------
//	7   | SRWD: Status Register Write Disable
//	6:5 | 0
//	4:2 | BP2-0: Block Protect bit 2-0 (BP2 unused on M25P10-A)
//	1   | WEL: Write Enable Latch
//	0   | WIP: Write In Progress
type StatusRegister byte

func (sr StatusRegister) WriteDisable() bool  { return sr&(1<<7) != 0 }
func (sr StatusRegister) BlockProtect2() bool { return sr&(1<<4) != 0 }
func (sr StatusRegister) BlockProtect1() bool { return sr&(1<<3) != 0 }
func (sr StatusRegister) BlockProtect0() bool { return sr&(1<<2) != 0 }
func (sr StatusRegister) WriteEnabled() bool  { return sr&(1<<1) != 0 }
func (sr StatusRegister) Busy() bool          { return sr&(1<<0) != 0 }

func (sr StatusRegister) String() string {
	b := fmt.Sprintf("%08b", byte(sr))
	s := []string{}
	if sr.WriteDisable() {
		s = append(s, "SRWD")
	}
	if sr.BlockProtect2() {
		s = append(s, "BP2")
	}
	if sr.BlockProtect1() {
		s = append(s, "BP1")
	}
	if sr.BlockProtect0() {
		s = append(s, "BP0")
	}
	if sr.WriteEnabled() {
		s = append(s, "WEL")
	}
	if sr.Busy() {
		s = append(s, "BUSY")
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

func (f *Flash) ReadStatusRegister() (StatusRegister, error) {
	buf, err := f.tx([]byte{flashCmdReadStatusRegister}, 2)
	if err != nil {
		return 0, err
	}
	return StatusRegister(buf[1]), nil
}
