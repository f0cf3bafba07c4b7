package iceburn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// ExpectedBoardType is the board type string reported by an iCEblink40.
const ExpectedBoardType = "iCE40"

// Board is a session with an iCEblink40. It owns the transport; the GPIO,
// SPI port and register comm sub-resources share it and must not be used
// from more than one goroutine at a time.
type Board struct {
	t         Transport
	boardType string
}

// Open finds the board over USB and verifies its type.
func Open() (*Board, error) {
	t, err := OpenUSB()
	if err != nil {
		return nil, err
	}
	b, err := NewBoard(t)
	if err != nil {
		t.Close()
		return nil, err
	}
	return b, nil
}

// NewBoard starts a session over t. It fails with ErrUnexpectedBoardType
// unless the board identifies itself as an iCE40 board.
func NewBoard(t Transport) (*Board, error) {
	b := &Board{t: t}

	raw, err := t.ControlIn(selectorBoardType, controlStringSize)
	if err != nil {
		return nil, fmt.Errorf("reading board type: %w", err)
	}
	i := strings.IndexByte(string(raw), 0)
	if i < 0 {
		return nil, fmt.Errorf("%w: unterminated %q", ErrUnexpectedBoardType, raw)
	}
	b.boardType = string(raw[:i])
	if b.boardType != ExpectedBoardType {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedBoardType, b.boardType)
	}
	glog.V(1).Infof("board type %s", b.boardType)
	return b, nil
}

func (b *Board) BoardType() string { return b.boardType }

// Serial returns the board serial number.
func (b *Board) Serial() (string, error) {
	raw, err := b.t.ControlIn(selectorBoardSerial, controlStringSize)
	if err != nil {
		return "", fmt.Errorf("reading board serial: %w", err)
	}
	return trimControlString(raw), nil
}

func trimControlString(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00")
}

// Close releases the transport. Sub-resources must be closed first.
func (b *Board) Close() error {
	return b.t.Close()
}

// SPIPort returns the SPI port with the given index. Only port 0 exists.
func (b *Board) SPIPort(index int) (*SPIPort, error) {
	if index != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPort, index)
	}
	return &SPIPort{b: b, port: byte(index)}, nil
}

func (b *Board) GPIO() *GPIO { return &GPIO{b: b} }

func (b *Board) Comm() *Comm { return &Comm{b: b} }

// resource is a sub-resource with an open/closed lifecycle.
type resource interface {
	Open() error
	Close() error
	isOpen() bool
}

// withResource opens r, runs fn and closes r on every path unless fn
// already closed it. A close error is joined with the error from fn.
func withResource[R resource](r R, fn func(R) error) (err error) {
	if err := r.Open(); err != nil {
		return err
	}
	defer func() {
		if !r.isOpen() {
			return
		}
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(r)
}

// WithGPIO opens the GPIO block for the duration of fn.
func (b *Board) WithGPIO(fn func(*GPIO) error) error {
	return withResource(b.GPIO(), fn)
}

// WithSPIPort opens the SPI port for the duration of fn.
func (b *Board) WithSPIPort(index int, fn func(*SPIPort) error) error {
	p, err := b.SPIPort(index)
	if err != nil {
		return err
	}
	return withResource(p, fn)
}

// WithComm opens the register comm channel for the duration of fn.
func (b *Board) WithComm(fn func(*Comm) error) error {
	return withResource(b.Comm(), fn)
}

// openState tracks the open/closed state shared by all sub-resources.
type openState bool

func (s *openState) open(name string, fn func() error) error {
	if *s {
		return fmt.Errorf("%s: %w", name, ErrAlreadyOpen)
	}
	if err := fn(); err != nil {
		return err
	}
	*s = true
	glog.V(1).Infof("%s opened", name)
	return nil
}

func (s *openState) close(name string, fn func() error) error {
	if !*s {
		return fmt.Errorf("%s: %w", name, ErrNotOpen)
	}
	// Marked closed even if the command fails.
	*s = false
	if err := fn(); err != nil {
		return err
	}
	glog.V(1).Infof("%s closed", name)
	return nil
}

func (s openState) check(name string) error {
	if !s {
		return fmt.Errorf("%s: %w", name, ErrNotOpen)
	}
	return nil
}
