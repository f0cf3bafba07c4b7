package iceburn_test

import (
	"errors"
	"testing"

	"github.com/gentam/iceburn"
	"github.com/gentam/iceburn/mocks"
	"github.com/golang/mock/gomock"
	"periph.io/x/conn/v3/physic"
)

// script records an ordered exchange on a mock transport.
type script struct {
	m     *mocks.MockTransport
	calls []*gomock.Call
}

func (s *script) command(frame, res []byte) {
	s.calls = append(s.calls,
		s.m.EXPECT().BulkWrite(iceburn.EndpointCmdOut, frame).Return(nil),
		s.m.EXPECT().BulkRead(iceburn.EndpointCmdIn, 16).Return(res, nil),
	)
}

func (s *script) dataOut(p []byte) {
	s.calls = append(s.calls, s.m.EXPECT().BulkWrite(iceburn.EndpointDataOut, p).Return(nil))
}

func (s *script) dataIn(size int, p []byte) {
	s.calls = append(s.calls, s.m.EXPECT().BulkRead(iceburn.EndpointDataIn, size).Return(p, nil))
}

func (s *script) run() { gomock.InOrder(s.calls...) }

var okResp = []byte{0x01, 0x00}

func controlString(s string) []byte {
	buf := make([]byte, 16)
	copy(buf, s)
	return buf
}

func newMockBoard(t *testing.T) (*iceburn.Board, *script) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := mocks.NewMockTransport(ctrl)
	m.EXPECT().ControlIn(uint8(0xE2), 16).Return(controlString("iCE40"), nil)

	b, err := iceburn.NewBoard(m)
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	return b, &script{m: m}
}

func TestNewBoard(t *testing.T) {
	b, s := newMockBoard(t)
	if got := b.BoardType(); got != "iCE40" {
		t.Errorf("BoardType() = %q", got)
	}

	s.m.EXPECT().ControlIn(uint8(0xE4), 16).Return(controlString("1234ABCD"), nil)
	serial, err := b.Serial()
	if err != nil {
		t.Fatalf("Serial failed: %v", err)
	}
	if serial != "1234ABCD" {
		t.Errorf("Serial() = %q", serial)
	}

	s.m.EXPECT().Close().Return(nil)
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewBoardUnexpectedType(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"other board", controlString("iCE65")},
		{"prefix", controlString("iCE4")},
		{"unterminated", []byte("iCE40iCE40iCE40!")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockTransport(ctrl)
			m.EXPECT().ControlIn(uint8(0xE2), 16).Return(tt.raw, nil)

			if _, err := iceburn.NewBoard(m); !errors.Is(err, iceburn.ErrUnexpectedBoardType) {
				t.Errorf("err = %v, want ErrUnexpectedBoardType", err)
			}
		})
	}
}

func TestGPIOFrames(t *testing.T) {
	b, s := newMockBoard(t)
	s.command([]byte{0x03, 0x03, 0x00, 0x00}, okResp)
	s.command([]byte{0x07, 0x03, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00}, okResp)
	s.command([]byte{0x07, 0x03, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00}, okResp)
	s.command([]byte{0x07, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}, okResp)
	s.command([]byte{0x02, 0x03, 0x01}, okResp)
	s.run()

	err := b.WithGPIO(func(g *iceburn.GPIO) error {
		if err := g.SetReset(true); err != nil {
			return err
		}
		return g.SetReset(false)
	})
	if err != nil {
		t.Fatalf("WithGPIO failed: %v", err)
	}
}

func TestCommandErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		b, s := newMockBoard(t)
		s.command([]byte{0x03, 0x06, 0x00, 0x00}, []byte{0x01, 0x03})
		s.run()

		p, err := b.SPIPort(0)
		if err != nil {
			t.Fatal(err)
		}
		err = p.Open()
		var perr *iceburn.ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("err = %v, want ProtocolError", err)
		}
		if perr.Code != iceburn.StatusResourceInUse {
			t.Errorf("code = %d, want %d", perr.Code, iceburn.StatusResourceInUse)
		}
	})

	t.Run("unexpected payload", func(t *testing.T) {
		b, s := newMockBoard(t)
		s.command([]byte{0x03, 0x03, 0x00, 0x00}, []byte{0x02, 0x00, 0x55})
		s.run()

		if err := b.GPIO().Open(); !errors.Is(err, iceburn.ErrUnexpectedPayload) {
			t.Errorf("err = %v, want ErrUnexpectedPayload", err)
		}
	})

	t.Run("framing", func(t *testing.T) {
		b, s := newMockBoard(t)
		s.command([]byte{0x03, 0x04, 0x00, 0x00}, []byte{0x04, 0x00})
		s.run()

		if err := b.Comm().Open(); !errors.Is(err, iceburn.ErrFraming) {
			t.Errorf("err = %v, want ErrFraming", err)
		}
	})
}

func TestSPITransactFrames(t *testing.T) {
	b, s := newMockBoard(t)
	s.command([]byte{0x03, 0x06, 0x00, 0x00}, okResp)
	// JEDEC ID: one opcode byte padded to four, four bytes read.
	s.command([]byte{0x04, 0x06, 0x06, 0x00, 0x00}, okResp)
	s.command([]byte{0x0A, 0x06, 0x07, 0x00, 0x00, 0x00, 0x01, 0x04, 0x00, 0x00, 0x00}, okResp)
	s.dataOut([]byte{0x9F, 0x00, 0x00, 0x00})
	s.dataIn(4, []byte{0xFF, 0x20, 0x20, 0x11})
	s.command([]byte{0x03, 0x06, 0x87, 0x00}, []byte{0x09, 0xC0, 0x04, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00})
	s.command([]byte{0x04, 0x06, 0x06, 0x00, 0x01}, okResp)
	// Write enable: nothing read.
	s.command([]byte{0x04, 0x06, 0x06, 0x00, 0x00}, okResp)
	s.command([]byte{0x0A, 0x06, 0x07, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, okResp)
	s.dataOut([]byte{0x06})
	s.command([]byte{0x03, 0x06, 0x87, 0x00}, []byte{0x05, 0x80, 0x01, 0x00, 0x00, 0x00})
	s.command([]byte{0x04, 0x06, 0x06, 0x00, 0x01}, okResp)
	s.command([]byte{0x03, 0x06, 0x01, 0x00}, okResp)
	s.run()

	err := b.WithSPIPort(0, func(p *iceburn.SPIPort) error {
		f := iceburn.NewFlash(p)
		name, err := f.CheckID()
		if err != nil {
			return err
		}
		if name == "" {
			t.Errorf("CheckID returned no name")
		}
		return f.WriteEnable()
	})
	if err != nil {
		t.Fatalf("WithSPIPort failed: %v", err)
	}
}

func TestSPISetSpeedFrames(t *testing.T) {
	b, s := newMockBoard(t)
	s.command([]byte{0x03, 0x06, 0x00, 0x00}, okResp)
	// 50 MHz requested, 12 MHz granted.
	s.command([]byte{0x07, 0x06, 0x03, 0x00, 0x80, 0xF0, 0xFA, 0x02}, []byte{0x05, 0x00, 0x00, 0x1B, 0xB7, 0x00})
	s.command([]byte{0x04, 0x06, 0x05, 0x00, 0x00}, okResp)
	s.command([]byte{0x03, 0x06, 0x01, 0x00}, okResp)
	s.run()

	err := b.WithSPIPort(0, func(p *iceburn.SPIPort) error {
		got, err := p.SetSpeed(50 * physic.MegaHertz)
		if err != nil {
			return err
		}
		if got != 12*physic.MegaHertz {
			t.Errorf("granted %s, want 12MHz", got)
		}
		return p.SetMode()
	})
	if err != nil {
		t.Fatalf("WithSPIPort failed: %v", err)
	}
}
