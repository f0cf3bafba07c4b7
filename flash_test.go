package iceburn_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gentam/iceburn"
	"github.com/gentam/iceburn/internal/simboard"
)

// withFlash runs fn against the simulated flash behind an open SPI port.
func withFlash(t *testing.T, sim *simboard.Board, b *iceburn.Board, fn func(*iceburn.Flash), opts ...iceburn.Option) {
	t.Helper()
	err := b.WithSPIPort(0, func(p *iceburn.SPIPort) error {
		fn(iceburn.NewFlash(p, opts...))
		return nil
	})
	if err != nil {
		t.Fatalf("WithSPIPort failed: %v", err)
	}
	if sim.ChipSelected() {
		t.Error("chip select left asserted")
	}
}

func TestFlashID(t *testing.T) {
	sim, b := newSimBoard(t)
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if err := f.PowerUp(); err != nil {
			t.Fatalf("PowerUp failed: %v", err)
		}
		name, err := f.CheckID()
		if err != nil {
			t.Fatalf("CheckID failed: %v", err)
		}
		if name != "ST M25P10-A 1Mb" {
			t.Errorf("name = %q", name)
		}
		if f.Size() != 128<<10 {
			t.Errorf("Size() = %d", f.Size())
		}
	})
	if sim.Flash.Wakeups != 1 {
		t.Errorf("wakeups = %d, want 1", sim.Flash.Wakeups)
	}

	sim, b = newSimBoard(t)
	sim.Flash.ID = [3]byte{0xEF, 0x40, 0x14}
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if _, err := f.CheckID(); !errors.Is(err, iceburn.ErrUnexpectedFlashID) {
			t.Errorf("err = %v, want ErrUnexpectedFlashID", err)
		}
		id, name, err := f.ReadID()
		if err != nil || id != sim.Flash.ID || name != "" {
			t.Errorf("ReadID = % X, %q, %v", id, name, err)
		}
	})
}

func TestFlashEraseChip(t *testing.T) {
	sim, b := newSimBoard(t)
	for i := range sim.Flash.Mem {
		sim.Flash.Mem[i] = byte(i)
	}
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if err := f.EraseChip(); err != nil {
			t.Fatalf("EraseChip failed: %v", err)
		}
		sr, err := f.ReadStatusRegister()
		if err != nil {
			t.Fatal(err)
		}
		if sr.Busy() || sr.WriteEnabled() {
			t.Errorf("status after erase: %s", sr)
		}

		got, err := f.Read(0, f.Size())
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(got) != f.Size() {
			t.Fatalf("read %d bytes, want %d", len(got), f.Size())
		}
		for i, v := range got {
			if v != 0xFF {
				t.Fatalf("byte %06x = %02x after erase", i, v)
			}
		}
	})
	if sim.Flash.ChipErases != 1 {
		t.Errorf("chip erases = %d, want 1", sim.Flash.ChipErases)
	}
}

func TestFlashProgramRead(t *testing.T) {
	sim, b := newSimBoard(t)
	data := make([]byte, iceburn.PageSize)
	for i := range data {
		data[i] = byte(i * 7)
	}
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if err := f.PageProgram(0x100, data); err != nil {
			t.Fatalf("PageProgram failed: %v", err)
		}
		got, err := f.Read(0x100, len(data))
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("read back differs: % X", got[:16])
		}

		got, err = f.Read(0, 4)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
			t.Errorf("unwritten page = % X", got)
		}
	})
	want := []simboard.PageProgram{{Addr: 0x100, Len: iceburn.PageSize}}
	if len(sim.Flash.PagePrograms) != 1 || sim.Flash.PagePrograms[0] != want[0] {
		t.Errorf("page programs = %v, want %v", sim.Flash.PagePrograms, want)
	}
}

func TestFlashPageProgramInvalid(t *testing.T) {
	tests := []struct {
		name string
		addr int
		n    int
	}{
		{"misaligned", 0x10, 16},
		{"oversized", 0, iceburn.PageSize + 1},
		{"out of range", 1 << 24, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, b := newSimBoard(t)
			withFlash(t, sim, b, func(f *iceburn.Flash) {
				before := len(sim.Frames)
				if err := f.PageProgram(tt.addr, make([]byte, tt.n)); !errors.Is(err, iceburn.ErrInvalidPageWrite) {
					t.Errorf("err = %v, want ErrInvalidPageWrite", err)
				}
				if len(sim.Frames) != before {
					t.Errorf("%d frames sent for a rejected write", len(sim.Frames)-before)
				}
			})
		})
	}
}

func TestFlashBusyWait(t *testing.T) {
	sim, b := newSimBoard(t)
	sim.Flash.BusyPolls = 3
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if err := f.EraseChip(); err != nil {
			t.Fatalf("EraseChip failed: %v", err)
		}
	})
	if sim.Flash.StatusReads != 4 {
		t.Errorf("status reads = %d, want 4", sim.Flash.StatusReads)
	}

	sim, b = newSimBoard(t)
	sim.Flash.BusyPolls = 3
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		if err := f.EraseChip(); !errors.Is(err, iceburn.ErrBusyTimeout) {
			t.Errorf("err = %v, want ErrBusyTimeout", err)
		}
	}, iceburn.WithPollLimit(2))
	if sim.Flash.StatusReads != 2 {
		t.Errorf("status reads = %d, want 2", sim.Flash.StatusReads)
	}
}

func TestStatusRegisterString(t *testing.T) {
	tests := []struct {
		sr   iceburn.StatusRegister
		want string
	}{
		{0x00, "00000000"},
		{0x03, "00000011 WEL,BUSY"},
		{0x9C, "10011100 SRWD,BP2,BP1,BP0"},
	}
	for _, tt := range tests {
		if got := tt.sr.String(); got != tt.want {
			t.Errorf("StatusRegister(%#02x).String() = %q, want %q", byte(tt.sr), got, tt.want)
		}
	}
}
