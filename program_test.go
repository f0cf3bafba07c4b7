package iceburn_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gentam/iceburn"
	"github.com/gentam/iceburn/internal/simboard"
)

func TestProgram(t *testing.T) {
	sim, b := newSimBoard(t)
	for i := range sim.Flash.Mem {
		sim.Flash.Mem[i] = 0x5A
	}
	image := make([]byte, 300)

	var stages []iceburn.Progress
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		r, err := iceburn.Program(f, image, iceburn.WithErase(), iceburn.WithProgress(func(p iceburn.Progress) {
			stages = append(stages, p)
		}))
		if err != nil {
			t.Fatalf("Program failed: %v", err)
		}
		if !r.OK() || !r.Erased || r.Pages != 2 || r.Verified != 300 {
			t.Errorf("report = %+v", r)
		}
	})

	want := []simboard.PageProgram{{Addr: 0, Len: 256}, {Addr: 256, Len: 44}}
	if !reflect.DeepEqual(sim.Flash.PagePrograms, want) {
		t.Errorf("page programs = %v, want %v", sim.Flash.PagePrograms, want)
	}
	if sim.Flash.ChipErases != 1 {
		t.Errorf("chip erases = %d, want 1", sim.Flash.ChipErases)
	}
	wantReads := []simboard.FastRead{{Addr: 0, Len: 300}}
	if !reflect.DeepEqual(sim.Flash.FastReads, wantReads) {
		t.Errorf("fast reads = %v, want %v", sim.Flash.FastReads, wantReads)
	}
	if sim.Flash.Mem[300] != 0xFF {
		t.Errorf("byte after image = %02x, want erased", sim.Flash.Mem[300])
	}

	if len(stages) == 0 {
		t.Fatal("no progress reported")
	}
	last := stages[len(stages)-1]
	if last.Stage != iceburn.StageVerify || last.Done != last.Total {
		t.Errorf("last progress = %+v", last)
	}
	if stages[0].Stage != iceburn.StageErase {
		t.Errorf("first stage = %s, want erase", stages[0].Stage)
	}
}

func TestProgramWithoutErase(t *testing.T) {
	sim, b := newSimBoard(t)
	image := []byte{0x12, 0x34, 0x56}
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		r, err := iceburn.Program(f, image)
		if err != nil {
			t.Fatalf("Program failed: %v", err)
		}
		if r.Erased || r.Pages != 1 || !r.OK() {
			t.Errorf("report = %+v", r)
		}
	})
	if sim.Flash.ChipErases != 0 {
		t.Errorf("chip erases = %d, want 0", sim.Flash.ChipErases)
	}
}

func TestProgramVerifyMismatches(t *testing.T) {
	sim, b := newSimBoard(t)
	sim.Flash.Stuck = map[int]byte{}
	for _, off := range []int{10, 20, 30, 40, 50, 60} {
		sim.Flash.Stuck[off] = 0xFF
	}
	image := make([]byte, 100)

	withFlash(t, sim, b, func(f *iceburn.Flash) {
		r, err := iceburn.Program(f, image, iceburn.WithErase())
		if err != nil {
			t.Fatalf("Program failed: %v", err)
		}
		if r.OK() || r.Mismatches != 6 {
			t.Errorf("mismatches = %d, want 6", r.Mismatches)
		}
		if len(r.Details) != iceburn.MaxReportedMismatches {
			t.Fatalf("details = %d, want %d", len(r.Details), iceburn.MaxReportedMismatches)
		}
		for i, m := range r.Details {
			want := iceburn.Mismatch{Offset: 10 * (i + 1), Got: 0xFF, Want: 0x00}
			if m != want {
				t.Errorf("details[%d] = %+v, want %+v", i, m, want)
			}
		}
	})
}

func TestProgramImageTooLarge(t *testing.T) {
	sim, b := newSimBoard(t)
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		before := len(sim.Frames)
		_, err := iceburn.Program(f, make([]byte, 128<<10+1), iceburn.WithErase())
		if !errors.Is(err, iceburn.ErrImageTooLarge) {
			t.Errorf("err = %v, want ErrImageTooLarge", err)
		}
		if len(sim.Frames) != before {
			t.Error("flash touched for an oversized image")
		}
	})
}

func TestProgramEraseOnly(t *testing.T) {
	sim, b := newSimBoard(t)
	withFlash(t, sim, b, func(f *iceburn.Flash) {
		r, err := iceburn.Program(f, nil, iceburn.WithErase())
		if err != nil {
			t.Fatalf("Program failed: %v", err)
		}
		if !r.Erased || r.Pages != 0 || r.Verified != 0 {
			t.Errorf("report = %+v", r)
		}
	})
	if sim.Flash.ChipErases != 1 || len(sim.Flash.PagePrograms) != 0 {
		t.Errorf("erases = %d, page programs = %d", sim.Flash.ChipErases, len(sim.Flash.PagePrograms))
	}
}
