package iceburn

import (
	"fmt"

	"github.com/golang/glog"
)

// MaxReportedMismatches caps the mismatches listed in a Report. Counting
// continues past the cap.
const MaxReportedMismatches = 5

// Mismatch is one byte of flash that differs from the image.
type Mismatch struct {
	Offset    int
	Got, Want byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("verification failure at %06x: %02x != %02x", m.Offset, m.Got, m.Want)
}

// Report summarizes a Program run.
type Report struct {
	Erased     bool
	Pages      int // page program operations issued
	Verified   int // bytes read back and compared
	Mismatches int
	Details    []Mismatch // at most MaxReportedMismatches
}

// OK reports whether the read back matched the image.
func (r *Report) OK() bool { return r.Mismatches == 0 }

type Stage int

const (
	StageErase Stage = iota
	StageWrite
	StageVerify
)

func (s Stage) String() string {
	switch s {
	case StageErase:
		return "erase"
	case StageWrite:
		return "write"
	case StageVerify:
		return "verify"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Progress is passed to the WithProgress callback.
type Progress struct {
	Stage       Stage
	Done, Total int // bytes
}

type programConfig struct {
	erase    bool
	progress func(Progress)
}

// ProgramOption configures Program.
type ProgramOption func(*programConfig)

// WithErase bulk erases the chip before writing.
func WithErase() ProgramOption {
	return func(c *programConfig) {
		c.erase = true
	}
}

// WithProgress sets a callback invoked at the start and end of each stage
// and after every page.
func WithProgress(fn func(Progress)) ProgramOption {
	return func(c *programConfig) {
		c.progress = fn
	}
}

// Program optionally erases the chip, writes image from address 0 one page
// at a time in ascending order and reads it back for comparison.
//
// Mismatches found while verifying are counted in the Report and do not
// make Program return an error; the caller decides what a failed
// verification means.
func Program(f *Flash, image []byte, opts ...ProgramOption) (*Report, error) {
	var c programConfig
	for _, opt := range opts {
		opt(&c)
	}
	report := func(s Stage, done, total int) {
		if c.progress != nil {
			c.progress(Progress{Stage: s, Done: done, Total: total})
		}
	}

	if size := f.Size(); len(image) > size {
		return nil, fmt.Errorf("%w: %d bytes, flash holds %d", ErrImageTooLarge, len(image), size)
	}

	r := &Report{}
	if c.erase {
		glog.V(1).Info("erasing flash")
		report(StageErase, 0, 1)
		if err := f.EraseChip(); err != nil {
			return nil, fmt.Errorf("erase flash failed: %w", err)
		}
		report(StageErase, 1, 1)
		r.Erased = true
	}

	if len(image) == 0 {
		return r, nil
	}

	glog.V(1).Infof("writing %d bytes", len(image))
	report(StageWrite, 0, len(image))
	for addr := 0; addr < len(image); addr += PageSize {
		page := image[addr:min(addr+PageSize, len(image))]
		if err := f.PageProgram(addr, page); err != nil {
			return nil, fmt.Errorf("page program at 0x%06X failed: %w", addr, err)
		}
		r.Pages++
		report(StageWrite, addr+len(page), len(image))
	}

	glog.V(1).Info("verifying written image")
	report(StageVerify, 0, len(image))
	got, err := f.Read(0, len(image))
	if err != nil {
		return nil, fmt.Errorf("read back failed: %w", err)
	}
	r.Verified = len(got)
	r.Mismatches, r.Details = compareImage(got, image)
	for _, m := range r.Details {
		glog.Warning(m)
	}
	if r.Mismatches > len(r.Details) {
		glog.Warningf("%d further verification failures not listed", r.Mismatches-len(r.Details))
	}
	report(StageVerify, len(image), len(image))
	return r, nil
}

// compareImage counts the bytes where got differs from want and returns
// the first MaxReportedMismatches of them.
func compareImage(got, want []byte) (int, []Mismatch) {
	var (
		n       int
		details []Mismatch
	)
	for i := range min(len(got), len(want)) {
		if got[i] == want[i] {
			continue
		}
		n++
		if len(details) < MaxReportedMismatches {
			details = append(details, Mismatch{Offset: i, Got: got[i], Want: want[i]})
		}
	}
	// A short read back counts every missing byte.
	n += max(len(got), len(want)) - min(len(got), len(want))
	return n, details
}
