package iceburn

import "time"

type flashParams struct {
	name string
	size int // bytes

	tRES1 time.Duration
}

// ExpectedFlashID is the JEDEC ID of the M25P10-A fitted to the iCEblink40.
var ExpectedFlashID = [3]byte{0x20, 0x20, 0x11}

var knownFlash = map[[3]byte]flashParams{
	ExpectedFlashID: {
		name: "ST M25P10-A 1Mb",
		size: 128 << 10,

		// [M25P10-A|Table 16: AC characteristics]
		// tRES1: Release from Deep Power-down
		tRES1: 3 * time.Microsecond,
	},
}

func (f *Flash) paramOrMax(get func(*flashParams) int64) int64 {
	if f.pr != nil {
		return get(f.pr)
	}

	// fall back to the largest value of all known parts
	var vmax int64
	for _, param := range knownFlash {
		vmax = max(vmax, get(&param))
	}
	return vmax
}

// maxKnownSize is the capacity of the largest known part.
func maxKnownSize() int {
	var n int
	for _, p := range knownFlash {
		n = max(n, p.size)
	}
	return n
}

func (f *Flash) tRES1() time.Duration {
	return time.Duration(f.paramOrMax(func(p *flashParams) int64 { return int64(p.tRES1) }))
}

// Size returns the capacity of the identified part in bytes, or of the
// largest known part before ReadID.
func (f *Flash) Size() int {
	return int(f.paramOrMax(func(p *flashParams) int64 { return int64(p.size) }))
}
