package iceburn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// erasedByte is the value of an erased NOR flash cell; gaps in sparse
// images are filled with it.
const erasedByte = 0xFF

// LoadImage reads a flash image. Files ending in .hex, .ihx or .mcs are
// parsed as Intel HEX and flattened starting at address 0; anything else is
// taken as a raw binary bitstream.
func LoadImage(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx", ".mcs":
		return loadIntelHex(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func loadIntelHex(path string) ([]byte, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer r.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var end uint64
	for _, segment := range mem.GetDataSegments() {
		end = max(end, uint64(segment.Address)+uint64(len(segment.Data)))
	}
	// Checked before flattening, which allocates up to the last address.
	if size := maxKnownSize(); end > uint64(size) {
		return nil, fmt.Errorf("%w: %s ends at 0x%X, flash holds %d bytes", ErrImageTooLarge, path, end, size)
	}
	return mem.ToBinary(0, uint32(end), erasedByte), nil
}
