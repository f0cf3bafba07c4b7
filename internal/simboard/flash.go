package simboard

// Flash models an M25P10-A on the board's SPI bus at the byte level.
type Flash struct {
	Mem []byte
	ID  [3]byte

	// BusyPolls is how many status reads report WIP after an erase or
	// page program.
	BusyPolls int
	// Stuck forces the given addresses to a fixed value after programming.
	Stuck map[int]byte

	// Log of completed operations.
	PagePrograms []PageProgram
	FastReads    []FastRead
	ChipErases   int
	Wakeups      int
	StatusReads  int

	status   byte
	busyLeft int
	selected bool
	cmd      []byte
}

// PageProgram records one page program operation.
type PageProgram struct {
	Addr int
	Len  int
}

// FastRead records one fast read transaction and the data bytes clocked out.
type FastRead struct {
	Addr int
	Len  int
}

const (
	statusWIP = 0x01
	statusWEL = 0x02
)

// NewFlash returns an erased 128 KiB part.
func NewFlash() *Flash {
	f := &Flash{
		Mem: make([]byte, 128<<10),
		ID:  [3]byte{0x20, 0x20, 0x11},
	}
	f.erase()
	return f
}

func (f *Flash) erase() {
	for i := range f.Mem {
		f.Mem[i] = 0xFF
	}
}

// WriteEnabled reports the write enable latch.
func (f *Flash) WriteEnabled() bool { return f.status&statusWEL != 0 }

func (f *Flash) selectChip() {
	f.selected = true
	f.cmd = f.cmd[:0]
}

// transfer clocks one byte in and returns the byte clocked out.
func (f *Flash) transfer(mosi byte) byte {
	if !f.selected {
		return 0xFF
	}
	idx := len(f.cmd)
	f.cmd = append(f.cmd, mosi)
	if idx == 0 {
		return 0xFF
	}

	switch f.cmd[0] {
	case 0x9F:
		if idx <= 3 {
			return f.ID[idx-1]
		}
		return 0x00
	case 0x05:
		f.StatusReads++
		s := f.status
		if f.busyLeft > 0 {
			s |= statusWIP
			f.busyLeft--
		}
		return s
	case 0x0B:
		if idx < 5 {
			return 0xFF
		}
		return f.Mem[(f.addr()+idx-5)%len(f.Mem)]
	}
	return 0xFF
}

func (f *Flash) addr() int {
	return int(f.cmd[1])<<16 | int(f.cmd[2])<<8 | int(f.cmd[3])
}

// deselect ends the transaction and executes write commands.
func (f *Flash) deselect() {
	if !f.selected {
		return
	}
	f.selected = false
	if len(f.cmd) >= 5 && f.cmd[0] == 0x0B {
		f.FastReads = append(f.FastReads, FastRead{Addr: f.addr(), Len: len(f.cmd) - 5})
		return
	}
	if len(f.cmd) == 0 || f.busyLeft > 0 {
		return
	}

	switch f.cmd[0] {
	case 0xAB:
		f.Wakeups++
	case 0x06:
		f.status |= statusWEL
	case 0xC7:
		if !f.WriteEnabled() {
			return
		}
		f.erase()
		f.ChipErases++
		f.done()
	case 0x02:
		if !f.WriteEnabled() || len(f.cmd) < 4 {
			return
		}
		addr := f.addr()
		data := f.cmd[4:]
		page := addr &^ 0xFF
		for i, b := range data {
			a := (page | ((addr + i) & 0xFF)) % len(f.Mem)
			f.Mem[a] &= b
			if v, ok := f.Stuck[a]; ok {
				f.Mem[a] = v
			}
		}
		f.PagePrograms = append(f.PagePrograms, PageProgram{Addr: addr, Len: len(data)})
		f.done()
	}
}

func (f *Flash) done() {
	f.status &^= statusWEL
	f.busyLeft = f.BusyPolls
}
