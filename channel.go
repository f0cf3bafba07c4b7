package iceburn

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
)

const (
	// maxCommandPayload is the largest payload accepted after cmd and subcmd.
	maxCommandPayload = 63
	// defaultResponseSize is the number of bytes read back for every command.
	defaultResponseSize = 16

	// Status flags announcing byte counts appended to a response.
	statusHasWriteCount = 0x80
	statusHasReadCount  = 0x40
)

// Command groups and subcommands.
const (
	cmdGPIO        = 0x03
	gpioOpen       = 0x00
	gpioClose      = 0x01
	gpioSetDir     = 0x04
	gpioSetValue   = 0x06
	cmdComm        = 0x04
	commOpen       = 0x00
	commClose      = 0x01
	commWrite      = 0x04
	commRead       = 0x05
	commStatus     = 0x85
	cmdSPI         = 0x06
	spiOpen        = 0x00
	spiClose       = 0x01
	spiSetSpeed    = 0x03
	spiSetMode     = 0x05
	spiChipSelect  = 0x06
	spiStartIO     = 0x07
	spiEndIOStatus = 0x87
)

// encodeFrame builds the command-out frame [len][cmd][subcmd][payload...],
// where len counts the bytes following it.
func encodeFrame(cmd, subcmd byte, payload []byte) ([]byte, error) {
	if len(payload) > maxCommandPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(payload))
	}
	frame := make([]byte, 3+len(payload))
	frame[0] = byte(2 + len(payload))
	frame[1] = cmd
	frame[2] = subcmd
	copy(frame[3:], payload)
	return frame, nil
}

// decodeResponse splits a command-in response [len][status][result...].
func decodeResponse(res []byte) (status byte, payload []byte, err error) {
	if len(res) < 2 {
		return 0, nil, fmt.Errorf("%w: %d byte response", ErrFraming, len(res))
	}
	if int(res[0]) != len(res)-1 {
		return 0, nil, fmt.Errorf("%w: length byte %d, %d bytes follow", ErrFraming, res[0], len(res)-1)
	}
	return res[1], res[2:], nil
}

// send performs one command exchange and returns the raw status and result.
func (b *Board) send(cmd, subcmd byte, payload []byte, respSize int) (byte, []byte, error) {
	frame, err := encodeFrame(cmd, subcmd, payload)
	if err != nil {
		return 0, nil, err
	}
	if err := b.t.BulkWrite(EndpointCmdOut, frame); err != nil {
		return 0, nil, err
	}
	res, err := b.t.BulkRead(EndpointCmdIn, respSize)
	if err != nil {
		return 0, nil, err
	}
	status, pl, err := decodeResponse(res)
	if err != nil {
		return 0, nil, fmt.Errorf("command %02x:%02x: %w", cmd, subcmd, err)
	}
	glog.V(2).Infof("%02x:%02x (%x) < %02x:(%x)", cmd, subcmd, payload, status, pl)
	return status, pl, nil
}

// checkedSend is send with a zero status required. With noret set the
// response must also carry no result bytes.
func (b *Board) checkedSend(name string, cmd, subcmd byte, payload []byte, noret bool) ([]byte, error) {
	status, pl, err := b.send(cmd, subcmd, payload, defaultResponseSize)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, &ProtocolError{Command: name, Code: status}
	}
	if noret && len(pl) != 0 {
		return nil, fmt.Errorf("command %s: %w (%x)", name, ErrUnexpectedPayload, pl)
	}
	return pl, nil
}

// checkCounts validates the write and read byte counts a status query
// reports against the bytes actually moved. The write count precedes the
// read count when both are present.
func checkCounts(name string, status byte, pl []byte, wrote, read int) error {
	next := func(dir string) (uint32, error) {
		if len(pl) < 4 {
			return 0, fmt.Errorf("command %s: %w: %s count truncated", name, ErrFraming, dir)
		}
		v := binary.LittleEndian.Uint32(pl)
		pl = pl[4:]
		return v, nil
	}

	if status&statusHasWriteCount != 0 {
		n, err := next("write")
		if err != nil {
			return err
		}
		if n != uint32(wrote) {
			return &TransferLengthError{Command: name, Direction: "write", Want: uint32(wrote), Got: n}
		}
	}
	if status&statusHasReadCount != 0 {
		n, err := next("read")
		if err != nil {
			return err
		}
		if n != uint32(read) {
			return &TransferLengthError{Command: name, Direction: "read", Want: uint32(read), Got: n}
		}
	}
	return nil
}
