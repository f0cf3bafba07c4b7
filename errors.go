package iceburn

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound      = errors.New("iCEblink40 device not found")
	ErrUnexpectedBoardType = errors.New("unexpected board type")
	ErrUnexpectedFlashID   = errors.New("unexpected flash ID")
	ErrUnsupportedPort     = errors.New("unsupported SPI port")

	ErrFrameTooLong      = errors.New("command payload too long")
	ErrFraming           = errors.New("response framing error")
	ErrUnexpectedPayload = errors.New("unexpected response payload")

	ErrNotOpen     = errors.New("resource not open")
	ErrAlreadyOpen = errors.New("resource already open")

	ErrInvalidPageWrite = errors.New("invalid page write")
	ErrImageTooLarge    = errors.New("image larger than flash")
	ErrBusyTimeout      = errors.New("flash busy wait exceeded poll limit")
	ErrVerifyFailed     = errors.New("verification failed")
)

// Known command status codes.
const (
	StatusOK            = 0
	StatusResourceInUse = 3
	StatusNotOpened     = 4
	StatusInvalidEnum   = 12
)

// StatusText returns a description of a command status code.
func StatusText(code byte) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusResourceInUse:
		return "resource in use"
	case StatusNotOpened:
		return "resource not opened"
	case StatusInvalidEnum:
		return "invalid enum"
	}
	return fmt.Sprintf("error code %d", code)
}

// ProtocolError is returned when the board answers a command with a nonzero
// status.
type ProtocolError struct {
	Command string
	Code    byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("command %s failed with error: %s", e.Command, StatusText(e.Code))
}

// TransferLengthError reports a byte count acknowledged by the board that
// differs from the number of bytes actually moved over the data endpoints.
type TransferLengthError struct {
	Command   string
	Direction string // "write" or "read"
	Want, Got uint32
}

func (e *TransferLengthError) Error() string {
	return fmt.Sprintf("command %s: board reported %d bytes %s, expected %d",
		e.Command, e.Got, e.Direction, e.Want)
}
