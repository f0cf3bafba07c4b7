package iceburn

// Endpoint is a USB endpoint address on the iCEblink40.
type Endpoint uint8

const (
	EndpointCmdOut  Endpoint = 0x01
	EndpointCmdIn   Endpoint = 0x82
	EndpointDataOut Endpoint = 0x03
	EndpointDataIn  Endpoint = 0x84
)

func (e Endpoint) In() bool { return e&0x80 != 0 }

// Number returns the endpoint number without the direction bit.
func (e Endpoint) Number() int { return int(e & 0x0F) }

// Control transfer selectors.
const (
	selectorBoardType   = 0xE2
	selectorBoardSerial = 0xE4

	controlStringSize = 16
)

// Transport is the raw USB access the board protocol is built on.
//
//go:generate mockgen -destination=mocks/transport.go -package=mocks github.com/gentam/iceburn Transport
type Transport interface {
	// ControlIn issues a vendor device-to-host control request and returns
	// at most size bytes.
	ControlIn(selector uint8, size int) ([]byte, error)
	// BulkWrite writes p to a bulk OUT endpoint.
	BulkWrite(ep Endpoint, p []byte) error
	// BulkRead performs one bulk IN transfer of at most size bytes.
	BulkRead(ep Endpoint, size int) ([]byte, error)
	Close() error
}
