package iceburn

import (
	"encoding/hex"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/gousb"
)

const (
	VendorID  = 0x1443 // Lattice
	ProductID = 0x0007 // iCEblink40

	// usbMaxPacket is the bulk packet size of the board's full-speed endpoints.
	usbMaxPacket = 64
)

const rTypeVendorIn = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice

// USBTransport is a Transport backed by libusb through gousb.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	out map[Endpoint]*gousb.OutEndpoint
	in  map[Endpoint]*gousb.InEndpoint
}

// OpenUSB opens the first attached iCEblink40, resets it and claims the four
// bulk endpoints used by the board protocol.
func OpenUSB() (*USBTransport, error) {
	t := &USBTransport{
		ctx: gousb.NewContext(),
		out: make(map[Endpoint]*gousb.OutEndpoint),
		in:  make(map[Endpoint]*gousb.InEndpoint),
	}

	dev, err := t.ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("USB error: %w", err)
	}
	if dev == nil {
		t.Close()
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, VendorID, ProductID)
	}
	t.dev = dev

	if err := dev.Reset(); err != nil {
		t.Close()
		return nil, fmt.Errorf("USB reset failed: %w", err)
	}
	// Not supported on every platform; claiming will fail later if it matters.
	_ = dev.SetAutoDetach(true)

	if err := t.claim(); err != nil {
		t.Close()
		return nil, err
	}
	glog.V(1).Infof("opened iCEblink40 at bus %d address %d", dev.Desc.Bus, dev.Desc.Address)
	return t, nil
}

func (t *USBTransport) claim() (err error) {
	t.cfg, err = t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	t.intf, err = t.cfg.Interface(0, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface 0: %w", err)
	}

	for _, ep := range []Endpoint{EndpointCmdOut, EndpointCmdIn, EndpointDataOut, EndpointDataIn} {
		desc, ok := t.intf.Setting.Endpoints[gousb.EndpointAddress(ep)]
		if !ok || desc.TransferType != gousb.TransferTypeBulk {
			return fmt.Errorf("%w: bulk endpoint 0x%02X missing", ErrDeviceNotFound, uint8(ep))
		}
		if ep.In() {
			if t.in[ep], err = t.intf.InEndpoint(ep.Number()); err != nil {
				return fmt.Errorf("failed to open IN endpoint 0x%02X: %w", uint8(ep), err)
			}
		} else {
			if t.out[ep], err = t.intf.OutEndpoint(ep.Number()); err != nil {
				return fmt.Errorf("failed to open OUT endpoint 0x%02X: %w", uint8(ep), err)
			}
		}
	}
	return nil
}

func (t *USBTransport) ControlIn(selector uint8, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := t.dev.Control(rTypeVendorIn, selector, 0, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("control transfer 0x%02X failed: %w", selector, err)
	}
	glog.V(2).Infof("[usb-ctrl IN] selector = 0x%02X, data =\n%s", selector, hex.Dump(buf[:n]))
	return buf[:n], nil
}

func (t *USBTransport) BulkWrite(ep Endpoint, p []byte) error {
	out, ok := t.out[ep]
	if !ok {
		return fmt.Errorf("no bulk OUT endpoint 0x%02X", uint8(ep))
	}
	n, err := out.Write(p)
	if err != nil {
		return fmt.Errorf("USB write failed: %w", err)
	}
	glog.V(2).Infof("[usb-bulk OUT 0x%02X] wrote %d bytes:\n%s", uint8(ep), n, hex.Dump(p))
	if n != len(p) {
		return fmt.Errorf("USB write to 0x%02X: wrote %d of %d bytes", uint8(ep), n, len(p))
	}
	return nil
}

func (t *USBTransport) BulkRead(ep Endpoint, size int) ([]byte, error) {
	in, ok := t.in[ep]
	if !ok {
		return nil, fmt.Errorf("no bulk IN endpoint 0x%02X", uint8(ep))
	}
	buf := make([]byte, size)
	n, err := in.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("USB read failed: %w", err)
	}
	glog.V(2).Infof("[usb-bulk IN 0x%02X] read %d bytes:\n%s", uint8(ep), n, hex.Dump(buf[:n]))
	return buf[:n], nil
}

// Close releases USB resources.
func (t *USBTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}

// BoardInfo describes an attached iCEblink40.
type BoardInfo struct {
	Bus     int
	Address int
	Serial  string
}

func (i BoardInfo) String() string {
	return fmt.Sprintf("bus %03d address %03d serial %s", i.Bus, i.Address, i.Serial)
}

// ListBoards enumerates attached iCEblink40 boards without claiming them.
func ListBoards() ([]BoardInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorID && desc.Product == ProductID
	})
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	boards := make([]BoardInfo, 0, len(devs))
	for _, dev := range devs {
		info := BoardInfo{Bus: dev.Desc.Bus, Address: dev.Desc.Address}
		buf := make([]byte, controlStringSize)
		if n, err := dev.Control(rTypeVendorIn, selectorBoardSerial, 0, 0, buf); err == nil {
			info.Serial = trimControlString(buf[:n])
		} else {
			glog.Warningf("reading serial of board at %d.%d: %v", info.Bus, info.Address, err)
		}
		boards = append(boards, info)
	}
	return boards, nil
}
