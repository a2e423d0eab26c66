package locator

import (
	"errors"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/Bee1002/Odin-Flash/link"
	"github.com/Bee1002/Odin-Flash/protocol"
)

// Samsung Download Mode USB identifiers. The flasher must not claim
// any other vendor.
const (
	VendorID = "04E8"

	ProductIDLoke  = "685D"
	ProductIDModem = "6860"
)

// ProbeTimeout bounds the read of the active-probe answer.
const ProbeTimeout = 1500 * time.Millisecond

// ErrNoDevice means no eligible device is currently present. This is
// a normal outcome, not a fault.
var ErrNoDevice = errors.New("no download-mode device present")

// PortDescriptor identifies a discovered device port.
type PortDescriptor struct {
	// Path is the OS serial port identifier (COMn, /dev/ttyACMn, ...)
	Path string

	// Product is a cached human-readable name, when the OS provides one
	Product string

	// VID and PID are the USB identifiers observed at enumeration,
	// empty for ports found by active probe.
	VID string
	PID string
}

func (p *PortDescriptor) String() string {
	if p.Product != "" {
		return p.Product + " (" + p.Path + ")"
	}
	return p.Path
}

// Equal reports whether two descriptors name the same port.
func (p *PortDescriptor) Equal(other *PortDescriptor) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Path == other.Path
}

// Locator finds the device port. The function fields default to the
// real OS enumeration and serial stack; tests substitute them.
type Locator struct {
	detail func() ([]*enumerator.PortDetails, error)
	list   func() ([]string, error)
	open   func(name string) link.Link
}

// New returns a Locator backed by the OS USB and serial enumerations.
func New() *Locator {
	return &Locator{
		detail: enumerator.GetDetailedPortsList,
		list:   serial.GetPortsList,
		open:   func(name string) link.Link { return link.New(name) },
	}
}

// Find locates the device, falling back from USB enumeration to the
// active probe. Returns ErrNoDevice when nothing answers.
func (l *Locator) Find() (*PortDescriptor, error) {
	if port, err := l.FindPassive(); err == nil {
		return port, nil
	}
	return l.FindByProbe()
}

// FindPassive runs only the enumeration strategies: strict VID+PID
// first, then VID-only. It never opens a port, so it is safe to call
// while unrelated serial traffic is in flight elsewhere.
func (l *Locator) FindPassive() (*PortDescriptor, error) {
	ports, err := l.detail()
	if err != nil {
		return nil, ErrNoDevice
	}

	if port := matchUSB(ports, true); port != nil {
		return port, nil
	}
	if port := matchUSB(ports, false); port != nil {
		return port, nil
	}
	return nil, ErrNoDevice
}

// FindByProbe opens every listed serial port in turn, sends one ODIN
// control packet and accepts a LOKE or ACK answer. Per-port failures
// are swallowed; only a fully silent bus yields ErrNoDevice.
func (l *Locator) FindByProbe() (*PortDescriptor, error) {
	names, err := l.list()
	if err != nil {
		return nil, ErrNoDevice
	}
	for _, name := range names {
		if l.probe(name) {
			return &PortDescriptor{Path: name}, nil
		}
	}
	return nil, ErrNoDevice
}

func (l *Locator) probe(name string) bool {
	lk := l.open(name)
	if err := lk.Open(); err != nil {
		return false
	}
	defer lk.Close()

	if err := lk.Purge(true, true, false); err != nil {
		return false
	}

	pkt, err := protocol.Encode(protocol.CmdHandshake, 0, 0)
	if err != nil {
		return false
	}
	if err := lk.Write(pkt); err != nil {
		return false
	}

	_, err = protocol.ReadGreeting(lk, ProbeTimeout)
	return err == nil
}

func matchUSB(ports []*enumerator.PortDetails, strictPID bool) *PortDescriptor {
	for _, p := range ports {
		if !p.IsUSB || !strings.EqualFold(p.VID, VendorID) {
			continue
		}
		if strictPID && !strings.EqualFold(p.PID, ProductIDLoke) && !strings.EqualFold(p.PID, ProductIDModem) {
			continue
		}
		return &PortDescriptor{
			Path:    p.Name,
			Product: p.Product,
			VID:     strings.ToUpper(p.VID),
			PID:     strings.ToUpper(p.PID),
		}
	}
	return nil
}
