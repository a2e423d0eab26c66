package link

import (
	"time"

	"go.bug.st/serial"
)

// Line settings fixed by the Download Mode protocol.
const (
	// BaudRate is the only rate the bootloader speaks
	BaudRate = 115200

	// SettleDelay is the mandatory quiet window after opening the port
	// before any protocol byte may be sent.
	SettleDelay = 500 * time.Millisecond

	// DefaultReadTimeout is the read deadline outside large transfers
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the write deadline outside large transfers
	DefaultWriteTimeout = 5 * time.Second
)

// Link is the transport seam between the session engine and the OS
// serial stack. A link is owned by exactly one logical actor at a
// time; none of its methods are safe for concurrent use.
type Link interface {
	// Open acquires the port with the fixed line settings and waits
	// out the settling window.
	Open() error

	// Close releases the OS handle and any kernel-side pending I/O.
	Close() error

	// Opened reports whether the handle is currently held.
	Opened() bool

	// Write blocks until all of p is written.
	Write(p []byte) error

	// ReadExact fills p or fails with a timeout once the deadline
	// elapses.
	ReadExact(p []byte, deadline time.Duration) error

	// ReadAvailable copies whatever is currently buffered into p
	// without blocking.
	ReadAvailable(p []byte) (int, error)

	// Purge discards the selected buffers; with abort it also cancels
	// in-flight I/O, falling back to a handle reopen when the native
	// purge cannot.
	Purge(tx, rx, abort bool) error

	// ClearErrors retrieves and discards the hardware error state.
	ClearErrors() error

	// SetTimeouts adjusts the read and write deadlines. A
	// non-positive write deadline means unbounded.
	SetTimeouts(read, write time.Duration) error
}

// SerialLink is the production Link over go.bug.st/serial.
type SerialLink struct {
	name string
	port serial.Port

	readTimeout  time.Duration
	writeTimeout time.Duration
}

var _ Link = (*SerialLink)(nil)

// New returns an unopened link for the named port.
func New(name string) *SerialLink {
	return &SerialLink{
		name:         name,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

// Name returns the OS port identifier.
func (l *SerialLink) Name() string { return l.name }

// Open acquires the port at 115200 8N1 with DTR and RTS asserted,
// then sleeps the settling window. Traffic before the window closes
// confuses the bootloader, so the sleep is unconditional.
func (l *SerialLink) Open() error {
	if l.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: true,
			RTS: true,
		},
	}

	port, err := serial.Open(l.name, mode)
	if err != nil {
		return classify("open", l.name, err)
	}
	l.port = port

	time.Sleep(SettleDelay)
	return nil
}

// Close releases the handle. Closing an already-closed link is a
// no-op.
func (l *SerialLink) Close() error {
	if l.port == nil {
		return nil
	}
	port := l.port
	l.port = nil
	if err := port.Close(); err != nil {
		return classify("close", l.name, err)
	}
	return nil
}

// Opened reports whether the handle is currently held.
func (l *SerialLink) Opened() bool { return l.port != nil }

// Write blocks until all of p reaches the driver.
func (l *SerialLink) Write(p []byte) error {
	if l.port == nil {
		return &Error{Op: "write", Port: l.name, Kind: KindStalled}
	}
	for len(p) > 0 {
		n, err := l.port.Write(p)
		if err != nil {
			return classify("write", l.name, err)
		}
		p = p[n:]
	}
	return nil
}

// ReadExact fills p, failing with KindTimeout once deadline elapses.
func (l *SerialLink) ReadExact(p []byte, deadline time.Duration) error {
	if l.port == nil {
		return &Error{Op: "read", Port: l.name, Kind: KindStalled}
	}

	end := time.Now().Add(deadline)
	got := 0
	for got < len(p) {
		remaining := time.Until(end)
		if remaining <= 0 {
			return &Error{Op: "read", Port: l.name, Kind: KindTimeout}
		}
		if err := l.port.SetReadTimeout(remaining); err != nil {
			return classify("read", l.name, err)
		}
		n, err := l.port.Read(p[got:])
		if err != nil {
			return classify("read", l.name, err)
		}
		if n == 0 {
			// go.bug.st reports an expired read timeout as (0, nil).
			return &Error{Op: "read", Port: l.name, Kind: KindTimeout}
		}
		got += n
	}
	return nil
}

// ReadAvailable copies whatever the driver has buffered into p and
// returns immediately.
func (l *SerialLink) ReadAvailable(p []byte) (int, error) {
	if l.port == nil {
		return 0, &Error{Op: "read", Port: l.name, Kind: KindStalled}
	}
	if err := l.port.SetReadTimeout(0); err != nil {
		return 0, classify("read", l.name, err)
	}
	n, err := l.port.Read(p)
	if err != nil {
		return 0, classify("read", l.name, err)
	}
	return n, nil
}

// Purge discards the selected direction buffers. With abort set it
// must also cancel any in-flight I/O; when the native resets fail the
// fallback is a full handle reopen, which cancels kernel-side pending
// operations on every platform.
func (l *SerialLink) Purge(tx, rx, abort bool) error {
	if l.port == nil {
		return nil
	}

	var failed error
	if tx {
		if err := l.port.ResetOutputBuffer(); err != nil {
			failed = err
		}
	}
	if rx {
		if err := l.port.ResetInputBuffer(); err != nil {
			failed = err
		}
	}

	if failed == nil {
		return nil
	}
	if !abort {
		return classify("purge", l.name, failed)
	}

	// Reopen to abort whatever is pending.
	if err := l.Close(); err != nil {
		return err
	}
	return l.Open()
}

// ClearErrors drains and discards pending input and resets both
// buffers, the portable equivalent of retrieving the hardware error
// bitmask.
func (l *SerialLink) ClearErrors() error {
	if l.port == nil {
		return nil
	}
	buf := make([]byte, 256)
	for {
		n, err := l.ReadAvailable(buf)
		if err != nil || n == 0 {
			break
		}
	}
	if err := l.port.ResetInputBuffer(); err != nil {
		return classify("clear", l.name, err)
	}
	if err := l.port.ResetOutputBuffer(); err != nil {
		return classify("clear", l.name, err)
	}
	return nil
}

// SetTimeouts records the link deadlines. The recorded read deadline
// is reported by ReadTimeout and is not applied to reads: ReadExact
// takes its deadline per call. go.bug.st writes are blocking, so the
// write deadline is advisory and a non-positive value (unbounded) is
// the norm during large transfers.
func (l *SerialLink) SetTimeouts(read, write time.Duration) error {
	l.readTimeout = read
	l.writeTimeout = write
	return nil
}

// ReadTimeout returns the currently configured read deadline.
func (l *SerialLink) ReadTimeout() time.Duration { return l.readTimeout }
