package session

import (
	"bytes"
	"time"

	"github.com/Bee1002/Odin-Flash/link"
	"github.com/Bee1002/Odin-Flash/protocol"
)

// mockLink simulates a Download Mode device behind the link seam.
// Each Write is recorded and handed to onWrite, which plays the
// device's side by queueing reply bytes.
type mockLink struct {
	opened  bool
	openErr error

	// writes records every host write; lite keeps only the sizes to
	// spare memory on multi-hundred-MiB transfers.
	writes     [][]byte
	writeSizes []int
	lite       bool

	// onWrite plays the device: inspect p, queue replies via feed
	onWrite func(p []byte)

	// failWrite returns a non-nil error for a write about to happen;
	// the write is then not recorded.
	failWrite func(index int, p []byte) error

	// input is the device-to-host byte queue
	input []byte

	purges   []purgeCall
	clears   int
	timeouts []timeoutCall
}

type purgeCall struct{ tx, rx, abort bool }

type timeoutCall struct{ read, write time.Duration }

func newMockLink() *mockLink {
	return &mockLink{}
}

// feed queues device-to-host bytes.
func (m *mockLink) feed(p []byte) {
	m.input = append(m.input, p...)
}

func (m *mockLink) Open() error {
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = true
	return nil
}

func (m *mockLink) Close() error {
	m.opened = false
	return nil
}

func (m *mockLink) Opened() bool { return m.opened }

func (m *mockLink) Write(p []byte) error {
	if m.failWrite != nil {
		if err := m.failWrite(len(m.writeSizes), p); err != nil {
			return err
		}
	}
	m.writeSizes = append(m.writeSizes, len(p))
	if !m.lite {
		cp := make([]byte, len(p))
		copy(cp, p)
		m.writes = append(m.writes, cp)
	}
	if m.onWrite != nil {
		m.onWrite(p)
	}
	return nil
}

func (m *mockLink) ReadExact(p []byte, deadline time.Duration) error {
	if len(m.input) < len(p) {
		return &link.Error{Op: "read", Port: "mock", Kind: link.KindTimeout}
	}
	copy(p, m.input[:len(p)])
	m.input = m.input[len(p):]
	return nil
}

func (m *mockLink) ReadAvailable(p []byte) (int, error) {
	n := copy(p, m.input)
	m.input = m.input[n:]
	return n, nil
}

func (m *mockLink) Purge(tx, rx, abort bool) error {
	m.purges = append(m.purges, purgeCall{tx, rx, abort})
	if rx {
		m.input = nil
	}
	return nil
}

func (m *mockLink) ClearErrors() error {
	m.clears++
	return nil
}

func (m *mockLink) SetTimeouts(read, write time.Duration) error {
	m.timeouts = append(m.timeouts, timeoutCall{read, write})
	return nil
}

// ackControlWrites is an onWrite that plays a fully acknowledging
// device: LOKE for the handshake, ACK for every other control packet.
// Payload writes get no reply; tests that need segment ACKs script
// their own onWrite.
func ackControlWrites(m *mockLink) func(p []byte) {
	return func(p []byte) {
		if len(p) != protocol.PacketSize {
			return
		}
		cmd, _, _, err := protocol.Decode(p)
		if err != nil || !cmd.Valid() {
			// Payload chunk that happens to be packet-sized.
			return
		}
		if bytes.Equal(p[0:4], []byte(protocol.CmdHandshake)) {
			m.feed([]byte(protocol.GreetingReply))
			return
		}
		m.feed([]byte{protocol.Ack})
	}
}

// payloadBytes concatenates every recorded write that is not a
// control packet, reconstructing the raw stream the device saw.
func (m *mockLink) payloadBytes() []byte {
	var out []byte
	for _, w := range m.writes {
		if len(w) == protocol.PacketSize {
			if cmd, _, _, err := protocol.Decode(w); err == nil && cmd.Valid() {
				continue
			}
		}
		out = append(out, w...)
	}
	return out
}

// recordLogger captures per-level messages for assertions.
type recordLogger struct {
	debug   []string
	info    []string
	warn    []string
	errs    []string
	success []string
}

func (l *recordLogger) Debug(msg string, kv ...interface{})   { l.debug = append(l.debug, msg) }
func (l *recordLogger) Info(msg string, kv ...interface{})    { l.info = append(l.info, msg) }
func (l *recordLogger) Warn(msg string, kv ...interface{})    { l.warn = append(l.warn, msg) }
func (l *recordLogger) Error(msg string, kv ...interface{})   { l.errs = append(l.errs, msg) }
func (l *recordLogger) Success(msg string, kv ...interface{}) { l.success = append(l.success, msg) }
