package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Bee1002/Odin-Flash/firmware"
	"github.com/Bee1002/Odin-Flash/link"
	"github.com/Bee1002/Odin-Flash/protocol"
)

// State is the session lifecycle position.
type State int

const (
	// StateDisconnected means no link is held
	StateDisconnected State = iota

	// StateOpen means the link is open but the device not yet greeted
	StateOpen

	// StateGreeted means the device answered the ODIN handshake
	StateGreeted

	// StatePitMode means the device is accepting PIT payload
	StatePitMode

	// StateTransferring means an image upload is in flight
	StateTransferring

	// StateEnded means the session was closed with ENDS or REBT
	StateEnded

	// StateFaulted means an unrecoverable error ended the session
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateOpen:
		return "open"
	case StateGreeted:
		return "greeted"
	case StatePitMode:
		return "pit-mode"
	case StateTransferring:
		return "transferring"
	case StateEnded:
		return "ended"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session drives the LOKE protocol over an exclusively-owned link.
// A Session is confined to a single goroutine.
type Session struct {
	link  link.Link
	cfg   Config
	state State

	// fault holds the error that moved the session to StateFaulted
	fault error
}

// New creates a Session over the given link. The link may be opened
// already or not; Open is idempotent either way.
func New(lk link.Link, opts ...Option) *Session {
	if lk == nil {
		panic("link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		link:  lk,
		cfg:   cfg,
		state: StateDisconnected,
	}
}

// State returns the current lifecycle position.
func (s *Session) State() State { return s.state }

// Fault returns the error that faulted the session, if any.
func (s *Session) Fault() error { return s.fault }

// Live reports whether the session is greeted or beyond on an open
// link. The port monitor gates its polling on this: while Live the
// monitor must emit zero I/O on the port.
func (s *Session) Live() bool {
	switch s.state {
	case StateGreeted, StatePitMode, StateTransferring:
		return s.link.Opened()
	}
	return false
}

// Open acquires the link. The link itself enforces the line settings
// and the settling window.
func (s *Session) Open() error {
	switch s.state {
	case StateDisconnected, StateOpen:
	default:
		return &StateError{Op: "open", State: s.state}
	}
	if err := s.link.Open(); err != nil {
		s.toFault(err)
		s.logError("opening the port failed", "error", err)
		return err
	}
	s.state = StateOpen
	return nil
}

// Close hard-closes the link without protocol traffic. Prefer End or
// Reboot; Close is the teardown of last resort and after a fault.
func (s *Session) Close() error {
	if s.state != StateEnded && s.state != StateFaulted {
		s.state = StateDisconnected
	}
	return s.link.Close()
}

// Greet runs the ODIN handshake. The device is live once it answers
// either "LOKE" or a bare ACK. A read timeout earns one implicit
// retry preceded by a full purge; a second silence faults the
// session.
func (s *Session) Greet(ctx context.Context) error {
	if s.state != StateOpen {
		return &StateError{Op: "greet", State: s.state}
	}

	if err := s.greet(ctx); err != nil {
		gerr := &GreetError{Err: err}
		s.toFault(gerr)
		s.logError("Greeting failed", "error", err)
		return gerr
	}

	s.state = StateGreeted
	s.logSuccess("ODIN")
	return nil
}

// greet performs one handshake round with the single-retry budget.
// It does not transition state; Greet and the recovery coordinator
// decide what the outcome means.
func (s *Session) greet(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if attempt > 0 {
			// Retry only makes sense after clearing whatever the
			// device half-sent.
			if err := s.link.Purge(true, true, true); err != nil {
				return err
			}
		}

		if err := s.sendCommand(protocol.CmdHandshake, 0, 0); err != nil {
			lastErr = err
			continue
		}

		raw, err := protocol.ReadGreeting(s.link, s.cfg.HandshakeTimeout)
		if err == nil {
			s.logDebug("device answered handshake", "reply", fmt.Sprintf("%q", raw))
			return nil
		}
		lastErr = err

		if le, ok := link.AsError(err); !ok || le.Kind != link.KindTimeout {
			// Garbage bytes are not retried; only silence is.
			return err
		}
	}
	return lastErr
}

// WritePit uploads a new partition table. The device enters PIT mode
// on PITM, takes the table in 500-byte zero-padded segments with a
// mandatory ACK each, and then needs a stability window for its flash
// controller to finish repartitioning. Missing any ACK here is fatal.
func (s *Session) WritePit(ctx context.Context, blob []byte) error {
	if s.state != StateGreeted {
		return &StateError{Op: "write pit", State: s.state}
	}
	if err := firmware.ValidatePit(blob); err != nil {
		return err
	}

	if err := s.sendCommand(protocol.CmdPitMode, 0, 0); err != nil {
		s.toFault(err)
		s.logError("PIT mode entry failed", "error", err)
		return err
	}
	if err := s.requireAck("PIT mode entry"); err != nil {
		s.toFault(err)
		s.logError("PIT mode entry failed", "error", err)
		return err
	}
	s.state = StatePitMode

	seq := 0
	for off := 0; off < len(blob); off += protocol.ControlChunkSize {
		if err := ctx.Err(); err != nil {
			return s.cancelled()
		}

		end := off + protocol.ControlChunkSize
		if end > len(blob) {
			end = len(blob)
		}
		segment, err := protocol.PadSegment(blob[off:end])
		if err != nil {
			return err
		}

		if err := s.link.Write(segment); err != nil {
			s.toFault(err)
			s.logError(fmt.Sprintf("PIT write at segment %d", seq), "error", err)
			return err
		}
		if err := s.requireAck(fmt.Sprintf("PIT write segment %d", seq)); err != nil {
			s.toFault(err)
			s.logError(fmt.Sprintf("PIT write at segment %d", seq), "error", err)
			return err
		}
		seq++
	}

	// Give the flash controller its repartitioning window before any
	// further command.
	if err := s.sleep(ctx, s.cfg.StabilityDelay); err != nil {
		return err
	}

	s.state = StateGreeted
	s.logSuccess("PIT written", "bytes", len(blob), "segments", seq)
	return nil
}

// ReadPit asks the device to stream its partition table back. The
// transmission has no declared length; it is over once the link stays
// quiet for the idle window. An empty result is an error.
func (s *Session) ReadPit(ctx context.Context) ([]byte, error) {
	if s.state != StateGreeted {
		return nil, &StateError{Op: "read pit", State: s.state}
	}

	if err := s.sendCommand(protocol.CmdPitRead, 0, 0); err != nil {
		s.toFault(err)
		s.logError("PIT read failed", "error", err)
		return nil, err
	}

	blob, err := s.drainUntilIdle(ctx)
	if err != nil {
		s.toFault(err)
		s.logError("PIT read failed", "error", err)
		return nil, err
	}
	if len(blob) == 0 {
		s.logError("PIT read failed", "error", ErrPitEmpty)
		return nil, ErrPitEmpty
	}

	s.logSuccess("PIT read", "bytes", len(blob))
	return blob, nil
}

// drainUntilIdle accumulates control-sized reads until the idle
// window elapses with no new bytes. Before the first byte it waits up
// to the full read timeout, since the device may take a moment to
// start streaming.
func (s *Session) drainUntilIdle(ctx context.Context) ([]byte, error) {
	var blob []byte
	buf := make([]byte, protocol.ControlChunkSize)

	quietSince := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}

		n, err := s.link.ReadAvailable(buf)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			blob = append(blob, buf[:n]...)
			quietSince = time.Now()
			continue
		}

		idle := time.Since(quietSince)
		if len(blob) > 0 && idle >= s.cfg.PitIdle {
			return blob, nil
		}
		if len(blob) == 0 && idle >= s.cfg.ReadTimeout {
			return nil, nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Flash streams one image to the device. See the transfer engine for
// the chunking, keep-alive and recovery rules.
func (s *Session) Flash(ctx context.Context, img *firmware.ImageStream) error {
	if s.state != StateGreeted {
		return &StateError{Op: "flash", State: s.state}
	}
	return s.flashStream(ctx, img)
}

// End closes the session with ENDS; the device reboots on its own.
// A second End is a state error and does not touch the link.
func (s *Session) End(ctx context.Context) error {
	return s.finish(ctx, "end", protocol.CmdEndSession)
}

// Reboot closes the session with an explicit reboot to normal mode.
func (s *Session) Reboot(ctx context.Context) error {
	return s.finish(ctx, "reboot", protocol.CmdReboot)
}

func (s *Session) finish(ctx context.Context, op string, cmd protocol.Command) error {
	if s.state != StateGreeted {
		return &StateError{Op: op, State: s.state}
	}
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	if err := s.sendCommand(cmd, 0, 0); err != nil {
		s.toFault(err)
		s.logError("session teardown failed", "command", string(cmd), "error", err)
		return err
	}

	s.state = StateEnded
	s.logSuccess("session ended", "command", string(cmd))
	return s.link.Close()
}

// cancelled handles a caller cancel between chunks: send ENDS if the
// wire still works, then close. If even that fails the device is left
// in an unknown state and the link is hard-closed.
func (s *Session) cancelled() error {
	if err := s.sendCommand(protocol.CmdEndSession, 0, 0); err != nil {
		s.logWarn("cancel teardown failed; device left in an unknown state", "error", err)
	}
	s.state = StateEnded
	_ = s.link.Close()
	return ErrCancelled
}

// sendCommand writes one control packet.
func (s *Session) sendCommand(cmd protocol.Command, payloadSize, seq uint32) error {
	pkt, err := protocol.Encode(cmd, payloadSize, seq)
	if err != nil {
		return err
	}
	return s.link.Write(pkt)
}

// requireAck demands a positive acknowledgement within the ACK
// deadline. Unlike bulk traffic, control traffic may not stay silent.
func (s *Session) requireAck(stage string) error {
	b, got, err := protocol.AwaitAck(s.link, s.cfg.AckTimeout)
	if err != nil {
		return err
	}
	if !got {
		return &protocol.BadAckError{Stage: stage, Silent: true}
	}
	if b != protocol.Ack {
		return &protocol.BadAckError{Stage: stage, Got: b}
	}
	return nil
}

// sleep waits d or until the context is cancelled.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}

func (s *Session) toFault(err error) {
	s.state = StateFaulted
	s.fault = err
}
