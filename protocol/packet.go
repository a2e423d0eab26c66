package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Command is a four-letter ASCII word recognised by the device.
type Command string

// Commands understood by the LOKE bootloader.
const (
	// CmdHandshake opens the session; the device replies "LOKE" or ACK
	CmdHandshake Command = "ODIN"

	// CmdPitMode switches the device into PIT-write mode
	CmdPitMode Command = "PITM"

	// CmdPitRead asks the device to stream its PIT back
	CmdPitRead Command = "PITR"

	// CmdData announces an image upload of SIZE payload bytes
	CmdData Command = "DATA"

	// CmdEndSession closes the session; the device self-reboots
	CmdEndSession Command = "ENDS"

	// CmdReboot reboots the device to normal mode
	CmdReboot Command = "REBT"
)

// Valid reports whether cmd is a word this package knows how to send.
func (c Command) Valid() bool {
	switch c {
	case CmdHandshake, CmdPitMode, CmdPitRead, CmdData, CmdEndSession, CmdReboot:
		return true
	}
	return false
}

// Encode builds a control packet for cmd.
//
// Packet layout:
//
//	[0..4)    command word, ASCII, MSB first
//	[4..8)    payload size, big-endian
//	[8..12)   sequence id, little-endian
//	[12..500) zero padding
//
// The returned slice is always exactly PacketSize bytes.
func Encode(cmd Command, payloadSize, seq uint32) ([]byte, error) {
	if len(cmd) != CommandSize {
		return nil, fmt.Errorf("command word must be exactly %d bytes, got %q", CommandSize, string(cmd))
	}

	pkt := make([]byte, PacketSize)
	copy(pkt[0:CommandSize], cmd)
	binary.BigEndian.PutUint32(pkt[4:8], payloadSize)
	binary.LittleEndian.PutUint32(pkt[8:12], seq)

	return pkt, nil
}

// Decode takes a control packet apart. The frame must be exactly
// PacketSize bytes; the trailing padding is not required to be zero so
// that packets captured from noisy links still parse.
func Decode(frame []byte) (cmd Command, payloadSize, seq uint32, err error) {
	if len(frame) != PacketSize {
		return "", 0, 0, &FrameError{Length: len(frame)}
	}

	cmd = Command(frame[0:CommandSize])
	payloadSize = binary.BigEndian.Uint32(frame[4:8])
	seq = binary.LittleEndian.Uint32(frame[8:12])

	return cmd, payloadSize, seq, nil
}

// PadSegment zero-pads a PIT payload segment to ControlChunkSize.
// Segments already at the full size are returned as a copy unchanged.
func PadSegment(segment []byte) ([]byte, error) {
	if len(segment) == 0 || len(segment) > ControlChunkSize {
		return nil, fmt.Errorf("segment must be 1..%d bytes, got %d", ControlChunkSize, len(segment))
	}

	padded := make([]byte, ControlChunkSize)
	copy(padded, segment)
	return padded, nil
}

// IsGreeting reports whether raw is a valid handshake answer: the
// ASCII word "LOKE" or a leading ACK byte. Both mean the session is
// live.
func IsGreeting(raw []byte) bool {
	if len(raw) >= 1 && raw[0] == Ack {
		return true
	}
	return len(raw) >= len(GreetingReply) &&
		bytes.Equal(raw[:len(GreetingReply)], []byte(GreetingReply))
}
