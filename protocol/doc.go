// Package protocol implements the LOKE (Odin) wire protocol spoken by
// Samsung devices in Download Mode.
//
// # Protocol Overview
//
// The host drives the device with fixed-size 500-byte control packets:
//
//	[CMD(4, big-endian ASCII)][SIZE(4, big-endian)][SEQ(4, little-endian)][ZERO PAD to 500]
//
// Commands are four-letter ASCII words. The session opens with ODIN, to
// which the device answers either the four bytes "LOKE" or a bare ACK
// byte (0x06). PIT payload travels in 500-byte zero-padded control
// chunks; bulk image payload travels unpadded in 128 KiB chunks.
//
// # Packet Codec
//
// Use Encode to build a control packet and Decode to take one apart:
//
//	pkt, err := protocol.Encode(protocol.CmdHandshake, 0, 0)
//	cmd, size, seq, err := protocol.Decode(pkt)
//
// # Reply Helpers
//
// Devices acknowledge with the single byte 0x06, but not uniformly:
// some models ACK every control packet, some only every tenth bulk
// chunk, some stay silent until the end of the session. AwaitAck
// therefore reports "nothing arrived" as an empty result, not an
// error; the caller decides whether silence is fatal at its stage:
//
//	b, got, err := protocol.AwaitAck(link, time.Second)
//	if err != nil { ... }               // transport failure
//	if got && b != protocol.Ack { ... } // device rejected
//
// ExpectASCII reads exactly len(word) bytes and compares them to an
// ASCII word. The greeting reply is read with ReadGreeting instead,
// which accepts either the "LOKE" word or a bare ACK byte.
package protocol
