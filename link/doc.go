// Package link provides the serial transport used to talk to a device
// in Download Mode.
//
// A SerialLink owns its OS handle exclusively for its lifetime. The
// line settings are fixed by the protocol: 115200 baud, 8 data bits,
// no parity, one stop bit, DTR and RTS asserted. After opening, the
// link waits 500 ms for the hardware to settle before any traffic may
// flow; this delay is part of the protocol contract.
//
// The Link interface is the backend seam: the session engine talks
// only to it, so tests substitute a scripted double without touching
// real hardware.
package link
