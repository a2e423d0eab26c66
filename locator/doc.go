// Package locator discovers Samsung devices exposed in Download Mode
// and watches for them coming and going.
//
// Discovery tries three strategies in order, each failure falling
// through to the next:
//
//  1. USB enumeration filtered by the Samsung vendor ID and the two
//     known Download Mode product IDs.
//  2. The same enumeration with the product filter dropped; some
//     devices expose additional PIDs.
//  3. An active probe: every listed serial port is opened with the
//     protocol line settings and sent one ODIN packet; a LOKE or ACK
//     answer identifies the device.
//
// "No device" is a normal outcome, not a fault; callers decide
// whether to retry.
//
// The Monitor polls discovery in the background and reports
// Added/Removed/Changed events to its owner. While a session is live
// on an open link the monitor must not touch the port at all,
// because a concurrent enumeration races the session's I/O. It is
// therefore gated on a session-active check and backs off while the
// gate is closed.
package locator
