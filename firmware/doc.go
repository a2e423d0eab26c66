// Package firmware supplies the image sources a flashing session
// consumes: plain files, entries streamed out of a ustar firmware
// archive, and LZ4-compressed entries spooled to their true size.
//
// Everything is expressed as an ImageStream: a named, bounded reader
// that yields at most its logical size and then EOF. Sessions rely on
// that bound: the DATA command announces the byte count up front and
// the device expects precisely that many payload bytes. A source that
// runs short ends the stream early, and the session reports that as a
// StreamError.
//
// The package also owns the minimal PIT handling the host needs: a
// plausibility check for candidate PIT blobs and the timestamped
// backup writer. Structural PIT parsing is deliberately absent.
package firmware
