package session

import (
	"context"
	"io"
	"time"

	"github.com/Bee1002/Odin-Flash/firmware"
	"github.com/Bee1002/Odin-Flash/link"
	"github.com/Bee1002/Odin-Flash/protocol"
)

// giantImageSize is the size at or above which a twice-stalled image is
// skipped and reported per-image instead of faulting the session, so
// a multi-image flash can continue.
const giantImageSize = 1 << 30

// flashStream runs the bulk transfer engine for one image.
//
// Chunking: 128 KiB for images above 1 MiB, control-sized otherwise.
// The payload itself is never padded; exactly img.Size bytes cross
// the wire after the DATA packet.
func (s *Session) flashStream(ctx context.Context, img *firmware.ImageStream) error {
	size := img.Size
	chunk := int64(protocol.ControlChunkSize)
	if size > protocol.BulkThreshold {
		chunk = protocol.BulkChunkSize
	}
	large := size > protocol.LargeImageSize

	if large {
		// Unbounded writes, relaxed reads; the driver needs room on
		// multi-gigabyte streams.
		if err := s.link.SetTimeouts(s.cfg.LargeReadTimeout, 0); err != nil {
			return err
		}
		defer func() {
			_ = s.link.SetTimeouts(s.cfg.ReadTimeout, s.cfg.WriteTimeout)
		}()
	}

	// The size field is 32-bit on the wire. Images beyond 4 GiB are
	// announced truncated and streamed at full length; the device is
	// known to ignore the declared size past a threshold.
	if err := s.sendCommand(protocol.CmdData, uint32(size), 0); err != nil {
		s.toFault(err)
		s.logError("DATA stream for "+img.Name, "error", err)
		return err
	}
	if err := s.requireAck("DATA start"); err != nil {
		s.toFault(err)
		s.logError("DATA stream for "+img.Name, "error", err)
		return err
	}

	s.state = StateTransferring
	err := s.pump(ctx, img, chunk)
	if err != nil {
		if ie, ok := err.(*ImageError); ok {
			// Skipped, not faulted; the session stays usable.
			ie.Image = img.Name
			s.state = StateGreeted
			s.logError("DATA stream for "+img.Name, "error", ie.Err)
			return ie
		}
		if err == ErrCancelled {
			return err
		}
		s.toFault(err)
		s.logError("DATA stream for "+img.Name, "error", err)
		return err
	}

	if large {
		// Large-file epilogue: drop whatever the device still has
		// queued and give it a quiet window before the next image.
		if err := s.link.Purge(true, true, false); err != nil {
			s.logWarn("post-transfer purge failed", "error", err)
		}
		if err := s.sleep(ctx, 500*time.Millisecond); err != nil {
			return err
		}
	}

	s.state = StateGreeted
	s.logSuccess("image sent", "image", img.Name, "bytes", size)
	return nil
}

// pump moves the payload. Stall policy: a transient I/O error hands
// control to the recovery coordinator once, after which the same
// chunk is rewritten verbatim; a second stall on that chunk skips the
// image if it is giant, otherwise it is fatal.
func (s *Session) pump(ctx context.Context, img *firmware.ImageStream, chunk int64) error {
	buf := make([]byte, chunk)

	var sent int64
	var lastEmit int64 = -1
	chunks := 0
	start := time.Now()
	lastWrite := start

	for sent < img.Size {
		if err := ctx.Err(); err != nil {
			return s.cancelled()
		}

		want := chunk
		if remaining := img.Size - sent; remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(img, buf[:want])
		if err != nil {
			return &firmware.StreamError{Name: img.Name, Err: err}
		}

		// The device assumes a hung host after a long quiet gap. If
		// the image source (disk, tar, decompressor) stalled us and
		// the device has nothing queued for us either, nudge it.
		if time.Since(lastWrite) > s.cfg.KeepAliveGap {
			if err := s.keepAlive(); err != nil {
				return err
			}
		}

		if err := s.writeChunk(ctx, buf[:n], img.Size); err != nil {
			return err
		}
		sent += int64(n)
		chunks++
		lastWrite = time.Now()

		if chunks%protocol.AckPollInterval == 0 {
			s.pollStatus()
		}

		if sent-lastEmit >= s.cfg.ProgressStep {
			s.reportProgress(Progress{
				Image:     img.Name,
				BytesSent: sent,
				Total:     img.Size,
				Elapsed:   time.Since(start),
			})
			lastEmit = sent
		}
	}

	s.reportProgress(Progress{
		Image:     img.Name,
		BytesSent: sent,
		Total:     img.Size,
		Elapsed:   time.Since(start),
	})

	// Some models ACK only here; silence is fine.
	if b, got, err := protocol.AwaitAck(s.link, s.cfg.PitIdle); err == nil && got && b != protocol.Ack {
		s.logWarn("unexpected status after stream", "byte", b)
	}
	return nil
}

// writeChunk writes one chunk with the one-recovery/one-retry budget.
func (s *Session) writeChunk(ctx context.Context, p []byte, imageSize int64) error {
	err := s.link.Write(p)
	if err == nil {
		return nil
	}

	le, ok := link.AsError(err)
	if !ok || !le.Transient() {
		return err
	}

	if rerr := s.recover(ctx, err); rerr != nil {
		return rerr
	}

	if err := s.link.Write(p); err != nil {
		if imageSize >= giantImageSize {
			return &ImageError{Err: err}
		}
		return err
	}
	return nil
}

// keepAlive sends the nudge byte, but only when the device has
// nothing buffered for us; a queued status byte takes precedence and
// is consumed as usual.
func (s *Session) keepAlive() error {
	buf := make([]byte, 1)
	n, err := s.link.ReadAvailable(buf)
	if err != nil {
		return err
	}
	if n > 0 {
		if buf[0] != protocol.Ack {
			s.logWarn("unexpected status during stream", "byte", buf[0])
		}
		return nil
	}
	s.logDebug("keep-alive")
	return s.link.Write([]byte{protocol.KeepAlive})
}

// pollStatus consumes at most one buffered status byte. Devices
// stream occasional status during bulk transfers and occasionally
// corrupt it; anything but an ACK is only worth a warning.
func (s *Session) pollStatus() {
	buf := make([]byte, 1)
	n, err := s.link.ReadAvailable(buf)
	if err != nil || n == 0 {
		return
	}
	if buf[0] != protocol.Ack {
		s.logWarn("unexpected status during stream", "byte", buf[0])
	}
}
