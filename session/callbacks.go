package session

import "time"

// Progress reports the state of a running image upload.
type Progress struct {
	// Image is the logical name of the image being sent
	Image string

	// BytesSent is the payload byte count delivered so far
	BytesSent int64

	// Total is the full payload size of the image
	Total int64

	// Elapsed is the time since the DATA command was accepted
	Elapsed time.Duration
}

// ProgressCallback is invoked on the transfer goroutine at most once
// per MiB of payload and always at completion. Implementations must
// return quickly; a slow observer stalls the wire and trips the
// device's host-hung detection.
type ProgressCallback func(Progress)

// Logger is the observation surface for session diagnostics. All
// methods take a message plus optional key-value pairs, so any
// structured logging framework adapts in a few lines.
type Logger interface {
	// Debug logs wire-level detail
	Debug(msg string, keysAndValues ...interface{})

	// Info logs normal lifecycle progress
	Info(msg string, keysAndValues ...interface{})

	// Warn logs oddities the session survived
	Warn(msg string, keysAndValues ...interface{})

	// Error logs a failed stage
	Error(msg string, keysAndValues ...interface{})

	// Success logs a completed stage verdict
	Success(msg string, keysAndValues ...interface{})
}

func (s *Session) logDebug(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, kv...)
	}
}

func (s *Session) logInfo(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, kv...)
	}
}

func (s *Session) logWarn(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn(msg, kv...)
	}
}

func (s *Session) logError(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Error(msg, kv...)
	}
}

func (s *Session) logSuccess(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Success(msg, kv...)
	}
}

func (s *Session) reportProgress(p Progress) {
	if s.cfg.ProgressCallback != nil {
		s.cfg.ProgressCallback(p)
	}
}
