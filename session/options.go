package session

import "time"

// Config holds the session configuration.
type Config struct {
	// Logger receives session diagnostics (optional)
	Logger Logger

	// ProgressCallback is called during uploads (optional)
	ProgressCallback ProgressCallback

	// ReadTimeout is the read deadline outside large transfers
	ReadTimeout time.Duration

	// WriteTimeout is the write deadline outside large transfers
	WriteTimeout time.Duration

	// LargeReadTimeout replaces ReadTimeout while an image above the
	// large-image threshold is streaming.
	LargeReadTimeout time.Duration

	// HandshakeTimeout bounds the wait for the LOKE/ACK greeting
	HandshakeTimeout time.Duration

	// AckTimeout bounds the wait for a mandatory acknowledgement
	AckTimeout time.Duration

	// PitIdle is the quiet window that terminates a PIT read
	PitIdle time.Duration

	// StabilityDelay is the wait after the last PIT segment for the
	// flash controller to finish repartitioning.
	StabilityDelay time.Duration

	// RecoveryDelay is the wait after a purge before re-greeting
	RecoveryDelay time.Duration

	// KeepAliveGap is the idle span between writes after which a
	// keep-alive byte precedes the next chunk.
	KeepAliveGap time.Duration

	// ProgressStep is the minimum payload delta between progress
	// emissions.
	ProgressStep int64
}

func defaultConfig() Config {
	return Config{
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		LargeReadTimeout: 10 * time.Second,
		HandshakeTimeout: time.Second,
		AckTimeout:       time.Second,
		PitIdle:          200 * time.Millisecond,
		StabilityDelay:   time.Second,
		RecoveryDelay:    500 * time.Millisecond,
		KeepAliveGap:     400 * time.Millisecond,
		ProgressStep:     1 << 20,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets the diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets the upload progress observer.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = cb
	}
}

// WithReadTimeout sets the read deadline used outside large
// transfers.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReadTimeout = d
		}
	}
}

// WithWriteTimeout sets the write deadline used outside large
// transfers.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WriteTimeout = d
		}
	}
}

// WithHandshakeTimeout sets the greeting deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HandshakeTimeout = d
		}
	}
}

// WithStabilityDelay sets the post-PIT-write settling window. Some
// device generations repartition slowly; raising this is safer than
// lowering it.
func WithStabilityDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StabilityDelay = d
		}
	}
}
