package protocol

// PacketSize is the fixed size of every control packet in bytes.
// The device rejects short frames, so packets are always zero-padded
// to exactly this length.
const PacketSize = 500

// CommandSize is the length of the ASCII command word at the start of
// a control packet.
const CommandSize = 4

// Wire bytes.
const (
	// Ack is the positive acknowledgement byte sent by the device.
	Ack = 0x06

	// KeepAlive is the single byte written to the device when the host
	// stalls between bulk chunks, so the device does not assume the
	// host has hung.
	KeepAlive = 0x64
)

// GreetingReply is the four-byte ASCII answer to the ODIN handshake.
const GreetingReply = "LOKE"

// Chunk sizes for the two payload regimes.
const (
	// ControlChunkSize is the chunk size for PIT payload (zero-padded)
	// and for images at or below BulkThreshold (not padded).
	ControlChunkSize = PacketSize

	// BulkChunkSize is the raw chunk size for image payload.
	// Larger chunks saturate the host-side driver.
	BulkChunkSize = 128 * 1024

	// BulkThreshold is the image size above which the engine switches
	// from control-sized to bulk chunks.
	BulkThreshold = 1 << 20

	// LargeImageSize is the image size above which the engine runs the
	// post-transfer epilogue (purge plus settling delay) and relaxes
	// the link timeouts.
	LargeImageSize = 100 << 20
)

// AckPollInterval is the bulk-chunk cadence at which the engine polls
// for a buffered status byte.
const AckPollInterval = 10
