// Package gpio provides access to the receiver output line with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device. The fake implementation allows testing without hardware.
package gpio

// Reader reads the demodulated receiver output line.
type Reader interface {
	// Read returns the logical signal level: true means the carrier is
	// reduced (a pulse is in progress). Module polarity is handled by
	// the implementation, so callers never see the raw electrical level.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a receiver module wired to a Raspberry Pi header (BCM
// numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 4
)
