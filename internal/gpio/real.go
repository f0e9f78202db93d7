//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the receiver line from actual hardware using the Linux
// GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	invert bool
}

// NewRealReader requests the receiver pin on the named chip. invert flips
// the raw level for modules with an open-collector (active-low) output, so
// Read always reports true while the carrier is reduced.
func NewRealReader(chipName string, pin int, invert bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Open-collector receiver modules need the line pulled up; push-pull
	// modules are unaffected.
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request receiver pin %d: %w", pin, err)
	}

	return &RealReader{
		chip:   chip,
		line:   line,
		invert: invert,
	}, nil
}

// Read returns the logical signal level, true while the carrier is reduced.
func (r *RealReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read receiver pin: %w", err)
	}

	high := raw != 0
	if r.invert {
		high = !high
	}
	return high, nil
}

// Close releases the line and the chip. The line is returned to a plain
// input first so the pull-up bias does not outlive the process.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure receiver pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close receiver pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
