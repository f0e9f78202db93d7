// Package dcf77 decodes the DCF77 longwave time signal from boolean
// amplitude samples taken at a fixed 10 ms cadence.
//
// Two pieces work in sequence: a Decoder turns the sampled waveform into a
// 59-bit frame register one second at a time, and a Timeframe interprets a
// completed register into parity- and range-validated calendar fields.
// This package has NO external dependencies (no GPIO, MQTT, OS, or clocks);
// the caller owns the sampling cadence.
package dcf77

// state enumerates the decoder phases. bitReceived, faultyBit and endOfCycle
// are visible through the query methods for exactly one sample before the
// next call folds them back into phase detection.
type state int

const (
	waitingForPhase state = iota
	phaseFound
	bitReceived
	faultyBit
	endOfCycle
	idle
)

// Config holds the sample-count thresholds of the bit discriminator. The
// defaults encode the DCF77 timing at a 10 ms sample period: a second's bit
// is signalled by 100 ms (0) or 200 ms (1) of carrier reduction within its
// 1000 ms slot, and the missing 59th pulse leaves ~1.8 s of silence before
// the next minute.
type Config struct {
	// PhaseTimeout is the number of consecutive low samples in phase
	// detection beyond which the minute gap is declared.
	PhaseTimeout int
	// DecisionAt is the sample index, counted from the rising edge, at
	// which the bit value is decided.
	DecisionAt int
	// WindowSplit divides the scan phase into the zero window
	// [0,WindowSplit) and the one window [WindowSplit,DecisionAt).
	WindowSplit int
	// MinWindowHighs is the high-sample count a window must exceed to
	// claim the bit.
	MinWindowHighs int
	// SettleAt is the sample index at which the settle window closes and
	// phase detection resumes.
	SettleAt int
	// MaxSettleHighs is the high-sample count in the settle window at
	// which the bit period is judged corrupted.
	MaxSettleHighs int
}

// DefaultConfig returns the protocol thresholds for the nominal 10 ms
// sample period.
func DefaultConfig() Config {
	return Config{
		PhaseTimeout:   180,
		DecisionAt:     20,
		WindowSplit:    10,
		MinWindowHighs: 3,
		SettleAt:       90,
		MaxSettleHighs: 10,
	}
}

// Decoder is a sample-driven state machine that accumulates DCF77 bits into
// a 59-bit frame register. Feed it one sample per period via SubmitSample
// and inspect the query methods after each call. The zero Decoder is not
// usable; create instances with NewDecoder. A Decoder is not safe for
// concurrent use; run one instance per receiver.
type Decoder struct {
	cfg Config

	// Samples since the last rising edge. Keeps counting through the
	// settle window and back into phase detection, so the minute-gap
	// timeout measures silence from the previous bit's edge.
	sampleCount int
	// High samples in the first scan window of the current bit.
	zeroHighs int
	// High samples in the second scan window of the current bit.
	oneHighs int
	// High samples seen while riding out the settled part of the slot.
	strayHighs int

	state state
	frame uint64
	pos   int
}

// NewDecoder returns a decoder in phase detection with an empty register.
func NewDecoder(cfg Config) *Decoder {
	return &Decoder{cfg: cfg}
}

// SubmitSample feeds one amplitude sample (true = carrier reduced). Call it
// exactly once per sample period; the Config thresholds absorb bounded
// jitter but assume the cadence is kept. It never allocates.
func (d *Decoder) SubmitSample(high bool) {
	switch d.state {
	case waitingForPhase, faultyBit, endOfCycle:
		d.state = d.detectPhase(high)
	case phaseFound:
		d.state = d.scanBit(high)
	case bitReceived, idle:
		d.state = d.settle(high)
	}
	d.sampleCount++
}

// detectPhase waits for the rising edge that starts a bit. The edge sample
// itself lands in the zero window. An unbroken low run longer than
// PhaseTimeout is the minute gap: the register position rewinds to zero and
// the cycle boundary is reported for one sample.
func (d *Decoder) detectPhase(high bool) state {
	if high {
		d.zeroHighs = 1
		d.oneHighs = 0
		d.strayHighs = 0
		d.sampleCount = 0
		return phaseFound
	}
	if d.sampleCount > d.cfg.PhaseTimeout {
		d.pos = 0
		d.sampleCount = 0
		return endOfCycle
	}
	return waitingForPhase
}

// scanBit tallies high samples into the two scan windows and decides the
// bit value at DecisionAt. The one window wins ties against the zero window
// since a transmitted 1 keeps the carrier reduced through both. A decided
// bit overwrites the register at the current position, so stale bits from a
// previous minute never survive a completed slot.
func (d *Decoder) scanBit(high bool) state {
	if d.sampleCount < d.cfg.DecisionAt {
		if high {
			if d.sampleCount < d.cfg.WindowSplit {
				d.zeroHighs++
			} else {
				d.oneHighs++
			}
		}
		return phaseFound
	}

	pos := d.pos
	d.pos++
	switch {
	case d.oneHighs > d.cfg.MinWindowHighs:
		d.frame |= 1 << pos
		return bitReceived
	case d.zeroHighs > d.cfg.MinWindowHighs:
		d.frame &^= 1 << pos
		return bitReceived
	default:
		// Neither window carried a pulse. Drop the minute in progress
		// and resynchronize at the next clean edge.
		d.pos = 0
		return faultyBit
	}
}

// settle rides out the remainder of the bit slot. The slot should stay low
// after the pulse; too many stray highs by SettleAt mean the decided bit
// cannot be trusted and the minute is dropped.
func (d *Decoder) settle(high bool) state {
	if high {
		d.strayHighs++
	}
	if d.sampleCount >= d.cfg.SettleAt {
		if d.strayHighs < d.cfg.MaxSettleHighs {
			return waitingForPhase
		}
		d.pos = 0
		return faultyBit
	}
	return idle
}

// BitComplete reports whether the last sample finalized a bit.
func (d *Decoder) BitComplete() bool {
	return d.state == bitReceived
}

// BitFaulty reports whether the last sample judged the current bit
// unreadable and reset the frame position.
func (d *Decoder) BitFaulty() bool {
	return d.state == faultyBit
}

// EndOfCycle reports whether the last sample detected the minute gap. The
// register then holds the full frame of the minute just ended; snapshot it
// with RawFrame before feeding further samples.
func (d *Decoder) EndOfCycle() bool {
	return d.state == endOfCycle
}

// LatestBit returns the value of the most recently decoded bit. ok is false
// when no bit has been decoded since the last cycle boundary or fault.
func (d *Decoder) LatestBit() (value, ok bool) {
	if d.pos == 0 {
		return false, false
	}
	return d.frame&(1<<(d.pos-1)) != 0, true
}

// Second returns the current frame position, which doubles as the current
// second of the minute once a cycle boundary has been seen.
func (d *Decoder) Second() int {
	return d.pos
}

// RawFrame returns the accumulated register, bit 0 = first bit of the
// minute. Hand it to NewTimeframe when EndOfCycle reports true.
func (d *Decoder) RawFrame() uint64 {
	return d.frame
}
