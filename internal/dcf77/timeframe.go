package dcf77

import (
	"errors"
	"math/bits"
	"time"
)

// ErrInvalid is returned by every checked accessor when a marker, parity or
// range check fails. Callers that need the offending raw value fall back to
// the unchecked accessor of the same field.
var ErrInvalid = errors.New("dcf77: invalid timeframe field")

// Frame bit layout, bit 0 = first received bit of the minute. Field ranges
// are inclusive; each parity bit covers the range named before it.
const (
	startBit      = 0
	cestBit       = 17
	cetBit        = 18
	minuteStart   = 21
	minuteEnd     = 27
	minuteParity  = 28
	hourStart     = 29
	hourEnd       = 34
	hourParity    = 35
	dayStart      = 36
	dayEnd        = 41
	weekdayStart  = 42
	weekdayEnd    = 44
	monthStart    = 45
	monthEnd      = 49
	yearStart     = 50
	yearEnd       = 57
	dateParityBit = 58
)

// Timeframe is an immutable snapshot of a completed 59-bit frame register.
// Every accessor is a pure function of the raw value and re-decodes on each
// call; checked accessors return ErrInvalid instead of a best-effort value.
type Timeframe uint64

// NewTimeframe wraps a raw register snapshot, typically Decoder.RawFrame
// taken while EndOfCycle reports true.
func NewTimeframe(raw uint64) Timeframe {
	return Timeframe(raw)
}

// Date is the combined calendar part of a frame, validated as one unit.
type Date struct {
	Year    int
	Month   int
	Day     int
	Weekday int // 1 = Monday .. 7 = Sunday
}

func (t Timeframe) bit(pos int) bool {
	return t&(1<<pos) != 0
}

// bcd2 decodes the inclusive bit range as two BCD nibbles into tens*10 plus
// units. Nibble values above 9 are not corrected here; the range checks in
// the checked accessors catch the garbage they produce.
func (t Timeframe) bcd2(start, end int) int {
	bcd := (uint64(t) >> start) & (1<<(end-start+1) - 1)
	return int(bcd>>4&0x0F)*10 + int(bcd&0x0F)
}

// parity computes even parity over the inclusive bit range.
func (t Timeframe) parity(start, end int) bool {
	mask := uint64(1)<<(end-start+1) - 1
	return bits.OnesCount64(uint64(t)>>start&mask)%2 == 1
}

// StartBit returns the raw value of bit 0 without verification. A real
// frame transmits it as zero.
func (t Timeframe) StartBit() bool {
	return t.bit(startBit)
}

// ValidateStart checks the frame-level precondition that the start bit is
// zero. Check it once before trusting any other field of the frame.
func (t Timeframe) ValidateStart() error {
	if t.bit(startBit) {
		return ErrInvalid
	}
	return nil
}

// CESTUnchecked reports the summer-time flag without verification.
func (t Timeframe) CESTUnchecked() bool {
	return t.bit(cestBit)
}

// CEST reports the summer-time flag, verified against its complement:
// exactly one of the CEST and CET bits must be set.
func (t Timeframe) CEST() (bool, error) {
	cest := t.CESTUnchecked()
	if t.bit(cetBit) == cest {
		return false, ErrInvalid
	}
	return cest, nil
}

// MinutesUnchecked decodes the minutes field without verification.
func (t Timeframe) MinutesUnchecked() int {
	return t.bcd2(minuteStart, minuteEnd)
}

// Minutes decodes the minutes field, verifying its parity bit and that the
// value is a valid minute of the hour.
func (t Timeframe) Minutes() (int, error) {
	m := t.MinutesUnchecked()
	if t.parity(minuteStart, minuteEnd) != t.bit(minuteParity) || m > 59 {
		return 0, ErrInvalid
	}
	return m, nil
}

// HoursUnchecked decodes the hours field without verification.
func (t Timeframe) HoursUnchecked() int {
	return t.bcd2(hourStart, hourEnd)
}

// Hours decodes the hours field, verifying its parity bit and that the
// value is a valid hour of the day.
func (t Timeframe) Hours() (int, error) {
	h := t.HoursUnchecked()
	if t.parity(hourStart, hourEnd) != t.bit(hourParity) || h > 23 {
		return 0, ErrInvalid
	}
	return h, nil
}

// DayUnchecked decodes the day-of-month field without verification.
func (t Timeframe) DayUnchecked() int {
	return t.bcd2(dayStart, dayEnd)
}

// Day decodes the day of month with a range check. The date fields share
// one parity bit, verified by Date rather than per field.
func (t Timeframe) Day() (int, error) {
	d := t.DayUnchecked()
	if d > 31 {
		return 0, ErrInvalid
	}
	return d, nil
}

// WeekdayUnchecked decodes the weekday field without verification,
// 1 meaning Monday through 7 meaning Sunday.
func (t Timeframe) WeekdayUnchecked() int {
	return t.bcd2(weekdayStart, weekdayEnd)
}

// Weekday decodes the weekday with a range check.
func (t Timeframe) Weekday() (int, error) {
	wd := t.WeekdayUnchecked()
	if wd > 7 {
		return 0, ErrInvalid
	}
	return wd, nil
}

// MonthUnchecked decodes the month field without verification.
func (t Timeframe) MonthUnchecked() int {
	return t.bcd2(monthStart, monthEnd)
}

// Month decodes the month with a range check.
func (t Timeframe) Month() (int, error) {
	m := t.MonthUnchecked()
	if m > 12 {
		return 0, ErrInvalid
	}
	return m, nil
}

// YearUnchecked decodes the two-digit year field and adds the century.
func (t Timeframe) YearUnchecked() int {
	return 2000 + t.bcd2(yearStart, yearEnd)
}

// Year decodes the year with a range check.
func (t Timeframe) Year() (int, error) {
	y := t.YearUnchecked()
	if y > 2100 {
		return 0, ErrInvalid
	}
	return y, nil
}

// Date decodes day, weekday, month and year as one atomic unit, gated on
// the date parity bit covering bits 36-57. No partial date is returned on
// failure.
func (t Timeframe) Date() (Date, error) {
	if t.parity(dayStart, yearEnd) != t.bit(dateParityBit) {
		return Date{}, ErrInvalid
	}
	d := Date{
		Year:    t.YearUnchecked(),
		Month:   t.MonthUnchecked(),
		Day:     t.DayUnchecked(),
		Weekday: t.WeekdayUnchecked(),
	}
	if d.Year > 2100 || d.Month > 12 || d.Day > 31 || d.Weekday > 7 {
		return Date{}, ErrInvalid
	}
	return d, nil
}

// Time assembles the whole frame into a time.Time in the zone the CEST/CET
// flags select, running every check the individual accessors run. Seconds
// are zero: DCF77 announces the time of the minute that begins at the
// upcoming minute mark.
func (t Timeframe) Time() (time.Time, error) {
	if err := t.ValidateStart(); err != nil {
		return time.Time{}, err
	}
	cest, err := t.CEST()
	if err != nil {
		return time.Time{}, err
	}
	min, err := t.Minutes()
	if err != nil {
		return time.Time{}, err
	}
	hour, err := t.Hours()
	if err != nil {
		return time.Time{}, err
	}
	d, err := t.Date()
	if err != nil {
		return time.Time{}, err
	}
	loc := time.FixedZone("CET", 3600)
	if cest {
		loc = time.FixedZone("CEST", 2*3600)
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, hour, min, 0, 0, loc), nil
}
