package hunter

import "time"

// Wire timing. The receiving firmware is fixed; these values must be
// reproduced exactly.
const (
	resetHigh     = 325 * time.Millisecond
	resetLow      = 65 * time.Millisecond
	startInterval = 900 * time.Microsecond
	shortInterval = 208 * time.Microsecond
	longInterval  = 1875 * time.Microsecond
)

// Line is the single digital output driving the bus. Rest state is low.
type Line interface {
	Set(high bool)
}

// Transmitter owns the bus line for the duration of one Send. It provides
// no queuing or locking: callers serialize transmissions themselves;
// overlapping Sends corrupt the wire with no way to detect it.
type Transmitter struct {
	line  Line
	sleep func(time.Duration)
}

func NewTransmitter(line Line) *Transmitter {
	return &Transmitter{line: line, sleep: time.Sleep}
}

// pulse drives one high phase then one low phase. The durations are the
// data; a bit is distinguished only by which phase is long.
func (t *Transmitter) pulse(high, low time.Duration) {
	t.line.Set(true)
	t.sleep(high)
	t.line.Set(false)
	t.sleep(low)
}

func (t *Transmitter) writeBit(one bool) {
	if one {
		t.pulse(longInterval, shortInterval)
	} else {
		t.pulse(shortInterval, longInterval)
	}
}

// Send clocks a frame onto the bus: reset, start, the bit stream MSB-first
// byte by byte, an optional trailing "1" (zone commands) and a stop "0".
// It blocks the calling goroutine for the whole sequence (~630 ms for a
// zone frame) and must not be preempted mid-stream — the timing is the
// encoding, and the unit gives no feedback if it is corrupted.
func (t *Transmitter) Send(f Frame, trailingOne bool) {
	// Reset wakes the unit.
	t.pulse(resetHigh, resetLow)
	t.pulse(startInterval, shortInterval)

	for _, b := range f {
		for i := 0; i < 8; i++ {
			t.writeBit(b&0x80 != 0)
			b <<= 1
		}
	}

	if trailingOne {
		t.writeBit(true)
	}
	t.writeBit(false)
}
