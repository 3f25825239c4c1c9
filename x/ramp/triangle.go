package ramp

// Triangle is an integer triangular-wave generator for LED breathing.
// Each call to Advance counts one timer tick; every Speed ticks the
// level moves one step in the current direction, reversing exactly at
// Min and Max.
type Triangle struct {
	Min   uint8
	Max   uint8
	Speed uint8 // ticks per level step; 0 behaves as 1

	level uint8
	dir   int8
	phase uint8
}

// NewTriangle starts a generator at the given level, ramping upward.
func NewTriangle(min, max, speed, start uint8) *Triangle {
	if max < min {
		min, max = max, min
	}
	if start < min {
		start = min
	}
	if start > max {
		start = max
	}
	return &Triangle{Min: min, Max: max, Speed: speed, level: start, dir: 1}
}

// Level returns the current output level.
func (t *Triangle) Level() uint8 { return t.level }

// Advance consumes one tick. It returns the current level and whether
// the level changed on this tick.
func (t *Triangle) Advance() (uint8, bool) {
	speed := t.Speed
	if speed == 0 {
		speed = 1
	}
	t.phase++
	if t.phase < speed {
		return t.level, false
	}
	t.phase = 0

	next := int16(t.level) + int16(t.dir)
	if next > int16(t.Max) {
		next = int16(t.Max)
	}
	if next < int16(t.Min) {
		next = int16(t.Min)
	}
	t.level = uint8(next)

	if t.level >= t.Max {
		t.dir = -1
	} else if t.level <= t.Min {
		t.dir = 1
	}
	return t.level, true
}
