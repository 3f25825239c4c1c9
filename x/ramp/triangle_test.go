package ramp

import "testing"

func TestTriangle_StepsEverySpeedTicks(t *testing.T) {
	tr := NewTriangle(0, 10, 3, 5)

	for i := 0; i < 2; i++ {
		if _, changed := tr.Advance(); changed {
			t.Fatalf("level changed on tick %d, want change only on tick 3", i+1)
		}
	}
	lvl, changed := tr.Advance()
	if !changed || lvl != 6 {
		t.Fatalf("tick 3: got (%d, %v), want (6, true)", lvl, changed)
	}
}

func TestTriangle_BoundsAndDirectionFlips(t *testing.T) {
	const min, max = 2, 9
	tr := NewTriangle(min, max, 1, min)

	prev := tr.Level()
	flips := 0
	for i := 0; i < 1000; i++ {
		lvl, changed := tr.Advance()
		if lvl < min || lvl > max {
			t.Fatalf("tick %d: level %d outside [%d,%d]", i, lvl, min, max)
		}
		if !changed {
			t.Fatalf("tick %d: no step with Speed=1", i)
		}
		// A direction flip is only legal at the bounds.
		if (lvl > prev && prev == max) || (lvl < prev && prev == min) {
			t.Fatalf("tick %d: reversed away from non-bound level %d", i, prev)
		}
		if prev == max || prev == min {
			flips++
		}
		prev = lvl
	}
	if flips == 0 {
		t.Fatal("never reached a bound in 1000 ticks")
	}
}

func TestTriangle_StartClampedToBounds(t *testing.T) {
	tr := NewTriangle(10, 20, 1, 250)
	if got := tr.Level(); got != 20 {
		t.Fatalf("start level = %d, want clamped to 20", got)
	}
}

func TestTriangle_ZeroSpeedActsAsOne(t *testing.T) {
	tr := NewTriangle(0, 5, 0, 0)
	if lvl, changed := tr.Advance(); !changed || lvl != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", lvl, changed)
	}
}
