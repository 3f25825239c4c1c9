// hw/i2cadc/i2cadc_test.go
package i2cadc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"powerctl-go/errcode"
)

// fakeDev completes conversions on the poll after StartSingle.
type fakeDev struct {
	mu      sync.Mutex
	uv      int32
	busy    bool
	starts  int
	failSS  bool
	neverOK bool
}

func (f *fakeDev) StartSingle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSS {
		return errFake
	}
	f.busy = true
	f.starts++
	return nil
}

func (f *fakeDev) Ready() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.neverOK {
		return false, nil
	}
	if f.busy {
		f.busy = false
		return false, nil
	}
	return true, nil
}

func (f *fakeDev) ReadRaw() (int16, error) { return 1000, nil }

func (f *fakeDev) MicroVolts(raw int16) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uv
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFake = fakeErr("fake i2c failure")

func testChannel(dev converter) *Channel {
	return NewChannel(dev, Config{
		PollInterval:      100 * time.Microsecond,
		ConversionTimeout: 20 * time.Millisecond,
	})
}

func TestChannel_CodeInvertsToMilliVolts(t *testing.T) {
	// 3.35 V at the input: the delivered code must round-trip through
	// the controller's mV = K / code conversion.
	dev := &fakeDev{uv: 3350000}
	ch := testChannel(dev)
	defer ch.Stop()

	ch.Enable()
	ch.Convert()

	select {
	case code := <-ch.Results():
		mv := uint32(1126400) / uint32(code)
		if mv < 3340 || mv > 3360 {
			t.Fatalf("code %d maps to %d mV, want ~3350", code, mv)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestChannel_DividerScaling(t *testing.T) {
	// 2:1 divider: 1.675 V measured means 3.35 V at the battery.
	dev := &fakeDev{uv: 1675000}
	ch := NewChannel(dev, Config{
		DividerNum:        2,
		DividerDen:        1,
		PollInterval:      100 * time.Microsecond,
		ConversionTimeout: 20 * time.Millisecond,
	})
	defer ch.Stop()

	ch.Enable()
	ch.Convert()

	select {
	case code := <-ch.Results():
		mv := uint32(1126400) / uint32(code)
		if mv < 3340 || mv > 3360 {
			t.Fatalf("code %d maps to %d mV, want ~3350", code, mv)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestChannel_DisabledDropsRequests(t *testing.T) {
	dev := &fakeDev{uv: 3350000}
	ch := testChannel(dev)
	defer ch.Stop()

	ch.Convert() // never enabled

	select {
	case <-ch.Results():
		t.Fatal("disabled channel delivered a result")
	case <-time.After(20 * time.Millisecond):
	}

	dev.mu.Lock()
	starts := dev.starts
	dev.mu.Unlock()
	if starts != 0 {
		t.Fatalf("conversion started while disabled: %d", starts)
	}
}

func TestChannel_StartFailureDropsConversion(t *testing.T) {
	dev := &fakeDev{failSS: true}
	ch := testChannel(dev)
	defer ch.Stop()

	ch.Enable()
	ch.Convert()

	select {
	case <-ch.Results():
		t.Fatal("failed conversion delivered a result")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestChannel_TimeoutDropsConversion(t *testing.T) {
	dev := &fakeDev{neverOK: true}
	ch := NewChannel(dev, Config{
		PollInterval:      100 * time.Microsecond,
		ConversionTimeout: 5 * time.Millisecond,
	})
	defer ch.Stop()

	ch.Enable()
	ch.Convert()

	select {
	case <-ch.Results():
		t.Fatal("timed-out conversion delivered a result")
	case <-time.After(50 * time.Millisecond):
	}

	deadline := time.Now().Add(time.Second)
	for !errors.Is(ch.Err(), errcode.Timeout) {
		if time.Now().After(deadline) {
			t.Fatalf("Err() = %v, want %v", ch.Err(), errcode.Timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestChannel_ErrClearsOnSuccess(t *testing.T) {
	dev := &fakeDev{neverOK: true, uv: 3350000}
	ch := NewChannel(dev, Config{
		PollInterval:      100 * time.Microsecond,
		ConversionTimeout: 5 * time.Millisecond,
	})
	defer ch.Stop()

	ch.Enable()
	ch.Convert()
	deadline := time.Now().Add(time.Second)
	for !errors.Is(ch.Err(), errcode.Timeout) {
		if time.Now().After(deadline) {
			t.Fatalf("Err() = %v, want %v", ch.Err(), errcode.Timeout)
		}
		time.Sleep(time.Millisecond)
	}

	dev.mu.Lock()
	dev.neverOK = false
	dev.mu.Unlock()

	ch.Convert()
	select {
	case <-ch.Results():
	case <-time.After(time.Second):
		t.Fatal("no result delivered after recovery")
	}
	if err := ch.Err(); err != nil {
		t.Fatalf("Err() after a delivered code = %v, want nil", err)
	}
}

func TestChannel_ZeroInputClamped(t *testing.T) {
	dev := &fakeDev{uv: 0}
	ch := testChannel(dev)
	defer ch.Stop()

	ch.Enable()
	ch.Convert()

	select {
	case code := <-ch.Results():
		if code != 0xFFFF {
			t.Fatalf("code for a grounded input = %d, want saturation", code)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}
