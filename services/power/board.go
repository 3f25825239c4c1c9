// services/power/board.go
package power

import (
	"time"

	"powerctl-go/types"
)

// The controller never touches hardware directly; it talks to the
// small capability set below. Backends live under hw/ (simio for host
// tests and the simulator, linuxio/i2cadc for real pins and the ADC).

// DigitalInput reports the logical level of one input line.
// Electrical inversion (the charge-status line is active-low) is the
// backend's business; the controller only sees logical levels.
type DigitalInput interface {
	Get() bool
}

// LEDLine is a logical on/off LED output. Active-low wiring is handled
// by the backend.
type LEDLine interface {
	Set(on bool)
	Toggle()
	Get() bool
}

// OutputEnableLine models the bidirectional regulator-enable pin: the
// controller can drive it, release it to high impedance (leaving it to
// the external switch), and observe its electrical level.
type OutputEnableLine interface {
	Drive(level bool)
	Release()
	Observed() bool
}

// PWMOutput is the timer-driven LED brightness channel. While enabled
// it delivers ticks; the controller advances the breathing ramp on
// each tick and writes the new duty back. Attach selects the line the
// channel modulates: the breathing LED differs per mode.
type PWMOutput interface {
	Attach(set func(on bool))
	Enable(on bool)
	SetDuty(level uint8)
	Ticks() <-chan struct{}
}

// AnalogChannel is the internal-reference ADC channel. Convert starts
// a single conversion; completed raw codes arrive on Results. Convert
// while disabled produces nothing.
type AnalogChannel interface {
	Enable()
	Disable()
	Convert()
	Results() <-chan uint16
}

// SleepController selects the retention level re-entered after each
// event is serviced.
type SleepController interface {
	SetDepth(d types.SleepDepth)
}

// WakeTimer is the periodic wake source driving mode evaluation.
type WakeTimer interface {
	SetPeriod(p types.WakePeriod)
	Wakeups() <-chan struct{}
}

// Board groups the capabilities the controller runs against.
type Board struct {
	USBPresent DigitalInput
	Charging   DigitalInput // logical: true = charge current flowing
	Output     OutputEnableLine
	Red        LEDLine
	Green      LEDLine
	PWM        PWMOutput
	Analog     AnalogChannel
	Sleep      SleepController
	Wake       WakeTimer

	// Settle runs between releasing the enable line and re-reading it
	// in the cutoff re-check. Defaults to a 5 µs wait.
	Settle func()
}

func (b *Board) settle() {
	if b.Settle != nil {
		b.Settle()
		return
	}
	time.Sleep(5 * time.Microsecond)
}
