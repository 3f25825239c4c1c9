// hw/simio/simio.go

// Package simio provides deterministic host-side implementations of
// the power controller's board capabilities: settable input pins, an
// ADC fed from scripted conversion codes, a recording PWM channel,
// and manually stepped wake/tick sources. Tests and the simulator
// drive these; nothing here touches hardware.
package simio

import (
	"sync"

	"powerctl-go/types"
)

// ----------------------------- input pins ------------------------------------

// InputPin is a digital input whose level the test sets.
type InputPin struct {
	mu    sync.Mutex
	level bool
}

func NewInputPin(initial bool) *InputPin { return &InputPin{level: initial} }

func (p *InputPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// SetLevel drives the external side of the pin.
func (p *InputPin) SetLevel(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// ----------------------------- LED pins --------------------------------------

// LEDPin records the logical LED level plus every transition.
type LEDPin struct {
	mu      sync.Mutex
	level   bool
	Writes  int // Set/Toggle calls that changed the level
	history []bool
}

func NewLEDPin() *LEDPin { return &LEDPin{} }

func (p *LEDPin) Set(on bool) {
	p.mu.Lock()
	if p.level != on {
		p.Writes++
		p.history = append(p.history, on)
	}
	p.level = on
	p.mu.Unlock()
}

func (p *LEDPin) Toggle() { p.Set(!p.Get()) }

func (p *LEDPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// History returns the level after each recorded change.
func (p *LEDPin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(p.history))
	copy(out, p.history)
	return out
}

// ----------------------------- enable line -----------------------------------

// EnableLine models the bidirectional output-enable pin. While driven,
// the observed level is the driven one; released, the external switch
// level shows through.
type EnableLine struct {
	mu       sync.Mutex
	external bool // level imposed by the external switch
	driven   bool
	driveLvl bool

	Drives   int
	Releases int
}

func NewEnableLine(external bool) *EnableLine { return &EnableLine{external: external} }

func (l *EnableLine) Drive(level bool) {
	l.mu.Lock()
	l.driven = true
	l.driveLvl = level
	l.Drives++
	l.mu.Unlock()
}

func (l *EnableLine) Release() {
	l.mu.Lock()
	l.driven = false
	l.Releases++
	l.mu.Unlock()
}

func (l *EnableLine) Observed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.driven {
		return l.driveLvl
	}
	return l.external
}

// SetExternal flips the external switch side.
func (l *EnableLine) SetExternal(on bool) {
	l.mu.Lock()
	l.external = on
	l.mu.Unlock()
}

// Driven reports whether the controller currently drives the line,
// and at which level.
func (l *EnableLine) Driven() (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.driven, l.driveLvl
}

// ----------------------------- ADC -------------------------------------------

// ADC delivers scripted raw codes, one per Convert call, in order.
// Once the script is exhausted the last code repeats. Convert while
// disabled produces nothing, like a conversion-start with the
// subsystem powered down.
type ADC struct {
	mu      sync.Mutex
	codes   []uint16
	next    int
	enabled bool

	Conversions int
	Enables     int
	Disables    int

	results chan uint16
}

func NewADC(codes ...uint16) *ADC {
	return &ADC{codes: codes, results: make(chan uint16, 32)}
}

// Script replaces the remaining scripted codes.
func (a *ADC) Script(codes ...uint16) {
	a.mu.Lock()
	a.codes = codes
	a.next = 0
	a.mu.Unlock()
}

func (a *ADC) Enable() {
	a.mu.Lock()
	a.enabled = true
	a.Enables++
	a.mu.Unlock()
}

func (a *ADC) Disable() {
	a.mu.Lock()
	a.enabled = false
	a.Disables++
	a.mu.Unlock()
}

func (a *ADC) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *ADC) Convert() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled || len(a.codes) == 0 {
		return
	}
	a.Conversions++
	code := a.codes[a.next]
	if a.next < len(a.codes)-1 {
		a.next++
	}
	select {
	case a.results <- code:
	default:
	}
}

func (a *ADC) Results() <-chan uint16 { return a.results }

// ----------------------------- PWM channel -----------------------------------

// PWM records duty writes and lets the test inject timer ticks. The
// attached line is not modulated on a timer; Drive lets a test pulse
// it and observe which LED the channel currently targets.
type PWM struct {
	mu      sync.Mutex
	enabled bool
	duty    uint8
	duties  []uint8
	set     func(on bool)

	Attaches int

	ticks chan struct{}
}

func NewPWM() *PWM { return &PWM{ticks: make(chan struct{}, 32)} }

func (p *PWM) Attach(set func(on bool)) {
	p.mu.Lock()
	p.set = set
	p.Attaches++
	p.mu.Unlock()
}

// Drive sets the attached line to the given level.
func (p *PWM) Drive(on bool) {
	p.mu.Lock()
	set := p.set
	p.mu.Unlock()
	if set != nil {
		set(on)
	}
}

func (p *PWM) Enable(on bool) {
	p.mu.Lock()
	p.enabled = on
	p.mu.Unlock()
}

func (p *PWM) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *PWM) SetDuty(level uint8) {
	p.mu.Lock()
	p.duty = level
	p.duties = append(p.duties, level)
	p.mu.Unlock()
}

func (p *PWM) Duty() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// Duties returns every duty written so far.
func (p *PWM) Duties() []uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint8, len(p.duties))
	copy(out, p.duties)
	return out
}

// Tick injects one PWM timer tick.
func (p *PWM) Tick() {
	select {
	case p.ticks <- struct{}{}:
	default:
	}
}

func (p *PWM) Ticks() <-chan struct{} { return p.ticks }

// ----------------------------- sleep controller ------------------------------

// Sleep records depth selections.
type Sleep struct {
	mu      sync.Mutex
	depth   types.SleepDepth
	history []types.SleepDepth
}

func NewSleep() *Sleep { return &Sleep{depth: types.SleepDeep} }

func (s *Sleep) SetDepth(d types.SleepDepth) {
	s.mu.Lock()
	s.depth = d
	s.history = append(s.history, d)
	s.mu.Unlock()
}

func (s *Sleep) Depth() types.SleepDepth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

func (s *Sleep) History() []types.SleepDepth {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SleepDepth, len(s.history))
	copy(out, s.history)
	return out
}

// ----------------------------- wake timer ------------------------------------

// ManualWake is a wake source the test steps by hand.
type ManualWake struct {
	mu     sync.Mutex
	period types.WakePeriod

	wakeups chan struct{}
}

func NewManualWake() *ManualWake { return &ManualWake{wakeups: make(chan struct{}, 8)} }

func (w *ManualWake) SetPeriod(p types.WakePeriod) {
	w.mu.Lock()
	w.period = p
	w.mu.Unlock()
}

func (w *ManualWake) Period() types.WakePeriod {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.period
}

// Wake injects one periodic wake event.
func (w *ManualWake) Wake() {
	select {
	case w.wakeups <- struct{}{}:
	default:
	}
}

func (w *ManualWake) Wakeups() <-chan struct{} { return w.wakeups }
