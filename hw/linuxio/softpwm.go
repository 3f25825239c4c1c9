//go:build linux

package linuxio

import (
	"sync"
	"time"

	"powerctl-go/x/mathx"
)

// SoftPWM approximates LED brightness by time-slicing one GPIO line:
// each period the attached line is high for duty/255 of PWMPeriod. It
// also emits ramp ticks at TickInterval while enabled, the breathing
// generator's clock. Attach retargets the modulator; the previous
// line is parked low on handover.
type SoftPWM struct {
	mu      sync.Mutex
	set     func(on bool)
	duty    uint8
	enabled bool

	period   time.Duration
	tickIvl  time.Duration
	ticks    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

const (
	defaultPWMPeriod    = 10 * time.Millisecond
	defaultTickInterval = 11 * time.Millisecond
)

// NewSoftPWM starts the modulator, initially disabled and detached.
func NewSoftPWM(period, tickInterval time.Duration) *SoftPWM {
	if period <= 0 {
		period = defaultPWMPeriod
	}
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	p := &SoftPWM{
		period:  period,
		tickIvl: tickInterval,
		ticks:   make(chan struct{}, 32),
		stop:    make(chan struct{}),
	}
	go p.modulate()
	go p.tick()
	return p
}

func (p *SoftPWM) Attach(set func(on bool)) {
	p.mu.Lock()
	old := p.set
	p.set = set
	p.mu.Unlock()
	if old != nil {
		old(false)
	}
}

func (p *SoftPWM) Enable(on bool) {
	p.mu.Lock()
	p.enabled = on
	set := p.set
	p.mu.Unlock()
	if !on && set != nil {
		set(false)
	}
}

func (p *SoftPWM) SetDuty(level uint8) {
	p.mu.Lock()
	p.duty = level
	p.mu.Unlock()
}

func (p *SoftPWM) Ticks() <-chan struct{} { return p.ticks }

// Stop terminates both goroutines and parks the line low.
func (p *SoftPWM) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.mu.Lock()
	set := p.set
	p.mu.Unlock()
	if set != nil {
		set(false)
	}
}

func (p *SoftPWM) modulate() {
	for {
		p.mu.Lock()
		on, duty, set := p.enabled, p.duty, p.set
		p.mu.Unlock()

		if !on || set == nil {
			select {
			case <-p.stop:
				return
			case <-time.After(p.period):
			}
			continue
		}

		high := p.period * time.Duration(duty) / 255
		high = mathx.Clamp(high, 0, p.period)
		if high > 0 {
			set(true)
			select {
			case <-p.stop:
				set(false)
				return
			case <-time.After(high):
			}
		}
		set(false)
		select {
		case <-p.stop:
			return
		case <-time.After(p.period - high):
		}
	}
}

func (p *SoftPWM) tick() {
	t := time.NewTicker(p.tickIvl)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-t.C:
		}
		p.mu.Lock()
		on := p.enabled
		p.mu.Unlock()
		if !on {
			continue
		}
		select {
		case p.ticks <- struct{}{}:
		default:
		}
	}
}
