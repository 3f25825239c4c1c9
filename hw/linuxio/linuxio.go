//go:build linux

// Package linuxio backs the controller's board capabilities with
// Linux GPIO character-device lines. It serves the host daemon; the
// MCU build has its own register-level backend.
package linuxio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"powerctl-go/types"
)

// InputPin reads one logical input line.
type InputPin struct {
	line   *gpiocdev.Line
	invert bool
}

// NewInputPin requests an input line. invert is set for active-low
// signals so callers only ever see logical levels.
func NewInputPin(chip *gpiocdev.Chip, offset int, invert bool, opts ...gpiocdev.LineReqOption) (*InputPin, error) {
	reqOpts := append([]gpiocdev.LineReqOption{gpiocdev.AsInput}, opts...)
	line, err := chip.RequestLine(offset, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %d: %w", offset, err)
	}
	return &InputPin{line: line, invert: invert}, nil
}

func (p *InputPin) Get() bool {
	v, err := p.line.Value()
	if err != nil {
		return false
	}
	on := v != 0
	if p.invert {
		on = !on
	}
	return on
}

func (p *InputPin) Close() error { return p.line.Close() }

// LEDPin drives one logical output line. The kernel handles active-low
// wiring when the line is requested with gpiocdev.AsActiveLow.
type LEDPin struct {
	mu    sync.Mutex
	line  *gpiocdev.Line
	level bool
}

func NewLEDPin(chip *gpiocdev.Chip, offset int, opts ...gpiocdev.LineReqOption) (*LEDPin, error) {
	reqOpts := append([]gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}, opts...)
	line, err := chip.RequestLine(offset, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("request LED line %d: %w", offset, err)
	}
	return &LEDPin{line: line}, nil
}

func (p *LEDPin) Set(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(on)
}

func (p *LEDPin) setLocked(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		return
	}
	p.level = on
}

func (p *LEDPin) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(!p.level)
}

func (p *LEDPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *LEDPin) Close() error { return p.line.Close() }

// EnableLine is the bidirectional regulator-enable pin: driven as an
// output in cutoff, reconfigured back to an input so the external
// switch level shows through.
type EnableLine struct {
	mu     sync.Mutex
	line   *gpiocdev.Line
	driven bool
}

func NewEnableLine(chip *gpiocdev.Chip, offset int) (*EnableLine, error) {
	line, err := chip.RequestLine(offset, gpiocdev.AsInput)
	if err != nil {
		return nil, fmt.Errorf("request enable line %d: %w", offset, err)
	}
	return &EnableLine{line: line}, nil
}

func (l *EnableLine) Drive(level bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := 0
	if level {
		v = 1
	}
	if err := l.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
		return
	}
	l.driven = true
}

func (l *EnableLine) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.driven {
		return
	}
	if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return
	}
	l.driven = false
}

func (l *EnableLine) Observed() bool {
	v, err := l.line.Value()
	if err != nil {
		return false
	}
	return v != 0
}

// Close releases the line, leaving it an input.
func (l *EnableLine) Close() error {
	l.Release()
	return l.line.Close()
}

// NopSleep satisfies the sleep capability on a host where process
// sleep states are the kernel's business.
type NopSleep struct{}

func (NopSleep) SetDepth(types.SleepDepth) {}
