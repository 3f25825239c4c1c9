// hw/simio/ticker.go
package simio

import (
	"sync"
	"time"

	"powerctl-go/types"
)

// TickerWake is a wall-clock wake source for the commands: the long
// and short periods map to configurable real durations so a scenario
// can run accelerated.
type TickerWake struct {
	mu      sync.Mutex
	long    time.Duration
	short   time.Duration
	period  types.WakePeriod
	ticker  *time.Ticker
	wakeups chan struct{}
	stop    chan struct{}
	once    sync.Once
}

// NewTickerWake starts a wake source with the given real durations for
// the long and short periods.
func NewTickerWake(long, short time.Duration) *TickerWake {
	w := &TickerWake{
		long:    long,
		short:   short,
		ticker:  time.NewTicker(long),
		wakeups: make(chan struct{}, 4),
		stop:    make(chan struct{}),
	}
	go w.pump()
	return w
}

func (w *TickerWake) pump() {
	for {
		select {
		case <-w.stop:
			return
		case <-w.ticker.C:
			select {
			case w.wakeups <- struct{}{}:
			default:
			}
		}
	}
}

func (w *TickerWake) SetPeriod(p types.WakePeriod) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p == w.period {
		return
	}
	w.period = p
	if p == types.WakeShort {
		w.ticker.Reset(w.short)
	} else {
		w.ticker.Reset(w.long)
	}
}

func (w *TickerWake) Wakeups() <-chan struct{} { return w.wakeups }

// Stop ends the pump; further SetPeriod calls are harmless.
func (w *TickerWake) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.ticker.Stop()
	})
}

// TickerPWM emits PWM timer ticks at a fixed real interval while
// enabled, recording duties like PWM.
type TickerPWM struct {
	PWM
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func NewTickerPWM(interval time.Duration) *TickerPWM {
	p := &TickerPWM{interval: interval, stop: make(chan struct{})}
	p.ticks = make(chan struct{}, 32)
	go p.pump()
	return p
}

func (p *TickerPWM) pump() {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-t.C:
			if p.Enabled() {
				p.Tick()
			}
		}
	}
}

func (p *TickerPWM) Stop() {
	p.once.Do(func() { close(p.stop) })
}
