// Package i2cadc adapts an external I²C ADC to the controller's
// analog-channel capability. Conversions run on a single worker
// goroutine; completed codes are delivered on a channel, never
// synchronously from Convert.
package i2cadc

import (
	"context"
	"sync"
	"time"

	"powerctl-go/drivers/ads1115"
	"powerctl-go/errcode"
	"powerctl-go/x/mathx"
)

// converter is the slice of the ADC driver the worker needs.
type converter interface {
	StartSingle() error
	Ready() (bool, error)
	ReadRaw() (int16, error)
	MicroVolts(raw int16) int32
}

var _ converter = (*ads1115.Device)(nil)

// Config maps the measured input back to the controller's code domain.
type Config struct {
	// CalibrationK must match the controller's: the delivered code is
	// K / battery_mV, so the controller's mV = K / code inverts it.
	CalibrationK uint32

	// The battery reaches the input through a resistive divider;
	// battery_mV = measured_mV * DividerNum / DividerDen.
	DividerNum uint32
	DividerDen uint32

	// PollInterval paces the ready polls during a conversion.
	PollInterval time.Duration
	// ConversionTimeout bounds one conversion; a timed-out conversion
	// is dropped, not retried.
	ConversionTimeout time.Duration

	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.CalibrationK == 0 {
		c.CalibrationK = 1126400
	}
	if c.DividerNum == 0 {
		c.DividerNum = 1
	}
	if c.DividerDen == 0 {
		c.DividerDen = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Millisecond
	}
	if c.ConversionTimeout <= 0 {
		c.ConversionTimeout = 250 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	return c
}

// Channel is an analog channel backed by an external ADC. Enable and
// Disable gate conversion requests; the device itself powers down
// between single-shot conversions on its own.
type Channel struct {
	cfg     Config
	dev     converter
	reqs    chan struct{}
	results chan uint16
	enabled chan bool
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	lastErr error
}

// NewChannel starts the worker. Stop releases it.
func NewChannel(dev converter, cfg Config) *Channel {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	ch := &Channel{
		cfg:     cfg,
		dev:     dev,
		reqs:    make(chan struct{}, cfg.QueueSize),
		results: make(chan uint16, cfg.QueueSize),
		enabled: make(chan bool, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go ch.run(ctx)
	return ch
}

func (c *Channel) Enable()  { c.setEnabled(true) }
func (c *Channel) Disable() { c.setEnabled(false) }

func (c *Channel) setEnabled(on bool) {
	// Coalesce: only the latest state matters.
	select {
	case <-c.enabled:
	default:
	}
	c.enabled <- on
}

// Convert queues one conversion. Requests while disabled are dropped
// by the worker, matching a conversion start with the subsystem
// powered down.
func (c *Channel) Convert() {
	select {
	case c.reqs <- struct{}{}:
	default:
	}
}

func (c *Channel) Results() <-chan uint16 { return c.results }

// Err reports the outcome of the most recent conversion attempt: nil
// after a delivered code, errcode.Timeout when the device never came
// ready, or the device error otherwise.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Channel) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// Stop terminates the worker. The results channel stays open; pending
// reads simply never complete.
func (c *Channel) Stop() {
	c.cancel()
	<-c.done
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	on := false
	for {
		select {
		case <-ctx.Done():
			return
		case on = <-c.enabled:
		case <-c.reqs:
			// Pick up an enable change that raced the request.
			select {
			case on = <-c.enabled:
			default:
			}
			if !on {
				continue
			}
			code, err := c.convertOnce(ctx)
			c.setErr(err)
			if err != nil {
				continue
			}
			select {
			case c.results <- code:
			default:
				// Drop on a full queue; the consumer is the single
				// control loop and a backlog means it is gone.
			}
		}
	}
}

// convertOnce runs one single-shot conversion and maps the measured
// voltage into the controller's code domain.
func (c *Channel) convertOnce(ctx context.Context) (uint16, error) {
	if err := c.dev.StartSingle(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(c.cfg.ConversionTimeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
		ready, err := c.dev.Ready()
		if err != nil {
			return 0, err
		}
		if ready {
			break
		}
		if time.Now().After(deadline) {
			return 0, errcode.Timeout
		}
	}

	raw, err := c.dev.ReadRaw()
	if err != nil {
		return 0, err
	}
	uv := c.dev.MicroVolts(raw)
	if uv < 0 {
		uv = 0
	}
	mv := mathx.RoundDiv(uint32(uv), 1000) * c.cfg.DividerNum / c.cfg.DividerDen
	if mv == 0 {
		mv = 1
	}
	code := mathx.RoundDiv(c.cfg.CalibrationK, mv)
	if code > 0xFFFF {
		code = 0xFFFF
	}
	return uint16(code), nil
}
