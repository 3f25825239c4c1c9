// services/power/controller.go
package power

import (
	"context"

	"powerctl-go/bus"
	"powerctl-go/errcode"
	"powerctl-go/types"
	"powerctl-go/x/ramp"
	"powerctl-go/x/timex"
)

// Controller is the power-mode control loop: one goroutine selecting
// over the three wake sources (periodic wake, conversion complete,
// PWM tick). Evaluation and actuation happen exactly once per wake
// event; conversion and PWM handling only update counters and levels.
type Controller struct {
	cfg     Config
	board   Board
	conn    *bus.Connection // optional; nil disables telemetry
	sampler *sampler
	breathe *ramp.Triangle
	eval    evalState

	prev types.Mode // last applied mode; 0 until first actuation
}

// New builds a controller. conn may be nil when no telemetry is wanted
// (most unit tests).
func New(cfg Config, board Board, conn *bus.Connection) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:     cfg,
		board:   board,
		conn:    conn,
		sampler: newSampler(cfg, board.Analog),
		breathe: ramp.NewTriangle(cfg.PWMMin, cfg.PWMMax, cfg.RampSpeed, cfg.InitialDuty),
	}
}

// Voltage exposes the last completed average, mostly for tests and the
// simulator's status line.
func (c *Controller) Voltage() uint16 { return c.sampler.Voltage() }

// Mode returns the last applied mode (0 before the first cycle).
func (c *Controller) Mode() types.Mode { return c.prev }

// Run services wake events until ctx is cancelled. The first wake
// event performs the initial classification and actuation. With a bus
// connection it also answers mode and sample requests between cycles.
func (c *Controller) Run(ctx context.Context) {
	var modeReqs, sampleReqs <-chan *bus.Message
	if c.conn != nil {
		modeSub := c.conn.Subscribe(topicModeGet())
		sampleSub := c.conn.Subscribe(topicSampleStart())
		defer modeSub.Unsubscribe()
		defer sampleSub.Unsubscribe()
		modeReqs = modeSub.Channel()
		sampleReqs = sampleSub.Channel()
	}

	c.publishState("ready", "")
	for {
		select {
		case <-ctx.Done():
			c.publishState("stopped", "context_cancelled")
			return

		case <-c.board.Wake.Wakeups():
			c.Cycle()

		case raw := <-c.board.Analog.Results():
			c.onConversion(raw)

		case <-c.board.PWM.Ticks():
			c.onPWMTick()

		case msg := <-modeReqs:
			c.replyMode(msg)

		case msg := <-sampleReqs:
			c.replySample(msg)
		}
	}
}

// Cycle performs one evaluation pass: snapshot inputs, classify,
// carry out the decision's side effects, and actuate on change.
// Exported so tests and the simulator can step deterministically.
func (c *Controller) Cycle() {
	in := c.readInputs()
	d := evaluate(c.cfg, in, &c.eval)

	if d.ToggleRed {
		c.board.Red.Toggle()
	}
	if d.ForceOutputLow {
		c.board.Output.Drive(false)
	}

	if d.Mode != c.prev {
		c.apply(d.Mode)
	}
	c.prev = d.Mode

	// After actuation, so the acquisition's lighter sleep level is not
	// clobbered by the mode's own depth. An acquisition already in
	// flight is refused and keeps its level.
	if d.StartAcquisition {
		if err := c.startAcquisition(); err != nil {
			c.publishState("warn", string(errcode.Of(err)))
		}
	}
	c.publishMode(d.Mode)
}

// startAcquisition kicks the sampler off and, only once that is
// accepted, lightens the sleep depth so conversions can complete.
func (c *Controller) startAcquisition() error {
	if err := c.sampler.Start(); err != nil {
		return err
	}
	c.board.Sleep.SetDepth(types.SleepIdle)
	return nil
}

// readInputs snapshots the digital plane. Coming out of cutoff the
// enable line is being driven low by us, so it is released first and
// re-read after a settle delay to observe the true external level.
func (c *Controller) readInputs() Inputs {
	if c.prev == types.ModeCutoff {
		c.board.Output.Release()
		c.board.settle()
	}
	return Inputs{
		OutputEnabled: c.board.Output.Observed(),
		USBPresent:    c.board.USBPresent.Get(),
		Charging:      c.board.Charging.Get(),
		MilliVolts:    c.sampler.Voltage(),
	}
}

func (c *Controller) onConversion(raw uint16) {
	if !c.sampler.OnResult(raw) {
		return
	}
	// Cycle complete: the analog subsystem is off again and the mode's
	// own sleep depth may resume.
	c.board.Sleep.SetDepth(configFor(c.prev).Depth)
	c.publishVoltage()
}

func (c *Controller) onPWMTick() {
	if duty, changed := c.breathe.Advance(); changed {
		c.board.PWM.SetDuty(duty)
	}
}

// ---- bus requests ----

func (c *Controller) replyMode(msg *bus.Message) {
	if !msg.CanReply() {
		return
	}
	c.conn.Reply(msg, types.ModeValue{Mode: c.prev, TsMs: timex.NowMs()}, false)
}

// replySample starts an on-demand voltage acquisition. A cycle already
// in flight is refused rather than restarted.
func (c *Controller) replySample(msg *bus.Message) {
	if !msg.CanReply() {
		return
	}
	if err := c.startAcquisition(); err != nil {
		c.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	c.conn.Reply(msg, types.OKReply{OK: true}, false)
}

// ---- telemetry ----

func (c *Controller) pubRet(t bus.Topic, payload any) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(t, payload, true))
}

func (c *Controller) publishMode(m types.Mode) {
	c.pubRet(topicModeValue(), types.ModeValue{Mode: m, TsMs: timex.NowMs()})
}

func (c *Controller) publishVoltage() {
	c.pubRet(topicVoltageValue(), types.VoltageValue{
		MilliVolts: c.sampler.Voltage(),
		TsMs:       timex.NowMs(),
	})
}

func (c *Controller) publishActuation(mode types.Mode, a actuation) {
	now := timex.NowMs()
	c.pubRet(topicLEDValue("red"), types.LEDValue{State: a.Red, TsMs: now})
	c.pubRet(topicLEDValue("green"), types.LEDValue{State: a.Green, TsMs: now})
	c.pubRet(topicSleepValue(), types.SleepValue{Depth: a.Depth, Period: a.Period, TsMs: now})
}

func (c *Controller) publishState(level, status string) {
	if c.conn == nil {
		return
	}
	payload := map[string]any{"level": level, "ts_ms": timex.NowMs()}
	if status != "" {
		payload["status"] = status
	}
	c.conn.Publish(c.conn.NewMessage(topicState(), payload, true))
}
