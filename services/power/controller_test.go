// services/power/controller_test.go
package power

import (
	"context"
	"testing"
	"time"

	"powerctl-go/bus"
	"powerctl-go/errcode"
	"powerctl-go/hw/simio"
	"powerctl-go/types"
)

// rig is a controller wired to an all-simulated board. Tests step it
// with cycle() and feed conversion results with pump().
type rig struct {
	usb      *simio.InputPin
	charging *simio.InputPin
	output   *simio.EnableLine
	red      *simio.LEDPin
	green    *simio.LEDPin
	pwm      *simio.PWM
	adc      *simio.ADC
	sleep    *simio.Sleep
	wake     *simio.ManualWake

	ctl *Controller
}

func newRig(t *testing.T, conn *bus.Connection, codes ...uint16) *rig {
	t.Helper()
	r := &rig{
		usb:      simio.NewInputPin(false),
		charging: simio.NewInputPin(false),
		output:   simio.NewEnableLine(false),
		red:      simio.NewLEDPin(),
		green:    simio.NewLEDPin(),
		pwm:      simio.NewPWM(),
		adc:      simio.NewADC(codes...),
		sleep:    simio.NewSleep(),
		wake:     simio.NewManualWake(),
	}
	board := Board{
		USBPresent: r.usb,
		Charging:   r.charging,
		Output:     r.output,
		Red:        r.red,
		Green:      r.green,
		PWM:        r.pwm,
		Analog:     r.adc,
		Sleep:      r.sleep,
		Wake:       r.wake,
		Settle:     func() {},
	}
	r.ctl = New(Config{}, board, conn)
	return r
}

// cycle runs one wake evaluation.
func (r *rig) cycle() { r.ctl.Cycle() }

// pump feeds every pending conversion result into the controller, the
// way Run's select loop would.
func (r *rig) pump() {
	for {
		select {
		case raw := <-r.adc.Results():
			r.ctl.onConversion(raw)
		default:
			return
		}
	}
}

// cycles runs n wake evaluations, pumping conversions between them.
func (r *rig) cycles(n int) {
	for i := 0; i < n; i++ {
		r.cycle()
		r.pump()
	}
}

func TestController_IdleWhenOutputOff(t *testing.T) {
	r := newRig(t, nil)
	r.cycle()

	if got := r.ctl.Mode(); got != types.ModeIdle {
		t.Fatalf("mode = %v, want idle", got)
	}
	if r.red.Get() || r.green.Get() {
		t.Fatal("LEDs lit in idle")
	}
	if got := r.sleep.Depth(); got != types.SleepDeep {
		t.Fatalf("sleep depth = %v, want deep", got)
	}
	if r.pwm.Enabled() {
		t.Fatal("PWM running in idle")
	}
}

func TestController_StartupOnBattery(t *testing.T) {
	// Output live, no USB: the seeded voltage classifies as good
	// before any conversion has happened.
	r := newRig(t, nil, 280) // 1126400/280 = 4022 mV
	r.output.SetExternal(true)
	r.cycle()

	if got := r.ctl.Mode(); got != types.ModeBatteryGood {
		t.Fatalf("mode = %v, want battery good", got)
	}
	if !r.green.Get() || r.red.Get() {
		t.Fatal("battery good wants green only")
	}
	// First cycle in the mode starts an acquisition, which holds the
	// shallower sleep level until it completes.
	if got := r.sleep.Depth(); got != types.SleepIdle {
		t.Fatalf("sleep depth during acquisition = %v, want idle", got)
	}
	r.pump()
	if got := r.ctl.Voltage(); got != 4022 {
		t.Fatalf("voltage = %d, want 4022", got)
	}
	if got := r.sleep.Depth(); got != types.SleepDeep {
		t.Fatalf("sleep depth after acquisition = %v, want deep", got)
	}
}

func TestController_ActuationIsEdgeTriggered(t *testing.T) {
	r := newRig(t, nil, 280)
	r.output.SetExternal(true)
	r.cycles(1)

	writes := r.green.Writes
	drives := r.output.Releases
	r.cycles(3) // same mode, no acquisition due until cycle 5

	if r.green.Writes != writes {
		t.Fatalf("green rewritten on unchanged mode: %d -> %d", writes, r.green.Writes)
	}
	if r.output.Releases != drives {
		t.Fatalf("enable line re-released on unchanged mode")
	}
}

func TestController_DescentToLow(t *testing.T) {
	// One good acquisition, then the script decays below the good
	// threshold. The mode changes only after the average lands.
	r := newRig(t, nil)
	r.adc.Script(
		280, 280, 280, 280, 280, 280, 280, 280, 280, 280, // 4022 mV
		336, // 3352 mV, repeats
	)
	r.output.SetExternal(true)
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeBatteryGood {
		t.Fatalf("mode = %v, want battery good", got)
	}

	// Cycles 2-4 reuse the 4022 average; cycle 5 starts the next
	// acquisition which averages 3352.
	r.cycles(4)
	if got := r.ctl.Voltage(); got != 3352 {
		t.Fatalf("voltage = %d, want 3352", got)
	}
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeBatteryLow {
		t.Fatalf("mode = %v, want battery low", got)
	}
	if !r.green.Get() {
		t.Fatal("green off in battery low")
	}
}

func TestController_LowModeBlinksRed(t *testing.T) {
	r := newRig(t, nil, 336) // 3352 mV once the first average lands
	r.output.SetExternal(true)
	r.cycles(2) // good (seeded 4000), then low after the average

	if got := r.ctl.Mode(); got != types.ModeBatteryLow {
		t.Fatalf("mode = %v, want battery low", got)
	}
	// The evaluator toggles red every cycle, so consecutive cycles
	// observe alternating levels.
	a := r.red.Get()
	r.cycles(1)
	b := r.red.Get()
	r.cycles(1)
	c := r.red.Get()
	if a == b || b == c {
		t.Fatalf("red not blinking: %v %v %v", a, b, c)
	}
}

func TestController_CriticalShortensWakePeriod(t *testing.T) {
	r := newRig(t, nil, 350) // 3218 mV
	r.output.SetExternal(true)
	r.cycles(2)

	if got := r.ctl.Mode(); got != types.ModeBatteryCritical {
		t.Fatalf("mode = %v, want battery critical", got)
	}
	if got := r.wake.Period(); got != types.WakeShort {
		t.Fatalf("wake period = %v, want short", got)
	}
}

func TestController_CutoffDrivesAndRecovers(t *testing.T) {
	r := newRig(t, nil)
	r.adc.Script(
		360, 360, 360, 360, 360, 360, 360, 360, 360, 360, // 3128 mV
		280, // recovery, 4022 mV
	)
	r.output.SetExternal(true)
	r.cycles(2)

	if got := r.ctl.Mode(); got != types.ModeCutoff {
		t.Fatalf("mode = %v, want cutoff", got)
	}
	driven, level := r.output.Driven()
	if !driven || level {
		t.Fatal("cutoff must drive the enable line low")
	}
	if r.red.Get() || r.green.Get() {
		t.Fatal("LEDs lit in cutoff")
	}

	// While we hold the line low, our own drive must not read back as
	// the switch position: each cycle releases, re-reads, and since
	// the switch is still on, stays in cutoff and re-drives.
	releases := r.output.Releases
	r.cycles(1)
	if r.output.Releases <= releases {
		t.Fatal("cutoff re-check did not release the line before reading")
	}
	if got := r.ctl.Mode(); got != types.ModeCutoff {
		t.Fatalf("mode = %v, want cutoff to persist", got)
	}
	driven, level = r.output.Driven()
	if !driven || level {
		t.Fatal("enable line not re-driven low after the re-check")
	}

	// Cutoff samples on its cadence; once the recovered average lands
	// the next cycle leaves cutoff and releases the line for good.
	r.cycles(2) // cycles 4 and 5 in the mode; acquisition on the 4th
	if got := r.ctl.Voltage(); got != 4022 {
		t.Fatalf("voltage = %d, want 4022", got)
	}
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeBatteryGood {
		t.Fatalf("mode = %v, want battery good after recovery", got)
	}
	if driven, _ := r.output.Driven(); driven {
		t.Fatal("enable line still driven after leaving cutoff")
	}
}

func TestController_USBPlugStartsBreathing(t *testing.T) {
	r := newRig(t, nil, 280)
	r.output.SetExternal(true)
	r.cycles(1)

	r.usb.SetLevel(true)
	r.charging.SetLevel(true)
	r.cycles(1)

	if got := r.ctl.Mode(); got != types.ModeChargingOn {
		t.Fatalf("mode = %v, want charging on", got)
	}
	if !r.pwm.Enabled() {
		t.Fatal("PWM disabled in a breathing mode")
	}
	if r.adc.Enabled() {
		t.Fatal("analog subsystem left on in a USB mode")
	}

	// Ramp speed 3: the duty steps once every third tick.
	before := r.pwm.Duty()
	for i := 0; i < 3; i++ {
		r.pwm.Tick()
		<-r.pwm.Ticks()
		r.ctl.onPWMTick()
	}
	if got := r.pwm.Duty(); got != before+1 {
		t.Fatalf("duty after 3 ticks = %d, want %d", got, before+1)
	}
}

func TestController_BreathingFollowsCommandedLED(t *testing.T) {
	// With the output on and charging, green breathes; standby (output
	// off) hands the channel to red. One PWM channel serves both, so
	// the controller must re-attach it on the transition.
	r := newRig(t, nil, 280)
	r.output.SetExternal(true)
	r.usb.SetLevel(true)
	r.charging.SetLevel(true)
	r.cycles(1)

	if got := r.ctl.Mode(); got != types.ModeChargingOn {
		t.Fatalf("mode = %v, want charging on", got)
	}
	r.pwm.Drive(true)
	if !r.green.Get() || r.red.Get() {
		t.Fatalf("charging on must breathe green: red=%v green=%v",
			r.red.Get(), r.green.Get())
	}
	r.pwm.Drive(false)

	r.output.SetExternal(false)
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeChargingStandby {
		t.Fatalf("mode = %v, want charging standby", got)
	}
	r.pwm.Drive(true)
	if !r.red.Get() || r.green.Get() {
		t.Fatalf("charging standby must breathe red: red=%v green=%v",
			r.red.Get(), r.green.Get())
	}
	if r.pwm.Attaches != 2 {
		t.Fatalf("attaches = %d, want one per breathing mode", r.pwm.Attaches)
	}
}

func TestController_BusyAcquisitionKeepsSleepLevel(t *testing.T) {
	// An empty conversion script leaves the first acquisition in flight
	// forever. The next sampling cycle must be refused without touching
	// the sleep depth again.
	r := newRig(t, nil)
	r.output.SetExternal(true)
	r.cycle()

	if got := r.sleep.Depth(); got != types.SleepIdle {
		t.Fatalf("sleep depth during acquisition = %v, want idle", got)
	}
	writes := len(r.sleep.History())

	r.cycle()
	r.cycle()
	r.cycle()
	r.cycle() // fifth cycle in the mode wants another acquisition

	if got := len(r.sleep.History()); got != writes {
		t.Fatalf("sleep writes went %d -> %d on a refused acquisition", writes, got)
	}
	if got := r.sleep.Depth(); got != types.SleepIdle {
		t.Fatalf("sleep depth = %v, want idle while still acquiring", got)
	}
}

func TestController_UnplugReturnsToBattery(t *testing.T) {
	r := newRig(t, nil, 280)
	r.output.SetExternal(true)
	r.usb.SetLevel(true)
	r.charging.SetLevel(false)
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeChargedOn {
		t.Fatalf("mode = %v, want charged on", got)
	}

	r.usb.SetLevel(false)
	r.cycles(1)
	if got := r.ctl.Mode(); got != types.ModeBatteryGood {
		t.Fatalf("mode = %v, want battery good after unplug", got)
	}
	r.pump()
	if got := r.ctl.Voltage(); got != 4022 {
		t.Fatalf("voltage = %d, want fresh average after unplug", got)
	}
}

func TestController_PublishesRetainedTelemetry(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	defer conn.Disconnect()

	r := newRig(t, b.NewConnection("power"), 280)
	r.output.SetExternal(true)
	r.cycles(1)

	// Retained messages replay to late subscribers.
	sub := conn.Subscribe(bus.T("power", "mode", "value"))
	msg := <-sub.Channel()
	mv, ok := msg.Payload.(types.ModeValue)
	if !ok {
		t.Fatalf("payload type %T", msg.Payload)
	}
	if mv.Mode != types.ModeBatteryGood {
		t.Fatalf("retained mode = %v, want battery good", mv.Mode)
	}

	vsub := conn.Subscribe(bus.T("power", "voltage", "value"))
	vmsg := <-vsub.Channel()
	vv := vmsg.Payload.(types.VoltageValue)
	if vv.MilliVolts != 4022 {
		t.Fatalf("retained voltage = %d, want 4022", vv.MilliVolts)
	}
}

func TestController_AnswersModeRequests(t *testing.T) {
	b := bus.NewBus(16)
	client := b.NewConnection("client")
	defer client.Disconnect()

	r := newRig(t, b.NewConnection("power"), 280)
	r.output.SetExternal(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.ctl.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	// Wait for the first cycle to land before asking; the retained mode
	// publish marks it done.
	sub := client.Subscribe(bus.T("power", "mode", "value"))
	r.wake.Wake()
	<-sub.Channel()

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()
	reply, err := client.RequestWait(rctx,
		client.NewMessage(bus.T("power", "mode", "get"), nil, false))
	if err != nil {
		t.Fatalf("mode request: %v", err)
	}
	mv, ok := reply.Payload.(types.ModeValue)
	if !ok {
		t.Fatalf("reply payload type %T", reply.Payload)
	}
	if mv.Mode != types.ModeBatteryGood {
		t.Fatalf("reported mode = %v, want battery good", mv.Mode)
	}
}

func TestController_SampleRequestRefusedWhileActive(t *testing.T) {
	b := bus.NewBus(16)
	client := b.NewConnection("client")
	defer client.Disconnect()

	// Empty conversion script: the first requested acquisition never
	// completes, so the second must be refused.
	r := newRig(t, b.NewConnection("power"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.ctl.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	// Wait for the retained "ready" state publish, which Run emits after
	// its request subscriptions are in place.
	stateSub := client.Subscribe(bus.T("power", "state"))
	<-stateSub.Channel()
	stateSub.Unsubscribe()

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()

	reply, err := client.RequestWait(rctx,
		client.NewMessage(bus.T("power", "sample", "start"), nil, false))
	if err != nil {
		t.Fatalf("sample request: %v", err)
	}
	if okr, ok := reply.Payload.(types.OKReply); !ok || !okr.OK {
		t.Fatalf("first sample reply = %#v, want ok", reply.Payload)
	}

	reply, err = client.RequestWait(rctx,
		client.NewMessage(bus.T("power", "sample", "start"), nil, false))
	if err != nil {
		t.Fatalf("second sample request: %v", err)
	}
	er, ok := reply.Payload.(types.ErrorReply)
	if !ok {
		t.Fatalf("reply payload type %T", reply.Payload)
	}
	if er.OK || er.Error != string(errcode.AcquisitionActive) {
		t.Fatalf("refusal = %#v, want %s", er, errcode.AcquisitionActive)
	}
}
