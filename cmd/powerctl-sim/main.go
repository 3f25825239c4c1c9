// cmd/powerctl-sim/main.go
//
// Host simulator: runs the power controller against simulated I/O and
// a scripted scenario, logging the telemetry the controller publishes.
package main

import (
	"context"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"powerctl-go/bus"
	"powerctl-go/hw/simio"
	"powerctl-go/services/heartbeat"
	"powerctl-go/services/power"
	"powerctl-go/types"
)

var version = "No version provided"

var log = logrus.New()

type argSpec struct {
	Scenario   string `arg:"positional" help:"scenario YAML file (optional)"`
	DurationMs int    `arg:"--duration" default:"20000" help:"run length in milliseconds"`
	WakeMs     int    `arg:"--wake" default:"1000" help:"long wake period in milliseconds"`
	ShortMs    int    `arg:"--wake-short" default:"500" help:"short wake period in milliseconds"`
	PWMTickMs  int    `arg:"--pwm-tick" default:"11" help:"breathing tick interval in milliseconds"`
	LogLevel   string `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (argSpec) Version() string { return version }

func procArgs() argSpec {
	var args argSpec
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.Warnf("unknown log level %q, using info", level)
		log.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	args := procArgs()
	setLogLevel(args.LogLevel)

	scenario := Scenario{ADCCodes: []uint16{280}}
	if args.Scenario != "" {
		var err error
		scenario, err = LoadScenario(args.Scenario)
		if err != nil {
			log.Fatalf("scenario: %v", err)
		}
	}

	usb := simio.NewInputPin(false)
	charging := simio.NewInputPin(false)
	output := simio.NewEnableLine(false)
	red := simio.NewLEDPin()
	green := simio.NewLEDPin()
	pwm := simio.NewTickerPWM(time.Duration(args.PWMTickMs) * time.Millisecond)
	adc := simio.NewADC(scenario.ADCCodes...)
	sleep := simio.NewSleep()
	wake := simio.NewTickerWake(
		time.Duration(args.WakeMs)*time.Millisecond,
		time.Duration(args.ShortMs)*time.Millisecond,
	)
	defer wake.Stop()
	defer pwm.Stop()

	board := power.Board{
		USBPresent: usb,
		Charging:   charging,
		Output:     output,
		Red:        red,
		Green:      green,
		PWM:        pwm,
		Analog:     adc,
		Sleep:      sleep,
		Wake:       wake,
	}

	b := bus.NewBus(64)
	ctl := power.New(power.Config{}, board, b.NewConnection("power"))

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(args.DurationMs)*time.Millisecond)
	defer cancel()

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Fatalf("heartbeat: %v", err)
	}

	go watchTelemetry(ctx, b)
	go runScenario(ctx, scenario, usb, charging, output, adc)

	log.WithFields(logrus.Fields{
		"duration_ms": args.DurationMs,
		"events":      len(scenario.Events),
	}).Info("simulation starting")

	ctl.Run(ctx)

	log.WithFields(logrus.Fields{
		"mode":         ctl.Mode().String(),
		"voltage_mv":   ctl.Voltage(),
		"red":          red.Get(),
		"green":        green.Get(),
		"red_writes":   red.Writes,
		"green_writes": green.Writes,
	}).Info("simulation finished")
}

// runScenario applies events on their schedule.
func runScenario(ctx context.Context, s Scenario, usb, charging *simio.InputPin,
	output *simio.EnableLine, adc *simio.ADC) {

	start := time.Now()
	for _, e := range s.Sorted() {
		wait := e.At() - time.Since(start)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		if e.Switch != nil {
			output.SetExternal(*e.Switch)
		}
		if e.USB != nil {
			usb.SetLevel(*e.USB)
		}
		if e.Charging != nil {
			charging.SetLevel(*e.Charging)
		}
		if len(e.ADCCodes) > 0 {
			adc.Script(e.ADCCodes...)
		}
		log.WithField("at_ms", e.AtMs).Debug("scenario event applied")
	}
}

// watchTelemetry logs every retained value the controller publishes.
func watchTelemetry(ctx context.Context, b *bus.Bus) {
	conn := b.NewConnection("watcher")
	defer conn.Disconnect()
	sub := conn.Subscribe(bus.T("power", "#"))

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			logTelemetry(msg)
		}
	}
}

func logTelemetry(msg *bus.Message) {
	entry := log.WithField("topic", msg.Topic.String())
	switch p := msg.Payload.(type) {
	case types.ModeValue:
		entry.WithField("mode", p.Mode.String()).Info("mode")
	case types.VoltageValue:
		entry.WithField("mv", p.MilliVolts).Info("voltage")
	case types.LEDValue:
		entry.WithField("state", p.State.String()).Info("led")
	case types.SleepValue:
		entry.WithFields(logrus.Fields{
			"depth":  p.Depth,
			"period": p.Period,
		}).Info("sleep")
	default:
		entry.Debug("state")
	}
}
