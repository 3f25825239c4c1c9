//go:build linux

// cmd/powerctl/main.go
//
// Linux daemon: runs the power controller against character-device
// GPIO lines and an ADS1115 on the I²C bus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"powerctl-go/bus"
	"powerctl-go/drivers/ads1115"
	"powerctl-go/hw/i2cadc"
	"powerctl-go/hw/linuxio"
	"powerctl-go/hw/simio"
	"powerctl-go/services/heartbeat"
	"powerctl-go/services/power"
	"powerctl-go/types"
)

var version = "No version provided"

var log = logrus.New()

type argSpec struct {
	Chip       string `arg:"--chip" default:"gpiochip0" help:"GPIO character device"`
	USBPin     int    `arg:"--usb-pin" default:"17" help:"USB presence input line"`
	ChargePin  int    `arg:"--charge-pin" default:"27" help:"charge status input line (active low)"`
	OutputPin  int    `arg:"--output-pin" default:"22" help:"regulator enable line"`
	RedPin     int    `arg:"--red-pin" default:"23" help:"red LED line"`
	GreenPin   int    `arg:"--green-pin" default:"24" help:"green LED line"`
	I2CBus     string `arg:"--i2c" default:"" help:"I2C bus name; empty selects the first"`
	ADSAddress uint16 `arg:"--ads-address" default:"72" help:"ADS1115 address"`
	DividerNum uint32 `arg:"--divider-num" default:"2" help:"battery divider numerator"`
	DividerDen uint32 `arg:"--divider-den" default:"1" help:"battery divider denominator"`
	LogLevel   string `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (argSpec) Version() string { return version }

func main() {
	var args argSpec
	arg.MustParse(&args)
	setLogLevel(args.LogLevel)

	if err := run(args); err != nil {
		log.Fatal(err)
	}
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

func run(args argSpec) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	i2cBus, err := i2creg.Open(args.I2CBus)
	if err != nil {
		return err
	}
	defer i2cBus.Close()

	chip, err := gpiocdev.NewChip(args.Chip)
	if err != nil {
		return err
	}
	defer chip.Close()

	usb, err := linuxio.NewInputPin(chip, args.USBPin, false)
	if err != nil {
		return err
	}
	defer usb.Close()

	// The charge-status line is open-drain, pulled up, low while
	// charge current flows.
	charging, err := linuxio.NewInputPin(chip, args.ChargePin, true, gpiocdev.WithPullUp)
	if err != nil {
		return err
	}
	defer charging.Close()

	output, err := linuxio.NewEnableLine(chip, args.OutputPin)
	if err != nil {
		return err
	}
	defer output.Close()

	// LED cathodes face the pins: active low.
	red, err := linuxio.NewLEDPin(chip, args.RedPin, gpiocdev.AsActiveLow)
	if err != nil {
		return err
	}
	defer red.Close()

	green, err := linuxio.NewLEDPin(chip, args.GreenPin, gpiocdev.AsActiveLow)
	if err != nil {
		return err
	}
	defer green.Close()

	// One soft-PWM channel serves both LEDs; the controller attaches
	// it to whichever LED the current mode breathes.
	pwm := linuxio.NewSoftPWM(0, 0)
	defer pwm.Stop()

	adc := ads1115.New(i2cBus, ads1115.Config{
		Address:  args.ADSAddress,
		Mux:      ads1115.MuxSingle0,
		Gain:     ads1115.Gain1,
		DataRate: ads1115.DR128,
	})
	if !adc.Connected() {
		log.WithField("address", args.ADSAddress).Warn("ADS1115 not responding; voltage readings will be dropped")
	}
	analog := i2cadc.NewChannel(adc, i2cadc.Config{
		DividerNum: args.DividerNum,
		DividerDen: args.DividerDen,
	})
	defer analog.Stop()

	wake := simio.NewTickerWake(time.Second, 500*time.Millisecond)
	defer wake.Stop()

	board := power.Board{
		USBPresent: usb,
		Charging:   charging,
		Output:     output,
		Red:        red,
		Green:      green,
		PWM:        pwm,
		Analog:     analog,
		Sleep:      linuxio.NopSleep{},
		Wake:       wake,
	}

	b := bus.NewBus(64)
	ctl := power.New(power.Config{}, board, b.NewConnection("power"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	go logModes(ctx, b)

	log.WithField("version", version).Info("power controller starting")
	ctl.Run(ctx)
	log.Info("power controller stopped")
	return nil
}

// logModes mirrors mode changes into the daemon log.
func logModes(ctx context.Context, b *bus.Bus) {
	conn := b.NewConnection("log")
	defer conn.Disconnect()
	sub := conn.Subscribe(bus.T("power", "mode", "value"))

	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			if mv, ok := msg.Payload.(types.ModeValue); ok {
				if s := mv.Mode.String(); s != last {
					last = s
					log.WithField("mode", s).Info("mode change")
				}
			}
		}
	}
}
