// services/power/actuator.go
package power

import (
	"powerctl-go/types"
)

// actuation is the per-mode I/O and power configuration. It is
// recomputed from the mode on every application, never stored.
type actuation struct {
	Red   types.LEDState
	Green types.LEDState

	// DriveOutputLow forces the enable line low (cutoff); otherwise
	// the line is released and the external switch decides.
	DriveOutputLow bool

	Depth  types.SleepDepth
	Period types.WakePeriod

	// PWMEnabled hands one LED to the breathing ramp.
	PWMEnabled bool

	// AnalogOff shuts the analog subsystem down outright. In the
	// voltage-dependent modes the sampler manages it instead.
	AnalogOff bool
}

// configFor is the actuation table. Out-of-range modes take the
// ModeIdle row, the tree's fallback.
func configFor(mode types.Mode) actuation {
	switch mode {
	case types.ModeChargingStandby:
		return actuation{
			Red:        types.LEDBreathe,
			Green:      types.LEDOff,
			Depth:      types.SleepIdle,
			Period:     types.WakeLong,
			PWMEnabled: true,
			AnalogOff:  true,
		}

	case types.ModeChargedStandby:
		return actuation{
			Red:       types.LEDOn,
			Green:     types.LEDOff,
			Depth:     types.SleepDeep,
			Period:    types.WakeLong,
			AnalogOff: true,
		}

	case types.ModeBatteryGood:
		return actuation{
			Red:    types.LEDOff,
			Green:  types.LEDOn,
			Depth:  types.SleepDeep,
			Period: types.WakeLong,
		}

	case types.ModeBatteryLow:
		return actuation{
			Red:    types.LEDOn, // blinks: evaluator toggles it each cycle
			Green:  types.LEDOn,
			Depth:  types.SleepDeep,
			Period: types.WakeLong,
		}

	case types.ModeBatteryCritical:
		return actuation{
			Red:    types.LEDOn,
			Green:  types.LEDOn,
			Depth:  types.SleepDeep,
			Period: types.WakeShort,
		}

	case types.ModeCutoff:
		return actuation{
			Red:            types.LEDOff,
			Green:          types.LEDOff,
			DriveOutputLow: true,
			Depth:          types.SleepDeep,
			Period:         types.WakeLong,
		}

	case types.ModeChargingOn:
		return actuation{
			Red:        types.LEDOff,
			Green:      types.LEDBreathe,
			Depth:      types.SleepIdle,
			Period:     types.WakeLong,
			PWMEnabled: true,
			AnalogOff:  true,
		}

	case types.ModeChargedOn:
		return actuation{
			Red:       types.LEDOff,
			Green:     types.LEDOn,
			Depth:     types.SleepDeep,
			Period:    types.WakeLong,
			AnalogOff: true,
		}

	default: // ModeIdle and anything out of range
		return actuation{
			Red:       types.LEDOff,
			Green:     types.LEDOff,
			Depth:     types.SleepDeep,
			Period:    types.WakeLong,
			AnalogOff: true,
		}
	}
}

// apply pushes one mode's actuation onto the board. Callers invoke it
// only on a mode change; applying the same mode twice is harmless but
// produces no new observable transitions.
func (c *Controller) apply(mode types.Mode) {
	a := configFor(mode)

	c.applyLED(c.board.Red, a.Red)
	c.applyLED(c.board.Green, a.Green)

	if a.DriveOutputLow {
		c.board.Output.Drive(false)
	} else {
		c.board.Output.Release()
	}

	if a.PWMEnabled {
		breathing := c.board.Red
		if a.Green == types.LEDBreathe {
			breathing = c.board.Green
		}
		c.board.PWM.Attach(breathing.Set)
		c.board.PWM.SetDuty(c.breathe.Level())
		c.board.PWM.Enable(true)
	} else {
		c.board.PWM.Enable(false)
	}

	if a.AnalogOff {
		c.sampler.Abort()
	}

	c.board.Wake.SetPeriod(a.Period)
	c.board.Sleep.SetDepth(a.Depth)
	c.publishActuation(mode, a)
}

func (c *Controller) applyLED(led LEDLine, s types.LEDState) {
	switch s {
	case types.LEDOn:
		led.Set(true)
	case types.LEDBreathe:
		// Leave the line to the PWM channel; the pin level itself is
		// parked off between duty updates.
		led.Set(false)
	default:
		led.Set(false)
	}
}
