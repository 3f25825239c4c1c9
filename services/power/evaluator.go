// services/power/evaluator.go
package power

import (
	"powerctl-go/types"
)

// Inputs is the snapshot classified on one wake cycle.
type Inputs struct {
	OutputEnabled bool // observed electrical level of the enable line
	USBPresent    bool
	Charging      bool
	MilliVolts    uint16 // last completed average
}

// evalState is the only memory the evaluator carries between cycles.
type evalState struct {
	cadence uint8
}

// Decision is a classification plus the per-cycle side effects the
// control loop must carry out.
type Decision struct {
	Mode types.Mode

	// StartAcquisition requests a new voltage cycle (cadence hit).
	StartAcquisition bool
	// ToggleRed flips the warning LED once (modes 5 and 6).
	ToggleRed bool
	// ForceOutputLow drives the enable line low (mode 7 cutoff).
	ForceOutputLow bool
}

// evaluate classifies one input snapshot into a mode. The tree is
// total and order-sensitive: the first matching branch wins. Identical
// snapshots always produce the same mode; only the sampling cadence
// counter advances between calls.
func evaluate(cfg Config, in Inputs, st *evalState) Decision {
	if !in.OutputEnabled {
		switch {
		case !in.USBPresent:
			return Decision{Mode: types.ModeIdle}
		case in.Charging:
			return Decision{Mode: types.ModeChargingStandby}
		default:
			return Decision{Mode: types.ModeChargedStandby}
		}
	}

	if in.USBPresent {
		if in.Charging {
			return Decision{Mode: types.ModeChargingOn}
		}
		return Decision{Mode: types.ModeChargedOn}
	}

	// On battery with the output live: thresholds are strict >, so a
	// reading exactly at a boundary falls to the lower mode.
	switch {
	case in.MilliVolts > cfg.BatteryGoodMilliVolts:
		d := Decision{Mode: types.ModeBatteryGood}
		// Cadence checked before the increment: the first cycle after
		// entering the mode samples immediately.
		if st.cadence%cfg.CadenceLong == 0 {
			st.cadence = 0
			d.StartAcquisition = true
		}
		st.cadence++
		return d

	case in.MilliVolts > cfg.BatteryLowMilliVolts:
		d := Decision{Mode: types.ModeBatteryLow, ToggleRed: true}
		st.cadence++
		if st.cadence%cfg.CadenceLong == 0 {
			st.cadence = 0
			d.StartAcquisition = true
		}
		return d

	case in.MilliVolts > cfg.BatteryCriticalMilliVolts:
		d := Decision{Mode: types.ModeBatteryCritical, ToggleRed: true}
		st.cadence++
		// The short wake period halves the wall-clock spacing, so the
		// divisor doubles to keep roughly one acquisition per second.
		if st.cadence%cfg.CadenceShort == 0 {
			st.cadence = 0
			d.StartAcquisition = true
		}
		return d

	default:
		d := Decision{Mode: types.ModeCutoff, ForceOutputLow: true}
		st.cadence++
		if st.cadence%cfg.CadenceLong == 0 {
			st.cadence = 0
			d.StartAcquisition = true
		}
		return d
	}
}
