package types

// ------------------------
// Operating mode
// ------------------------

// Mode is the supply's operating mode, 1..9. It is re-derived from the
// current inputs on every wake cycle, never carried as transition state.
type Mode uint8

const (
	// Output off, no USB: everything dark, deepest sleep.
	ModeIdle Mode = 1
	// Output off, charging: red breathing, no power savings.
	ModeChargingStandby Mode = 2
	// Output off, fully charged: red solid, deepest sleep.
	ModeChargedStandby Mode = 3
	// Output on, on battery, voltage good: green solid.
	ModeBatteryGood Mode = 4
	// Output on, on battery, voltage low: green solid, red slow blink.
	ModeBatteryLow Mode = 5
	// Output on, on battery, voltage critical: red fast blink.
	ModeBatteryCritical Mode = 6
	// Output on, on battery, below cutoff: output forced off.
	ModeCutoff Mode = 7
	// Output on, charging: green breathing, no power savings.
	ModeChargingOn Mode = 8
	// Output on, fully charged: green solid.
	ModeChargedOn Mode = 9
)

// Valid reports m is in the 1..9 range.
func (m Mode) Valid() bool { return m >= ModeIdle && m <= ModeChargedOn }

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeChargingStandby:
		return "charging_standby"
	case ModeChargedStandby:
		return "charged_standby"
	case ModeBatteryGood:
		return "battery_good"
	case ModeBatteryLow:
		return "battery_low"
	case ModeBatteryCritical:
		return "battery_critical"
	case ModeCutoff:
		return "cutoff"
	case ModeChargingOn:
		return "charging_on"
	case ModeChargedOn:
		return "charged_on"
	default:
		return "unknown"
	}
}

// ------------------------
// Power configuration enums
// ------------------------

// SleepDepth selects the retention level between wake events.
type SleepDepth uint8

const (
	SleepIdle SleepDepth = iota // timers keep running (breathing modes)
	SleepDeep                   // deepest retention, wake timer only
)

func (d SleepDepth) String() string {
	if d == SleepDeep {
		return "deep"
	}
	return "idle"
}

// WakePeriod selects the periodic wake interval.
type WakePeriod uint8

const (
	WakeLong  WakePeriod = iota // ~1 s
	WakeShort                   // ~0.5 s
)

func (p WakePeriod) String() string {
	if p == WakeShort {
		return "short"
	}
	return "long"
}

// LEDState is the commanded state of one indicator LED.
type LEDState uint8

const (
	LEDOff LEDState = iota
	LEDOn
	LEDBreathe // brightness follows the PWM ramp generator
)

func (s LEDState) String() string {
	switch s {
	case LEDOn:
		return "on"
	case LEDBreathe:
		return "breathe"
	default:
		return "off"
	}
}

// ------------------------
// Bus payloads (retained values under power/...)
// ------------------------

// ModeValue is published retained at power/mode/value.
type ModeValue struct {
	Mode Mode  `json:"mode"`
	TsMs int64 `json:"ts_ms"`
}

// VoltageValue is published retained at power/voltage/value.
// Fixed-point millivolts; comfortably fits uint16 for a 0–5 V supply.
type VoltageValue struct {
	MilliVolts uint16 `json:"millivolts"`
	TsMs       int64  `json:"ts_ms"`
}

// LEDValue is published retained at power/led/<colour>/value.
type LEDValue struct {
	State LEDState `json:"state"`
	TsMs  int64    `json:"ts_ms"`
}

// SleepValue is published retained at power/sleep/value.
type SleepValue struct {
	Depth  SleepDepth `json:"depth"`
	Period WakePeriod `json:"period"`
	TsMs   int64      `json:"ts_ms"`
}

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
