// services/power/config.go
package power

// Config collects the compiled-in constants of the controller. The
// zero value is completed by withDefaults; there is no runtime
// reconfiguration surface.
type Config struct {
	// CalibrationK converts a raw conversion code to millivolts as
	// mV = CalibrationK / raw. The default matches a 1.1 V internal
	// reference sampled against the supply at 10-bit resolution; it
	// must be re-derived if the reference or resolution changes.
	CalibrationK uint32

	// SamplesPerCycle conversions are averaged into one reading.
	SamplesPerCycle uint8

	// InitialMilliVolts is published until the first average lands.
	InitialMilliVolts uint16

	// Battery thresholds, strict > comparisons, no hysteresis.
	BatteryGoodMilliVolts     uint16
	BatteryLowMilliVolts      uint16
	BatteryCriticalMilliVolts uint16

	// Evaluation cycles between acquisitions: CadenceLong at the ~1 s
	// wake period, CadenceShort at the ~0.5 s period (mode 6).
	CadenceLong  uint8
	CadenceShort uint8

	// Breathing ramp: one level step per RampSpeed PWM ticks, duty
	// bounded to [PWMMin, PWMMax], starting from InitialDuty.
	RampSpeed   uint8
	PWMMin      uint8
	PWMMax      uint8
	InitialDuty uint8
}

const (
	defaultCalibrationK    = 1126400
	defaultSamplesPerCycle = 10
	defaultInitialVoltage  = 4000

	defaultBatteryGood     = 3419 // ~3.5 V at the divider
	defaultBatteryLow      = 3304 // ~3.4 V
	defaultBatteryCritical = 3209 // ~3.3 V

	defaultCadenceLong  = 4
	defaultCadenceShort = 8

	defaultRampSpeed   = 3
	defaultPWMMax      = 253
	defaultInitialDuty = 70
)

func (c Config) withDefaults() Config {
	if c.CalibrationK == 0 {
		c.CalibrationK = defaultCalibrationK
	}
	if c.SamplesPerCycle == 0 {
		c.SamplesPerCycle = defaultSamplesPerCycle
	}
	if c.InitialMilliVolts == 0 {
		c.InitialMilliVolts = defaultInitialVoltage
	}
	if c.BatteryGoodMilliVolts == 0 {
		c.BatteryGoodMilliVolts = defaultBatteryGood
	}
	if c.BatteryLowMilliVolts == 0 {
		c.BatteryLowMilliVolts = defaultBatteryLow
	}
	if c.BatteryCriticalMilliVolts == 0 {
		c.BatteryCriticalMilliVolts = defaultBatteryCritical
	}
	if c.CadenceLong == 0 {
		c.CadenceLong = defaultCadenceLong
	}
	if c.CadenceShort == 0 {
		c.CadenceShort = defaultCadenceShort
	}
	if c.RampSpeed == 0 {
		c.RampSpeed = defaultRampSpeed
	}
	if c.PWMMax == 0 {
		c.PWMMax = defaultPWMMax
	}
	if c.InitialDuty == 0 {
		c.InitialDuty = defaultInitialDuty
	}
	return c
}
