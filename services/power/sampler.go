// services/power/sampler.go
package power

import (
	"powerctl-go/errcode"
)

// sampler owns the voltage acquisition cycle: a fixed number of
// conversions against the internal reference, each converted to
// millivolts and accumulated, published as one integer average.
// Only one cycle may be in flight.
type sampler struct {
	cfg Config
	adc AnalogChannel

	sum    uint32
	taken  uint8
	active bool

	voltage uint16 // last completed average
}

func newSampler(cfg Config, adc AnalogChannel) *sampler {
	return &sampler{
		cfg:     cfg,
		adc:     adc,
		voltage: cfg.InitialMilliVolts,
	}
}

// Voltage returns the most recently completed average. A cycle in
// flight never shows through here.
func (s *sampler) Voltage() uint16 { return s.voltage }

// Active reports whether a cycle is in flight.
func (s *sampler) Active() bool { return s.active }

// Start enables the analog subsystem and begins a new cycle. A cycle
// already in flight is left alone.
func (s *sampler) Start() error {
	if s.active {
		return errcode.AcquisitionActive
	}
	s.active = true
	s.sum = 0
	s.taken = 0
	s.adc.Enable()
	s.adc.Convert()
	return nil
}

// Abort drops a cycle in flight and shuts the analog subsystem off.
// Used when actuation moves to a mode that does not sample.
func (s *sampler) Abort() {
	s.active = false
	s.sum = 0
	s.taken = 0
	s.adc.Disable()
}

// OnResult consumes one completed conversion. Each code re-arms the
// next conversion until the cycle is full; the final code publishes
// the average and disables the analog subsystem. Returns true when
// the cycle completed on this call.
func (s *sampler) OnResult(raw uint16) bool {
	if !s.active {
		return false
	}
	if raw == 0 {
		raw = 1 // an open channel reads 0; avoid the division
	}
	s.sum += s.cfg.CalibrationK / uint32(raw)
	s.taken++
	if s.taken < s.cfg.SamplesPerCycle {
		s.adc.Convert()
		return false
	}
	s.voltage = uint16(s.sum / uint32(s.cfg.SamplesPerCycle))
	s.active = false
	s.adc.Disable()
	return true
}
