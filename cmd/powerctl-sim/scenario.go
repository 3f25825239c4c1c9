// cmd/powerctl-sim/scenario.go
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a timed script of external conditions: the output
// switch, the USB supply, the charge-status line and the raw codes
// the converter returns.
type Scenario struct {
	// ADCCodes seeds the converter script; an empty list leaves the
	// converter reading open (code 0).
	ADCCodes []uint16 `yaml:"adc_codes"`
	Events   []Event  `yaml:"events"`
}

// Event applies at AtMs milliseconds into the run. Absent fields
// leave the corresponding input untouched.
type Event struct {
	AtMs     int     `yaml:"at_ms"`
	Switch   *bool   `yaml:"switch"`
	USB      *bool   `yaml:"usb"`
	Charging *bool   `yaml:"charging"`
	// ADCCodes replaces the converter script from this point on.
	ADCCodes []uint16 `yaml:"adc_codes"`
}

func (e Event) At() time.Duration { return time.Duration(e.AtMs) * time.Millisecond }

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s Scenario) Validate() error {
	for i, e := range s.Events {
		if e.AtMs < 0 {
			return fmt.Errorf("event %d: at_ms must not be negative", i)
		}
		if e.Switch == nil && e.USB == nil && e.Charging == nil && len(e.ADCCodes) == 0 {
			return fmt.Errorf("event %d: no effect", i)
		}
	}
	return nil
}

// Sorted returns the events in application order.
func (s Scenario) Sorted() []Event {
	out := make([]Event, len(s.Events))
	copy(out, s.Events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AtMs < out[j].AtMs })
	return out
}
