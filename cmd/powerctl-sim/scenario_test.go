// cmd/powerctl-sim/scenario_test.go
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
adc_codes: [280, 280]
events:
  - at_ms: 0
    switch: true
  - at_ms: 2000
    usb: true
    charging: true
  - at_ms: 5000
    adc_codes: [360]
`)
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.ADCCodes) != 2 || s.ADCCodes[0] != 280 {
		t.Fatalf("adc_codes = %v", s.ADCCodes)
	}
	if len(s.Events) != 3 {
		t.Fatalf("events = %d", len(s.Events))
	}
	if s.Events[0].Switch == nil || !*s.Events[0].Switch {
		t.Fatal("switch event not parsed")
	}
	if s.Events[2].ADCCodes[0] != 360 {
		t.Fatal("adc script event not parsed")
	}
}

func TestLoadScenario_RejectsEmptyEvent(t *testing.T) {
	path := writeScenario(t, `
events:
  - at_ms: 100
`)
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected a validation error for an event with no effect")
	}
}

func TestLoadScenario_RejectsNegativeTime(t *testing.T) {
	path := writeScenario(t, `
events:
  - at_ms: -5
    usb: true
`)
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected a validation error for negative at_ms")
	}
}

func TestScenario_SortedIsStableByTime(t *testing.T) {
	on := true
	s := Scenario{Events: []Event{
		{AtMs: 500, USB: &on},
		{AtMs: 0, Switch: &on},
		{AtMs: 500, Charging: &on},
	}}
	sorted := s.Sorted()
	if sorted[0].AtMs != 0 {
		t.Fatal("events not sorted by time")
	}
	if sorted[1].USB == nil || sorted[2].Charging == nil {
		t.Fatal("equal-time events reordered")
	}
}
