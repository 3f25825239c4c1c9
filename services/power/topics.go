// services/power/topics.go
package power

import "powerctl-go/bus"

// Retained telemetry layout:
//   power/mode/value
//   power/voltage/value
//   power/led/<colour>/value
//   power/sleep/value
//   power/state
//
// Request topics (reply via the message's reply inbox):
//   power/mode/get       -> ModeValue
//   power/sample/start   -> OKReply or ErrorReply

func topicModeValue() bus.Topic    { return bus.T("power", "mode", "value") }
func topicVoltageValue() bus.Topic { return bus.T("power", "voltage", "value") }
func topicSleepValue() bus.Topic   { return bus.T("power", "sleep", "value") }
func topicState() bus.Topic        { return bus.T("power", "state") }
func topicModeGet() bus.Topic      { return bus.T("power", "mode", "get") }
func topicSampleStart() bus.Topic  { return bus.T("power", "sample", "start") }

func topicLEDValue(colour string) bus.Topic {
	return bus.T("power", "led", colour, "value")
}
