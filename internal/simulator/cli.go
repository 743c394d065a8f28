package simulator

import (
	"os"
	"strings"
)

// ParseScenarios splits a comma separated scenario list and validates
// every name. An empty list selects all scenarios.
func ParseScenarios(list string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := Lookup(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Names(), nil
	}
	return names, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	var b strings.Builder
	b.WriteString(`Vigil Driver Simulator
======================

Streams synthetic driver feature frames into a running Vigil service and
checks that each scenario produces the expected decisions and alerts.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -scenarios string
        Comma separated scenarios to run (default: all)
  -duration duration
        Length of every synthetic stream (default 10s)
  -fps int
        Frames per second (default 30)
  -batch int
        Frames per request (default 30)
  -workers int
        Scenarios run concurrently (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Noise seed (default 42)
  -verbose
        Log every request
  -help
        Show this help message

Scenarios:
`)
	for _, name := range Names() {
		s, _ := Lookup(name)
		b.WriteString("  " + name + strings.Repeat(" ", max(1, 12-len(name))) + s.Description + "\n")
	}
	b.WriteString(`
Examples:
  # Run every scenario
  go run ./cmd/simulate

  # Only the drowsy and yawning scenarios for 20 seconds
  go run ./cmd/simulate -scenarios drowsy,yawning -duration 20s
`)
	_, _ = os.Stdout.WriteString(b.String())
}
