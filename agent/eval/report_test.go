package eval

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// studyReport is a two-configuration report with hand-picked aggregates.
func studyReport() *Report {
	return &Report{Results: []ConfigurationResult{
		{
			Configuration: Configuration{Name: "Full System (5 steps)"},
			Aggregate: Aggregate{
				Configuration:          "Full System (5 steps)",
				Queries:                13,
				FirstContactResolution: 9.0 / 13.0,
				EscalationRate:         4.0 / 13.0,
				IntentAccuracy:         12.0 / 13.0,
				AvgResponseTime:        42 * time.Millisecond,
				AvgSatisfaction:        3.96,
				AvgSteps:               36.0 / 13.0,
			},
		},
		{
			Configuration: Configuration{Name: "Baseline (single agent)", Baseline: true},
			Aggregate: Aggregate{
				Configuration:          "Baseline (single agent)",
				Queries:                13,
				FirstContactResolution: 8.0 / 13.0,
				EscalationRate:         5.0 / 13.0,
				IntentAccuracy:         12.0 / 13.0,
				AvgResponseTime:        11 * time.Millisecond,
				AvgSatisfaction:        3.7,
				AvgSteps:               1,
			},
		},
	}}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := studyReport().WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("WriteTable() produced %d lines, want header, rule, and two rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Configuration") {
		t.Errorf("header = %q, want it to start with Configuration", lines[0])
	}
	if !strings.Contains(lines[2], "69.2%") {
		t.Errorf("full system row = %q, want the FCR rendered as 69.2%%", lines[2])
	}
	if !strings.Contains(lines[2], "42ms") {
		t.Errorf("full system row = %q, want the response time rendered as 42ms", lines[2])
	}
	if !strings.Contains(lines[3], "Baseline (single agent)") {
		t.Errorf("baseline row = %q, want the configuration name", lines[3])
	}
}
