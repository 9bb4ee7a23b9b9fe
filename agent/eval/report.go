package eval

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Report is the ordered outcome of one harness run.
type Report struct {
	Results []ConfigurationResult
}

// ConfigurationResult pairs a configuration with its samples and their
// aggregate.
type ConfigurationResult struct {
	Configuration Configuration
	Samples       []Sample
	Aggregate     Aggregate
}

// Aggregates returns the flat record set, one row per configuration, in run
// order.
func (r *Report) Aggregates() []Aggregate {
	out := make([]Aggregate, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.Aggregate)
	}
	return out
}

// WriteTable renders the comparison table.
func (r *Report) WriteTable(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-28s %8s %8s %8s %12s %6s %6s\n", "Configuration", "FCR", "ER", "Intent", "ART", "CSAT", "Steps"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 82)); err != nil {
		return err
	}
	for _, res := range r.Results {
		a := res.Aggregate
		if _, err := fmt.Fprintf(w, "%-28s %7.1f%% %7.1f%% %7.1f%% %12s %6.2f %6.1f\n",
			a.Configuration,
			a.FirstContactResolution*100,
			a.EscalationRate*100,
			a.IntentAccuracy*100,
			a.AvgResponseTime.Round(time.Millisecond),
			a.AvgSatisfaction,
			a.AvgSteps,
		); err != nil {
			return err
		}
	}
	return nil
}
