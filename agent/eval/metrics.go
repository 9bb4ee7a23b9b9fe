package eval

import (
	"time"

	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

// Sample scores one finished turn.
type Sample struct {
	QueryID       string        `json:"query_id"`
	Resolved      bool          `json:"resolved"`
	Escalated     bool          `json:"escalated"`
	StepsTaken    int           `json:"steps_taken"`
	Latency       time.Duration `json:"latency"`
	IntentCorrect bool          `json:"intent_correct"`
	Satisfaction  float64       `json:"satisfaction"`
}

// NewSample derives the metric sample from a turn's final state. Resolved
// counts full and partial resolutions alike; first-contact resolution
// subtracts the escalated ones during aggregation.
func NewSample(q Query, conv *statex.Conversation, latency time.Duration) Sample {
	steps := len(conv.Visited)
	if steps == 0 {
		// The one-pass baseline visits no router steps.
		steps = 1
	}
	return Sample{
		QueryID:       q.QueryID,
		Resolved:      conv.Resolution.Resolved(),
		Escalated:     conv.Escalated,
		StepsTaken:    steps,
		Latency:       latency,
		IntentCorrect: conv.Classification != nil && conv.Classification.Intent == q.GroundTruth,
		Satisfaction:  satisfaction(conv),
	}
}

// satisfaction simulates a CSAT score on the 1-5 scale: a neutral 3.0 base,
// a resolution bonus, a classifier-confidence bonus, and an escalation
// penalty. A turn with no classification gets no confidence bonus.
func satisfaction(conv *statex.Conversation) float64 {
	score := 3.0
	switch conv.Resolution {
	case statex.ResolutionResolved:
		score += 1.5
	case statex.ResolutionPartial:
		score += 0.5
	}
	if conv.Classification != nil {
		score += conv.Classification.Confidence * 0.5
	}
	if conv.Escalated {
		score -= 1.0
	}
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}

// Aggregate summarizes one configuration's samples. Rates are fractions in
// [0, 1]; the report renders them as percentages.
type Aggregate struct {
	Configuration          string        `json:"configuration"`
	Queries                int           `json:"queries"`
	FirstContactResolution float64       `json:"first_contact_resolution"`
	EscalationRate         float64       `json:"escalation_rate"`
	IntentAccuracy         float64       `json:"intent_accuracy"`
	AvgResponseTime        time.Duration `json:"avg_response_time"`
	AvgSatisfaction        float64       `json:"avg_satisfaction"`
	AvgSteps               float64       `json:"avg_steps"`
}

// Summarize aggregates samples for one configuration. First-contact
// resolution is the share of turns resolved without escalating.
func Summarize(configuration string, samples []Sample) Aggregate {
	agg := Aggregate{Configuration: configuration, Queries: len(samples)}
	if len(samples) == 0 {
		return agg
	}

	var fcr, escalated, intent int
	var latency time.Duration
	var satisfaction, steps float64
	for _, s := range samples {
		if s.Resolved && !s.Escalated {
			fcr++
		}
		if s.Escalated {
			escalated++
		}
		if s.IntentCorrect {
			intent++
		}
		latency += s.Latency
		satisfaction += s.Satisfaction
		steps += float64(s.StepsTaken)
	}

	n := float64(len(samples))
	agg.FirstContactResolution = float64(fcr) / n
	agg.EscalationRate = float64(escalated) / n
	agg.IntentAccuracy = float64(intent) / n
	agg.AvgResponseTime = latency / time.Duration(len(samples))
	agg.AvgSatisfaction = satisfaction / n
	agg.AvgSteps = steps / n
	return agg
}
