package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

const defaultWorkers = 4

// BuildFunc constructs a runner for one configuration. The harness calls it
// once per query: tool backends hold mutable order and refund state, and a
// fresh engine per query keeps one query's mutations out of the next one's
// results.
type BuildFunc func(cfg Configuration) (contractx.TurnRunner, error)

// Harness replays the query set through each configuration and collects one
// sample per query. It holds no mutable state across runs; the same harness
// with deterministic collaborators produces identical reports on every run.
type Harness struct {
	build   BuildFunc
	queries []Query
	workers int
	now     func() time.Time
}

type Option func(*Harness)

// WithWorkers bounds how many queries run concurrently within one
// configuration.
func WithWorkers(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithClock replaces the latency clock.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) {
		if now != nil {
			h.now = now
		}
	}
}

func New(build BuildFunc, queries []Query, opts ...Option) (*Harness, error) {
	if build == nil {
		return nil, errors.New("eval: build function is required")
	}
	if len(queries) == 0 {
		return nil, errors.New("eval: query set is empty")
	}
	h := &Harness{build: build, queries: queries, workers: defaultWorkers, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run evaluates every configuration in order. Configurations run serially so
// their results land in one ordered report; queries within a configuration
// run on a bounded worker pool, each into its own result slot.
func (h *Harness) Run(ctx context.Context, configurations []Configuration) (*Report, error) {
	if len(configurations) == 0 {
		return nil, errors.New("eval: no configurations to run")
	}

	report := &Report{}
	for _, cfg := range configurations {
		logx.Info().Str("configuration", cfg.Name).Int("queries", len(h.queries)).Msg("ablation configuration started")
		samples, err := h.runConfiguration(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: %w", cfg.Name, err)
		}
		agg := Summarize(cfg.Name, samples)
		report.Results = append(report.Results, ConfigurationResult{Configuration: cfg, Samples: samples, Aggregate: agg})
		logx.Info().
			Str("configuration", cfg.Name).
			Float64("fcr", agg.FirstContactResolution).
			Float64("escalation_rate", agg.EscalationRate).
			Float64("csat", agg.AvgSatisfaction).
			Msg("ablation configuration finished")
	}
	return report, nil
}

func (h *Harness) runConfiguration(ctx context.Context, cfg Configuration) ([]Sample, error) {
	samples := make([]Sample, len(h.queries))
	errs := make([]error, len(h.queries))

	sem := make(chan struct{}, h.workers)
	var wg sync.WaitGroup
	for i, q := range h.queries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, q Query) {
			defer wg.Done()
			defer func() { <-sem }()
			samples[i], errs[i] = h.runQuery(ctx, cfg, q)
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return samples, nil
}

func (h *Harness) runQuery(ctx context.Context, cfg Configuration, q Query) (Sample, error) {
	runner, err := h.build(cfg)
	if err != nil {
		return Sample{}, fmt.Errorf("build engine: %w", err)
	}

	start := h.now()
	conv, err := runner.ProcessTurn(ctx, q.Text, nil)
	latency := h.now().Sub(start)
	if err != nil {
		return Sample{}, fmt.Errorf("query %s: %w", q.QueryID, err)
	}
	return NewSample(q, conv, latency), nil
}
