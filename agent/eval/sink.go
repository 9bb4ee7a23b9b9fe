package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Sink receives a finished report.
type Sink interface {
	Write(ctx context.Context, report *Report) error
}

// JSONSink writes the aggregate record set to a file.
type JSONSink struct {
	Path string
}

func (s JSONSink) Write(ctx context.Context, report *Report) error {
	raw, err := json.MarshalIndent(report.Aggregates(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode ablation results: %w", err)
	}
	if err := os.WriteFile(s.Path, raw, 0o644); err != nil {
		return fmt.Errorf("write ablation results: %w", err)
	}
	return nil
}

// ResultRow is the Postgres shape of one configuration's aggregate. Rows
// accumulate across runs; RunID groups the rows of a single study.
type ResultRow struct {
	bun.BaseModel `bun:"table:ablation_results"`

	ID                     int64     `bun:"id,pk,autoincrement"`
	RunID                  string    `bun:"run_id,notnull"`
	Configuration          string    `bun:"configuration,notnull"`
	Queries                int       `bun:"queries,notnull"`
	FirstContactResolution float64   `bun:"first_contact_resolution,notnull"`
	EscalationRate         float64   `bun:"escalation_rate,notnull"`
	IntentAccuracy         float64   `bun:"intent_accuracy,notnull"`
	AvgResponseTimeMS      float64   `bun:"avg_response_time_ms,notnull"`
	AvgSatisfaction        float64   `bun:"avg_satisfaction,notnull"`
	AvgSteps               float64   `bun:"avg_steps,notnull"`
	CreatedAt              time.Time `bun:"created_at,notnull"`
}

// PostgresSink appends one row per configuration to ablation_results.
type PostgresSink struct {
	db    *bun.DB
	runID string
	now   func() time.Time
}

func NewPostgresSink(db *bun.DB, runID string) (*PostgresSink, error) {
	if db == nil {
		return nil, errors.New("eval: postgres sink requires a database")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("eval: postgres sink requires a run id")
	}
	return &PostgresSink{db: db, runID: strings.TrimSpace(runID), now: time.Now}, nil
}

func (s *PostgresSink) Write(ctx context.Context, report *Report) error {
	if _, err := s.db.NewCreateTable().Model((*ResultRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("ensure ablation_results table: %w", err)
	}

	rows := make([]ResultRow, 0, len(report.Results))
	created := s.now().UTC()
	for _, res := range report.Results {
		a := res.Aggregate
		rows = append(rows, ResultRow{
			RunID:                  s.runID,
			Configuration:          a.Configuration,
			Queries:                a.Queries,
			FirstContactResolution: a.FirstContactResolution,
			EscalationRate:         a.EscalationRate,
			IntentAccuracy:         a.IntentAccuracy,
			AvgResponseTimeMS:      float64(a.AvgResponseTime) / float64(time.Millisecond),
			AvgSatisfaction:        a.AvgSatisfaction,
			AvgSteps:               a.AvgSteps,
			CreatedAt:              created,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert ablation results: %w", err)
	}
	return nil
}

var (
	_ Sink = JSONSink{}
	_ Sink = (*PostgresSink)(nil)
)
