// Command ablation replays the benchmark query set through every study
// configuration and prints the comparison table. Aggregates always land in a
// JSON file; with -postgres they are appended to the ablation_results table
// as well.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/steps"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/eval"
	configx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/config"
	_ "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger/autoload"
	postgresx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/postgres"
)

var (
	querysetPath = flag.String("queryset", "", "path to a query set JSON file (default: embedded benchmark set)")
	outPath      = flag.String("out", "ablation_results.json", "path for the aggregate JSON")
	workers      = flag.Int("workers", 4, "concurrent queries per configuration")
	usePostgres  = flag.Bool("postgres", false, "append aggregates to Postgres (POSTGRES_* environment)")
	runID        = flag.String("run-id", "", "run id grouping the Postgres rows (default: UTC timestamp)")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	queries, err := loadQueries(*querysetPath)
	if err != nil {
		log.Fatalf("Failed to load query set: %v", err)
	}

	build, err := eval.DefaultBuild(steps.Config{})
	if err != nil {
		log.Fatalf("Failed to build the engine factory: %v", err)
	}
	harness, err := eval.New(build, queries, eval.WithWorkers(*workers))
	if err != nil {
		log.Fatalf("Failed to build the harness: %v", err)
	}

	started := time.Now()
	report, err := harness.Run(ctx, eval.DefaultConfigurations())
	if err != nil {
		log.Fatalf("Ablation run failed: %v", err)
	}

	fmt.Printf("\nAblation study: %d queries x %d configurations in %s\n\n",
		len(queries), len(report.Results), time.Since(started).Round(time.Millisecond))
	if err := report.WriteTable(os.Stdout); err != nil {
		log.Fatalf("Failed to render the comparison table: %v", err)
	}

	if err := (eval.JSONSink{Path: *outPath}).Write(ctx, report); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}
	fmt.Printf("\nAggregates written to %s\n", *outPath)

	if *usePostgres {
		if err := writePostgres(ctx, report); err != nil {
			log.Fatalf("Failed to store results in Postgres: %v", err)
		}
		fmt.Println("Aggregates appended to ablation_results")
	}
}

func loadQueries(path string) ([]eval.Query, error) {
	if strings.TrimSpace(path) == "" {
		return eval.DefaultQuerySet()
	}
	return eval.LoadQuerySet(path)
}

func writePostgres(ctx context.Context, report *eval.Report) error {
	cfg := configx.MustNew[postgresx.Config]("POSTGRES")
	db, err := cfg.New(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	id := strings.TrimSpace(*runID)
	if id == "" {
		id = time.Now().UTC().Format("20060102-150405")
	}
	sink, err := eval.NewPostgresSink(db, id)
	if err != nil {
		return err
	}
	return sink.Write(ctx, report)
}
