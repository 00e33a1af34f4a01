// Command pipeline loads parsed agency feed files, merges them into
// canonical drug records, and applies the batch with change detection.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"regscope/internal/agency"
	"regscope/internal/changelog"
	"regscope/internal/detect"
	"regscope/internal/merge"
	"regscope/internal/normalize"
	"regscope/internal/platform/config"
	"regscope/internal/platform/logger"
	"regscope/internal/platform/metrics"
	"regscope/internal/score"
	"regscope/internal/status"
	"regscope/pkg/platform/tx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		fdaPath  = flag.String("fda", "", "path to parsed FDA feed (JSON array)")
		emaPath  = flag.String("ema", "", "path to parsed EMA feed (JSON array)")
		mfdsPath = flag.String("mfds", "", "path to parsed MFDS feed (JSON array)")
		runID    = flag.String("run-id", "", "pipeline run id; empty generates one, 'none' disables change logging")
		timeout  = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()

	if *fdaPath == "" && *emaPath == "" && *mfdsPath == "" {
		return fmt.Errorf("at least one of -fda, -ema, -mfds is required")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("REGSCOPE_DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	batch, err := loadBatch(ctx, *fdaPath, *emaPath, *mfdsPath)
	if err != nil {
		return err
	}
	log.Info("feeds loaded",
		"fda", len(batch.FDA), "ema", len(batch.EMA), "mfds", len(batch.MFDS))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	statusStore := status.NewPostgresStore(db)
	if err := statusStore.Migrate(ctx); err != nil {
		return err
	}
	changeStore := changelog.NewPostgresStore(db)
	if err := changeStore.Migrate(ctx); err != nil {
		return err
	}

	publisher, err := changelog.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	defer publisher.Close()

	merger := merge.NewMerger(merge.NewBuilder(
		normalize.New(normalize.DefaultSynonyms()), score.New()))
	statuses := merger.Merge(batch)
	log.Info("batch merged", "drugs", len(statuses))

	id := *runID
	switch id {
	case "":
		id = uuid.NewString()
	case "none":
		id = ""
	}

	runner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return tx.RunInTx(ctx, db, fn)
	}
	detector := detect.New(statusStore, changeStore, runner, publisher, metrics.New(), log)

	result, err := detector.Detect(ctx, statuses, id)
	if err != nil {
		return err
	}

	log.Info("pipeline run complete",
		"run_id", id,
		"drugs", result.Drugs,
		"events", result.Events,
		"changed", result.Changes,
		"entries", result.Entries,
	)
	return nil
}

// loadBatch reads the three feed files concurrently; a missing flag just
// leaves that feed empty.
func loadBatch(ctx context.Context, fdaPath, emaPath, mfdsPath string) (merge.Batch, error) {
	var batch merge.Batch
	g, _ := errgroup.WithContext(ctx)

	if fdaPath != "" {
		g.Go(func() error { return readFeed(fdaPath, &batch.FDA) })
	}
	if emaPath != "" {
		g.Go(func() error { return readFeed(emaPath, &batch.EMA) })
	}
	if mfdsPath != "" {
		g.Go(func() error { return readFeed(mfdsPath, &batch.MFDS) })
	}

	if err := g.Wait(); err != nil {
		return merge.Batch{}, err
	}
	return batch, nil
}

func readFeed[T agency.FDARecord | agency.EMARecord | agency.MFDSRecord](path string, dst *[]T) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feed %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse feed %s: %w", path, err)
	}
	return nil
}
