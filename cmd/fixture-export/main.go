package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/replay"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to adaptive_select.db")
	last := flag.Int("last", 20, "number of most recent decisions to export")
	seed := flag.Int64("seed", 1, "seed for the exported fixture (the recorded run's seed is not persisted)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--last N] [--seed S]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *seed, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath string, last int, seed int64, outPath string) error {
	if seed == 0 {
		return fmt.Errorf("seed must be nonzero: fixtures require a fixed seed")
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	// The root version (no parent) carries the loop config the run
	// started from.
	var rootVersionID string
	err = store.DB().QueryRow(
		`SELECT version_id FROM snapshot_versions WHERE parent_id IS NULL ORDER BY created_at ASC LIMIT 1`,
	).Scan(&rootVersionID)
	if err != nil {
		return fmt.Errorf("find root version: %w", err)
	}
	root, err := store.GetVersion(rootVersionID)
	if err != nil {
		return fmt.Errorf("get root version: %w", err)
	}

	entries, err := logging.ListDecisions(store.DB(), 0)
	if err != nil {
		return fmt.Errorf("query decision log: %w", err)
	}
	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}

	var batches []controller.Batch
	var expected []replay.FixtureExpectedResult
	skipped := 0
	for _, e := range entries {
		if e.BatchJSON == "" {
			skipped++
			continue
		}
		var batch controller.Batch
		if err := json.Unmarshal([]byte(e.BatchJSON), &batch); err != nil {
			skipped++
			continue
		}
		// Chosen is a stochastic draw tied to the recorded run's seed,
		// which is not persisted; only the arg-min reward is replayable.
		batches = append(batches, batch)
		expected = append(expected, replay.FixtureExpectedResult{
			RewardCandidate: e.RewardCandidate,
		})
	}
	if len(batches) == 0 {
		return fmt.Errorf("no replayable batches in last %d decisions", last)
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d decisions without batch JSON\n", skipped)
	}

	fixture := buildFixture(root.Snapshot, seed, batches, expected)
	if err := replay.SaveFixture(outPath, &fixture); err != nil {
		return err
	}

	fmt.Printf("Wrote fixture to %s (%d batches)\n", outPath, len(fixture.Batches))
	return nil
}

// #endregion extract

// #region build

func buildFixture(snap controller.Snapshot, seed int64, batches []controller.Batch, expected []replay.FixtureExpectedResult) replay.Fixture {
	return replay.Fixture{
		Description: fmt.Sprintf("Recorded run export: %d batches from decision log", len(batches)),
		Config: replay.FixtureConfig{
			Candidates: snap.Candidates,
			Metric:     snap.Metric,
			WindowSize: snap.WindowSize,
			Bins:       snap.Bins,
			Dims:       snap.Dims,
			Alpha:      snap.Selector.Alpha,
			V:          snap.Selector.V,
			Seed:       seed,
		},
		Batches:         batches,
		ExpectedResults: expected,
	}
}

// #endregion build
