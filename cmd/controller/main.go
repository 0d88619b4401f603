package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/state"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/telemetry"
)

// #region main
func main() {
	dbPath := envOr("SELECT_DB", "adaptive_select.db")
	candidates := strings.Split(envOr("SELECT_CANDIDATES", "a,b"), ",")
	metricName := envOr("SELECT_METRIC", "js_divergence")
	seed := envInt64("SELECT_SEED", 0)

	metric, err := metrics.ParseMetric(metricName)
	if err != nil {
		log.Fatalf("invalid metric %q: %v", metricName, err)
	}

	// Initialize state store
	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := logging.EnsureSchema(store.DB()); err != nil {
		log.Fatalf("failed to prepare decision log: %v", err)
	}

	// Resume from the active snapshot when one exists, otherwise start a
	// fresh controller from the env config.
	var ctrl *controller.Controller
	emitter := telemetry.LogEmitter{}
	current, err := store.GetCurrent()
	if err == nil {
		ctrl, err = controller.FromSnapshot(current.Snapshot, seed, emitter)
		if err != nil {
			log.Fatalf("failed to restore snapshot %s: %v", current.VersionID, err)
		}
		log.Printf("[MAIN] resumed from version %s (iteration %d)", current.VersionID, ctrl.Iteration())
	} else {
		cfg := controller.DefaultConfig(candidates)
		cfg.Metric = metric
		cfg.Seed = seed
		ctrl, err = controller.New(cfg, emitter)
		if err != nil {
			log.Fatalf("failed to create controller: %v", err)
		}
		log.Printf("[MAIN] fresh controller, candidates=%v metric=%s", candidates, metric)
	}

	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())

	fmt.Println("Adaptive Select Controller ready.")
	fmt.Printf("  DB: %s | Metric: %s | Candidates: %s\n", dbPath, metric, strings.Join(ctrl.Candidates(), ","))
	fmt.Println("Paste a JSON batch per line (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		var batch controller.Batch
		if err := json.Unmarshal([]byte(line), &batch); err != nil {
			log.Printf("invalid batch JSON: %v", err)
			continue
		}

		decision, err := ctrl.ProcessBatch(batch)
		if err != nil {
			log.Printf("batch rejected: %v", err)
			continue
		}

		// Commit new snapshot version
		record, err := store.SaveSnapshot(ctrl.Snapshot())
		if err != nil {
			log.Printf("snapshot error: %v", err)
			continue
		}

		distancesJSON, _ := json.Marshal(decision.Distances)
		probsJSON, _ := json.Marshal(decision.Probabilities)
		batchJSON, _ := json.Marshal(batch)
		err = logging.LogDecision(store.DB(), logging.DecisionEntry{
			VersionID:         record.VersionID,
			BatchID:           decision.BatchID,
			Iteration:         decision.Iteration,
			Chosen:            decision.Chosen,
			RewardCandidate:   decision.RewardCandidate,
			DistancesJSON:     string(distancesJSON),
			ProbabilitiesJSON: string(probsJSON),
			BatchJSON:         string(batchJSON),
			CreatedAt:         time.Now().UTC(),
		})
		if err != nil {
			log.Printf("logging error: %v", err)
		}

		if result := harness.Run(ctrl.State()); !result.Passed {
			log.Printf("invariant check failed after iteration %d: %s", decision.Iteration, result.Reason)
		}

		fmt.Printf("[%s] iter=%d chosen=%s reward=%s took=%s\n",
			decision.BatchID, decision.Iteration, decision.Chosen,
			decision.RewardCandidate, decision.Duration.Round(time.Microsecond))
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid %s: %v", key, err)
		}
		return n
	}
	return fallback
}

// #endregion helpers
