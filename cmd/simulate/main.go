package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/state"
)

// #region main
func main() {
	dbPath := envOr("SELECT_DB", "adaptive_select.db")
	metricName := envOr("SELECT_METRIC", "js_divergence")
	batches := envInt("SELECT_BATCHES", 50)
	classDim := envInt("SELECT_CLASS_DIM", 4)
	seed := int64(envInt("SELECT_SEED", 42))

	metric, err := metrics.ParseMetric(metricName)
	if err != nil {
		log.Fatalf("invalid metric %q: %v", metricName, err)
	}

	// Three synthetic candidates with different noise levels around the
	// target distribution: "sharp" tracks it closely, "noisy" less so,
	// "uniform" ignores it entirely.
	candidates := []string{"sharp", "noisy", "uniform"}
	noise := map[string]float64{"sharp": 0.02, "noisy": 0.15, "uniform": -1}

	fmt.Println("=== Synthetic Run Simulator ===")
	fmt.Printf("  DB: %s | Metric: %s | Batches: %d | Class dim: %d | Seed: %d\n",
		dbPath, metric, batches, classDim, seed)

	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := logging.EnsureSchema(store.DB()); err != nil {
		log.Fatalf("failed to prepare decision log: %v", err)
	}

	cfg := controller.DefaultConfig(candidates)
	cfg.Metric = metric
	cfg.Seed = seed
	ctrl, err := controller.New(cfg, nil)
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	// Commit the fresh config as the root version so downstream tools
	// can recover the loop parameters.
	if _, err := store.SaveSnapshot(ctrl.Snapshot()); err != nil {
		log.Fatalf("failed to save root snapshot: %v", err)
	}

	rng := rand.New(rand.NewSource(seed))
	rewards := make(map[string]int, len(candidates))

	for i := 0; i < batches; i++ {
		target := drawTarget(rng, classDim)
		batch := controller.Batch{
			Outputs: make(map[string]controller.Rows, len(candidates)),
			Target:  controller.Rows{target},
		}
		for _, id := range candidates {
			batch.Outputs[id] = controller.Rows{perturb(rng, target, noise[id])}
		}

		decision, err := ctrl.ProcessBatch(batch)
		if err != nil {
			log.Fatalf("batch %d rejected: %v", i, err)
		}
		rewards[decision.RewardCandidate]++

		record, err := store.SaveSnapshot(ctrl.Snapshot())
		if err != nil {
			log.Fatalf("snapshot error: %v", err)
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
			log.Fatalf("logging error: %v", err)
		}

		if (i+1)%10 == 0 || i+1 == batches {
			fmt.Printf("  [%d/%d] rewarded=%s p(%s)=%.3f\n",
				i+1, batches, decision.RewardCandidate,
				decision.RewardCandidate, decision.Probabilities[decision.RewardCandidate])
		}
	}

	fmt.Printf("\n=== Simulation Complete ===\n")
	fmt.Printf("  Iterations: %d\n", ctrl.Iteration())
	for _, id := range candidates {
		fmt.Printf("  %-10s rewarded %d times\n", id, rewards[id])
	}
	fmt.Printf("  Final probabilities: %s\n", formatProbs(ctrl.State()))
}

// #endregion main

// #region synth
// drawTarget samples a random point on the probability simplex.
func drawTarget(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	total := 0.0
	for i := range v {
		v[i] = rng.ExpFloat64()
		total += v[i]
	}
	for i := range v {
		v[i] /= total
	}
	return v
}

// perturb adds multiplicative noise to a distribution and renormalizes.
// A negative level means ignore the input and return uniform.
func perturb(rng *rand.Rand, target []float64, level float64) []float64 {
	out := make([]float64, len(target))
	if level < 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	total := 0.0
	for i, t := range target {
		out[i] = t * (1 + level*rng.NormFloat64())
		if out[i] < 1e-9 {
			out[i] = 1e-9
		}
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func formatProbs(snap controller.Snapshot) string {
	parts := make([]string, len(snap.Selector.Arms))
	for i, arm := range snap.Selector.Arms {
		parts[i] = fmt.Sprintf("%s=%.3f", arm, snap.Selector.Probabilities[i])
	}
	return strings.Join(parts, " ")
}

// #endregion synth

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid %s: %v", key, err)
		}
		return n
	}
	return fallback
}

// #endregion helpers
