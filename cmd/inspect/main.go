package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to adaptive_select.db")
	last := flag.Int("last", 20, "show N most recent decisions")
	version := flag.String("version", "", "show single snapshot version detail")
	candidate := flag.String("candidate", "", "filter probability breakdown to one candidate")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/adaptive_select.db [--last N] [--version id] [--candidate id] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *version != "" {
		if err := runDetailMode(store, *version, *candidate, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	Iteration       int                `json:"iteration"`
	BatchID         string             `json:"batch_id"`
	VersionID       string             `json:"version_id"`
	Chosen          string             `json:"chosen_candidate"`
	RewardCandidate string             `json:"reward_candidate"`
	Distances       map[string]float64 `json:"distances,omitempty"`
	CreatedAt       string             `json:"created_at"`
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	entries, err := logging.ListDecisions(store.DB(), 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}
	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}

	rows := make([]listRow, len(entries))
	for i, e := range entries {
		lr := listRow{
			Iteration:       e.Iteration,
			BatchID:         e.BatchID,
			VersionID:       e.VersionID,
			Chosen:          e.Chosen,
			RewardCandidate: e.RewardCandidate,
			CreatedAt:       e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.DistancesJSON != "" {
			var d map[string]float64
			if err := json.Unmarshal([]byte(e.DistancesJSON), &d); err == nil {
				lr.Distances = d
			}
		}
		rows[i] = lr
	}

	if jsonOut {
		return printJSON(rows)
	}
	return printListTable(store, rows)
}

func printListTable(store *state.Store, rows []listRow) error {
	fmt.Printf("%5s  %-12s  %-12s  %-16s  %-16s  %s\n",
		"Iter", "Batch", "Version", "Chosen", "Rewarded", "Time")
	fmt.Printf("%5s+-%-12s+-%-12s+-%-16s+-%-16s+-%s\n",
		"-----", "------------", "------------", "----------------", "----------------", "--------------------")

	for _, r := range rows {
		fmt.Printf("%5d  %-12s  %-12s  %-16s  %-16s  %s\n",
			r.Iteration, shortID(r.BatchID), shortID(r.VersionID),
			r.Chosen, r.RewardCandidate, r.CreatedAt)
	}

	current, err := store.GetCurrent()
	if err != nil {
		return nil
	}
	fmt.Printf("\nSelector probabilities (active version %s, iteration %d):\n",
		shortID(current.VersionID), current.Snapshot.Iteration)
	printProbabilities(current.Snapshot.Selector.Arms, current.Snapshot.Selector.Probabilities, "")
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID     string             `json:"version_id"`
	ParentID      string             `json:"parent_id"`
	CreatedAt     string             `json:"created_at"`
	Iteration     int                `json:"iteration"`
	LastReward    float64            `json:"last_reward"`
	Metric        string             `json:"metric"`
	ClassDim      int                `json:"class_dim"`
	Probabilities map[string]float64 `json:"probabilities"`
	Estimators    map[string]string  `json:"estimators"`
}

func runDetailMode(store *state.Store, versionID, candFilter string, jsonOut bool) error {
	rec, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}

	snap := rec.Snapshot
	probs := make(map[string]float64, len(snap.Selector.Arms))
	for i, arm := range snap.Selector.Arms {
		probs[arm] = snap.Selector.Probabilities[i]
	}
	estimators := make(map[string]string, len(snap.Estimators))
	for id, est := range snap.Estimators {
		if len(est.Probs) == 0 {
			estimators[id] = "unfit"
		} else {
			estimators[id] = fmt.Sprintf("fit (%d bins, feature dim %d)", est.Bins, est.FeatureDim)
		}
	}

	out := detailOutput{
		VersionID:     rec.VersionID,
		ParentID:      rec.ParentID,
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Iteration:     snap.Iteration,
		LastReward:    snap.LastReward,
		Metric:        snap.Metric,
		ClassDim:      snap.ClassDim,
		Probabilities: probs,
		Estimators:    estimators,
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Version:     %s\n", out.VersionID)
	fmt.Printf("Parent:      %s\n", out.ParentID)
	fmt.Printf("Created:     %s\n", out.CreatedAt)
	fmt.Printf("Iteration:   %d\n", out.Iteration)
	fmt.Printf("Last Reward: %.6f\n", out.LastReward)
	fmt.Printf("Metric:      %s\n", out.Metric)
	fmt.Printf("Class Dim:   %d\n", out.ClassDim)

	fmt.Printf("\nSelector probabilities:\n")
	printProbabilities(snap.Selector.Arms, snap.Selector.Probabilities, candFilter)

	fmt.Printf("\nEstimators:\n")
	ids := make([]string, 0, len(estimators))
	for id := range estimators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if candFilter != "" && id != candFilter {
			continue
		}
		fmt.Printf("  %-16s %s\n", id, estimators[id])
	}

	return nil
}

// #endregion detail-mode

// #region output

func printProbabilities(arms []string, probs []float64, filter string) {
	for i, arm := range arms {
		if filter != "" && arm != filter {
			continue
		}
		if i < len(probs) {
			fmt.Printf("  %-16s %.6f\n", arm, probs[i])
		}
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
