package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("v", false, "print per-batch detail")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	results, summary, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	os.Exit(printResults(f, results, summary, *verbose))
}

// #endregion main

// #region output

func printResults(f *replay.Fixture, results []replay.ReplayResult, summary replay.ReplaySummary, verbose bool) int {
	if f.Description != "" {
		fmt.Printf("Fixture: %s\n\n", f.Description)
	}

	fmt.Printf("%-6s| %-6s| %-16s| %-16s| %s\n", "Batch", "Iter", "Chosen", "Rewarded", "Status")
	fmt.Printf("%-6s+%-7s+%-17s+%-17s+%s\n",
		"------", "-------", "-----------------", "-----------------", "----------")

	for _, r := range results {
		status := "OK"
		switch {
		case r.Err != nil:
			status = "REJECTED"
		case r.Mismatch != "":
			status = "DIFF"
		case r.Eval != nil && !r.Eval.Passed:
			status = "EVAL FAIL"
		}

		if r.Err != nil {
			fmt.Printf("%-6d| %-6s| %-16s| %-16s| %s\n", r.Index, "—", "—", "—", status)
			if verbose {
				fmt.Printf("        error: %v\n", r.Err)
			}
			continue
		}

		fmt.Printf("%-6d| %-6d| %-16s| %-16s| %s\n",
			r.Index, r.Decision.Iteration, r.Decision.Chosen, r.Decision.RewardCandidate, status)
		if verbose {
			if r.Mismatch != "" {
				fmt.Printf("        mismatch: %s\n", r.Mismatch)
			}
			if r.Eval != nil && !r.Eval.Passed {
				fmt.Printf("        eval: %s\n", r.Eval.Reason)
			}
		}
	}

	fmt.Printf("\nSummary: %d total, %d committed, %d rejected, %d mismatch, %d eval failures (final iteration %d)\n",
		summary.TotalBatches, summary.Committed, summary.Failed,
		summary.Mismatches, summary.EvalFailures, summary.FinalIteration)

	if summary.Mismatches > 0 || summary.EvalFailures > 0 {
		return 1
	}
	return 0
}

// #endregion output
