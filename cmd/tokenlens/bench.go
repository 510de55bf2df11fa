package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/go-tokenlens/internal/bench"
	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/registry"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		model         string
		text          string
		runs          int
		format        string
		fast          bool
		minThroughput float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark tokenize latency and throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			results, err := runBench(cmd.Context(), cfg, benchOptions{
				Model: model,
				Text:  text,
				Runs:  runs,
				Fast:  fast,
			})
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, os.Stdout)
			default:
				bench.FormatTable(results, stats, os.Stdout)
			}

			// Compute mean throughput across all runs.
			var total float64
			for _, r := range results {
				total += r.TokensPerSec
			}
			mean := total / float64(len(results))

			if err := bench.CheckThroughputThreshold(mean, minThroughput); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "cl100k_base", "Model or encoding identifier")
	cmd.Flags().StringVar(&text, "text", "", "Text to tokenize for each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of tokenize runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().BoolVar(&fast, "fast", false, "Count only; skip the aligned segment breakdown")
	cmd.Flags().Float64Var(&minThroughput, "min-throughput", 0, "Exit non-zero if mean tokens/sec falls below this value (0 = disabled)")

	return cmd
}

type benchOptions struct {
	Model string
	Text  string
	Runs  int
	Fast  bool
}

// runBench resolves the tokenizer through a fresh registry so the first
// run pays construction cost and is reported as the cold run.
func runBench(ctx context.Context, cfg config.Config, opts benchOptions) ([]bench.RunResult, error) {
	reg, err := newTokenizerRegistry(cfg, newVocabFetcher(cfg))
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	results := make([]bench.RunResult, 0, opts.Runs)

	for i := 0; i < opts.Runs; i++ {
		start := time.Now()

		tok, err := reg.Resolve(ctx, opts.Model, registry.ResolveOptions{})
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		res, err := tok.Tokenize(opts.Text, tokenizer.Options{FastMode: opts.Fast})
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		results = append(results, bench.RunResult{
			Index:        i,
			Cold:         i == 0,
			Duration:     dur,
			Tokens:       res.Count,
			TokensPerSec: bench.CalcThroughput(res.Count, dur),
		})
	}

	return results, nil
}
