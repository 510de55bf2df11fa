package main

import (
	"context"
	"testing"

	"github.com/example/go-tokenlens/internal/config"
)

func TestRunBench_SingleRun(t *testing.T) {
	results, err := runBench(context.Background(), config.DefaultConfig(), benchOptions{
		Model: "cl100k_base",
		Text:  "hello tokenized world",
		Runs:  1,
	})
	if err != nil {
		t.Fatalf("runBench: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	if !results[0].Cold {
		t.Error("first run should be marked Cold")
	}

	if results[0].Duration <= 0 {
		t.Error("expected positive duration")
	}

	if results[0].Tokens == 0 {
		t.Error("expected non-zero token count")
	}

	if results[0].TokensPerSec <= 0 {
		t.Errorf("expected positive throughput, got %v", results[0].TokensPerSec)
	}
}

func TestRunBench_MultipleRuns(t *testing.T) {
	results, err := runBench(context.Background(), config.DefaultConfig(), benchOptions{
		Model: "cl100k_base",
		Text:  "hello tokenized world",
		Runs:  3,
	})
	if err != nil {
		t.Fatalf("runBench: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Only the first run is cold.
	for i, r := range results {
		if r.Cold != (i == 0) {
			t.Errorf("run %d: Cold=%v, want %v", i, r.Cold, i == 0)
		}
	}
	// The same text against the same tokenizer yields the same count.
	for i, r := range results[1:] {
		if r.Tokens != results[0].Tokens {
			t.Errorf("run %d: token count %d differs from first run %d", i+1, r.Tokens, results[0].Tokens)
		}
	}
}

func TestRunBench_UnknownModelFails(t *testing.T) {
	_, err := runBench(context.Background(), config.DefaultConfig(), benchOptions{
		Model: "definitely-not-a-model",
		Text:  "hello",
		Runs:  1,
	})
	if err == nil {
		t.Fatal("expected error for unknown identifier")
	}
}
