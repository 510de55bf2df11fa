package bench_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/example/go-tokenlens/internal/bench"
)

// ---------------------------------------------------------------------------
// Aggregation (min/max/mean)
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	s := bench.ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}
}

func TestStats_SingleRun(t *testing.T) {
	s := bench.ComputeStats([]time.Duration{150 * time.Millisecond})
	if s.Min != s.Max || s.Min != s.Mean {
		t.Errorf("single run: min/max/mean should all be equal, got min=%v max=%v mean=%v", s.Min, s.Max, s.Mean)
	}
}

func TestStats_Empty(t *testing.T) {
	s := bench.ComputeStats(nil)
	if s.Min != 0 || s.Max != 0 || s.Mean != 0 {
		t.Errorf("empty input should yield zero stats, got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// Throughput calculation
// ---------------------------------------------------------------------------

func TestThroughput_Calculation(t *testing.T) {
	// 500 tokens in 250ms → 2000 tok/s
	tps := bench.CalcThroughput(500, 250*time.Millisecond)
	if tps < 1999 || tps > 2001 {
		t.Errorf("want ≈2000 tok/s, got %.2f", tps)
	}
}

func TestThroughput_ZeroDuration(t *testing.T) {
	tps := bench.CalcThroughput(500, 0)
	if tps != 0 {
		t.Errorf("want 0 tok/s for zero duration, got %.2f", tps)
	}
}

// ---------------------------------------------------------------------------
// Throughput threshold gate
// ---------------------------------------------------------------------------

func TestThroughputThreshold_BelowThreshold(t *testing.T) {
	// Mean 500 tok/s, threshold 1000 tok/s → should fail
	err := bench.CheckThroughputThreshold(500, 1000)
	if err == nil {
		t.Error("want error when mean throughput falls below threshold")
	}
}

func TestThroughputThreshold_AboveThreshold(t *testing.T) {
	err := bench.CheckThroughputThreshold(2000, 1000)
	if err != nil {
		t.Errorf("want no error when throughput above threshold, got: %v", err)
	}
}

func TestThroughputThreshold_ExactlyAtThreshold(t *testing.T) {
	err := bench.CheckThroughputThreshold(1000, 1000)
	if err != nil {
		t.Errorf("want no error at exact threshold, got: %v", err)
	}
}

func TestThroughputThreshold_DisabledWhenZero(t *testing.T) {
	err := bench.CheckThroughputThreshold(1, 0)
	if err != nil {
		t.Errorf("threshold=0 should disable gate, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Output formatting
// ---------------------------------------------------------------------------

func TestFormatTable_ContainsHeaders(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 800 * time.Millisecond, Tokens: 1200, TokensPerSec: 1500},
		{Index: 1, Cold: false, Duration: 500 * time.Millisecond, Tokens: 1200, TokensPerSec: 2400},
	}
	stats := bench.ComputeStats([]time.Duration{800 * time.Millisecond, 500 * time.Millisecond})

	var buf strings.Builder
	bench.FormatTable(runs, stats, &buf)
	out := buf.String()

	for _, want := range []string{"run", "cold", "ms", "tokens", "tok/s"} {
		if !strings.Contains(strings.ToLower(out), want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 800 * time.Millisecond, Tokens: 1200, TokensPerSec: 1500},
	}
	stats := bench.ComputeStats([]time.Duration{800 * time.Millisecond})

	var buf bytes.Buffer
	bench.FormatJSON(runs, stats, &buf)

	var out struct {
		Runs []struct {
			Tokens       int     `json:"tokens"`
			TokensPerSec float64 `json:"tokens_per_sec"`
		} `json:"runs"`
		Stats struct {
			MeanMS float64 `json:"mean_ms"`
		} `json:"stats"`
	}

	err := json.Unmarshal(buf.Bytes(), &out)
	if err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v\n%s", err, buf.String())
	}

	if len(out.Runs) != 1 || out.Runs[0].Tokens != 1200 {
		t.Errorf("unexpected runs payload: %+v", out.Runs)
	}
}
