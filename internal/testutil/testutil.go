// Package testutil provides shared skip and assertion helpers for
// integration tests.
//
// Each skip helper calls t.Skip with a clear human-readable reason when the
// named prerequisite is absent, so integration tests remain runnable in
// offline or partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireLiveVocabFetch(t)
//	    testutil.RequireVocabHost(t, "https://huggingface.co")
//	    ...
//	}
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/example/go-tokenlens/internal/vocab"
)

// RequireLiveVocabFetch skips the test unless TOKENLENS_LIVE_TESTS is set.
// Tests that download real vocabulary artifacts are opt-in so the default
// test run stays hermetic.
func RequireLiveVocabFetch(tb testing.TB) {
	tb.Helper()

	if os.Getenv("TOKENLENS_LIVE_TESTS") == "" {
		tb.Skipf("live vocabulary fetch tests are opt-in; set TOKENLENS_LIVE_TESTS=1 to enable")
	}
}

// RequireVocabHost skips the test if origin does not answer an HTTP probe
// within a short deadline.
func RequireVocabHost(tb testing.TB, origin string) {
	tb.Helper()

	f := vocab.New(vocab.Options{
		Origin:       origin,
		RetryMax:     -1,
		FetchTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.Probe(ctx); err != nil {
		tb.Skipf("vocabulary host %q not reachable: %v", origin, err)
	}
}

// HFTokenFromEnv returns the bearer token for the vocabulary host, or empty
// when neither TOKENLENS_HF_TOKEN nor HF_TOKEN is set. Public repositories
// fetch fine without one.
func HFTokenFromEnv() string {
	if tok := os.Getenv("TOKENLENS_HF_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("HF_TOKEN")
}
