package testutil_test

import (
	"testing"

	"github.com/example/go-tokenlens/internal/testutil"
	"github.com/example/go-tokenlens/internal/tokenizer"
)

func TestRequireLiveVocabFetch_SkipsWithoutOptIn(t *testing.T) {
	t.Setenv("TOKENLENS_LIVE_TESTS", "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireLiveVocabFetch(fakeT)
	if !skipped {
		t.Error("expected RequireLiveVocabFetch to skip without the opt-in env var")
	}
}

func TestRequireVocabHost_SkipsWhenUnreachable(t *testing.T) {
	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireVocabHost(fakeT, "http://127.0.0.1:1")
	if !skipped {
		t.Error("expected RequireVocabHost to skip for unreachable origin")
	}
}

func TestHFTokenFromEnv_PrefersPrefixed(t *testing.T) {
	t.Setenv("TOKENLENS_HF_TOKEN", "prefixed")
	t.Setenv("HF_TOKEN", "bare")

	if got := testutil.HFTokenFromEnv(); got != "prefixed" {
		t.Errorf("HFTokenFromEnv() = %q; want %q", got, "prefixed")
	}
}

func TestHFTokenFromEnv_FallsBackToBare(t *testing.T) {
	t.Setenv("TOKENLENS_HF_TOKEN", "")
	t.Setenv("HF_TOKEN", "bare")

	if got := testutil.HFTokenFromEnv(); got != "bare" {
		t.Errorf("HFTokenFromEnv() = %q; want %q", got, "bare")
	}
}

func TestAssertLosslessSegments_AcceptsExactCover(t *testing.T) {
	res := tokenizer.Result{
		Segments: []tokenizer.Segment{
			{Text: "hello "},
			{Text: "world"},
		},
	}
	testutil.AssertLosslessSegments(t, "hello world", res)
}

func TestAssertLosslessSegments_RejectsGap(t *testing.T) {
	res := tokenizer.Result{
		Segments: []tokenizer.Segment{{Text: "hello"}},
	}

	failed := false
	fakeT := &failTracker{TB: t, onFail: func() { failed = true }}
	testutil.AssertLosslessSegments(fakeT, "hello world", res)
	if !failed {
		t.Error("expected AssertLosslessSegments to fail on a gap")
	}
}

func TestAssertMonotonicIdx_RejectsBackwardOffsets(t *testing.T) {
	res := tokenizer.Result{
		Segments: []tokenizer.Segment{
			{Tokens: []tokenizer.SegmentToken{{ID: 1, Idx: 3}}},
			{Tokens: []tokenizer.SegmentToken{{ID: 2, Idx: 1}}},
		},
	}

	failed := false
	fakeT := &failTracker{TB: t, onFail: func() { failed = true }}
	testutil.AssertMonotonicIdx(fakeT, res)
	if !failed {
		t.Error("expected AssertMonotonicIdx to fail on backward offsets")
	}
}

func TestAssertCountMatchesTokens_RejectsMismatch(t *testing.T) {
	res := tokenizer.Result{Tokens: []int{1, 2, 3}, Count: 2}

	failed := false
	fakeT := &failTracker{TB: t, onFail: func() { failed = true }}
	testutil.AssertCountMatchesTokens(fakeT, res)
	if !failed {
		t.Error("expected AssertCountMatchesTokens to fail on mismatch")
	}
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip — that would actually skip the outer test.
}

// failTracker intercepts Fatalf so assertion failures can be observed
// without failing the outer test.
type failTracker struct {
	testing.TB
	onFail func()
}

func (f *failTracker) Helper() {}

func (f *failTracker) Fatalf(_ string, _ ...any) {
	f.onFail()
}
