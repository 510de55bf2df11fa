package testutil

import (
	"strings"
	"testing"

	"github.com/example/go-tokenlens/internal/tokenizer"
)

// AssertLosslessSegments checks that the segment texts concatenate back to
// the exact input. Holds for every tokenizer outside fast mode.
func AssertLosslessSegments(tb testing.TB, text string, res tokenizer.Result) {
	tb.Helper()

	var sb strings.Builder
	for _, seg := range res.Segments {
		sb.WriteString(seg.Text)
	}

	if got := sb.String(); got != text {
		tb.Fatalf("segments do not reassemble input:\n got %q\nwant %q", got, text)
	}
}

// AssertMonotonicIdx checks that segment token offsets never decrease across
// the result.
func AssertMonotonicIdx(tb testing.TB, res tokenizer.Result) {
	tb.Helper()

	last := -1
	for si, seg := range res.Segments {
		for _, st := range seg.Tokens {
			if st.Idx < last {
				tb.Fatalf("segment %d: idx %d went backwards (previous %d)", si, st.Idx, last)
			}
			last = st.Idx
		}
	}
}

// AssertCountMatchesTokens checks the count field against the token slice.
func AssertCountMatchesTokens(tb testing.TB, res tokenizer.Result) {
	tb.Helper()

	if res.Count != len(res.Tokens) {
		tb.Fatalf("count %d does not match %d tokens", res.Count, len(res.Tokens))
	}
}
