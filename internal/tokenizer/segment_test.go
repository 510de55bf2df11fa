package tokenizer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// reference engine
// ---------------------------------------------------------------------------

// wordEngine is a deterministic engine for exercising the segmentation
// layer: one token per space-separated word, token id = word byte length,
// one aligned segment per word carrying its trailing spaces.
type wordEngine struct{}

func (wordEngine) encode(input string) ([]int, error) {
	ids := []int{}
	for _, w := range strings.Fields(input) {
		ids = append(ids, len(w))
	}
	return ids, nil
}

func (wordEngine) alignedSegments(chunk string) ([]Segment, error) {
	var segs []Segment

	idx := 0
	start := 0
	i := 0
	for i < len(chunk) {
		for i < len(chunk) && chunk[i] != ' ' {
			i++
		}
		word := chunk[start:i]
		for i < len(chunk) && chunk[i] == ' ' {
			i++
		}

		segs = append(segs, Segment{
			Text:   chunk[start:i],
			Tokens: []SegmentToken{{ID: len(word), Idx: idx}},
		})
		idx++
		start = i
	}

	return segs, nil
}

// failEngine returns its error from every call.
type failEngine struct{ err error }

func (f failEngine) encode(string) ([]int, error)              { return nil, f.err }
func (f failEngine) alignedSegments(string) ([]Segment, error) { return nil, f.err }

// testLimits are wide enough that only explicit options change behavior.
var testLimits = limits{triggerBytes: 10000, triggerTokens: 2000, chunkBytes: 5000}

// ---------------------------------------------------------------------------
// assemble
// ---------------------------------------------------------------------------

func TestAssemble_ChunkedWordInput(t *testing.T) {
	// Input spans three 5-byte chunks: "a bb ", "ccc d", "ddd".
	const input = "a bb ccc dddd"

	res, err := assemble("word", input, wordEngine{}, testLimits, Options{ChunkSize: 5})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if res.Name != "word" {
		t.Errorf("Name = %q, want %q", res.Name, "word")
	}

	// Tokens and Count come from the single whole-input encode.
	wantTokens := []int{1, 2, 3, 4}
	if !reflect.DeepEqual(res.Tokens, wantTokens) {
		t.Errorf("Tokens = %v, want %v", res.Tokens, wantTokens)
	}
	if res.Count != 4 {
		t.Errorf("Count = %d, want 4", res.Count)
	}

	wantTexts := []string{"a ", "bb ", "ccc ", "d", "ddd"}
	if got := segmentTexts(res.Segments); !reflect.DeepEqual(got, wantTexts) {
		t.Errorf("segment texts = %q, want %q", got, wantTexts)
	}

	if got := concatSegments(res.Segments); got != input {
		t.Errorf("segment concatenation = %q, want %q", got, input)
	}

	// "ccc d" and "ddd" re-encode to 2 and 1 tokens, so indices keep
	// climbing across chunk boundaries.
	wantIdx := []int{0, 1, 2, 3, 4}
	if got := segmentIdx(res.Segments); !reflect.DeepEqual(got, wantIdx) {
		t.Errorf("segment idx = %v, want %v", got, wantIdx)
	}
}

func TestAssemble_DirectMatchesChunked(t *testing.T) {
	// Chunk boundaries fall exactly between words, so the chunked result
	// must equal the single-pass result.
	const input = "aa bb cc"

	direct, err := assemble("word", input, wordEngine{}, testLimits, Options{ChunkSize: len(input)})
	if err != nil {
		t.Fatalf("assemble (direct): %v", err)
	}

	chunked, err := assemble("word", input, wordEngine{}, testLimits, Options{ChunkSize: 3})
	if err != nil {
		t.Fatalf("assemble (chunked): %v", err)
	}

	if !reflect.DeepEqual(direct, chunked) {
		t.Errorf("direct result %+v != chunked result %+v", direct, chunked)
	}
}

func TestAssemble_FastMode(t *testing.T) {
	input := strings.Repeat("word ", 10) // 50 bytes, well under every trigger

	res, err := assemble("word", input, wordEngine{}, testLimits, Options{FastMode: true})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if res.Count != 10 || len(res.Tokens) != 10 {
		t.Errorf("Count = %d, len(Tokens) = %d, want 10 and 10", res.Count, len(res.Tokens))
	}
	if res.Segments == nil {
		t.Fatal("Segments must be empty, not nil")
	}
	if len(res.Segments) != 0 {
		t.Errorf("Segments = %v, want empty", res.Segments)
	}
}

func TestAssemble_FastModeMatchesTokens(t *testing.T) {
	const input = "one two three"

	full, err := assemble("word", input, wordEngine{}, testLimits, Options{})
	if err != nil {
		t.Fatalf("assemble (full): %v", err)
	}

	fast, err := assemble("word", input, wordEngine{}, testLimits, Options{FastMode: true})
	if err != nil {
		t.Fatalf("assemble (fast): %v", err)
	}

	if !reflect.DeepEqual(full.Tokens, fast.Tokens) || full.Count != fast.Count {
		t.Errorf("fast mode changed tokens: full %v/%d, fast %v/%d",
			full.Tokens, full.Count, fast.Tokens, fast.Count)
	}
}

func TestAssemble_EmptyInput(t *testing.T) {
	res, err := assemble("word", "", wordEngine{}, testLimits, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if res.Count != 0 {
		t.Errorf("Count = %d, want 0", res.Count)
	}
	if res.Tokens == nil || len(res.Tokens) != 0 {
		t.Errorf("Tokens = %v, want empty non-nil slice", res.Tokens)
	}
	if res.Segments == nil || len(res.Segments) != 0 {
		t.Errorf("Segments = %v, want empty non-nil slice", res.Segments)
	}
}

func TestAssemble_CountAlwaysMatchesTokens(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"a bb ccc dddd",
		strings.Repeat("tok ", 100),
	}

	for _, input := range inputs {
		for _, opts := range []Options{{}, {FastMode: true}, {ChunkSize: 5}} {
			res, err := assemble("word", input, wordEngine{}, testLimits, opts)
			if err != nil {
				t.Fatalf("assemble(%q, %+v): %v", input, opts, err)
			}
			if res.Count != len(res.Tokens) {
				t.Errorf("assemble(%q, %+v): Count = %d, len(Tokens) = %d",
					input, opts, res.Count, len(res.Tokens))
			}
		}
	}
}

func TestAssemble_ConcatenationAcrossChunkSizes(t *testing.T) {
	const input = "the quick brown fox jumps over the lazy dog"

	for chunkSize := 1; chunkSize <= len(input)+1; chunkSize++ {
		res, err := assemble("word", input, wordEngine{}, testLimits, Options{ChunkSize: chunkSize})
		if err != nil {
			t.Fatalf("assemble(chunkSize=%d): %v", chunkSize, err)
		}

		if got := concatSegments(res.Segments); got != input {
			t.Errorf("chunkSize=%d: segment concatenation = %q, want %q", chunkSize, got, input)
		}

		idx := segmentIdx(res.Segments)
		for i := 1; i < len(idx); i++ {
			if idx[i] < idx[i-1] {
				t.Errorf("chunkSize=%d: idx[%d]=%d < idx[%d]=%d", chunkSize, i, idx[i], i-1, idx[i-1])
			}
		}
	}
}

func TestAssemble_EncodeError(t *testing.T) {
	wantErr := errors.New("engine broke")

	_, err := assemble("word", "text", failEngine{err: wantErr}, testLimits, Options{})
	if !errors.Is(err, wantErr) {
		t.Errorf("assemble error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// skipSegments
// ---------------------------------------------------------------------------

func TestSkipSegments(t *testing.T) {
	lim := limits{triggerBytes: 20, triggerTokens: 5, chunkBytes: 10}

	tests := []struct {
		name  string
		input string
		count int
		opts  Options
		want  bool
	}{
		{
			name:  "short input computes segments",
			input: "hello",
			count: 1,
			want:  false,
		},
		{
			name:  "explicit fast mode",
			input: "hi",
			count: 1,
			opts:  Options{FastMode: true},
			want:  true,
		},
		{
			name:  "input over byte trigger",
			input: strings.Repeat("x", 21),
			count: 1,
			want:  true,
		},
		{
			name:  "input exactly at byte trigger",
			input: strings.Repeat("x", 20),
			count: 1,
			want:  false,
		},
		{
			name:  "count over default token trigger",
			input: "short",
			count: 6,
			want:  true,
		},
		{
			name:  "count at default token trigger",
			input: "short",
			count: 5,
			want:  false,
		},
		{
			name:  "explicit max tokens lowers the cap",
			input: "short",
			count: 3,
			opts:  Options{MaxTokens: 2},
			want:  true,
		},
		{
			name:  "explicit max tokens raises the cap",
			input: "short",
			count: 6,
			opts:  Options{MaxTokens: 100},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := skipSegments(tt.input, tt.count, lim, tt.opts)
			if got != tt.want {
				t.Errorf("skipSegments(%q, %d, %+v) = %v, want %v",
					tt.input, tt.count, tt.opts, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// chunkedSegments
// ---------------------------------------------------------------------------

func TestChunkedSegments_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("alignment broke")

	_, err := chunkedSegments("some text here", 5, failEngine{err: wantErr})
	if !errors.Is(err, wantErr) {
		t.Errorf("chunkedSegments error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func segmentTexts(segs []Segment) []string {
	texts := make([]string, 0, len(segs))
	for _, s := range segs {
		texts = append(texts, s.Text)
	}
	return texts
}

func concatSegments(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

func segmentIdx(segs []Segment) []int {
	var idx []int
	for _, s := range segs {
		for _, tok := range s.Tokens {
			idx = append(idx, tok.Idx)
		}
	}
	return idx
}
