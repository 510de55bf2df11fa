// Package tokenizer provides the unified tokenization contract over the
// two supported engine families: byte-pair encodings addressed by encoding
// or model name, and pretrained Hugging Face vocabularies fetched at load
// time. Both adapters share one segmentation layer that decides between a
// fast token-count-only response and a full text/token alignment, chunking
// long input to bound per-call alignment cost.
package tokenizer

// Tokenizer is the common contract over both engine families. Close
// releases the adapter's engine resources and must be called exactly once
// when the adapter is permanently discarded; Tokenize fails after Close.
type Tokenizer interface {
	// Name returns the adapter's canonical name, which may differ from the
	// requested identifier (a model request resolves to its encoding name).
	Name() string
	// Tokenize encodes text and, unless fast mode is selected, computes the
	// aligned segment breakdown.
	Tokenize(text string, opts Options) (Result, error)
	// Close releases the adapter. The second call reports ErrReleased.
	Close() error
}

// Options controls a single Tokenize call. Zero values select the
// adapter's defaults.
type Options struct {
	// FastMode skips segment computation; Tokens and Count are still full.
	FastMode bool
	// ChunkSize is the maximum chunk width in bytes when computing segments
	// over long input.
	ChunkSize int
	// MaxTokens is the token count above which segment computation is
	// skipped even without FastMode.
	MaxTokens int
}

// Result is the outcome of one Tokenize call. Count always equals
// len(Tokens). Segments is empty when fast mode was selected; otherwise
// the segment texts concatenate to the input exactly and Idx values are
// monotonically non-decreasing.
type Result struct {
	Name     string    `json:"name"`
	Tokens   []int     `json:"tokens"`
	Segments []Segment `json:"segments"`
	Count    int       `json:"count"`
}

// Segment pairs a contiguous span of the input with the tokens it
// decomposes into.
type Segment struct {
	Text   string         `json:"text"`
	Tokens []SegmentToken `json:"tokens"`
}

// SegmentToken is one token inside a segment. Idx is the token's position
// in the full token sequence.
type SegmentToken struct {
	ID  int `json:"id"`
	Idx int `json:"idx"`
}
