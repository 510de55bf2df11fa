package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/example/go-tokenlens/internal/catalog"
)

const (
	pretrainedTriggerBytes  = 5000
	pretrainedTriggerTokens = 1500
	pretrainedChunkBytes    = 3000
)

// hfEncoder is the slice of the upstream engine API the adapter consumes.
type hfEncoder interface {
	EncodeSingle(input string, addSpecialTokens ...bool) (*hf.Encoding, error)
}

// PretrainedTokenizer adapts a Hugging Face tokenizer.json vocabulary to
// the Tokenizer contract.
type PretrainedTokenizer struct {
	name         string
	enc          hfEncoder
	stripLeading bool
	lim          limits
	closed       atomic.Bool
}

// NewPretrainedTokenizer loads a tokenizer from raw tokenizer.json bytes.
// The bytes are staged in a temporary file that is removed before
// returning, which is necessary because the upstream library only exposes
// a file-path API; no vocabulary artifact is persisted.
func NewPretrainedTokenizer(identifier string, data []byte) (*PretrainedTokenizer, error) {
	if len(data) == 0 {
		return nil, &LoadError{Identifier: identifier, Err: errors.New("vocabulary data must not be empty")}
	}

	f, err := os.CreateTemp("", "tokenizer-*.json")
	if err != nil {
		return nil, &LoadError{Identifier: identifier, Err: fmt.Errorf("create temp vocabulary file: %w", err)}
	}

	defer func() { _ = os.Remove(f.Name()) }() // best-effort temp file cleanup

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, &LoadError{Identifier: identifier, Err: fmt.Errorf("write vocabulary bytes: %w", err)}
	}
	if err := f.Close(); err != nil {
		return nil, &LoadError{Identifier: identifier, Err: fmt.Errorf("close temp vocabulary file: %w", err)}
	}

	tk, err := pretrained.FromFile(f.Name())
	if err != nil {
		return nil, &LoadError{Identifier: identifier, Err: fmt.Errorf("parse vocabulary: %w", err)}
	}

	spec, _ := catalog.LookupOpenSource(identifier)

	return newPretrained(identifier, tk, spec.StripLeadingToken), nil
}

// newPretrained wires an already-loaded engine. Split out so tests can
// substitute the engine.
func newPretrained(name string, enc hfEncoder, stripLeading bool) *PretrainedTokenizer {
	return &PretrainedTokenizer{
		name:         name,
		enc:          enc,
		stripLeading: stripLeading,
		lim: limits{
			triggerBytes:  pretrainedTriggerBytes,
			triggerTokens: pretrainedTriggerTokens,
			chunkBytes:    pretrainedChunkBytes,
		},
	}
}

func (t *PretrainedTokenizer) Name() string { return t.name }

// Tokenize encodes input with the pretrained vocabulary. For model
// families whose engine prepends a leading pseudo-token, segments omit
// that token; Tokens and Count always keep it.
func (t *PretrainedTokenizer) Tokenize(input string, opts Options) (Result, error) {
	if t.closed.Load() {
		return Result{}, &EncodingError{Name: t.name, Err: ErrReleased}
	}
	return assemble(t.name, input, t, t.lim, opts)
}

// Close marks the tokenizer released. The engine reference is kept so a
// Tokenize racing a cache eviction finishes against live state; the second
// call reports ErrReleased.
func (t *PretrainedTokenizer) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrReleased
	}
	return nil
}

func (t *PretrainedTokenizer) encode(input string) ([]int, error) {
	if input == "" {
		return []int{}, nil
	}

	en, err := t.enc.EncodeSingle(input, true)
	if err != nil {
		return nil, &EncodingError{Name: t.name, Err: err}
	}

	return append([]int{}, en.Ids...), nil
}

// alignedSegments maps each token to a span of the chunk using the
// engine's offsets as boundary hints. Boundaries are clamped and forced
// monotonic, the first kept token's span is anchored at the chunk start,
// and the last span extends to the chunk end, so concatenation always
// reproduces the chunk byte-for-byte even when the engine's normalizer
// shifted offsets.
func (t *PretrainedTokenizer) alignedSegments(chunk string) ([]Segment, error) {
	if chunk == "" {
		return nil, nil
	}

	en, err := t.enc.EncodeSingle(chunk, true)
	if err != nil {
		return nil, &EncodingError{Name: t.name, Err: err}
	}

	ids := en.Ids
	first := 0
	if t.stripLeading && len(ids) > 0 {
		first = 1
	}
	if first >= len(ids) {
		return []Segment{{Text: chunk, Tokens: []SegmentToken{}}}, nil
	}

	kept := len(ids) - first
	bounds := make([]int, kept+1)
	bounds[0] = 0
	bounds[kept] = len(chunk)

	for k := 1; k < kept; k++ {
		start, ok := offsetStart(en.Offsets, first+k, len(chunk))
		if !ok || start < bounds[k-1] {
			start = bounds[k-1]
		}
		bounds[k] = start
	}

	segs := make([]Segment, 0, kept)
	for k := 0; k < kept; k++ {
		segs = append(segs, Segment{
			Text:   chunk[bounds[k]:bounds[k+1]],
			Tokens: []SegmentToken{{ID: ids[first+k], Idx: first + k}},
		})
	}

	return segs, nil
}

// offsetStart extracts the byte start of token i from the engine's offset
// table, reporting false for missing or malformed rows.
func offsetStart(offsets [][]int, i, max int) (int, bool) {
	if i < 0 || i >= len(offsets) || len(offsets[i]) < 2 {
		return 0, false
	}
	start := offsets[i][0]
	if start < 0 {
		return 0, false
	}
	if start > max {
		start = max
	}
	return start, true
}
