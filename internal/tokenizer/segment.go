package tokenizer

import "github.com/example/go-tokenlens/internal/text"

// engine is the per-adapter capability driven by the segmentation layer:
// a full-fidelity encode of arbitrary text, and a native alignment of one
// chunk into segments with chunk-local token indices.
type engine interface {
	encode(text string) ([]int, error)
	alignedSegments(text string) ([]Segment, error)
}

// limits carries the per-adapter segmentation thresholds. All widths are
// in bytes.
type limits struct {
	triggerBytes  int
	triggerTokens int
	chunkBytes    int
}

// assemble runs one Tokenize call: encode the whole input once, decide
// whether segments are wanted, then build them directly or chunk-wise.
// Tokens and Count always come from the single whole-input encode,
// regardless of mode.
func assemble(name, input string, eng engine, lim limits, opts Options) (Result, error) {
	tokens, err := eng.encode(input)
	if err != nil {
		return Result{}, err
	}
	if tokens == nil {
		tokens = []int{}
	}

	res := Result{
		Name:     name,
		Tokens:   tokens,
		Segments: []Segment{},
		Count:    len(tokens),
	}

	if skipSegments(input, res.Count, lim, opts) {
		return res, nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = lim.chunkBytes
	}

	var segs []Segment
	if len(input) <= chunkSize {
		segs, err = eng.alignedSegments(input)
	} else {
		segs, err = chunkedSegments(input, chunkSize, eng)
	}
	if err != nil {
		return Result{}, err
	}
	if segs != nil {
		res.Segments = segs
	}

	return res, nil
}

// skipSegments decides fast mode: an explicit request, input longer than
// the adapter's trigger length, or a token count above the cap (the
// caller's MaxTokens, else the adapter default).
func skipSegments(input string, count int, lim limits, opts Options) bool {
	if opts.FastMode {
		return true
	}
	if lim.triggerBytes > 0 && len(input) > lim.triggerBytes {
		return true
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = lim.triggerTokens
	}
	return maxTokens > 0 && count > maxTokens
}

// chunkedSegments splits the input into fixed-width chunks, aligns each
// chunk on its own, and rewrites every token's Idx by the running token
// count of the prior chunks. Each prior chunk is re-encoded independently
// to obtain that count; near a chunk boundary this can differ from the
// whole-input encoding, so Idx values may drift past the whole-input
// count. Concatenation of segment texts and Idx monotonicity are
// preserved regardless.
func chunkedSegments(input string, chunkSize int, eng engine) ([]Segment, error) {
	chunks := text.SplitFixed(input, chunkSize)

	var out []Segment
	offset := 0

	for _, chunk := range chunks {
		segs, err := eng.alignedSegments(chunk)
		if err != nil {
			return nil, err
		}
		for _, seg := range segs {
			shifted := Segment{
				Text:   seg.Text,
				Tokens: make([]SegmentToken, len(seg.Tokens)),
			}
			for i, tok := range seg.Tokens {
				shifted.Tokens[i] = SegmentToken{ID: tok.ID, Idx: tok.Idx + offset}
			}
			out = append(out, shifted)
		}

		ids, err := eng.encode(chunk)
		if err != nil {
			return nil, err
		}
		offset += len(ids)
	}

	return out, nil
}
