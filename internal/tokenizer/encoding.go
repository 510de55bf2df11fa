package tokenizer

import (
	"sync"
	"sync/atomic"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/example/go-tokenlens/internal/catalog"
	"github.com/example/go-tokenlens/internal/text"
)

// Conversation delimiters injected for chat models. Each maps to a fixed
// reserved id in the target encoding's id space.
const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
	imSep   = "<|im_sep|>"
)

var conversationSpecials = map[string]map[string]int{
	"cl100k_base": {imStart: 100264, imEnd: 100265, imSep: 100266},
	"o200k_base":  {imStart: 200264, imEnd: 200265, imSep: 200266},
}

// unsupportedModels are catalog-valid identifiers the byte-pair engine has
// no vocabulary data for. They fail construction, never classification.
var unsupportedModels = map[string]string{
	"text-embedding-3-small": "no encoding data is available for this model",
	"text-embedding-3-large": "no encoding data is available for this model",
}

const (
	encodingTriggerBytes  = 10000
	encodingTriggerTokens = 2000
	encodingChunkBytes    = 5000
)

// bpeLoaderOnce installs the offline BPE asset loader so encodings resolve
// without network access.
var bpeLoaderOnce sync.Once

// EncodingTokenizer adapts a byte-pair encoding to the Tokenizer contract.
// It is safe for concurrent use.
type EncodingTokenizer struct {
	name     string
	enc      *tiktoken.Tiktoken
	specials map[string]int
	markers  []string
	lim      limits
	closed   atomic.Bool
}

// NewEncodingTokenizer constructs the adapter for an identifier classified
// as an encoding or a chat/legacy model. Model identifiers resolve to
// their canonical encoding; chat models additionally get the conversation
// delimiters injected. The two embedding models without published
// encoding data fail with UnsupportedModelError.
func NewEncodingTokenizer(identifier string) (*EncodingTokenizer, error) {
	if reason, ok := unsupportedModels[identifier]; ok {
		return nil, &UnsupportedModelError{Identifier: identifier, Reason: reason}
	}

	var name string
	var chat bool

	switch catalog.Classify(identifier) {
	case catalog.KindEncoding:
		name = identifier
	case catalog.KindChatOrLegacyModel:
		spec, _ := catalog.LookupModel(identifier)
		name = spec.Encoding
		chat = spec.Chat
	default:
		return nil, &InvalidIdentifierError{Identifier: identifier}
	}

	bpeLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, &LoadError{Identifier: identifier, Err: err}
	}

	t := &EncodingTokenizer{
		name: name,
		enc:  enc,
		lim: limits{
			triggerBytes:  encodingTriggerBytes,
			triggerTokens: encodingTriggerTokens,
			chunkBytes:    encodingChunkBytes,
		},
	}
	if chat {
		if specials, ok := conversationSpecials[name]; ok {
			t.specials = specials
			t.markers = []string{imStart, imEnd, imSep}
		}
	}

	return t, nil
}

func (t *EncodingTokenizer) Name() string { return t.name }

// Tokenize encodes input in the mode that recognizes all special tokens
// and builds segments per the adaptive segmentation rules.
func (t *EncodingTokenizer) Tokenize(input string, opts Options) (Result, error) {
	if t.closed.Load() {
		return Result{}, &EncodingError{Name: t.name, Err: ErrReleased}
	}
	return assemble(t.name, input, t, t.lim, opts)
}

// Close marks the tokenizer released. The engine reference is kept so a
// Tokenize racing a cache eviction finishes against live state; the second
// call reports ErrReleased.
func (t *EncodingTokenizer) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrReleased
	}
	return nil
}

// encode tokenizes one string, routing injected conversation delimiters to
// their reserved ids and everything else through the engine with all
// special tokens allowed.
func (t *EncodingTokenizer) encode(input string) ([]int, error) {
	if input == "" {
		return []int{}, nil
	}
	if len(t.markers) == 0 {
		return t.enc.Encode(input, []string{"all"}, nil), nil
	}

	var ids []int
	for _, span := range text.SplitMarkers(input, t.markers) {
		if span.Marker {
			ids = append(ids, t.specials[span.Text])
			continue
		}
		ids = append(ids, t.enc.Encode(span.Text, []string{"all"}, nil)...)
	}

	return ids, nil
}

// alignedSegments builds the byte-exact alignment for one chunk. Ids are
// accumulated into a segment until their decoded bytes form valid UTF-8,
// so a rune split across ids stays one visual span. Segment texts are
// slices of the original chunk and concatenate to it exactly.
func (t *EncodingTokenizer) alignedSegments(chunk string) ([]Segment, error) {
	if chunk == "" {
		return nil, nil
	}

	var segs []Segment
	idx := 0
	pos := 0

	for _, span := range text.SplitMarkers(chunk, t.markers) {
		if span.Marker {
			segs = append(segs, Segment{
				Text:   chunk[pos : pos+len(span.Text)],
				Tokens: []SegmentToken{{ID: t.specials[span.Text], Idx: idx}},
			})
			idx++
			pos += len(span.Text)
			continue
		}

		spanEnd := pos + len(span.Text)
		ids := t.enc.Encode(span.Text, []string{"all"}, nil)

		var pending []SegmentToken
		var pendingBytes []byte

		for _, id := range ids {
			pending = append(pending, SegmentToken{ID: id, Idx: idx})
			idx++
			pendingBytes = append(pendingBytes, t.enc.Decode([]int{id})...)

			if len(pendingBytes) == 0 || !utf8.Valid(pendingBytes) {
				continue
			}
			end := pos + len(pendingBytes)
			if end > spanEnd {
				end = spanEnd
			}
			segs = append(segs, Segment{Text: chunk[pos:end], Tokens: pending})
			pos = end
			pending = nil
			pendingBytes = nil
		}

		// Trailing ids whose bytes never completed a rune, or any byte
		// shortfall, are absorbed into one final segment so the chunk
		// always reconstructs exactly.
		if pos < spanEnd || len(pending) > 0 {
			segs = append(segs, Segment{Text: chunk[pos:spanEnd], Tokens: pending})
			pos = spanEnd
		}
	}

	return segs, nil
}
