// Package catalog defines the closed set of recognized model and encoding
// identifiers and classifies free-form identifiers into tokenizer kinds.
// Classification is pure and total: every string maps to exactly one Kind.
package catalog

import "sort"

// Kind is the classification of a requested identifier.
type Kind int

const (
	KindInvalid Kind = iota
	KindEncoding
	KindChatOrLegacyModel
	KindOpenSourceModel
)

func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindChatOrLegacyModel:
		return "model"
	case KindOpenSourceModel:
		return "open-source"
	default:
		return "invalid"
	}
}

// ModelSpec describes how a chat or legacy model maps onto the byte-pair
// encoding engine. Chat models carry conversation-delimiter special tokens
// in addition to the base encoding vocabulary.
type ModelSpec struct {
	Encoding string
	Chat     bool
}

// OpenSourceSpec describes a pretrained-vocabulary model. StripLeadingToken
// marks model families whose engine prepends a pseudo-token (BOS) that must
// not appear in the visual segment breakdown.
type OpenSourceSpec struct {
	StripLeadingToken bool
}

// encodings are the raw byte-pair-encoding schemes addressable by name.
var encodings = map[string]struct{}{
	"o200k_base":  {},
	"cl100k_base": {},
	"p50k_base":   {},
	"p50k_edit":   {},
	"r50k_base":   {},
}

// chatAndLegacyModels maps model identifiers to their canonical encoding.
// Entries with Chat=true additionally get the conversation delimiters
// injected by the encoding adapter at construction time.
var chatAndLegacyModels = map[string]ModelSpec{
	"gpt-4o":      {Encoding: "o200k_base", Chat: true},
	"gpt-4o-mini": {Encoding: "o200k_base", Chat: true},

	"gpt-4":             {Encoding: "cl100k_base", Chat: true},
	"gpt-4-32k":         {Encoding: "cl100k_base", Chat: true},
	"gpt-4-turbo":       {Encoding: "cl100k_base", Chat: true},
	"gpt-3.5-turbo":     {Encoding: "cl100k_base", Chat: true},
	"gpt-3.5-turbo-16k": {Encoding: "cl100k_base", Chat: true},

	"text-davinci-003": {Encoding: "p50k_base"},
	"text-davinci-002": {Encoding: "p50k_base"},
	"code-davinci-002": {Encoding: "p50k_base"},
	"text-davinci-001": {Encoding: "r50k_base"},
	"text-curie-001":   {Encoding: "r50k_base"},
	"text-babbage-001": {Encoding: "r50k_base"},
	"text-ada-001":     {Encoding: "r50k_base"},
	"davinci":          {Encoding: "r50k_base"},
	"curie":            {Encoding: "r50k_base"},
	"babbage":          {Encoding: "r50k_base"},
	"ada":              {Encoding: "r50k_base"},

	// text-embedding-3-small and -3-large are catalog-valid, but the
	// encoding adapter rejects them at construction time. Catalog
	// membership is necessary, not sufficient.
	"text-embedding-ada-002": {Encoding: "cl100k_base"},
	"text-embedding-3-small": {Encoding: "cl100k_base"},
	"text-embedding-3-large": {Encoding: "cl100k_base"},
}

// openSourceModels are Hugging Face repository identifiers whose
// tokenizer.json is fetched at adapter construction time.
var openSourceModels = map[string]OpenSourceSpec{
	"meta-llama/Llama-2-7b-hf":             {StripLeadingToken: true},
	"meta-llama/Meta-Llama-3-8B":           {StripLeadingToken: true},
	"mistralai/Mistral-7B-Instruct-v0.2":   {StripLeadingToken: true},
	"mistralai/Mixtral-8x7B-Instruct-v0.1": {StripLeadingToken: true},
	"google/gemma-7b":                      {StripLeadingToken: true},
	"tiiuae/falcon-7b":                     {},
	"bigscience/bloom":                     {},
	"openai-community/gpt2":                {},
	"Qwen/Qwen2-7B":                        {},
	"microsoft/phi-2":                      {},
}

// Classify maps an identifier to exactly one Kind. Unrecognized strings
// classify as KindInvalid.
func Classify(identifier string) Kind {
	if _, ok := encodings[identifier]; ok {
		return KindEncoding
	}
	if _, ok := chatAndLegacyModels[identifier]; ok {
		return KindChatOrLegacyModel
	}
	if _, ok := openSourceModels[identifier]; ok {
		return KindOpenSourceModel
	}
	return KindInvalid
}

// LookupModel returns the encoding mapping for a chat or legacy model.
func LookupModel(identifier string) (ModelSpec, bool) {
	spec, ok := chatAndLegacyModels[identifier]
	return spec, ok
}

// LookupOpenSource returns the pretrained spec for an open-source model.
func LookupOpenSource(identifier string) (OpenSourceSpec, bool) {
	spec, ok := openSourceModels[identifier]
	return spec, ok
}

// Encodings returns the encoding names in sorted order.
func Encodings() []string {
	return sortedKeys(encodings)
}

// ChatAndLegacyModels returns the model identifiers in sorted order.
func ChatAndLegacyModels() []string {
	out := make([]string, 0, len(chatAndLegacyModels))
	for id := range chatAndLegacyModels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OpenSourceModels returns the open-source identifiers in sorted order.
func OpenSourceModels() []string {
	out := make([]string, 0, len(openSourceModels))
	for id := range openSourceModels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
