package tokenizer

import (
	"errors"
	"fmt"
)

// ErrReleased is reported when a tokenizer is used or closed after Close.
var ErrReleased = errors.New("tokenizer already released")

// InvalidIdentifierError marks an identifier that is not in the model
// catalog. It is surfaced before any network or engine work happens.
type InvalidIdentifierError struct {
	Identifier string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("unknown model or encoding %q", e.Identifier)
}

// UnsupportedModelError marks an identifier that the catalog accepts but
// the encoding engine rejects at construction time.
type UnsupportedModelError struct {
	Identifier string
	Reason     string
}

func (e *UnsupportedModelError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("model %q is not supported: %s", e.Identifier, e.Reason)
	}
	return fmt.Sprintf("model %q is not supported", e.Identifier)
}

// LoadError marks a failed pretrained-vocabulary fetch or parse. The
// registry never caches a failed construction, so a later call may retry.
type LoadError struct {
	Identifier string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load tokenizer %q: %v", e.Identifier, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EncodingError marks an engine failure on otherwise-valid input. It is
// fatal for the request and never cached.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("tokenizer %q: encode failed: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
