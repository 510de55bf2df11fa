// Package doctor provides environment preflight checks for tokenlens.
package doctor

import (
	"fmt"
	"io"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// CheckFunc runs one preflight check and reports failure.
type CheckFunc func() error

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// EncodingNames lists the built-in encodings to smoke-test.
	EncodingNames []string
	// LoadEncoding loads one encoding by name from the embedded data.
	LoadEncoding func(name string) error
	// VocabOrigin is the vocabulary host named in the probe output.
	VocabOrigin string
	// ProbeVocabHost checks the vocabulary host is reachable.
	ProbeVocabHost CheckFunc
	// SkipVocabHost skips the reachability probe (offline mode).
	SkipVocabHost bool
	// CacheSize is the configured tokenizer cache bound.
	CacheSize int
	// BuildCache constructs and releases a tokenizer cache.
	BuildCache CheckFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- built-in encodings -------------------------------------------------
	for _, name := range cfg.EncodingNames {
		if cfg.LoadEncoding == nil {
			break
		}
		if err := cfg.LoadEncoding(name); err != nil {
			res.fail(fmt.Sprintf("encoding %q: %v", name, err))
			fmt.Fprintf(w, "%s encoding %s: %v\n", FailMark, name, err)
		} else {
			fmt.Fprintf(w, "%s encoding %s: ok\n", PassMark, name)
		}
	}

	// ---- vocabulary host ----------------------------------------------------
	if cfg.SkipVocabHost {
		fmt.Fprintf(w, "%s vocabulary host: skipped\n", PassMark)
	} else if cfg.ProbeVocabHost != nil {
		if err := cfg.ProbeVocabHost(); err != nil {
			res.fail(fmt.Sprintf("vocabulary host %s: %v", cfg.VocabOrigin, err))
			fmt.Fprintf(w, "%s vocabulary host %s: unreachable (%v)\n", FailMark, cfg.VocabOrigin, err)
		} else {
			fmt.Fprintf(w, "%s vocabulary host: %s\n", PassMark, cfg.VocabOrigin)
		}
	}

	// ---- tokenizer cache ------------------------------------------------------
	if err := checkCacheSize(cfg.CacheSize); err != nil {
		res.fail(fmt.Sprintf("cache size: %v", err))
		fmt.Fprintf(w, "%s cache size %d: %v\n", FailMark, cfg.CacheSize, err)
	} else {
		fmt.Fprintf(w, "%s cache size: %d\n", PassMark, cfg.CacheSize)
	}

	if cfg.BuildCache != nil {
		if err := cfg.BuildCache(); err != nil {
			res.fail(fmt.Sprintf("cache construction: %v", err))
			fmt.Fprintf(w, "%s cache construction: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s cache construction: ok\n", PassMark)
		}
	}

	return res
}

// checkCacheSize returns an error if n cannot bound a tokenizer cache.
// Instances hold full vocabularies, so implausibly large bounds are refused
// before they turn into memory pressure at runtime.
func checkCacheSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	if n > 1<<16 {
		return fmt.Errorf("unreasonably large (%d), each cached tokenizer holds a full vocabulary", n)
	}
	return nil
}
