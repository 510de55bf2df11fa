// Package registry caches constructed tokenizers per identifier and
// artifact host. Lookups coalesce: concurrent requests for the same
// uncached key trigger exactly one construction.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/example/go-tokenlens/internal/catalog"
	"github.com/example/go-tokenlens/internal/metrics"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/example/go-tokenlens/internal/vocab"
)

// DefaultSize bounds the cache when no size is configured. Tokenizer
// instances hold parsed vocabularies of tens of megabytes, so the bound
// is deliberately small.
const DefaultSize = 128

// Builder constructs a tokenizer for an identifier. remoteHost overrides
// the artifact host for identifiers that need a vocabulary download.
type Builder func(ctx context.Context, identifier, remoteHost string) (tokenizer.Tokenizer, error)

// Options configures a Registry.
type Options struct {
	Size    int
	Builder Builder
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ResolveOptions carries per-request resolution overrides.
type ResolveOptions struct {
	RemoteHost string
}

// Registry is the process-wide tokenizer cache. Safe for concurrent use.
type Registry struct {
	cache   *lru.Cache[string, tokenizer.Tokenizer]
	group   singleflight.Group
	builder Builder
	log     *slog.Logger
	met     *metrics.Metrics
}

// New builds a Registry around the given builder. Evicted tokenizers are
// closed as they leave the cache.
func New(opts Options) (*Registry, error) {
	if opts.Builder == nil {
		return nil, errors.New("registry: builder is required")
	}

	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	met := opts.Metrics
	if met == nil {
		met = metrics.Default()
	}

	cache, err := lru.NewWithEvict(size, func(key string, tok tokenizer.Tokenizer) {
		met.CacheEvictions.Inc()
		if err := tok.Close(); err != nil {
			log.Warn("closing evicted tokenizer", "key", key, "error", err)
			return
		}
		log.Debug("evicted tokenizer", "key", key)
	})
	if err != nil {
		return nil, fmt.Errorf("create tokenizer cache: %w", err)
	}

	return &Registry{
		cache:   cache,
		builder: opts.Builder,
		log:     log,
		met:     met,
	}, nil
}

// CacheKey derives the cache key for an identifier and artifact host
// override. An empty override maps to the fixed "default" bucket so the
// same identifier fetched from different hosts never shares an instance.
func CacheKey(identifier, remoteHost string) string {
	host := remoteHost
	if host == "" {
		host = "default"
	}
	return identifier + "_" + host
}

// Resolve returns the cached tokenizer for the identifier, constructing
// it on first use. Concurrent misses for one key share a single
// construction; failed constructions are never cached, so the next call
// retries. Cancelling ctx abandons the wait, not the construction.
func (r *Registry) Resolve(ctx context.Context, identifier string, opts ResolveOptions) (tokenizer.Tokenizer, error) {
	key := CacheKey(identifier, opts.RemoteHost)

	if tok, ok := r.cache.Get(key); ok {
		r.met.CacheHits.Inc()
		return tok, nil
	}

	ch := r.group.DoChan(key, func() (interface{}, error) {
		// A racing construction may have landed between the miss above
		// and this closure running.
		if tok, ok := r.cache.Get(key); ok {
			return tok, nil
		}

		r.met.CacheMisses.Inc()
		r.log.Info("building tokenizer", "identifier", identifier, "key", key)

		start := time.Now()
		tok, err := r.builder(context.WithoutCancel(ctx), identifier, opts.RemoteHost)
		if err != nil {
			return nil, err
		}

		r.cache.Add(key, tok)
		r.met.CacheEntries.Set(float64(r.cache.Len()))
		r.log.Info("cached tokenizer",
			"key", key,
			"name", tok.Name(),
			"entries", r.cache.Len(),
			"elapsed", time.Since(start).Round(time.Millisecond).String(),
		)

		return tok, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(tokenizer.Tokenizer), nil
	}
}

// Len reports the number of live cached tokenizers.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close evicts and releases every cached tokenizer. The registry must not
// be used afterwards.
func (r *Registry) Close() {
	r.cache.Purge()
	r.met.CacheEntries.Set(0)
}

// DefaultBuilder constructs real tokenizers: byte-pair encodings and
// chat/legacy models directly from bundled encoding data, open-source
// models by downloading their tokenizer.json through fetcher. Unknown
// identifiers fail before any network or engine work.
func DefaultBuilder(fetcher *vocab.Fetcher, met *metrics.Metrics) Builder {
	if met == nil {
		met = metrics.Default()
	}

	return func(ctx context.Context, identifier, remoteHost string) (tokenizer.Tokenizer, error) {
		switch catalog.Classify(identifier) {
		case catalog.KindEncoding, catalog.KindChatOrLegacyModel:
			return tokenizer.NewEncodingTokenizer(identifier)

		case catalog.KindOpenSourceModel:
			start := time.Now()
			data, err := fetcher.TokenizerJSON(ctx, identifier, remoteHost)
			if err != nil {
				met.ObserveVocabFetch("error", time.Since(start).Seconds())
				return nil, &tokenizer.LoadError{Identifier: identifier, Err: err}
			}
			met.ObserveVocabFetch("ok", time.Since(start).Seconds())

			return tokenizer.NewPretrainedTokenizer(identifier, data)

		default:
			return nil, &tokenizer.InvalidIdentifierError{Identifier: identifier}
		}
	}
}
