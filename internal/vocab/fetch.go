// Package vocab fetches pretrained tokenizer vocabularies from a
// Hugging Face compatible artifact host.
package vocab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultOrigin is the canonical vocabulary host.
	DefaultOrigin = "https://huggingface.co"

	// DefaultMaxArtifactBytes caps a tokenizer.json download. The largest
	// published vocabularies are a few tens of megabytes.
	DefaultMaxArtifactBytes = 64 << 20

	DefaultRetryMax     = 3
	DefaultFetchTimeout = 60 * time.Second
)

// Options configures a Fetcher. Zero values select the defaults above.
// Configuration is explicit: the fetcher never reads process environment
// or global library state.
type Options struct {
	Origin           string
	AuthToken        string
	MaxArtifactBytes int64
	RetryMax         int
	FetchTimeout     time.Duration
	Logger           *slog.Logger
}

// Fetcher downloads tokenizer.json artifacts. It holds no artifact state;
// nothing is written to disk.
type Fetcher struct {
	origin   string
	token    string
	maxBytes int64
	client   *http.Client
	log      *slog.Logger
}

// AccessDeniedError reports a 401 or 403 from the artifact host.
type AccessDeniedError struct {
	Repo string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied for %s; provide HF_TOKEN or --hf-token", e.Repo)
}

// NotFoundError reports that the host has no tokenizer.json for the repo.
type NotFoundError struct {
	Repo   string
	Origin string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tokenizer.json found for %s at %s", e.Repo, e.Origin)
}

// StatusError reports any other non-success response.
type StatusError struct {
	Repo   string
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vocabulary fetch for %s failed: %s", e.Repo, e.Status)
}

// TooLargeError reports an artifact exceeding the configured cap.
type TooLargeError struct {
	Repo  string
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("tokenizer.json for %s exceeds %d bytes", e.Repo, e.Limit)
}

// New builds a Fetcher with retrying transport.
func New(opts Options) *Fetcher {
	origin := normalizeOrigin(opts.Origin)
	if origin == "" {
		origin = DefaultOrigin
	}

	maxBytes := opts.MaxArtifactBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}

	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 0
	} else if retryMax == 0 {
		retryMax = DefaultRetryMax
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout

	return &Fetcher{
		origin:   origin,
		token:    opts.AuthToken,
		maxBytes: maxBytes,
		client:   rc.StandardClient(),
		log:      log,
	}
}

// Origin reports the configured artifact host.
func (f *Fetcher) Origin() string { return f.origin }

// TokenizerJSON downloads the tokenizer.json for repo. A non-empty
// hostOverride takes precedence over the configured origin for this call
// only.
func (f *Fetcher) TokenizerJSON(ctx context.Context, repo, hostOverride string) ([]byte, error) {
	origin := f.origin
	if o := normalizeOrigin(hostOverride); o != "" {
		origin = o
	}

	url := fmt.Sprintf("%s/%s/resolve/main/tokenizer.json", origin, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary request: %w", err)
	}
	setAuth(req, f.token)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vocabulary fetch for %s failed: %w", repo, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AccessDeniedError{Repo: repo}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Repo: repo, Origin: origin}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Repo: repo, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary body for %s: %w", repo, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &TooLargeError{Repo: repo, Limit: f.maxBytes}
	}

	f.log.Debug("fetched vocabulary",
		"repo", repo,
		"origin", origin,
		"bytes", len(data),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	return data, nil
}

// Probe checks that the configured origin answers HTTP at all. Used by
// diagnostics; any non-5xx response counts as reachable.
func (f *Fetcher) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.origin+"/", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("artifact host %s unreachable: %w", f.origin, err)
	}
	resp.Body.Close()

	return nil
}

func setAuth(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// normalizeOrigin accepts a bare host or a full URL and returns a
// scheme-qualified origin without a trailing slash. Empty input stays
// empty so callers can apply their own default.
func normalizeOrigin(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return strings.TrimRight(s, "/")
}
