package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/registry"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/example/go-tokenlens/internal/vocab"
	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	var model string
	var text string
	var fast bool
	var segments bool
	var asJSON bool
	var chunkSize int
	var maxTokens int
	var remoteHost string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Tokenize text and report token counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(model) == "" {
				return fmt.Errorf("--model is required; run 'tokenlens models list' for the catalog")
			}
			if fast && segments {
				return fmt.Errorf("--fast skips segment computation; drop one of --fast / --segments")
			}

			inputText, err := readCountText(text, os.Stdin)
			if err != nil {
				return err
			}

			res, err := runCount(cmd.Context(), cfg, countOptions{
				Model:      model,
				Text:       inputText,
				Fast:       fast,
				ChunkSize:  chunkSize,
				MaxTokens:  maxTokens,
				RemoteHost: remoteHost,
			})
			if err != nil {
				return mapTokenizeError(err)
			}

			return writeCountOutput(os.Stdout, res, countOutputOptions{
				JSON:     asJSON,
				Segments: segments,
			})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model or encoding identifier (required)")
	cmd.Flags().StringVar(&text, "text", "", "Text to tokenize (if empty, read from stdin)")
	cmd.Flags().BoolVar(&fast, "fast", false, "Count only; skip the aligned segment breakdown")
	cmd.Flags().BoolVar(&segments, "segments", false, "Print the per-segment token table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full result as JSON")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum segment chunk width in bytes (0 = default)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Skip segments above this token count (0 = default)")
	cmd.Flags().StringVar(&remoteHost, "remote-host", "", "Override the vocabulary host for this request")

	return cmd
}

type countOptions struct {
	Model      string
	Text       string
	Fast       bool
	ChunkSize  int
	MaxTokens  int
	RemoteHost string
}

type countOutputOptions struct {
	JSON     bool
	Segments bool
}

// newVocabFetcher builds the artifact fetcher from the loaded config.
func newVocabFetcher(cfg config.Config) *vocab.Fetcher {
	return vocab.New(vocab.Options{
		Origin:           cfg.Vocab.Origin,
		AuthToken:        cfg.Vocab.AuthToken,
		MaxArtifactBytes: cfg.Vocab.MaxArtifactBytes,
		RetryMax:         cfg.Vocab.RetryMax,
		FetchTimeout:     time.Duration(cfg.Vocab.FetchTimeout) * time.Second,
	})
}

// newTokenizerRegistry builds a bounded tokenizer cache around fetcher.
func newTokenizerRegistry(cfg config.Config, fetcher *vocab.Fetcher) (*registry.Registry, error) {
	return registry.New(registry.Options{
		Size:    cfg.Cache.Size,
		Builder: registry.DefaultBuilder(fetcher, nil),
	})
}

func runCount(ctx context.Context, cfg config.Config, opts countOptions) (tokenizer.Result, error) {
	reg, err := newTokenizerRegistry(cfg, newVocabFetcher(cfg))
	if err != nil {
		return tokenizer.Result{}, err
	}
	defer reg.Close()

	tok, err := reg.Resolve(ctx, opts.Model, registry.ResolveOptions{RemoteHost: opts.RemoteHost})
	if err != nil {
		return tokenizer.Result{}, err
	}

	return tok.Tokenize(opts.Text, tokenizer.Options{
		FastMode:  opts.Fast,
		ChunkSize: opts.ChunkSize,
		MaxTokens: opts.MaxTokens,
	})
}

func writeCountOutput(w io.Writer, res tokenizer.Result, opts countOutputOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if _, err := fmt.Fprintf(w, "name: %s\ncount: %d\n", res.Name, res.Count); err != nil {
		return err
	}
	if !opts.Segments {
		return nil
	}

	if _, err := fmt.Fprintf(w, "%-8s  %-24s  %s\n", "Idx", "Tokens", "Text"); err != nil {
		return err
	}
	for _, seg := range res.Segments {
		ids := make([]string, 0, len(seg.Tokens))
		for _, st := range seg.Tokens {
			ids = append(ids, strconv.Itoa(st.ID))
		}
		idx := "-"
		if len(seg.Tokens) > 0 {
			idx = strconv.Itoa(seg.Tokens[0].Idx)
		}
		if _, err := fmt.Fprintf(w, "%-8s  %-24s  %q\n", idx, strings.Join(ids, " "), seg.Text); err != nil {
			return err
		}
	}
	return nil
}

func readCountText(text string, stdin io.Reader) (string, error) {
	if text != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := string(b)
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}

func mapTokenizeError(err error) error {
	var invalid *tokenizer.InvalidIdentifierError
	if errors.As(err, &invalid) {
		return fmt.Errorf("count failed: %w; run 'tokenlens models list' for the catalog", err)
	}

	var denied *vocab.AccessDeniedError
	if errors.As(err, &denied) {
		return fmt.Errorf("count failed: %w; gated repositories need --hf-token or HF_TOKEN", err)
	}

	return err
}
