package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/vocab"
	"github.com/spf13/cobra"
)

func newVocabFetchCmd() *cobra.Command {
	var out string
	var remoteHost string

	cmd := &cobra.Command{
		Use:   "fetch <repo>",
		Short: "Download a pretrained tokenizer.json from the vocabulary host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			data, err := fetchVocabulary(cmd.Context(), cfg, args[0], remoteHost)
			if err != nil {
				return mapVocabError(err)
			}

			return writeVocabOutput(out, data, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&out, "out", "tokenizer.json", "Output path ('-' for stdout)")
	cmd.Flags().StringVar(&remoteHost, "remote-host", "", "Override the vocabulary host for this fetch")

	return cmd
}

func fetchVocabulary(ctx context.Context, cfg config.Config, repo, remoteHost string) ([]byte, error) {
	return newVocabFetcher(cfg).TokenizerJSON(ctx, repo, remoteHost)
}

func writeVocabOutput(outPath string, data []byte, stdout io.Writer) error {
	if outPath == "-" {
		if stdout == nil {
			return fmt.Errorf("stdout writer is nil")
		}
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func mapVocabError(err error) error {
	var denied *vocab.AccessDeniedError
	if errors.As(err, &denied) {
		return fmt.Errorf("vocab fetch failed: %w; gated repositories need --hf-token or HF_TOKEN", err)
	}

	var notFound *vocab.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("vocab fetch failed: %w; check the repository name", err)
	}

	return err
}
