package main

import (
	"context"
	"fmt"
	"os"

	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newVocabVerifyCmd() *cobra.Command {
	var remoteHost string
	var probe string

	cmd := &cobra.Command{
		Use:   "verify <repo>",
		Short: "Fetch a vocabulary and construct a working tokenizer from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			count, err := verifyVocabulary(cmd.Context(), cfg, args[0], remoteHost, probe)
			if err != nil {
				return mapVocabError(err)
			}

			_, err = fmt.Fprintf(os.Stdout, "ok: probe text tokenized to %d tokens\n", count)
			return err
		},
	}

	cmd.Flags().StringVar(&remoteHost, "remote-host", "", "Override the vocabulary host for this fetch")
	cmd.Flags().StringVar(&probe, "probe", "The quick brown fox jumps over the lazy dog.", "Probe text tokenized to validate the artifact")

	return cmd
}

// verifyVocabulary exercises the full load path: fetch the artifact, build
// a pretrained tokenizer from it, and tokenize a probe string.
func verifyVocabulary(ctx context.Context, cfg config.Config, repo, remoteHost, probe string) (int, error) {
	data, err := fetchVocabulary(ctx, cfg, repo, remoteHost)
	if err != nil {
		return 0, err
	}

	tok, err := tokenizer.NewPretrainedTokenizer(repo, data)
	if err != nil {
		return 0, err
	}
	defer tok.Close()

	res, err := tok.Tokenize(probe, tokenizer.Options{FastMode: true})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}
