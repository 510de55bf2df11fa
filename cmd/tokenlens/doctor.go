package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/example/go-tokenlens/internal/catalog"
	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/doctor"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local encoding, vocabulary host, and cache checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			result := doctor.Run(buildDoctorConfig(cfg, offline), os.Stdout)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the vocabulary host reachability probe")

	return cmd
}

func buildDoctorConfig(cfg config.Config, offline bool) doctor.Config {
	fetcher := newVocabFetcher(cfg)

	return doctor.Config{
		EncodingNames: catalog.Encodings(),
		LoadEncoding:  loadEncodingCheck,
		VocabOrigin:   fetcher.Origin(),
		ProbeVocabHost: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return fetcher.Probe(ctx)
		},
		SkipVocabHost: offline,
		CacheSize:     cfg.Cache.Size,
		BuildCache: func() error {
			reg, err := newTokenizerRegistry(cfg, fetcher)
			if err != nil {
				return err
			}
			reg.Close()
			return nil
		},
	}
}

// loadEncodingCheck constructs and releases one built-in encoding.
func loadEncodingCheck(name string) error {
	tok, err := tokenizer.NewEncodingTokenizer(name)
	if err != nil {
		return err
	}
	return tok.Close()
}
