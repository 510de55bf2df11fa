package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/example/go-tokenlens/internal/catalog"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Catalog listing and classification commands",
	}

	cmd.AddCommand(newModelsListCmd())
	cmd.AddCommand(newModelsClassifyCmd())
	return cmd
}

func newModelsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every identifier the catalog recognizes",
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeCatalog(os.Stdout, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")

	return cmd
}

func newModelsClassifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <identifier>",
		Short: "Report which tokenizer kind an identifier maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return writeClassification(os.Stdout, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")

	return cmd
}

// writeClassification reports the kind of one identifier. JSON mode always
// reports (classification is total); text mode fails on unknown identifiers
// so shell checks get a non-zero exit.
func writeClassification(w io.Writer, identifier string, asJSON bool) error {
	kind := catalog.Classify(identifier)

	if asJSON {
		return json.NewEncoder(w).Encode(map[string]string{
			"identifier": identifier,
			"kind":       kind.String(),
		})
	}

	if kind == catalog.KindInvalid {
		return fmt.Errorf("unknown identifier %q; run 'tokenlens models list' for the catalog", identifier)
	}

	_, err := fmt.Fprintf(w, "%s: %s\n", identifier, kind)
	return err
}

func writeCatalog(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string][]string{
			"encodings":          catalog.Encodings(),
			"models":             catalog.ChatAndLegacyModels(),
			"open_source_models": catalog.OpenSourceModels(),
		})
	}

	sections := []struct {
		title string
		names []string
	}{
		{"encodings", catalog.Encodings()},
		{"chat and legacy models", catalog.ChatAndLegacyModels()},
		{"open-source models", catalog.OpenSourceModels()},
	}

	for _, sec := range sections {
		if _, err := fmt.Fprintf(w, "%s:\n", sec.title); err != nil {
			return err
		}
		for _, name := range sec.names {
			if _, err := fmt.Fprintf(w, "  %s\n", name); err != nil {
				return err
			}
		}
	}
	return nil
}
