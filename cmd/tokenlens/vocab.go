package main

import "github.com/spf13/cobra"

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Vocabulary acquisition and verification commands",
	}

	cmd.AddCommand(newVocabFetchCmd())
	cmd.AddCommand(newVocabVerifyCmd())
	return cmd
}
