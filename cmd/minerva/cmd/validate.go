package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michele-orsini-71/minerva/internal/index"
)

func newValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate <notes.json>",
		Short: "Validate a note JSON file against the Note schema, without indexing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := index.LoadNotes(args[0])
			if err != nil {
				return err
			}
			if verbose {
				for _, n := range notes {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d bytes)\n", n.Title, len(n.Markdown))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d notes valid\n", args[0], len(notes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "list every validated note")

	return cmd
}
