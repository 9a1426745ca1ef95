package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <path> <collection>",
		Short: "Permanently delete a collection from a vector store",
		Long: `Remove permanently deletes a collection and everything in it. This cannot
be undone. The command asks for two confirmations: typing "YES", then
typing the collection's name again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, path, collection string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "WARNING: this will permanently delete collection %q and all its notes.\n", collection)
	fmt.Fprint(cmd.OutOrStdout(), "Type YES to continue: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	confirm, _ := reader.ReadString('\n')
	if strings.TrimSpace(confirm) != "YES" {
		fmt.Fprintln(cmd.OutOrStdout(), "aborted")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Type the collection name (%s) to confirm: ", collection)
	name, _ := reader.ReadString('\n')
	if strings.TrimSpace(name) != collection {
		fmt.Fprintln(cmd.OutOrStdout(), "aborted: name did not match")
		return nil
	}

	store, err := vectorstore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeleteCollection(cmd.Context(), collection); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted collection %q\n", collection)
	return nil
}
