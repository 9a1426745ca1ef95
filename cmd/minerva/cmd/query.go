package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michele-orsini-71/minerva/internal/credential"
	"github.com/michele-orsini-71/minerva/internal/discovery"
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/search"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

func newQueryCmd() *cobra.Command {
	var (
		collection string
		maxResults int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "query <path> \"<query>\"",
		Short: "Run a single search against a vector store without an MCP client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], args[1], collection, maxResults, format)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "collection name to search (required if the store has more than one)")
	cmd.Flags().IntVar(&maxResults, "max-results", 5, "maximum number of results")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")

	return cmd
}

func runQuery(cmd *cobra.Command, path, query, collection string, maxResults int, format string) error {
	ctx := cmd.Context()

	store, err := vectorstore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	registry, err := discovery.Discover(ctx, store, credential.NewStore())
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	if collection == "" {
		collection, err = soleAvailableCollection(registry)
		if err != nil {
			return err
		}
	}

	engine := search.NewEngine(store, registry)
	results, err := engine.Search(ctx, collection, query, maxResults, search.ContextEnhanced)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (score %.3f, chunk %d, %s)\n", i+1, r.NoteTitle, r.SimilarityScore, r.ChunkIndex, r.ModificationDate)
		fmt.Fprintf(cmd.OutOrStdout(), "   %s\n\n", r.Content)
	}
	return nil
}

// soleAvailableCollection resolves an unspecified --collection flag to the
// store's one available collection; ambiguous or empty stores are a
// user-actionable config error rather than a silent guess.
func soleAvailableCollection(registry *discovery.Registry) (string, error) {
	var name string
	count := 0
	for _, e := range registry.List() {
		if !e.Available {
			continue
		}
		name = e.Name
		count++
	}
	switch count {
	case 0:
		return "", minerrors.ConfigError("no available collections in this store; pass --collection", nil)
	case 1:
		return name, nil
	default:
		return "", minerrors.ConfigError("multiple collections available; pass --collection to choose one", nil)
	}
}
