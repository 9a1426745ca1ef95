package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michele-orsini-71/minerva/internal/config"
	"github.com/michele-orsini-71/minerva/internal/credential"
	"github.com/michele-orsini-71/minerva/internal/index"
	"github.com/michele-orsini-71/minerva/internal/provider"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

func newIndexCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or update a collection's vector index",
		Long: `Index runs the full or incremental build described by spec §4.6: load
the note JSON file, embed new or changed notes, and write the result to the
configured collection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, configPath, dryRun, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to an index config JSON file (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate notes and provider availability without writing the collection")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print per-run statistics")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, configPath string, dryRun, verbose bool) error {
	cfg, err := config.LoadIndexConfig(configPath)
	if err != nil {
		return err
	}

	resolver := credential.NewStore()

	if dryRun {
		notes, err := index.LoadNotes(cfg.Collection.JSONFile)
		if err != nil {
			return err
		}

		p, err := provider.New(ctx, cfg.Provider.ToProviderConfig(), resolver)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		check := p.Check(ctx)
		if !check.Available {
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: provider unavailable: %s\n", check.Reason)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d notes would be indexed into %q (provider %s/%s, dimension %d)\n",
			len(notes), cfg.Collection.Name, cfg.Provider.Kind, cfg.Provider.EmbeddingModel, check.Dimension)
		return nil
	}

	store, err := vectorstore.Open(cfg.ChromaDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orchestrator := index.NewOrchestrator(store)
	stats, err := orchestrator.Index(ctx, cfg, resolver)
	if err != nil {
		return err
	}

	if verbose || stats.Mode == "full" {
		switch stats.Mode {
		case "full":
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d notes into %d chunks (%s) in %s\n",
				stats.Notes, stats.Chunks, cfg.Collection.Name, stats.Elapsed)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "updated %q: %d added, %d updated, %d deleted, %d unchanged, in %s\n",
				cfg.Collection.Name, stats.Added, stats.Updated, stats.Deleted, stats.Unchanged, stats.Elapsed)
		}
	}

	return nil
}
