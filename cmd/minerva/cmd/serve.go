package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michele-orsini-71/minerva/internal/config"
	"github.com/michele-orsini-71/minerva/internal/credential"
	"github.com/michele-orsini-71/minerva/internal/discovery"
	"github.com/michele-orsini-71/minerva/internal/logging"
	"github.com/michele-orsini-71/minerva/internal/mcpserver"
	"github.com/michele-orsini-71/minerva/internal/search"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run Discovery then serve the MCP tool surface over stdio",
		Long: `Serve runs Collection Discovery (spec §4.7) and then exposes the
list_knowledge_bases/search_knowledge_base tools (spec §4.9) over standard
input/output framing, as an MCP stdio server.

BUG-034 lesson carried from the teacher: the MCP stdio protocol requires
stdout to be used exclusively for JSON-RPC framing. No status output is
printed; diagnostics go to the debug log file only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cleanup, err := logging.SetupMCPMode()
			if err != nil {
				return err
			}
			defer cleanup()

			return runServe(ctx, configPath, "stdio", "")
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a server config JSON file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func newServeHTTPCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Run Discovery then serve the MCP tool surface over HTTP+SSE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadServerConfig(configPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}

			addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
			cmd.Printf("minerva MCP HTTP server listening on http://%s\n", addr)

			return runServeWithConfig(ctx, cfg, "http", addr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a server config JSON file (required)")
	cmd.Flags().StringVar(&host, "host", "", "override the config's host")
	cmd.Flags().IntVar(&port, "port", 0, "override the config's port")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runServe(ctx context.Context, configPath, transport, addr string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	return runServeWithConfig(ctx, cfg, transport, addr)
}

func runServeWithConfig(ctx context.Context, cfg *config.ServerConfig, transport, addr string) error {
	store, err := vectorstore.Open(cfg.ChromaDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resolver := credential.NewStore()
	registry, err := discovery.Discover(ctx, store, resolver)
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	slog.Info("collection discovery complete",
		slog.Int("available", registry.AvailableCount()),
		slog.Int("total", len(registry.List())))

	engine := search.NewEngine(store, registry)
	server := mcpserver.New(engine, registry, cfg.DefaultMaxResults)

	return server.Serve(ctx, transport, addr)
}
