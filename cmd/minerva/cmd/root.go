// Package cmd provides the CLI commands for Minerva.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/logging"
	"github.com/michele-orsini-71/minerva/pkg/version"
)

// Debug logging flag, shared by every subcommand via PersistentPreRunE.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the minerva CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "minerva",
		Short:         "Semantic search server over a personal note collection",
		Long:          `Minerva indexes a note collection into a local vector store and serves semantic search over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("minerva version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.minerva/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newServeHTTPCmd())
	cmd.AddCommand(newPeekCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newKeychainCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to set up debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()), slog.String("command", cmd.Name()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and maps the outcome to spec §6's exit
// code contract: 0 success, 1 user/config/availability error, 2 unexpected
// internal error. It never calls os.Exit itself — main does that with the
// returned code, keeping Execute testable.
func Execute() int {
	err := NewRootCmd().Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, minerrors.FormatForCLI(err))
	return exitCodeFor(err)
}

// exitCodeFor classifies err per spec §6. MinervaErrors in the config,
// credential, provider, validation, storage, or search categories are
// user-actionable (exit 1); anything else — including a bare error with no
// MinervaError classification — is treated as an unexpected internal failure
// (exit 2).
func exitCodeFor(err error) int {
	ae, ok := err.(*minerrors.MinervaError)
	if !ok {
		return 2
	}
	switch ae.Category {
	case minerrors.CategoryConfig, minerrors.CategoryCredential, minerrors.CategoryProvider,
		minerrors.CategoryValidation, minerrors.CategoryStorage, minerrors.CategorySearch:
		return 1
	default:
		return 2
	}
}
