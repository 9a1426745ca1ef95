package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/michele-orsini-71/minerva/internal/config"
	"github.com/michele-orsini-71/minerva/internal/credential"
)

func newKeychainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keychain",
		Short: "Administer credentials in the OS keychain",
		Long: `Keychain manages the secrets that provider.api_key_ref entries in index
and chat config files reference via "${NAME}" templates (spec §4.1).`,
	}

	cmd.AddCommand(newKeychainSetCmd())
	cmd.AddCommand(newKeychainGetCmd())
	cmd.AddCommand(newKeychainListCmd())
	cmd.AddCommand(newKeychainDeleteCmd())

	return cmd
}

func newKeychainSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <NAME>",
		Short: "Store a credential under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			secret, err := readSecret(cmd)
			if err != nil {
				return err
			}

			store := credential.NewStore()
			if err := store.Set(name, secret); err != nil {
				return err
			}
			if err := config.RecordCredentialName(name); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored credential %s\n", name)
			return nil
		},
	}
}

func newKeychainGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <NAME>",
		Short: "Print a credential stored under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credential.NewStore()
			secret, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}

func newKeychainListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential names previously set via keychain set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			known, err := config.LoadKnownCredentialNames()
			if err != nil {
				return err
			}
			store := credential.NewStore()
			for _, name := range store.List(known) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newKeychainDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <NAME>",
		Short: "Remove a credential stored under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store := credential.NewStore()
			if err := store.Delete(name); err != nil {
				return err
			}
			if err := config.ForgetCredentialName(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted credential %s\n", name)
			return nil
		},
	}
}

// readSecret reads the credential value from piped stdin, or prompts with
// hidden terminal input when stdin is a TTY.
func readSecret(cmd *cobra.Command) (string, error) {
	stat, _ := os.Stdin.Stat()
	isPiped := (stat.Mode() & os.ModeCharDevice) == 0

	if isPiped {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read credential from stdin: %w", err)
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Enter credential value (input will be hidden): ")
	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read credential from terminal: %w", err)
	}
	return string(secretBytes), nil
}
