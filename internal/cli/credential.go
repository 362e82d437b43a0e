package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/credential"
	"github.com/nhle/task-notifier/internal/prompt"
	"github.com/nhle/task-notifier/internal/theme"
)

func credentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage secrets stored in the system keyring",
		Long: "Secrets in the keyring are used when the matching environment variable is empty.\n" +
			"Keys: " + strings.Join(credential.Keys(), ", "),
	}
	cmd.AddCommand(credentialSetCmd())
	cmd.AddCommand(credentialDeleteCmd())
	return cmd
}

func credentialKeyArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if !credential.IsKnownKey(args[0]) {
		return fmt.Errorf("unknown key %q (known: %s)", args[0], strings.Join(credential.Keys(), ", "))
	}
	return nil
}

func credentialSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret; the value is read from the terminal or stdin",
		Args:  credentialKeyArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := readSecret(key)
			if err != nil {
				return err
			}
			if value == "" {
				return errors.New("empty value, nothing stored")
			}
			if err := credential.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", key)
			return nil
		},
	}
}

func credentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a secret",
		Args:  credentialKeyArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// readSecret asks with a masked input on a terminal and reads one line
// from stdin otherwise.
func readSecret(key string) (string, error) {
	if !prompt.IsTerminal(os.Stdin) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading %s from stdin: %w", key, err)
		}
		return strings.TrimSpace(line), nil
	}

	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(key).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	).WithTheme(theme.Form()).Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
