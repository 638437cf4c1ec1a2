package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the AI API key in the OS keyring",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the AI API key in the OS keyring",
	Long:  "Stores the key given with --key, or read from the first line of stdin, under the keyring account.",
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the AI API key from the OS keyring",
	RunE:  runSecretDelete,
}

func init() {
	secretCmd.PersistentFlags().String("account", "", "keyring account (default: ai.keyring_account, or one derived from ai.base_url)")
	secretSetCmd.Flags().String("key", "", "API key to store (default: read from stdin)")
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}

// keyringAccount resolves the account: --account flag, then the config's
// ai.keyring_account, then the default derived from ai.base_url.
func keyringAccount(cmd *cobra.Command) (string, error) {
	if v, _ := cmd.Flags().GetString("account"); v != "" {
		return v, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("load config (or pass --account): %w", err)
	}
	if cfg.AI.KeyringAccount != "" {
		return cfg.AI.KeyringAccount, nil
	}
	return secrets.DefaultAccount(cfg.AI.BaseURL), nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount(cmd)
	if err != nil {
		return err
	}
	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		fmt.Fprint(os.Stderr, "API key: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key from stdin: %w", err)
		}
		key = strings.TrimSpace(line)
	}
	if err := secrets.SetAPIKey(account, key); err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	fmt.Printf("Stored API key under keyring account %q.\nSet ai.keyring_account: %q in your config to use it.\n", account, account)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount(cmd)
	if err != nil {
		return err
	}
	if err := secrets.DeleteAPIKey(account); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	fmt.Printf("Deleted API key for keyring account %q.\n", account)
	return nil
}
