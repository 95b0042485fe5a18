package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meridian-hq/medscrub/pkg/cli"
	"meridian-hq/medscrub/pkg/config"
	"meridian-hq/medscrub/pkg/vault"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the audit encryption key",
	Long: `Inspect and bootstrap the AES-256 key that encrypts audit PHI payloads.

The key is generated once and then loaded from stable storage on every
subsequent run. Losing it makes the PHI portion of prior audit records
permanently unreadable; the operational fields stay readable without it.

Subcommands:
  generate - Create the key if it does not exist yet
  info     - Show key file status and permissions`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create the key if absent",
	Long: `Create the configured key file if it does not exist yet.

The bootstrap is idempotent: an existing key is left untouched. The file
is raw binary with 0600 permissions and is never rotated automatically.`,
	RunE: generateKey,
}

var keysInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show key file status",
	RunE:  keyInfo,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd, keysInfoCmd)
}

func generateKey(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	existed := false
	if _, err := os.Stat(cfg.Vault.KeyPath); err == nil {
		existed = true
	}

	if _, err := vault.LoadOrCreateKey(cfg.Vault.KeyPath); err != nil {
		return cli.NewCommandError("keys generate", err)
	}

	if existed {
		fmt.Printf("✓ Key already exists: %s\n", cfg.Vault.KeyPath)
	} else {
		fmt.Printf("✓ Key generated: %s\n", cfg.Vault.KeyPath)
		fmt.Println("  Back this file up. Audit PHI payloads cannot be decrypted without it.")
	}
	return nil
}

func keyInfo(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	info, err := os.Stat(cfg.Vault.KeyPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Key file: %s (not created yet)\n", cfg.Vault.KeyPath)
			return nil
		}
		return cli.NewCommandError("keys info", err)
	}

	fmt.Printf("Key file:    %s\n", cfg.Vault.KeyPath)
	fmt.Printf("Size:        %d bytes (expected %d)\n", info.Size(), vault.KeySize)
	fmt.Printf("Permissions: %o\n", info.Mode().Perm())
	fmt.Printf("Modified:    %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	if _, err := vault.Open(cfg.Vault.KeyPath); err != nil {
		return cli.NewCommandError("keys info", fmt.Errorf("key is unusable: %w", err))
	}
	fmt.Println("✓ Key loads and initializes the cipher")
	return nil
}
