// Package cmd implements the secretvault command-line surface: the
// external shell the engine contract is defined against. None of this
// package is consulted by internal/vaultengine's tests — it only
// wires terminal I/O, config resolution, and flag parsing onto the
// engine's exported operations.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagVaultFile  string
	flagAuditFile  string
	flagIdentity   string
	flagUseKeyring bool
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "secretvault",
	Short: "A local, single-user secret store with path-based policies",
	Long: `secretvault is a local secret store that protects values at rest with a
two-layer envelope-encryption key hierarchy, mediates every access
through path-based policies, and records every attempt in an
append-only audit log.

Examples:
  # Create a new vault
  secretvault init

  # Unseal it for the current session
  secretvault unseal

  # Grant an identity access and store a secret
  secretvault add-policy --identity admin --pattern '**' --capability read --capability write
  secretvault put production/db/password --identity admin

  # Retrieve it
  secretvault get production/db/password --identity admin`,
	PersistentPreRunE: loadConfig,
}

// Execute runs the command tree, printing the stable "Error: " prefix
// on any returned error and exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		colorError.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVaultFile, "vault-file", "", "path to the vault store file (default resolved via config)")
	rootCmd.PersistentFlags().StringVar(&flagAuditFile, "audit-file", "", "path to the audit log file (default resolved via config)")
	rootCmd.PersistentFlags().StringVar(&flagIdentity, "identity", "", "caller identity used for the policy gate and audit trail")
	rootCmd.PersistentFlags().BoolVar(&flagUseKeyring, "keyring", false, "carry the unsealed session in the OS keychain instead of a sibling file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("vault_file", rootCmd.PersistentFlags().Lookup("vault-file"))
	_ = viper.BindPFlag("audit_file", rootCmd.PersistentFlags().Lookup("audit-file"))
	_ = viper.BindPFlag("use_keyring", rootCmd.PersistentFlags().Lookup("keyring"))

	rootCmd.AddGroup(
		&cobra.Group{ID: "lifecycle", Title: "Vault Lifecycle:"},
		&cobra.Group{ID: "secrets", Title: "Secret Operations:"},
		&cobra.Group{ID: "policy", Title: "Policy Administration:"},
		&cobra.Group{ID: "audit", Title: "Audit:"},
	)
}

// loadConfig resolves ~/.secretvault/config.yaml, if present, before any
// subcommand runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(home, ".secretvault"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

// VaultFilePath resolves the vault store path: --vault-file flag, then
// the config file's vault_file key, then the hardcoded default.
func VaultFilePath() string {
	if flagVaultFile != "" {
		return expandHome(flagVaultFile)
	}
	if viper.IsSet("vault_file") {
		return expandHome(viper.GetString("vault_file"))
	}
	return defaultVaultFile()
}

// AuditFilePath resolves the audit log path the same way, defaulting
// to a sibling of the vault file.
func AuditFilePath() string {
	if flagAuditFile != "" {
		return expandHome(flagAuditFile)
	}
	if viper.IsSet("audit_file") {
		return expandHome(viper.GetString("audit_file"))
	}
	return filepath.Join(filepath.Dir(VaultFilePath()), "audit.log")
}

// SessionFilePath is the sibling session artifact next to the vault file.
func SessionFilePath() string {
	return VaultFilePath() + ".session"
}

// UseKeyring reports whether the OS-keychain session carrier was
// requested over the default file-based one.
func UseKeyring() bool {
	return flagUseKeyring || viper.GetBool("use_keyring")
}

// Identity returns the --identity flag value, trusted verbatim as the
// caller's declared identity. The engine performs no authentication of
// it.
func Identity() string {
	return flagIdentity
}

func defaultVaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".secretvault/vault.db"
	}
	return filepath.Join(home, ".secretvault", "vault.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
