package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config with a freshly generated signing key",
		Example: `  aeterna init
  aeterna init --config ./aeterna.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(cfgFile); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
				}
			}

			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("generating signing key: %w", err)
			}

			cfg := config.Defaults()
			cfg.Security.SecretKeyHex = hex.EncodeToString(key)
			if err := cfg.Save(cfgFile); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", cfgFile)
			fmt.Printf("  Vault:       %s\n", cfg.Vault.DBPath)
			fmt.Printf("  Reports:     %s\n", cfg.Vault.ReportsDir)
			fmt.Printf("  Signing key: generated (256-bit), stored hex-encoded\n")
			fmt.Printf("\nKeep the config file private; anyone holding the key can forge signatures.\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
