package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/crypto"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger summary and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, store, _, err := openEnv()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			head, err := store.LastChainValue(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println("  aeterna status")
			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Config:      %s\n", cfgFile)
			fmt.Printf("  Vault:       %s\n", cfg.Vault.DBPath)
			fmt.Printf("  Reports:     %s\n", cfg.Vault.ReportsDir)
			if cfg.Witness.URL != "" {
				fmt.Printf("  Witness:     %s\n", cfg.Witness.URL)
			}
			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Records:     %d\n", stats.Records)
			fmt.Printf("  Sessions:    %d\n", stats.Sessions)
			if stats.Records > 0 {
				fmt.Printf("  First event: %s\n", stats.FirstTimestamp)
				fmt.Printf("  Last event:  %s\n", stats.LastTimestamp)
			}
			if head == crypto.Genesis {
				fmt.Printf("  Chain head:  %s (empty)\n", head)
			} else {
				fmt.Printf("  Chain head:  %s\n", shortHash(head))
			}
			fmt.Println()
			return nil
		},
	}
}
