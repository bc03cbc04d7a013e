package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/engine"
	"github.com/aeterna/aeterna/internal/report"
)

func newFinalizeCmd() *cobra.Command {
	var session, customer, licenseType, scope, scopeStatus string

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize an audit session and write its report artifact",
		Example: `  aeterna finalize --session S1 --customer Acme --scope Q1
  aeterna finalize --session S1 --customer Acme --license-type ENTERPRISE --scope Q1 --scope-status PARTIAL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, signer, err := openEnv()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := engine.New(session, store, signer, logger)
			lic := engine.LicenseInfo{Customer: customer, Type: licenseType, Scope: scope}
			f, err := eng.FinalizeSession(cmd.Context(), lic, scopeStatus)
			if err != nil {
				return err
			}

			path, err := f.WriteArtifact(cfg.Vault.ReportsDir)
			if err != nil {
				return err
			}

			if err := (report.TextRenderer{}).Render(os.Stdout, f); err != nil {
				return err
			}
			fmt.Printf("\nArtifact: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "audit session id")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&licenseType, "license-type", "STANDARD", "license type")
	cmd.Flags().StringVar(&scope, "scope", "", "audit scope label")
	cmd.Flags().StringVar(&scopeStatus, "scope-status", "OK", "scope completion status")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}
