package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/config"
	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/verifier"
)

func newVerifyReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-report <artifact.json>",
		Short: "Re-derive a finalized report's hash and signature",
		Long:  "Loads a report artifact, rebuilds its canonical JSON, and recomputes report_hash and report_signature. Exit 0 when valid, 2 when invalid, 3 when the companion payload is missing.",
		Args:  cobra.ExactArgs(1),
		Example: `  aeterna verify-report vault/reports/audit_S1_2026-03-01T12-00-00Z.json
  AETERNA_KEY=... aeterna verify-report ./audit_S1.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			signer, err := crypto.NewSigner(cfg.SecretKey())
			if err != nil {
				return err
			}

			res, err := verifier.ReportFile(args[0], signer)
			if errors.Is(err, verifier.ErrNoCompanionPayload) {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitDegenerate)
			}
			if err != nil {
				return err
			}

			pass := color.New(color.FgGreen).SprintFunc()
			fail := color.New(color.FgRed).SprintFunc()
			mark := func(ok bool) string {
				if ok {
					return pass("OK")
				}
				return fail("MISMATCH")
			}

			fmt.Printf("Report hash:      %s\n", mark(res.HashOK))
			fmt.Printf("Report signature: %s\n", mark(res.SignatureOK))

			if !res.Valid() {
				fmt.Printf("\n%s\n", fail("REPORT INVALID"))
				os.Exit(exitBroken)
			}
			fmt.Printf("\n%s\n", pass("REPORT VALID"))
			return nil
		},
	}
}
