package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"github.com/aeterna/aeterna/internal/engine"
)

func newIngestCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Seal a file's digest into the audit ledger",
		Long:  "Computes the SHA3-512 digest of a file and records it as a FILE_INGEST event, binding the file's content to the chain.",
		Args:  cobra.ExactArgs(1),
		Example: `  aeterna ingest --session S1 ./evidence/export.csv
  aeterna ingest --session S1 ./evidence/invoice.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			digest, size, err := hashFile(path)
			if err != nil {
				return err
			}

			_, logger, store, signer, err := openEnv()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := engine.New(session, store, signer, logger)
			payload := map[string]any{
				"file_name": filepath.Base(path),
				"file_size": size,
				"sha3_512":  digest,
			}
			if err := eng.RecordEvent(cmd.Context(), "FILE_INGEST", payload, nil); err != nil {
				return err
			}

			fmt.Printf("Sealed %s\n", path)
			fmt.Printf("  Size:     %d bytes\n", size)
			fmt.Printf("  SHA3-512: %s\n", digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "audit session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func hashFile(path string) (digest string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha3.New512()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
