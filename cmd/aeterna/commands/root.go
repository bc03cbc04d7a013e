package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/config"
	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/vault"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "aeterna",
		Short: "Tamper-evident audit ledger",
		Long:  "Aeterna — append-only, hash-chained audit ledger with HMAC-signed records and an independent integrity verifier.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "aeterna.yaml", "config file path")

	root.AddCommand(
		newInitCmd(),
		newRecordCmd(),
		newIngestCmd(),
		newFinalizeCmd(),
		newVerifyCmd(),
		newVerifyReportCmd(),
		newLogsCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// newLogger builds the CLI logger at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEnv loads the config and opens the store and signer every stateful
// command needs. Caller closes the store.
func openEnv() (*config.Config, *slog.Logger, *vault.Store, *crypto.Signer, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	store, err := vault.NewStore(cfg.Vault.DBPath, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	signer, err := crypto.NewSigner(cfg.SecretKey())
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, nil, err
	}
	return cfg, logger, store, signer, nil
}
