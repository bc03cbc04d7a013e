package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aeterna/aeterna/internal/engine"
	"github.com/aeterna/aeterna/internal/witness"
)

func newRecordCmd() *cobra.Command {
	var session, eventType, payloadJSON, metaJSON string
	var useWitness bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append one event to the audit ledger",
		Example: `  aeterna record --session S1 --type TX_CHECK --payload '{"amount":1200}'
  aeterna record --type SESSION_START --payload '{}'
  aeterna record --session S1 --type TX_CHECK --payload '{"a":1}' --witness`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseJSONObject(payloadJSON, "--payload")
			if err != nil {
				return err
			}
			meta, err := parseJSONObject(metaJSON, "--meta")
			if err != nil {
				return err
			}

			if session == "" {
				session = uuid.NewString()
				fmt.Printf("Session: %s\n", session)
			}

			cfg, logger, store, signer, err := openEnv()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()

			if useWitness {
				if cfg.Witness.URL == "" {
					return fmt.Errorf("--witness requires witness.url in the config")
				}
				// The authority attests the current chain head. Its answer
				// rides along as metadata; a witness failure never blocks
				// the append.
				head, err := store.LastChainValue(ctx)
				if err != nil {
					return err
				}
				client := witness.NewClient(cfg.Witness.URL, time.Duration(cfg.Witness.TimeoutS)*time.Second)
				att, err := client.Attest(ctx, head)
				if err != nil {
					logger.Warn("timestamp witness unavailable", "error", err)
				} else {
					for k, v := range att.Meta() {
						meta[k] = v
					}
				}
			}

			eng := engine.New(session, store, signer, logger)
			if err := eng.RecordEvent(ctx, eventType, payload, meta); err != nil {
				return err
			}

			fmt.Printf("Recorded %s event for session %s\n", eventType, session)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "audit session id (generated when omitted)")
	cmd.Flags().StringVar(&eventType, "type", "", "event type tag")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "event payload as a JSON object")
	cmd.Flags().StringVar(&metaJSON, "meta", "", "extra metadata as a JSON object")
	cmd.Flags().BoolVar(&useWitness, "witness", false, "attach an external timestamp attestation to the record metadata")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

// parseJSONObject decodes a CLI-supplied JSON object, tolerating an empty
// flag value.
func parseJSONObject(s, flag string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", flag, err)
	}
	if m == nil {
		return nil, errors.New(flag + " must be a JSON object")
	}
	return m, nil
}
