package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var session, eventType string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query recent ledger records",
		Example: `  aeterna logs
  aeterna logs --session S1
  aeterna logs --type FILE_INGEST --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, _, err := openEnv()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.Recent(cmd.Context(), session, eventType, limit)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No ledger records found.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "SEQ\tTIME\tSESSION\tTYPE\tHASH\n") //nolint:errcheck // CLI output
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", //nolint:errcheck // CLI output
					r.Sequence, r.Timestamp, r.SessionID, r.EventType, shortHash(r.CurrentHash))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "filter by session id")
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().IntVar(&limit, "limit", 50, "max records to return")
	return cmd
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
