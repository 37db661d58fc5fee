package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
)

func newSubmitCommand() *cobra.Command {
	var (
		sender   string
		args     string
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "submit <kind>",
		Short: "Submit one operation to a running ledger and print the receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			cfg := configFrom(cmd)
			if strings.TrimSpace(sender) == "" {
				return fmt.Errorf("--sender is required")
			}
			var payload json.RawMessage
			if strings.TrimSpace(args) != "" {
				if !json.Valid([]byte(args)) {
					return fmt.Errorf("--args must be a JSON object")
				}
				payload = json.RawMessage(args)
			}

			conn, err := dialLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			client, err := senderClient(conn, cfg, sender)
			if err != nil {
				return err
			}

			policy := ledgergrpc.DefaultRetryPolicy
			policy.MaxAttempts = attempts
			var body any
			if payload != nil {
				body = payload
			}
			receipt, _, err := client.SubmitWithRetry(cmd.Context(), policy, operation.Kind(positional[0]), body)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(receipt)
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "sender address")
	cmd.Flags().StringVar(&args, "args", "", "operation arguments as a JSON object")
	cmd.Flags().IntVar(&attempts, "attempts", ledgergrpc.DefaultRetryPolicy.MaxAttempts, "attempts on version conflict")
	return cmd
}
