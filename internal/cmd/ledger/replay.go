package ledger

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	"github.com/louisbranch/objectledger/internal/services/ledger/app"
	"github.com/louisbranch/objectledger/internal/services/ledger/replay"
)

func newReplayCommand() *cobra.Command {
	var opts replay.Options
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute the transaction journal and compare with stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceReplay, func(ctx context.Context) error {
				backend, err := app.OpenBackend(ctx, cfg.Config)
				if err != nil {
					return err
				}
				defer backend.Close()
				result, err := replay.Verify(ctx, backend, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d transactions (last tx_seq %d): %d events, %d objects match\n",
					result.Transactions, result.LastTxSeq, result.Events, result.Objects)
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&opts.UntilTxSeq, "until", 0, "stop after this tx_seq (0 replays everything)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "journal page size")
	return cmd
}
