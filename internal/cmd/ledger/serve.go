package ledger

import (
	"context"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	"github.com/louisbranch/objectledger/internal/services/ledger/app"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over gRPC and HTTP and relay events to Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceLedger, func(ctx context.Context) error {
				return app.Run(ctx, cfg.Config)
			})
		},
	}
}
