package ledger

import (
	"context"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	ledgermcp "github.com/louisbranch/objectledger/internal/services/ledger/mcp"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve read-only ledger tools over MCP stdio, backed by a running ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceMCP, func(ctx context.Context) error {
				conn, err := dialLedger(ctx, cfg)
				if err != nil {
					return err
				}
				defer conn.Close()
				return ledgermcp.ServeStdio(ctx, ledgergrpc.NewClient(conn))
			})
		},
	}
}
