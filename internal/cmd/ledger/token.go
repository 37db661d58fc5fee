package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
)

func newTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <sender>",
		Short: "Issue a bearer token that authenticates sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			secret := strings.TrimSpace(cfg.JWTSecret)
			if secret == "" {
				return fmt.Errorf("LEDGER_AUTH_JWT_SECRET is required to issue tokens")
			}
			token, err := ledgergrpc.Authenticator{Secret: []byte(secret), Issuer: cfg.JWTIssuer, TTL: ttl}.IssueToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
