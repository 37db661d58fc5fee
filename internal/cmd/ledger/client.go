package ledger

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"

	platformgrpc "github.com/louisbranch/objectledger/internal/platform/grpc"
	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
)

// dialLedger connects to the configured gRPC address once it reports healthy.
func dialLedger(ctx context.Context, cfg Config) (*grpc.ClientConn, error) {
	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.GRPCAddr, cfg.DialTimeout, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return nil, fmt.Errorf("dial ledger at %s: %w", cfg.GRPCAddr, err)
	}
	return conn, nil
}

// senderClient authenticates as sender: with a signed token when a JWT
// secret is configured, otherwise with the sender header.
func senderClient(conn grpc.ClientConnInterface, cfg Config, sender string) (*ledgergrpc.Client, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return ledgergrpc.NewClient(conn, ledgergrpc.WithSender(sender)), nil
	}
	token, err := ledgergrpc.Authenticator{Secret: []byte(secret), Issuer: cfg.JWTIssuer}.IssueToken(sender)
	if err != nil {
		return nil, err
	}
	return ledgergrpc.NewClient(conn, ledgergrpc.WithToken(token)), nil
}
