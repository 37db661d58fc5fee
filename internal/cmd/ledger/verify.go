package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	"github.com/louisbranch/objectledger/internal/services/ledger/app"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the event hash chain, signatures and voting invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceVerify, func(ctx context.Context) error {
				backend, err := app.OpenBackend(ctx, cfg.Config)
				if err != nil {
					return err
				}
				defer backend.Close()

				keyring, err := cfg.Keyring()
				if err != nil {
					return err
				}
				var verifier eventlog.Verifier
				if keyring != nil {
					verifier = keyring
				}
				chainErr := backend.VerifyEventIntegrity(ctx, verifier)
				invariantErr := voting.CheckInvariants(ctx, backend)

				out := cmd.OutOrStdout()
				report := func(name string, err error) {
					if err != nil {
						fmt.Fprintf(out, "%s: FAIL %v\n", name, err)
						return
					}
					fmt.Fprintf(out, "%s: ok\n", name)
				}
				report("event chain", chainErr)
				report("voting invariants", invariantErr)
				return errors.Join(chainErr, invariantErr)
			})
		},
	}
}
