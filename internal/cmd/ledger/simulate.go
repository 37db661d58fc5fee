package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	"github.com/louisbranch/objectledger/internal/services/ledger/app"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

// SimulateOptions shapes a concurrent voting run.
type SimulateOptions struct {
	Admin       string
	Proposals   int
	Voters      int
	Concurrency int
	Retry       ledgergrpc.RetryPolicy
}

// SimulateReport summarizes a simulation.
type SimulateReport struct {
	Proposals []object.ID
	Votes     int64
	Retries   int64
	Duration  time.Duration
}

func newSimulateCommand() *cobra.Command {
	opts := SimulateOptions{Admin: "0xadmin", Proposals: 3, Voters: 50, Concurrency: 16, Retry: ledgergrpc.RetryPolicy{MaxAttempts: 64, Backoff: time.Millisecond}}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run concurrent voters against a local store and check invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceSimulate, func(ctx context.Context) error {
				backend, err := app.OpenBackend(ctx, cfg.Config)
				if err != nil {
					return err
				}
				defer backend.Close()
				svc, err := service.New(backend)
				if err != nil {
					return err
				}
				report, err := Simulate(ctx, svc, opts)
				if err != nil {
					return err
				}
				writeReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Admin, "admin", opts.Admin, "address that initializes the registry")
	flags.IntVar(&opts.Proposals, "proposals", opts.Proposals, "proposals to create")
	flags.IntVar(&opts.Voters, "voters", opts.Voters, "distinct voters; each votes on every proposal")
	flags.IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "voters submitting at once")
	flags.IntVar(&opts.Retry.MaxAttempts, "attempts", opts.Retry.MaxAttempts, "attempts per vote on version conflict")
	return cmd
}

// Simulate initializes the registry if needed, creates proposals, and has
// every voter vote on every proposal concurrently. Conflicting votes retry.
// It finishes by auditing the voting invariants.
func Simulate(ctx context.Context, svc *service.Service, opts SimulateOptions) (SimulateReport, error) {
	if opts.Proposals <= 0 || opts.Voters <= 0 {
		return SimulateReport{}, fmt.Errorf("proposals and voters must be positive")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	start := time.Now()

	registry, err := svc.RegistryInfo(ctx)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		if _, err := svc.Submit(ctx, opts.Admin, voting.OpInit, nil); err != nil {
			return SimulateReport{}, fmt.Errorf("init registry: %w", err)
		}
		registry, err = svc.RegistryInfo(ctx)
	}
	if err != nil {
		return SimulateReport{}, fmt.Errorf("load registry: %w", err)
	}

	report := SimulateReport{}
	for i := 0; i < opts.Proposals; i++ {
		args, err := encodeArgs(voting.CreateProposalArgs{
			RegistryID:  registry.ID,
			Title:       fmt.Sprintf("Simulated proposal %d", i+1),
			Description: "created by ledger simulate",
		})
		if err != nil {
			return SimulateReport{}, err
		}
		receipt, _, err := ledgergrpc.Retry(ctx, opts.Retry, func(ctx context.Context) (service.TxReceipt, error) {
			return svc.Submit(ctx, opts.Admin, voting.OpCreateProposal, args)
		})
		if err != nil {
			return SimulateReport{}, fmt.Errorf("create proposal: %w", err)
		}
		var created voting.CreateProposalResult
		if err := json.Unmarshal(receipt.Result, &created); err != nil {
			return SimulateReport{}, fmt.Errorf("decode proposal result: %w", err)
		}
		report.Proposals = append(report.Proposals, created.ProposalID)
	}

	var votes, retries atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := 0; i < opts.Voters; i++ {
		voter := "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
		choice := i%2 == 0
		g.Go(func() error {
			for _, proposalID := range report.Proposals {
				args, err := encodeArgs(voting.VoteArgs{ProposalID: proposalID, Choice: &choice})
				if err != nil {
					return err
				}
				_, attempts, err := ledgergrpc.Retry(gctx, opts.Retry, func(ctx context.Context) (service.TxReceipt, error) {
					return svc.Submit(ctx, voter, voting.OpVote, args)
				})
				retries.Add(int64(attempts - 1))
				if err != nil {
					return fmt.Errorf("vote %s on %s: %w", voter, proposalID, err)
				}
				votes.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimulateReport{}, err
	}
	report.Votes = votes.Load()
	report.Retries = retries.Load()
	report.Duration = time.Since(start)

	if err := svc.CheckInvariants(ctx); err != nil {
		return report, fmt.Errorf("invariants violated after simulation: %w", err)
	}
	log.WithFields(log.Fields{"votes": report.Votes, "retries": report.Retries}).Info("simulation finished")
	return report, nil
}

func writeReport(out io.Writer, report SimulateReport) {
	fmt.Fprintf(out, "proposals: %d\nvotes: %d\nconflict retries: %d\nduration: %s\n",
		len(report.Proposals), report.Votes, report.Retries, report.Duration.Round(time.Millisecond))
}

func encodeArgs(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return raw, nil
}
