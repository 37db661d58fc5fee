package ledgergrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/platform/timeouts"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

// Client calls a remote ledger.
type Client struct {
	conn   grpc.ClientConnInterface
	token  string
	sender string
	locale string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken authenticates calls with a bearer token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithSender names the sender directly, for servers without a JWT secret.
func WithSender(sender string) ClientOption {
	return func(c *Client) {
		c.sender = sender
	}
}

// WithLocale asks for localized error messages.
func WithLocale(locale string) ClientOption {
	return func(c *Client) {
		c.locale = locale
	}
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	var pairs []string
	if c.token != "" {
		pairs = append(pairs, AuthorizationHeader, "Bearer "+c.token)
	}
	if c.sender != "" {
		pairs = append(pairs, SenderHeader, c.sender)
	}
	if c.locale != "" {
		pairs = append(pairs, LocaleHeader, c.locale)
	}
	if len(pairs) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.outgoing(ctx), timeouts.GRPCRequest)
	defer cancel()
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return apperrors.FromGRPCStatus(err)
	}
	return fromStruct(out, resp)
}

// Submit runs one operation. Domain failures come back as *apperrors.Error.
func (c *Client) Submit(ctx context.Context, kind operation.Kind, args any) (service.TxReceipt, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return service.TxReceipt{}, fmt.Errorf("encode args: %w", err)
	}
	if args == nil {
		raw = nil
	}
	var receipt service.TxReceipt
	err = c.call(ctx, MethodSubmit, SubmitRequest{Kind: string(kind), Args: raw}, &receipt)
	return receipt, err
}

// RetryPolicy bounds SubmitWithRetry.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries version conflicts a handful of times.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 8, Backoff: 5 * time.Millisecond}

// SubmitWithRetry resubmits while the ledger reports a retryable conflict.
// Each attempt is a fresh transaction that re-reads committed state.
func (c *Client) SubmitWithRetry(ctx context.Context, policy RetryPolicy, kind operation.Kind, args any) (service.TxReceipt, int, error) {
	return Retry(ctx, policy, func(ctx context.Context) (service.TxReceipt, error) {
		return c.Submit(ctx, kind, args)
	})
}

// Retry calls submit until it succeeds, fails with a non-retryable error, or
// runs out of attempts. It returns the number of attempts made.
func Retry(ctx context.Context, policy RetryPolicy, submit func(context.Context) (service.TxReceipt, error)) (service.TxReceipt, int, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		receipt, err := submit(ctx)
		if err == nil {
			return receipt, attempt, nil
		}
		lastErr = err
		if !apperrors.GetCode(err).Retryable() {
			return service.TxReceipt{}, attempt, err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return service.TxReceipt{}, attempt, errors.Join(lastErr, ctx.Err())
		case <-time.After(policy.Backoff * time.Duration(attempt)):
		}
	}
	return service.TxReceipt{}, policy.MaxAttempts, lastErr
}

// ProposalInfo fetches a committed proposal.
func (c *Client) ProposalInfo(ctx context.Context, proposalID string) (voting.ProposalInfo, error) {
	var info voting.ProposalInfo
	err := c.call(ctx, MethodGetProposalInfo, ProposalRequest{ProposalID: proposalID}, &info)
	return info, err
}

// RegistryInfo fetches the committed registry.
func (c *Client) RegistryInfo(ctx context.Context) (voting.RegistryInfo, error) {
	var info voting.RegistryInfo
	err := c.call(ctx, MethodGetRegistryInfo, struct{}{}, &info)
	return info, err
}

// HasVoted asks whether address voted on a proposal.
func (c *Client) HasVoted(ctx context.Context, proposalID, address string) (bool, error) {
	var resp HasVotedResponse
	err := c.call(ctx, MethodHasVoted, HasVotedRequest{ProposalID: proposalID, Address: address}, &resp)
	return resp.Voted, err
}

// ListEvents fetches one page of the event log.
func (c *Client) ListEvents(ctx context.Context, req ListEventsRequest) (service.EventPage, error) {
	var page service.EventPage
	err := c.call(ctx, MethodListEvents, req, &page)
	return page, err
}
