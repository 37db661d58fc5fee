// Package ledgermcp exposes read-only ledger queries as MCP tools so agents
// can inspect proposals and the event log.
package ledgermcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

const (
	serverName    = "objectledger"
	serverVersion = "0.1.0"

	// RegistryResourceURI serves the committed registry as JSON.
	RegistryResourceURI = "ledger://registry"
)

// Ledger is the query surface the tools call. *ledgergrpc.Client satisfies it.
type Ledger interface {
	ProposalInfo(ctx context.Context, proposalID string) (voting.ProposalInfo, error)
	RegistryInfo(ctx context.Context) (voting.RegistryInfo, error)
	HasVoted(ctx context.Context, proposalID, address string) (bool, error)
	ListEvents(ctx context.Context, req ledgergrpc.ListEventsRequest) (service.EventPage, error)
}

// RegistryInput takes no arguments.
type RegistryInput struct{}

// ProposalInput addresses one proposal.
type ProposalInput struct {
	ProposalID string `json:"proposal_id" jsonschema:"proposal object id (0x followed by 64 hex digits)"`
}

// HasVotedInput asks about one voter.
type HasVotedInput struct {
	ProposalID string `json:"proposal_id" jsonschema:"proposal object id"`
	Address    string `json:"address" jsonschema:"voter address"`
}

// HasVotedResult answers has_voted.
type HasVotedResult struct {
	Voted bool `json:"voted"`
}

// EventListInput pages through the event log.
type EventListInput struct {
	AfterSeq uint64 `json:"after_seq,omitempty" jsonschema:"return events with a greater sequence"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"maximum events to return"`
	Filter   string `json:"filter,omitempty" jsonschema:"AIP-160 filter, e.g. kind = \"vote.cast\""`
}

// NewServer builds an MCP server with the ledger tools registered.
func NewServer(ledger Ledger) (*mcp.Server, error) {
	if ledger == nil {
		return nil, errors.New("ledger client is required")
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_registry_info",
		Description: "Returns the proposal registry: proposal count and active proposal ids",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ RegistryInput) (*mcp.CallToolResult, RegistryResult, error) {
		info, err := ledger.RegistryInfo(ctx)
		if err != nil {
			return nil, RegistryResult{}, err
		}
		return nil, registryResult(info), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_proposal_info",
		Description: "Returns a proposal with its vote tallies and voters",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ProposalInput) (*mcp.CallToolResult, ProposalResult, error) {
		info, err := ledger.ProposalInfo(ctx, input.ProposalID)
		if err != nil {
			return nil, ProposalResult{}, err
		}
		return nil, proposalResult(info), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "has_voted",
		Description: "Reports whether an address has voted on a proposal",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input HasVotedInput) (*mcp.CallToolResult, HasVotedResult, error) {
		voted, err := ledger.HasVoted(ctx, input.ProposalID, input.Address)
		if err != nil {
			return nil, HasVotedResult{}, err
		}
		return nil, HasVotedResult{Voted: voted}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "Lists committed events in order, optionally filtered",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input EventListInput) (*mcp.CallToolResult, EventListResult, error) {
		page, err := ledger.ListEvents(ctx, ledgergrpc.ListEventsRequest{
			AfterSeq: input.AfterSeq,
			PageSize: input.PageSize,
			Filter:   input.Filter,
		})
		if err != nil {
			return nil, EventListResult{}, err
		}
		return nil, eventListResult(page), nil
	})

	server.AddResource(&mcp.Resource{
		URI:         RegistryResourceURI,
		Name:        "registry",
		Description: "Committed proposal registry",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		info, err := ledger.RegistryInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("registry info: %w", err)
		}
		data, err := json.Marshal(registryResult(info))
		if err != nil {
			return nil, fmt.Errorf("encode registry: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      RegistryResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})

	return server, nil
}

// Serve runs the tools over transport until ctx ends or the peer disconnects.
func Serve(ctx context.Context, ledger Ledger, transport mcp.Transport) error {
	if transport == nil {
		return errors.New("mcp transport is required")
	}
	server, err := NewServer(ledger)
	if err != nil {
		return err
	}
	if err := server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

// ServeStdio runs the tools over stdin/stdout.
func ServeStdio(ctx context.Context, ledger Ledger) error {
	return Serve(ctx, ledger, &mcp.StdioTransport{})
}
