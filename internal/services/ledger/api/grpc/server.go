package ledgergrpc

import (
	"context"
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/platform/requestctx"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

// SubmitRequest is the Submit message body.
type SubmitRequest struct {
	Kind string          `json:"kind"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ProposalRequest addresses one proposal.
type ProposalRequest struct {
	ProposalID string `json:"proposal_id"`
}

// HasVotedRequest asks whether address voted on a proposal.
type HasVotedRequest struct {
	ProposalID string `json:"proposal_id"`
	Address    string `json:"address"`
}

// HasVotedResponse answers HasVoted.
type HasVotedResponse struct {
	Voted bool `json:"voted"`
}

// ListEventsRequest pages through the event log.
type ListEventsRequest struct {
	AfterSeq uint64 `json:"after_seq,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

// Server implements LedgerServer over a ledger service.
type Server struct {
	svc *service.Service
}

// NewServer returns a gRPC handler set for svc.
func NewServer(svc *service.Service) *Server {
	return &Server{svc: svc}
}

func decode(ctx context.Context, in *structpb.Struct, target any) error {
	if err := fromStruct(in, target); err != nil {
		return handleError(ctx, engine.InvalidArgument("request", err.Error()))
	}
	return nil
}

func respond(ctx context.Context, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, handleError(ctx, err)
	}
	out, err := toStruct(v)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return out, nil
}

func handleError(ctx context.Context, err error) error {
	if apperrors.GetCode(err) == apperrors.CodeUnknown {
		log.WithError(err).Error("ledger rpc failed")
	}
	return apperrors.HandleError(err, requestctx.LocaleFromContext(ctx))
}

// Submit runs an operation as the authenticated sender.
func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SubmitRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	sender := requestctx.SenderFromContext(ctx)
	if strings.TrimSpace(sender) == "" {
		return nil, handleError(ctx, apperrors.New(apperrors.CodeUnauthorized, "sender is required"))
	}
	receipt, err := s.svc.Submit(ctx, sender, operation.Kind(strings.TrimSpace(req.Kind)), req.Args)
	return respond(ctx, receipt, err)
}

// GetProposalInfo returns a committed proposal.
func (s *Server) GetProposalInfo(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProposalRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	info, err := s.svc.ProposalInfo(ctx, req.ProposalID)
	return respond(ctx, info, err)
}

// GetRegistryInfo returns the committed registry.
func (s *Server) GetRegistryInfo(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	info, err := s.svc.RegistryInfo(ctx)
	return respond(ctx, info, err)
}

// HasVoted reports whether an address voted on a proposal.
func (s *Server) HasVoted(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req HasVotedRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	voted, err := s.svc.HasVoted(ctx, req.ProposalID, req.Address)
	return respond(ctx, HasVotedResponse{Voted: voted}, err)
}

// ListEvents pages through committed events.
func (s *Server) ListEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListEventsRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	page, err := s.svc.ListEvents(ctx, req.AfterSeq, req.PageSize, req.Filter)
	return respond(ctx, page, err)
}
