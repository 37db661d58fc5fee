package voting

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
)

// Register adds the voting operations to ops.
func Register(ops *operation.Registry) error {
	defs := []operation.Definition{
		{
			Kind:        OpInit,
			Description: "Create the proposal registry and an admin capability owned by the sender.",
			Handle: func(txn *engine.Txn, args json.RawMessage) (any, error) {
				var empty struct{}
				if err := operation.DecodeArgs(args, &empty); err != nil {
					return nil, err
				}
				return Init(txn)
			},
		},
		{
			Kind:        OpCreateProposal,
			Description: "Create a proposal and list it in the registry.",
			Handle:      bind(CreateProposal),
		},
		{
			Kind:        OpVote,
			Description: "Cast the sender's yes/no vote on a proposal.",
			Handle:      bind(Vote),
		},
		{
			Kind:        OpRemoveProposal,
			Description: "Unlink a proposal from the registry using an admin capability.",
			Handle:      bind(RemoveProposal),
		},
		{
			Kind:        OpTransferObject,
			Description: "Transfer an exclusive object owned by the sender.",
			Handle:      bind(TransferObject),
		},
	}
	for _, def := range defs {
		if err := ops.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func bind[A any, R any](fn func(*engine.Txn, A) (R, error)) operation.Handler {
	return func(txn *engine.Txn, raw json.RawMessage) (any, error) {
		var args A
		if err := operation.DecodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(txn, args)
	}
}

// RegisterEvents adds the voting event kinds to events.
func RegisterEvents(events *event.Registry) error {
	defs := []event.Definition{
		{Kind: EventProposalCreated, ValidatePayload: validate(func(p ProposalCreatedPayload) error {
			if p.ProposalID == "" || p.Creator == "" {
				return errors.New("proposal_id and creator are required")
			}
			return nil
		})},
		{Kind: EventVoteCast, ValidatePayload: validate(func(p VoteCastPayload) error {
			if p.ProposalID == "" || p.Voter == "" || p.ReceiptID == "" {
				return errors.New("proposal_id, voter and receipt_id are required")
			}
			return nil
		})},
		{Kind: EventObjectTransferred, ValidatePayload: validate(func(p ObjectTransferredPayload) error {
			if p.ObjectID == "" || p.To == "" {
				return errors.New("object_id and to are required")
			}
			return nil
		})},
	}
	for _, def := range defs {
		if err := events.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func validate[P any](check func(P) error) event.PayloadValidator {
	return func(raw json.RawMessage) error {
		var payload P
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return check(payload)
	}
}
