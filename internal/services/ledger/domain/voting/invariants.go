package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// CheckInvariants audits committed voting state: vote totals match the voter
// list, every voter holds exactly one matching receipt and every active
// registry entry resolves to a proposal. It returns all violations joined.
func CheckInvariants(ctx context.Context, objects objectstore.Reader) error {
	proposals, err := objects.List(ctx, objectstore.Filter{Type: TypeProposal})
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}
	receiptObjs, err := objects.List(ctx, objectstore.Filter{Type: TypeVoteReceipt})
	if err != nil {
		return fmt.Errorf("list receipts: %w", err)
	}

	type key struct {
		proposal object.ID
		voter    object.Address
	}
	receipts := make(map[key]int, len(receiptObjs))
	var errs []error
	for _, obj := range receiptObjs {
		var receipt VoteReceipt
		if err := obj.Decode(&receipt); err != nil {
			errs = append(errs, err)
			continue
		}
		if !obj.Owner.OwnedBy(receipt.Voter) {
			errs = append(errs, fmt.Errorf("receipt %s is not owned by voter %s", obj.ID, receipt.Voter))
		}
		receipts[key{receipt.ProposalID, receipt.Voter}]++
	}

	known := make(map[object.ID]bool, len(proposals))
	for _, obj := range proposals {
		known[obj.ID] = true
		var proposal Proposal
		if err := obj.Decode(&proposal); err != nil {
			errs = append(errs, err)
			continue
		}
		if proposal.YesVotes+proposal.NoVotes != uint64(len(proposal.Voters)) {
			errs = append(errs, fmt.Errorf("proposal %s: %d yes + %d no != %d voters",
				obj.ID, proposal.YesVotes, proposal.NoVotes, len(proposal.Voters)))
		}
		for _, voter := range proposal.Voters {
			if n := receipts[key{obj.ID, voter}]; n != 1 {
				errs = append(errs, fmt.Errorf("proposal %s: voter %s has %d receipts", obj.ID, voter, n))
			}
			delete(receipts, key{obj.ID, voter})
		}
	}
	for k, n := range receipts {
		errs = append(errs, fmt.Errorf("proposal %s: %d receipts for non-voter %s", k.proposal, n, k.voter))
	}

	registries, err := objects.List(ctx, objectstore.Filter{Type: TypeRegistry})
	if err != nil {
		return fmt.Errorf("list registries: %w", err)
	}
	for _, obj := range registries {
		var registry ProposalRegistry
		if err := obj.Decode(&registry); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, id := range registry.ActiveProposalIDs {
			if !known[id] {
				errs = append(errs, fmt.Errorf("registry %s lists unknown proposal %s", obj.ID, id))
			}
		}
	}
	return errors.Join(errs...)
}
