package voting

import (
	"fmt"
	"slices"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// AlreadyVoted reports a second vote by the same address.
func AlreadyVoted(voter object.Address, proposalID object.ID) error {
	return apperrors.WithMetadata(apperrors.CodeAlreadyVoted,
		fmt.Sprintf("%s already voted on proposal %s", voter, proposalID),
		map[string]string{"Voter": string(voter), "ProposalID": string(proposalID)})
}

// Init creates the registry, the admin capability owned by the sender and
// the genesis record. It can run once per ledger.
func Init(txn *engine.Txn) (InitResult, error) {
	exists, err := txn.Exists(GenesisID)
	if err != nil {
		return InitResult{}, err
	}
	if exists {
		return InitResult{}, engine.InvariantViolation("voting registry already initialized")
	}

	registry, err := txn.Create(TypeRegistry, object.Shared(), ProposalRegistry{ActiveProposalIDs: []object.ID{}})
	if err != nil {
		return InitResult{}, err
	}
	adminCap, err := txn.Create(TypeAdminCap, object.Exclusive(txn.Sender()), AdminCap{RegistryID: registry.ID})
	if err != nil {
		return InitResult{}, err
	}
	_, err = txn.CreateAt(GenesisID, TypeGenesis, object.Shared(), Genesis{
		RegistryID: registry.ID,
		AdminCapID: adminCap.ID,
		Deployer:   txn.Sender(),
		DeployedAt: txn.Now().UnixMilli(),
	})
	if err != nil {
		return InitResult{}, err
	}
	return InitResult{RegistryID: registry.ID, AdminCapID: adminCap.ID}, nil
}

// CreateProposal adds a proposal to the registry. Any sender may call it.
func CreateProposal(txn *engine.Txn, args CreateProposalArgs) (CreateProposalResult, error) {
	if err := args.normalize(); err != nil {
		return CreateProposalResult{}, err
	}
	var registry ProposalRegistry
	registryObj, err := txn.Load(args.RegistryID, TypeRegistry, &registry)
	if err != nil {
		return CreateProposalResult{}, err
	}

	proposal, err := txn.Create(TypeProposal, object.Shared(), Proposal{
		Creator:     txn.Sender(),
		Title:       args.Title,
		Description: args.Description,
		Voters:      []object.Address{},
		CreatedAt:   txn.Now().UnixMilli(),
	})
	if err != nil {
		return CreateProposalResult{}, err
	}

	registry.ProposalCount++
	registry.ActiveProposalIDs = append(registry.ActiveProposalIDs, proposal.ID)
	if err := txn.Write(registryObj.ID, registryObj.Version, registry); err != nil {
		return CreateProposalResult{}, err
	}

	if err := txn.Emit(EventProposalCreated, proposal.ID, ProposalCreatedPayload{
		ProposalID:  proposal.ID,
		Creator:     txn.Sender(),
		Title:       args.Title,
		Description: args.Description,
	}); err != nil {
		return CreateProposalResult{}, err
	}
	return CreateProposalResult{ProposalID: proposal.ID}, nil
}

// Vote records the sender's choice and issues them a receipt.
func Vote(txn *engine.Txn, args VoteArgs) (VoteResult, error) {
	if err := args.normalize(); err != nil {
		return VoteResult{}, err
	}
	var proposal Proposal
	proposalObj, err := txn.Load(args.ProposalID, TypeProposal, &proposal)
	if err != nil {
		return VoteResult{}, err
	}

	voter := txn.Sender()
	if proposal.HasVoter(voter) {
		return VoteResult{}, AlreadyVoted(voter, args.ProposalID)
	}
	choice := *args.Choice
	proposal.Voters = append(proposal.Voters, voter)
	if choice {
		proposal.YesVotes++
	} else {
		proposal.NoVotes++
	}
	if err := txn.Write(proposalObj.ID, proposalObj.Version, proposal); err != nil {
		return VoteResult{}, err
	}

	receipt, err := txn.Create(TypeVoteReceipt, object.Exclusive(voter), VoteReceipt{
		ProposalID: args.ProposalID,
		Voter:      voter,
		Choice:     choice,
		VotedAt:    txn.Now().UnixMilli(),
	})
	if err != nil {
		return VoteResult{}, err
	}

	if err := txn.Emit(EventVoteCast, args.ProposalID, VoteCastPayload{
		ProposalID: args.ProposalID,
		Voter:      voter,
		Choice:     choice,
		ReceiptID:  receipt.ID,
	}); err != nil {
		return VoteResult{}, err
	}
	return VoteResult{ReceiptID: receipt.ID}, nil
}

// RemoveProposal unlinks a proposal from the registry. The sender must own an
// AdminCap bound to that registry. Removing an id that is not listed changes
// nothing.
func RemoveProposal(txn *engine.Txn, args RemoveProposalArgs) (RemoveProposalResult, error) {
	if err := args.normalize(); err != nil {
		return RemoveProposalResult{}, err
	}
	var adminCap AdminCap
	if _, err := txn.Borrow(args.AdminCapID, TypeAdminCap, &adminCap); err != nil {
		return RemoveProposalResult{}, err
	}
	if adminCap.RegistryID != args.RegistryID {
		return RemoveProposalResult{}, objectstore.Unauthorized(txn.Sender(), args.AdminCapID, "admin cap is bound to another registry")
	}

	var registry ProposalRegistry
	registryObj, err := txn.Load(args.RegistryID, TypeRegistry, &registry)
	if err != nil {
		return RemoveProposalResult{}, err
	}
	idx := slices.Index(registry.ActiveProposalIDs, args.ProposalID)
	if idx < 0 {
		return RemoveProposalResult{Removed: false}, nil
	}
	registry.ActiveProposalIDs = slices.Delete(registry.ActiveProposalIDs, idx, idx+1)
	if err := txn.Write(registryObj.ID, registryObj.Version, registry); err != nil {
		return RemoveProposalResult{}, err
	}
	return RemoveProposalResult{Removed: true}, nil
}

// TransferObject hands an exclusive object owned by the sender to recipient.
func TransferObject(txn *engine.Txn, args TransferObjectArgs) (TransferObjectResult, error) {
	if err := args.normalize(); err != nil {
		return TransferObjectResult{}, err
	}
	obj, err := txn.Read(args.ObjectID)
	if err != nil {
		return TransferObjectResult{}, err
	}
	if err := txn.TransferOwner(obj.ID, obj.Version, object.Exclusive(args.Recipient)); err != nil {
		return TransferObjectResult{}, err
	}
	if err := txn.Emit(EventObjectTransferred, obj.ID, ObjectTransferredPayload{
		ObjectID: obj.ID,
		Type:     obj.Type,
		From:     txn.Sender(),
		To:       args.Recipient,
	}); err != nil {
		return TransferObjectResult{}, err
	}
	return TransferObjectResult{ObjectID: obj.ID, Version: obj.Version + 1}, nil
}
