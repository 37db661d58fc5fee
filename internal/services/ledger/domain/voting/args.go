package voting

import (
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

// CreateProposalArgs are the arguments of create_proposal.
type CreateProposalArgs struct {
	RegistryID  object.ID `json:"registry_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// VoteArgs are the arguments of vote. Choice is required.
type VoteArgs struct {
	ProposalID object.ID `json:"proposal_id"`
	Choice     *bool     `json:"choice"`
}

// RemoveProposalArgs are the arguments of remove_proposal.
type RemoveProposalArgs struct {
	AdminCapID object.ID `json:"admin_cap_id"`
	RegistryID object.ID `json:"registry_id"`
	ProposalID object.ID `json:"proposal_id"`
}

// TransferObjectArgs are the arguments of transfer_object.
type TransferObjectArgs struct {
	ObjectID  object.ID      `json:"object_id"`
	Recipient object.Address `json:"recipient"`
}

// InitResult is returned by init.
type InitResult struct {
	RegistryID object.ID `json:"registry_id"`
	AdminCapID object.ID `json:"admin_cap_id"`
}

// CreateProposalResult is returned by create_proposal.
type CreateProposalResult struct {
	ProposalID object.ID `json:"proposal_id"`
}

// VoteResult is returned by vote.
type VoteResult struct {
	ReceiptID object.ID `json:"receipt_id"`
}

// RemoveProposalResult is returned by remove_proposal.
type RemoveProposalResult struct {
	Removed bool `json:"removed"`
}

// TransferObjectResult is returned by transfer_object.
type TransferObjectResult struct {
	ObjectID object.ID `json:"object_id"`
	Version  uint64    `json:"version"`
}

func parseID(field string, id object.ID) (object.ID, error) {
	parsed, err := object.ParseID(string(id))
	if err != nil {
		return "", engine.InvalidArgument(field, err.Error())
	}
	return parsed, nil
}

func (a *CreateProposalArgs) normalize() error {
	id, err := parseID("registry_id", a.RegistryID)
	if err != nil {
		return err
	}
	a.RegistryID = id
	return nil
}

func (a *VoteArgs) normalize() error {
	id, err := parseID("proposal_id", a.ProposalID)
	if err != nil {
		return err
	}
	a.ProposalID = id
	if a.Choice == nil {
		return engine.InvalidArgument("choice", "is required")
	}
	return nil
}

func (a *RemoveProposalArgs) normalize() error {
	var err error
	if a.AdminCapID, err = parseID("admin_cap_id", a.AdminCapID); err != nil {
		return err
	}
	if a.RegistryID, err = parseID("registry_id", a.RegistryID); err != nil {
		return err
	}
	if a.ProposalID, err = parseID("proposal_id", a.ProposalID); err != nil {
		return err
	}
	return nil
}

func (a *TransferObjectArgs) normalize() error {
	id, err := parseID("object_id", a.ObjectID)
	if err != nil {
		return err
	}
	a.ObjectID = id
	recipient, err := object.ParseAddress(string(a.Recipient))
	if err != nil {
		return engine.InvalidArgument("recipient", err.Error())
	}
	a.Recipient = recipient
	return nil
}
