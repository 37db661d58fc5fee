package voting

import (
	"context"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// ProposalInfo is the committed state of a proposal.
type ProposalInfo struct {
	ID      object.ID `json:"id"`
	Version uint64    `json:"version"`
	Proposal
}

// RegistryInfo is the committed state of the registry.
type RegistryInfo struct {
	ID         object.ID      `json:"id"`
	Version    uint64         `json:"version"`
	AdminCapID object.ID      `json:"admin_cap_id"`
	Deployer   object.Address `json:"deployer"`
	ProposalRegistry
}

// Queries reads committed voting state. Queries never mutate anything and
// fail only with NOT_FOUND.
type Queries struct {
	Objects objectstore.Reader
}

// ProposalInfo returns the proposal with id.
func (q Queries) ProposalInfo(ctx context.Context, id object.ID) (ProposalInfo, error) {
	var proposal Proposal
	obj, err := q.load(ctx, id, TypeProposal, &proposal)
	if err != nil {
		return ProposalInfo{}, err
	}
	return ProposalInfo{ID: obj.ID, Version: obj.Version, Proposal: proposal}, nil
}

// RegistryInfo returns the registry created by Init.
func (q Queries) RegistryInfo(ctx context.Context) (RegistryInfo, error) {
	var genesis Genesis
	if _, err := q.load(ctx, GenesisID, TypeGenesis, &genesis); err != nil {
		return RegistryInfo{}, err
	}
	var registry ProposalRegistry
	obj, err := q.load(ctx, genesis.RegistryID, TypeRegistry, &registry)
	if err != nil {
		return RegistryInfo{}, err
	}
	return RegistryInfo{
		ID:               obj.ID,
		Version:          obj.Version,
		AdminCapID:       genesis.AdminCapID,
		Deployer:         genesis.Deployer,
		ProposalRegistry: registry,
	}, nil
}

// HasVoted reports whether addr is among the proposal's voters.
func (q Queries) HasVoted(ctx context.Context, id object.ID, addr object.Address) (bool, error) {
	info, err := q.ProposalInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info.HasVoter(addr), nil
}

func (q Queries) load(ctx context.Context, id object.ID, typ string, target any) (object.Object, error) {
	parsed, err := object.ParseID(string(id))
	if err != nil {
		return object.Object{}, objectstore.NotFound(id)
	}
	obj, err := q.Objects.Get(ctx, parsed)
	if err != nil {
		return object.Object{}, err
	}
	if obj.Type != typ {
		return object.Object{}, objectstore.NotFound(parsed)
	}
	if err := obj.Decode(target); err != nil {
		return object.Object{}, apperrors.Wrap(apperrors.CodeUnknown, "decode "+typ, err)
	}
	return obj, nil
}
