// Package voting is the proposal and vote workload hosted on the ledger.
package voting

import (
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
)

// Object types.
const (
	TypeGenesis     = "voting.Genesis"
	TypeRegistry    = "voting.ProposalRegistry"
	TypeAdminCap    = "voting.AdminCap"
	TypeProposal    = "voting.Proposal"
	TypeVoteReceipt = "voting.VoteReceipt"
)

// Operation kinds.
const (
	OpInit           operation.Kind = "init"
	OpCreateProposal operation.Kind = "create_proposal"
	OpVote           operation.Kind = "vote"
	OpRemoveProposal operation.Kind = "remove_proposal"
	OpTransferObject operation.Kind = "transfer_object"
)

// Event kinds.
const (
	EventProposalCreated   event.Kind = "proposal.created"
	EventVoteCast          event.Kind = "vote.cast"
	EventObjectTransferred event.Kind = "object.transferred"
)

// GenesisID is the reserved id of the deployment record written by Init.
var GenesisID = object.ReservedID("voting/genesis")

// Genesis records what Init created so the registry can be found without a
// caller-supplied id.
type Genesis struct {
	RegistryID object.ID      `json:"registry_id"`
	AdminCapID object.ID      `json:"admin_cap_id"`
	Deployer   object.Address `json:"deployer"`
	DeployedAt int64          `json:"deployed_at"`
}

// ProposalRegistry is the shared index of active proposals.
type ProposalRegistry struct {
	ProposalCount     uint64      `json:"proposal_count"`
	ActiveProposalIDs []object.ID `json:"active_proposal_ids"`
}

// AdminCap grants registry administration to whoever owns it.
type AdminCap struct {
	RegistryID object.ID `json:"registry_id"`
}

// Proposal is a shared yes/no question.
type Proposal struct {
	Creator     object.Address   `json:"creator"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	YesVotes    uint64           `json:"yes_votes"`
	NoVotes     uint64           `json:"no_votes"`
	Voters      []object.Address `json:"voters"`
	CreatedAt   int64            `json:"created_at"`
}

// HasVoter scans the voter list.
func (p Proposal) HasVoter(addr object.Address) bool {
	for _, voter := range p.Voters {
		if voter == addr {
			return true
		}
	}
	return false
}

// VoteReceipt is the voter's exclusive proof of a cast vote.
type VoteReceipt struct {
	ProposalID object.ID      `json:"proposal_id"`
	Voter      object.Address `json:"voter"`
	Choice     bool           `json:"choice"`
	VotedAt    int64          `json:"voted_at"`
}

// ProposalCreatedPayload is the payload of proposal.created.
type ProposalCreatedPayload struct {
	ProposalID  object.ID      `json:"proposal_id"`
	Creator     object.Address `json:"creator"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

// VoteCastPayload is the payload of vote.cast.
type VoteCastPayload struct {
	ProposalID object.ID      `json:"proposal_id"`
	Voter      object.Address `json:"voter"`
	Choice     bool           `json:"choice"`
	ReceiptID  object.ID      `json:"receipt_id"`
}

// ObjectTransferredPayload is the payload of object.transferred.
type ObjectTransferredPayload struct {
	ObjectID object.ID      `json:"object_id"`
	Type     string         `json:"type"`
	From     object.Address `json:"from"`
	To       object.Address `json:"to"`
}
