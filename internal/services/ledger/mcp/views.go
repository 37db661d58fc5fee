package ledgermcp

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

// RegistryResult is the get_registry_info output.
type RegistryResult struct {
	ID                string   `json:"id"`
	Version           uint64   `json:"version"`
	AdminCapID        string   `json:"admin_cap_id"`
	Deployer          string   `json:"deployer"`
	ProposalCount     uint64   `json:"proposal_count"`
	ActiveProposalIDs []string `json:"active_proposal_ids"`
}

// ProposalResult is the get_proposal_info output.
type ProposalResult struct {
	ID          string   `json:"id"`
	Version     uint64   `json:"version"`
	Creator     string   `json:"creator"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	YesVotes    uint64   `json:"yes_votes"`
	NoVotes     uint64   `json:"no_votes"`
	Voters      []string `json:"voters"`
	CreatedAt   string   `json:"created_at"`
}

// EventEntry is one event in list_events output.
type EventEntry struct {
	Seq       uint64 `json:"seq"`
	TxID      string `json:"tx_id"`
	TxSeq     uint64 `json:"tx_seq"`
	Index     uint32 `json:"index"`
	Kind      string `json:"kind"`
	EntityID  string `json:"entity_id"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// EventListResult is the list_events output.
type EventListResult struct {
	Events       []EventEntry `json:"events"`
	NextAfterSeq uint64       `json:"next_after_seq,omitempty"`
}

func registryResult(info voting.RegistryInfo) RegistryResult {
	ids := make([]string, 0, len(info.ActiveProposalIDs))
	for _, id := range info.ActiveProposalIDs {
		ids = append(ids, id.String())
	}
	return RegistryResult{
		ID:                info.ID.String(),
		Version:           info.Version,
		AdminCapID:        info.AdminCapID.String(),
		Deployer:          info.Deployer.String(),
		ProposalCount:     info.ProposalCount,
		ActiveProposalIDs: ids,
	}
}

func proposalResult(info voting.ProposalInfo) ProposalResult {
	return ProposalResult{
		ID:          info.ID.String(),
		Version:     info.Version,
		Creator:     info.Creator.String(),
		Title:       info.Title,
		Description: info.Description,
		YesVotes:    info.YesVotes,
		NoVotes:     info.NoVotes,
		Voters:      addresses(info.Voters),
		CreatedAt:   formatMillis(info.CreatedAt),
	}
}

func eventListResult(page service.EventPage) EventListResult {
	out := EventListResult{Events: make([]EventEntry, 0, len(page.Events)), NextAfterSeq: page.NextAfterSeq}
	for _, evt := range page.Events {
		out.Events = append(out.Events, eventEntry(evt))
	}
	return out
}

func eventEntry(evt event.Event) EventEntry {
	payload := "{}"
	if len(evt.Payload) > 0 && json.Valid(evt.Payload) {
		payload = string(evt.Payload)
	}
	return EventEntry{
		Seq:       evt.Seq,
		TxID:      evt.TxID,
		TxSeq:     evt.TxSeq,
		Index:     evt.Index,
		Kind:      string(evt.Kind),
		EntityID:  evt.EntityID,
		Sender:    evt.Sender,
		Timestamp: evt.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

func addresses(in []object.Address) []string {
	out := make([]string, 0, len(in))
	for _, addr := range in {
		out = append(out, addr.String())
	}
	return out
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
