package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/memory"
)

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("tx-%04d", n), nil
	}
}

func newTestService(t *testing.T, backend Backend, opts ...Option) *Service {
	t.Helper()
	clock := time.Date(2026, 6, 1, 12, 0, 0, 123456789, time.UTC)
	opts = append([]Option{
		WithClock(func() time.Time { return clock }),
		WithTxIDs(sequentialIDs()),
		WithHalt(func(err error) { t.Fatalf("unexpected halt: %v", err) }),
	}, opts...)
	svc, err := New(backend, opts...)
	require.NoError(t, err)
	return svc
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestSubmitScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	receipt, err := svc.Submit(ctx, "0xDeployer", voting.OpInit, nil)
	require.NoError(t, err)
	assert.Equal(t, "tx-0001", receipt.TxID)
	assert.Equal(t, object.Address("0xdeployer"), receipt.Sender)
	assert.Equal(t, 123*time.Millisecond, time.Duration(receipt.Timestamp.Nanosecond()))
	var initResult voting.InitResult
	require.NoError(t, json.Unmarshal(receipt.Result, &initResult))

	receipt, err = svc.Submit(ctx, "0xcreator", voting.OpCreateProposal, mustJSON(t, voting.CreateProposalArgs{
		RegistryID: initResult.RegistryID, Title: "Q1", Description: "desc",
	}))
	require.NoError(t, err)
	var created voting.CreateProposalResult
	require.NoError(t, json.Unmarshal(receipt.Result, &created))

	yes := true
	_, err = svc.Submit(ctx, "0xvoter", voting.OpVote, mustJSON(t, voting.VoteArgs{ProposalID: created.ProposalID, Choice: &yes}))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "0xvoter", voting.OpVote, mustJSON(t, voting.VoteArgs{ProposalID: created.ProposalID, Choice: &yes}))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAlreadyVoted))

	info, err := svc.ProposalInfo(ctx, string(created.ProposalID))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.YesVotes)

	voted, err := svc.HasVoted(ctx, string(created.ProposalID), "0xVOTER")
	require.NoError(t, err)
	assert.True(t, voted)

	registry, err := svc.RegistryInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), registry.ProposalCount)

	receipts, err := svc.ListObjects(ctx, objectstore.Filter{Type: voting.TypeVoteReceipt, Owner: "0xVoter"})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)

	obj, err := svc.GetObject(ctx, string(created.ProposalID))
	require.NoError(t, err)
	assert.Equal(t, voting.TypeProposal, obj.Type)

	require.NoError(t, svc.CheckInvariants(ctx))
}

func TestSubmitRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	_, err := svc.Submit(ctx, " ", voting.OpInit, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	_, err = svc.Submit(ctx, "0xa", "mint", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnknownOperation))

	_, err = svc.Submit(ctx, "0xa", voting.OpCreateProposal, json.RawMessage(`{"registry_id":"nope"}`))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestSubmitHaltsOnStorageExhausted(t *testing.T) {
	ctx := context.Background()
	var halted error
	svc := newTestService(t, memory.New(memory.WithEventCapacity(1)), WithHalt(func(err error) { halted = err }))

	receipt, err := svc.Submit(ctx, "0xa", voting.OpInit, nil)
	require.NoError(t, err)
	var initResult voting.InitResult
	require.NoError(t, json.Unmarshal(receipt.Result, &initResult))

	create := func(title string) error {
		_, err := svc.Submit(ctx, "0xa", voting.OpCreateProposal, mustJSON(t, voting.CreateProposalArgs{
			RegistryID: initResult.RegistryID, Title: title,
		}))
		return err
	}
	require.NoError(t, create("Q1"))
	require.Nil(t, halted)

	err = create("Q2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageExhausted))
	assert.Equal(t, err, halted)

	registry, err := svc.RegistryInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), registry.ProposalCount)
}

func TestListEventsPaging(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	receipt, err := svc.Submit(ctx, "0xa", voting.OpInit, nil)
	require.NoError(t, err)
	var initResult voting.InitResult
	require.NoError(t, json.Unmarshal(receipt.Result, &initResult))
	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, "0xa", voting.OpCreateProposal, mustJSON(t, voting.CreateProposalArgs{
			RegistryID: initResult.RegistryID, Title: fmt.Sprintf("Q%d", i),
		}))
		require.NoError(t, err)
	}

	page, err := svc.ListEvents(ctx, 0, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Equal(t, uint64(2), page.NextAfterSeq)

	page, err = svc.ListEvents(ctx, page.NextAfterSeq, 2, `kind = "proposal.created"`)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Zero(t, page.NextAfterSeq)

	_, err = svc.ListEvents(ctx, 0, 2, `bogus = 1`)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestOperationsListed(t *testing.T) {
	svc := newTestService(t, memory.New())
	var kinds []string
	for _, def := range svc.Operations() {
		kinds = append(kinds, string(def.Kind))
	}
	assert.Equal(t, []string{"create_proposal", "init", "remove_proposal", "transfer_object", "vote"}, kinds)
}
