package core

import (
	"context"
	"errors"
	"testing"

	"github.com/axiomesh/proposer/action"
	"github.com/axiomesh/proposer/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("connection refused")

type mockBroadcaster struct {
	failures int
	status   uint64
	calls    int
	sent     [][]byte
	logs     []*types.Log
}

func (mb *mockBroadcaster) Send(_ context.Context, _ common.Address, data []byte) (*types.Receipt, error) {
	mb.calls++
	if mb.calls <= mb.failures {
		return nil, errNetwork
	}
	mb.sent = append(mb.sent, data)
	return &types.Receipt{
		Status: mb.status,
		TxHash: common.BytesToHash([]byte{byte(mb.calls)}),
		Logs:   mb.logs,
	}, nil
}

func readyDraft(t *testing.T) *Draft {
	d := NewDraft("Test Proposal", "This is a test proposal")
	_, err := d.AddAction(action.ContractUpgrade, action.ParameterSet{
		"proxy":          targetAddr,
		"implementation": userAddr,
	})
	require.Nil(t, err)
	return d
}

func newSubmitter(t *testing.T, b Broadcaster) *Submitter {
	l, err := ledger.New()
	require.Nil(t, err)
	return &Submitter{
		Ledger:      l,
		Broadcaster: b,
		Registry:    common.HexToAddress(targetAddr),
		RetryLimit:  3,
	}
}

func TestSubmit(t *testing.T) {
	proposer := common.HexToAddress(userAddr)
	created, err := packProposalCreatedLog(common.HexToAddress(targetAddr), &EventProposalCreated{
		ProposalID: 1, Proposer: proposer, Title: "Test Proposal", Description: "This is a test proposal", EncodedAction: []byte{1},
	})
	require.Nil(t, err)

	b := &mockBroadcaster{failures: 2, status: types.ReceiptStatusSuccessful, logs: []*types.Log{created}}
	s := newSubmitter(t, b)
	d := readyDraft(t)

	id, err := s.Submit(context.Background(), proposer, d)
	require.Nil(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 3, b.calls)

	expected, err := PackCreateProposal(d.Title, d.Description, d.Actions[0].Calldata)
	require.Nil(t, err)
	assert.Equal(t, [][]byte{expected}, b.sent)

	p, err := s.Ledger.Get(id)
	require.Nil(t, err)
	assert.Equal(t, proposer, p.Proposer)
	assert.Equal(t, []byte(d.Actions[0].Calldata), p.EncodedAction)

	require.Nil(t, s.MarkExecuted(context.Background(), id, proposer))
	p, _ = s.Ledger.Get(id)
	assert.Equal(t, ledger.Executed, p.Status)

	// rejected locally before anything is broadcast
	calls := b.calls
	assert.ErrorIs(t, s.MarkExecuted(context.Background(), id, proposer), ledger.ErrAlreadyExecuted)
	assert.ErrorIs(t, s.MarkExecuted(context.Background(), id, common.HexToAddress(targetAddr)), ledger.ErrUnauthorized)
	assert.ErrorIs(t, s.MarkExecuted(context.Background(), 99, proposer), ledger.ErrNotFound)
	assert.Equal(t, calls, b.calls)
}

func TestSubmitRetryExhausted(t *testing.T) {
	b := &mockBroadcaster{failures: 10, status: types.ReceiptStatusSuccessful}
	s := newSubmitter(t, b)

	_, err := s.Submit(context.Background(), common.HexToAddress(userAddr), readyDraft(t))
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, uint64(0), s.Ledger.Count())
}

func TestSubmitReverted(t *testing.T) {
	b := &mockBroadcaster{status: types.ReceiptStatusFailed}
	s := newSubmitter(t, b)

	_, err := s.Submit(context.Background(), common.HexToAddress(userAddr), readyDraft(t))
	assert.ErrorIs(t, err, ErrTxReverted)
	assert.Equal(t, uint64(0), s.Ledger.Count())
}

func TestSubmitCancelled(t *testing.T) {
	b := &mockBroadcaster{status: types.ReceiptStatusSuccessful}
	s := newSubmitter(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Submit(ctx, common.HexToAddress(userAddr), readyDraft(t))
	assert.NotNil(t, err)
	assert.Equal(t, 0, b.calls)
}

func TestSubmitIncompleteDraft(t *testing.T) {
	b := &mockBroadcaster{status: types.ReceiptStatusSuccessful}
	s := newSubmitter(t, b)

	_, err := s.Submit(context.Background(), common.HexToAddress(userAddr), NewDraft("title", "desc"))
	assert.ErrorIs(t, err, ErrDraftIncomplete)
	assert.Equal(t, 0, b.calls)
}
