package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTopics(t *testing.T) {
	sig := "ProposalCreated(uint256,address,string,string,bytes)"
	assert.Equal(t, crypto.Keccak256Hash([]byte(sig)), ProposalCreatedTopic)

	sig = "ProposalExecuted(uint256,address)"
	assert.Equal(t, crypto.Keccak256Hash([]byte(sig)), ProposalExecutedTopic)
}

func TestPackRegistryCalls(t *testing.T) {
	data, err := PackCreateProposal("Test Proposal", "This is a test proposal", []byte{0x12, 0x34})
	require.Nil(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("createProposal(string,string,bytes)"))[:4], data[:4])

	data, err = PackMarkAsExecuted(7)
	require.Nil(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("markAsExecuted(uint256)"))[:4], data[:4])
	assert.Equal(t, common.LeftPadBytes([]byte{7}, 32), data[4:])
}

func TestUnpackEvents(t *testing.T) {
	proposer := common.HexToAddress(userAddr)
	created := MockCreatedLog(10, &EventProposalCreated{
		ProposalID:    3,
		Proposer:      proposer,
		Title:         "Proposal 3",
		Description:   "Third proposal",
		EncodedAction: []byte{0x33, 0x33},
	})

	ev, err := UnpackProposalCreated(&created)
	require.Nil(t, err)
	assert.Equal(t, uint64(3), ev.ProposalID)
	assert.Equal(t, proposer, ev.Proposer)
	assert.Equal(t, "Proposal 3", ev.Title)
	assert.Equal(t, "Third proposal", ev.Description)
	assert.Equal(t, []byte{0x33, 0x33}, ev.EncodedAction)

	executed := MockExecutedLog(11, &EventProposalExecuted{ProposalID: 3, Executor: proposer})
	ex, err := UnpackProposalExecuted(&executed)
	require.Nil(t, err)
	assert.Equal(t, uint64(3), ex.ProposalID)
	assert.Equal(t, proposer, ex.Executor)

	_, err = UnpackProposalCreated(&executed)
	assert.NotNil(t, err)
	_, err = UnpackProposalExecuted(&created)
	assert.NotNil(t, err)
}
