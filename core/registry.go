package core

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const registryABIJSON = `[
	{"type":"function","name":"createProposal","stateMutability":"nonpayable","inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"encodedAction","type":"bytes"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"markAsExecuted","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getProposalCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"ProposalCreated","anonymous":false,"inputs":[{"name":"proposalId","type":"uint256","indexed":true},{"name":"proposer","type":"address","indexed":true},{"name":"title","type":"string","indexed":false},{"name":"description","type":"string","indexed":false},{"name":"encodedAction","type":"bytes","indexed":false}]},
	{"type":"event","name":"ProposalExecuted","anonymous":false,"inputs":[{"name":"proposalId","type":"uint256","indexed":true},{"name":"executor","type":"address","indexed":true}]}
]`

var (
	RegistryABI abi.ABI

	ProposalCreatedTopic  common.Hash
	ProposalExecutedTopic common.Hash
)

func init() {
	var err error
	RegistryABI, err = abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		panic(err)
	}
	ProposalCreatedTopic = RegistryABI.Events["ProposalCreated"].ID
	ProposalExecutedTopic = RegistryABI.Events["ProposalExecuted"].ID
}

// EventProposalCreated represents a ProposalCreated event raised by the registry contract.
type EventProposalCreated struct {
	ProposalID    uint64
	Proposer      common.Address
	Title         string
	Description   string
	EncodedAction []byte
}

// EventProposalExecuted represents a ProposalExecuted event raised by the registry contract.
type EventProposalExecuted struct {
	ProposalID uint64
	Executor   common.Address
}

func PackCreateProposal(title, description string, encodedAction []byte) ([]byte, error) {
	return RegistryABI.Pack("createProposal", title, description, encodedAction)
}

func PackMarkAsExecuted(id uint64) ([]byte, error) {
	return RegistryABI.Pack("markAsExecuted", new(big.Int).SetUint64(id))
}

func indexedID(topic common.Hash) (uint64, error) {
	id := new(big.Int).SetBytes(topic.Bytes())
	if !id.IsUint64() {
		return 0, errors.Errorf("proposal id %s overflows uint64", id)
	}
	return id.Uint64(), nil
}

func UnpackProposalCreated(log *types.Log) (*EventProposalCreated, error) {
	if len(log.Topics) != 3 || log.Topics[0] != ProposalCreatedTopic {
		return nil, errors.New("not a ProposalCreated log")
	}
	ev := &EventProposalCreated{}
	if err := RegistryABI.UnpackIntoInterface(ev, "ProposalCreated", log.Data); err != nil {
		return nil, errors.Wrap(err, "unpack ProposalCreated")
	}
	id, err := indexedID(log.Topics[1])
	if err != nil {
		return nil, err
	}
	ev.ProposalID = id
	ev.Proposer = common.BytesToAddress(log.Topics[2].Bytes())
	return ev, nil
}

func UnpackProposalExecuted(log *types.Log) (*EventProposalExecuted, error) {
	if len(log.Topics) != 3 || log.Topics[0] != ProposalExecutedTopic {
		return nil, errors.New("not a ProposalExecuted log")
	}
	id, err := indexedID(log.Topics[1])
	if err != nil {
		return nil, err
	}
	return &EventProposalExecuted{
		ProposalID: id,
		Executor:   common.BytesToAddress(log.Topics[2].Bytes()),
	}, nil
}

// packProposalCreatedLog builds the log the registry emits on createProposal.
func packProposalCreatedLog(registry common.Address, ev *EventProposalCreated) (*types.Log, error) {
	data, err := RegistryABI.Events["ProposalCreated"].Inputs.NonIndexed().Pack(ev.Title, ev.Description, ev.EncodedAction)
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Address: registry,
		Topics: []common.Hash{
			ProposalCreatedTopic,
			common.BigToHash(new(big.Int).SetUint64(ev.ProposalID)),
			common.BytesToHash(ev.Proposer.Bytes()),
		},
		Data: data,
	}, nil
}

func packProposalExecutedLog(registry common.Address, ev *EventProposalExecuted) *types.Log {
	return &types.Log{
		Address: registry,
		Topics: []common.Hash{
			ProposalExecutedTopic,
			common.BigToHash(new(big.Int).SetUint64(ev.ProposalID)),
			common.BytesToHash(ev.Executor.Bytes()),
		},
	}
}
