package core

import (
	"context"
	"sync"

	"github.com/axiomesh/proposer/repo"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type Client interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error)
}

var _ Client = (*MockClient)(nil)

// MockClient serves History from FilterLogs and lets callers push live logs
// through Emit once subscribed.
type MockClient struct {
	History []types.Log

	mu   sync.Mutex
	sink chan<- types.Log
	sub  *MockSubscription
}

func (mc *MockClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	for _, l := range mc.History {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (mc *MockClient) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.sink = ch
	mc.sub = &MockSubscription{errChan: make(chan error, 1)}
	return mc.sub, nil
}

func (mc *MockClient) Subscribed() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.sink != nil
}

func (mc *MockClient) Emit(log types.Log) {
	mc.mu.Lock()
	sink := mc.sink
	mc.mu.Unlock()
	sink <- log
}

// Fail breaks the current subscription with err.
func (mc *MockClient) Fail(err error) {
	mc.mu.Lock()
	sub := mc.sub
	mc.mu.Unlock()
	sub.errChan <- err
}

// MockCreatedLog builds a ProposalCreated log as the default registry would emit it.
func MockCreatedLog(block uint64, ev *EventProposalCreated) types.Log {
	log, err := packProposalCreatedLog(common.HexToAddress(repo.DefaultRegistryAddr), ev)
	if err != nil {
		panic(err)
	}
	log.BlockNumber = block
	return *log
}

func MockExecutedLog(block uint64, ev *EventProposalExecuted) types.Log {
	log := packProposalExecutedLog(common.HexToAddress(repo.DefaultRegistryAddr), ev)
	log.BlockNumber = block
	return *log
}

type MockSubscription struct {
	errChan chan error
}

func (ms *MockSubscription) Unsubscribe() {
}

func (ms *MockSubscription) Err() <-chan error {
	return ms.errChan
}
