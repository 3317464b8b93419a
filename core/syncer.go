package core

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/proposer/ledger"
	"github.com/axiomesh/proposer/repo"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

const (
	LogChanMaxSize = 1000

	nextFromBlockKey = "nextFromBlock"
)

// Dialer opens a fresh chain client, used after the subscription breaks.
type Dialer func(ctx context.Context) (Client, error)

// Syncer mirrors the registry contract's events into the ledger. Proposals are
// written with Ledger.CreateAt using the registry's id, so the ledger may be
// shared with a Submitter.
type Syncer struct {
	Ctx    context.Context
	Client Client
	Dial   Dialer
	Logger *logrus.Logger
	DB     storage.Storage
	Ledger *ledger.Ledger
	Config *repo.Config

	// Subscribe log
	FromBlock *big.Int
	ToBlock   *big.Int
	Addresses []common.Address
	Topics    [][]common.Hash

	LogChan chan types.Log
	LogSub  ethereum.Subscription

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSyncer(ctx context.Context, config *repo.Config, client Client, db storage.Storage, l *ledger.Ledger) (*Syncer, error) {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(config.Log.Level))

	var fromBlock, toBlock *big.Int
	if config.Registry.FromBlock != 0 {
		fromBlock = big.NewInt(int64(config.Registry.FromBlock))
	}

	if config.Registry.ToBlock != 0 {
		toBlock = big.NewInt(int64(config.Registry.ToBlock))
	}

	if !common.IsHexAddress(config.Registry.Address) {
		return nil, errors.New("registry address is not a valid hex address")
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Syncer{
		Ctx:       ctx,
		Client:    client,
		Logger:    logger,
		DB:        db,
		Ledger:    l,
		Config:    config,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{common.HexToAddress(config.Registry.Address)},
		Topics:    [][]common.Hash{{ProposalCreatedTopic, ProposalExecutedTopic}},
		LogChan:   make(chan types.Log, LogChanMaxSize),
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

func (s *Syncer) Start() error {
	if err := s.fetchHistoryLog(); err != nil {
		return err
	}

	if err := s.subscribeLog(); err != nil {
		return err
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.listenEvents()

	return nil
}

func (s *Syncer) fetchHistoryLog() error {
	fromBlock := s.getNewestFromBlock()

	logs, err := s.Client.FilterLogs(s.Ctx, ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   s.ToBlock,
		Addresses: s.Addresses,
		Topics:    s.Topics,
	})
	if err != nil {
		return err
	}

	s.Logger.Debugf("history logs count: %d", len(logs))

	for i := range logs {
		s.handleProposalLog(&logs[i])
	}

	return nil
}

func (s *Syncer) subscribeLog() error {
	sub, err := s.Client.SubscribeFilterLogs(s.Ctx, ethereum.FilterQuery{
		FromBlock: s.getNewestFromBlock(),
		ToBlock:   s.ToBlock,
		Addresses: s.Addresses,
		Topics:    s.Topics,
	}, s.LogChan)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.LogSub = sub
	s.mu.Unlock()
	return nil
}

func (s *Syncer) subscription() ethereum.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LogSub
}

// handleProposalLog applies one registry log. Logs already reflected in the
// ledger are skipped so replays are harmless.
func (s *Syncer) handleProposalLog(log *types.Log) {
	if log.Removed || len(log.Topics) == 0 {
		return
	}

	switch log.Topics[0] {
	case ProposalCreatedTopic:
		ev, err := UnpackProposalCreated(log)
		if err != nil {
			s.Logger.Errorf("unpack ProposalCreated error: %s", err)
			return
		}
		err = s.Ledger.CreateAt(ev.ProposalID, ev.Proposer, ev.Title, ev.Description, ev.EncodedAction)
		if errors.Is(err, ledger.ErrAlreadyRecorded) {
			s.Logger.Debugf("proposal %d already recorded", ev.ProposalID)
		} else if err != nil {
			s.Logger.Errorf("record proposal %d error: %s", ev.ProposalID, err)
			return
		}
	case ProposalExecutedTopic:
		ev, err := UnpackProposalExecuted(log)
		if err != nil {
			s.Logger.Errorf("unpack ProposalExecuted error: %s", err)
			return
		}
		err = s.Ledger.MarkExecuted(ev.ProposalID, ev.Executor)
		if errors.Is(err, ledger.ErrAlreadyExecuted) {
			s.Logger.Debugf("proposal %d already executed", ev.ProposalID)
		} else if err != nil {
			s.Logger.Errorf("execute proposal %d error: %s", ev.ProposalID, err)
			return
		}
	default:
		return
	}

	s.setNextFromBlock(log.BlockNumber + 1)
}

// cursorPersisted is false for a memory only ledger: after a restart it is
// empty, so history has to be replayed from the configured start block.
func (s *Syncer) cursorPersisted() bool {
	return s.DB != nil && s.Ledger.Persistent()
}

func (s *Syncer) getNewestFromBlock() *big.Int {
	if !s.cursorPersisted() {
		return s.FromBlock
	}

	data := s.DB.Get([]byte(nextFromBlockKey))

	if len(data) == 8 {
		nextFromBlock := binary.BigEndian.Uint64(data)

		if s.FromBlock == nil || nextFromBlock > s.FromBlock.Uint64() {
			s.FromBlock = big.NewInt(int64(nextFromBlock))
		}
	}

	return s.FromBlock
}

func (s *Syncer) setNextFromBlock(next uint64) {
	if !s.cursorPersisted() {
		if s.FromBlock == nil || next > s.FromBlock.Uint64() {
			s.FromBlock = new(big.Int).SetUint64(next)
		}
		return
	}

	current := s.DB.Get([]byte(nextFromBlockKey))
	if len(current) == 8 && binary.BigEndian.Uint64(current) >= next {
		return
	}
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, next)
	s.DB.Put([]byte(nextFromBlockKey), data)
}

func (s *Syncer) listenEvents() {
	defer close(s.done)
	s.Logger.Info("listen events")

	for {
		select {
		case <-s.Ctx.Done():
			s.Logger.Info("context done")
			return
		case err := <-s.subscription().Err():
			s.Logger.Errorf("subscription error: %s", err)
			if err := s.reconnect(); err != nil {
				s.Logger.Errorf("reconnect error: %s", err)
				return
			}
		case log := <-s.LogChan:
			s.Logger.Infof("subscribe log: block %d, tx %s", log.BlockNumber, log.TxHash.Hex())
			s.handleProposalLog(&log)
		}
	}
}

func (s *Syncer) reconnect() error {
	if s.Dial == nil {
		return errors.New("no dialer configured")
	}

	action := func(attempt uint) error {
		client, err := s.Dial(s.Ctx)
		if err != nil {
			return err
		}
		s.Client = client
		return nil
	}

	if old := s.subscription(); old != nil {
		old.Unsubscribe()
	}
	if err := retry.Retry(action, strategy.Limit(s.Config.Retry.Limit), strategy.Backoff(backoff.Fibonacci(s.Config.Retry.Backoff))); err != nil {
		return err
	}

	// catch up on anything missed while disconnected
	if err := s.fetchHistoryLog(); err != nil {
		return err
	}
	return s.subscribeLog()
}

func (s *Syncer) Stop() error {
	if sub := s.subscription(); sub != nil {
		sub.Unsubscribe()
	}
	s.cancel()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}

	return nil
}
