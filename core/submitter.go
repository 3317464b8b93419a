package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/proposer/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var ErrTxReverted = errors.New("transaction reverted")

// Broadcaster sends call data to a contract and blocks until the transaction
// is mined. Signing, gas and nonce handling live behind it; the expected
// implementation wraps an ethclient.Client with a bind.TransactOpts signer
// and waits with bind.WaitMined.
type Broadcaster interface {
	Send(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// Submitter applies a ledger transition only after the matching registry
// transaction is confirmed on chain.
type Submitter struct {
	Ledger      *ledger.Ledger
	Broadcaster Broadcaster
	Registry    common.Address
	RetryLimit  uint
	Backoff     time.Duration
	Logger      logrus.FieldLogger
}

func (s *Submitter) logger() logrus.FieldLogger {
	if s.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		return discard
	}
	return s.Logger
}

func (s *Submitter) send(ctx context.Context, data []byte) (*types.Receipt, error) {
	var receipt *types.Receipt

	action := func(attempt uint) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		receipt, err = s.Broadcaster.Send(ctx, s.Registry, data)
		if err != nil {
			s.logger().WithFields(logrus.Fields{"attempt": attempt, "err": err}).Warn("broadcast failed")
			return err
		}
		return nil
	}
	// stop retrying as soon as the caller gives up
	notCancelled := func(attempt uint) bool {
		return ctx.Err() == nil
	}

	limit := s.RetryLimit
	if limit == 0 {
		limit = 1
	}
	if err := retry.Retry(action, strategy.Limit(limit), notCancelled, strategy.Backoff(backoff.Fibonacci(s.Backoff))); err != nil {
		return nil, err
	}
	// no attempt was made when the context was already done
	if receipt == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("broadcaster returned no receipt")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxReverted, receipt.TxHash.Hex())
	}
	return receipt, nil
}

// Submit sends the draft to the registry and records it in the ledger once
// the transaction is mined.
func (s *Submitter) Submit(ctx context.Context, proposer common.Address, draft *Draft) (uint64, error) {
	payload, err := draft.Payload()
	if err != nil {
		return 0, err
	}
	for _, a := range draft.Actions {
		if a.Fallback {
			s.logger().WithField("template", a.TemplateID).Warn("action uses raw parameter encoding")
		}
	}

	data, err := PackCreateProposal(draft.Title, draft.Description, payload)
	if err != nil {
		return 0, fmt.Errorf("pack createProposal: %w", err)
	}
	receipt, err := s.send(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("submit proposal: %w", err)
	}

	id, err := s.Ledger.Create(proposer, draft.Title, draft.Description, payload)
	if err != nil {
		return 0, err
	}

	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || log.Topics[0] != ProposalCreatedTopic {
			continue
		}
		ev, err := UnpackProposalCreated(log)
		if err != nil {
			s.logger().Errorf("unpack receipt log error: %s", err)
			continue
		}
		if ev.ProposalID != id {
			s.logger().WithFields(logrus.Fields{
				"ledger_id":   id,
				"registry_id": ev.ProposalID,
			}).Warn("ledger and registry ids differ")
		}
	}

	s.logger().WithFields(logrus.Fields{
		"id":      id,
		"tx_hash": receipt.TxHash.Hex(),
	}).Info("proposal submitted")

	return id, nil
}

// MarkExecuted checks the transition against the ledger, sends it to the
// registry and applies it once confirmed.
func (s *Submitter) MarkExecuted(ctx context.Context, id uint64, caller common.Address) error {
	p, err := s.Ledger.Get(id)
	if err != nil {
		return err
	}
	if p.Proposer != caller {
		return fmt.Errorf("%w: proposal %d, caller %s", ledger.ErrUnauthorized, id, caller.Hex())
	}
	if p.Status == ledger.Executed {
		return fmt.Errorf("%w: %d", ledger.ErrAlreadyExecuted, id)
	}

	data, err := PackMarkAsExecuted(id)
	if err != nil {
		return fmt.Errorf("pack markAsExecuted: %w", err)
	}
	receipt, err := s.send(ctx, data)
	if err != nil {
		return fmt.Errorf("mark proposal %d executed: %w", id, err)
	}

	if err := s.Ledger.MarkExecuted(id, caller); err != nil {
		return err
	}
	s.logger().WithFields(logrus.Fields{
		"id":      id,
		"tx_hash": receipt.TxHash.Hex(),
	}).Info("proposal marked executed")
	return nil
}
