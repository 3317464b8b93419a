package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Get returns a copy of the proposal with the given id.
func (l *Ledger) Get(id uint64) (*Proposal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p.clone(), nil
}

// GetMany returns the proposals in the order of ids. It fails on the first
// unknown id and returns nothing in that case.
func (l *Ledger) GetMany(ids []uint64) ([]*Proposal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Proposal, 0, len(ids))
	for _, id := range ids {
		p, ok := l.proposals[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		out = append(out, p.clone())
	}
	return out, nil
}

// ByProposer returns the ids created by proposer in creation order.
func (l *Ledger) ByProposer(proposer common.Address) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byProposer[proposer]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

func (l *Ledger) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return uint64(len(l.proposals))
}
