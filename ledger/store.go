package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/pkg/errors"
)

const (
	proposalCountKey  = "proposalCount"
	proposalKeyPrefix = "proposal-"
)

type store struct {
	db storage.Storage
}

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", proposalKeyPrefix, id))
}

func (s *store) count() uint64 {
	data := s.db.Get([]byte(proposalCountKey))
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// put writes the record, and the new count when the record is new, in one batch.
func (s *store) put(p *Proposal, isNew bool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "marshal proposal %d", p.ID)
	}

	batch := s.db.NewBatch()
	batch.Put(proposalKey(p.ID), data)
	if isNew {
		count := make([]byte, 8)
		binary.BigEndian.PutUint64(count, p.ID)
		batch.Put([]byte(proposalCountKey), count)
	}
	batch.Commit()

	return nil
}

func (s *store) load() ([]*Proposal, error) {
	n := s.count()
	proposals := make([]*Proposal, 0, n)
	for id := uint64(1); id <= n; id++ {
		data := s.db.Get(proposalKey(id))
		if data == nil {
			return nil, errors.Errorf("proposal %d missing from storage, count is %d", id, n)
		}
		p := &Proposal{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, errors.Wrapf(err, "unmarshal proposal %d", id)
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}
