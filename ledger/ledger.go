package ledger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Ledger is the append-only registry of proposals. Writers are serialized by
// a single mutex; readers share it and always see fully written records.
type Ledger struct {
	mu         sync.RWMutex
	proposals  map[uint64]*Proposal
	byProposer map[common.Address][]uint64
	nextID     uint64
	lastTime   time.Time

	now    func() time.Time
	store  *store
	logger logrus.FieldLogger
}

type Option func(*Ledger)

// WithClock replaces the ledger time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithStorage persists every record into db and restores from it on New.
func WithStorage(db storage.Storage) Option {
	return func(l *Ledger) {
		l.store = &store{db: db}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		proposals:  make(map[uint64]*Proposal),
		byProposer: make(map[common.Address][]uint64),
		nextID:     1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		l.logger = discard
	}

	if l.store != nil {
		proposals, err := l.store.load()
		if err != nil {
			return nil, err
		}
		for _, p := range proposals {
			l.index(p)
		}
		l.logger.WithField("count", len(proposals)).Info("restore proposals from storage")
	}

	return l, nil
}

func (l *Ledger) index(p *Proposal) {
	l.proposals[p.ID] = p
	l.byProposer[p.Proposer] = append(l.byProposer[p.Proposer], p.ID)
	l.nextID = p.ID + 1
	if p.CreatedAt.After(l.lastTime) {
		l.lastTime = p.CreatedAt
	}
}

// Persistent reports whether records survive a restart.
func (l *Ledger) Persistent() bool {
	return l.store != nil
}

// Create stores a new proposal and returns its id. Ids start at 1 and have
// no gaps.
func (l *Ledger) Create(proposer common.Address, title, description string, encodedAction []byte) (uint64, error) {
	return l.create(0, proposer, title, description, encodedAction)
}

// CreateAt stores a proposal whose id was assigned elsewhere, such as the
// registry contract. The id must be exactly the next one; the check and the
// write happen under the same lock.
func (l *Ledger) CreateAt(id uint64, proposer common.Address, title, description string, encodedAction []byte) error {
	if id == 0 {
		return fmt.Errorf("%w: proposal id 0", ErrInvalidInput)
	}
	_, err := l.create(id, proposer, title, description, encodedAction)
	return err
}

// create assigns the next id, or insists on want when it is not zero.
func (l *Ledger) create(want uint64, proposer common.Address, title, description string, encodedAction []byte) (uint64, error) {
	switch {
	case title == "":
		return 0, fmt.Errorf("%w: Title cannot be empty", ErrInvalidInput)
	case description == "":
		return 0, fmt.Errorf("%w: Description cannot be empty", ErrInvalidInput)
	case len(encodedAction) == 0:
		return 0, fmt.Errorf("%w: Encoded action cannot be empty", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if want != 0 && want != l.nextID {
		if want < l.nextID {
			return 0, fmt.Errorf("%w: %d", ErrAlreadyRecorded, want)
		}
		return 0, fmt.Errorf("%w: got %d, next is %d", ErrOutOfOrder, want, l.nextID)
	}

	// creation time never goes backwards relative to id order
	createdAt := l.now()
	if createdAt.Before(l.lastTime) {
		createdAt = l.lastTime
	}

	p := &Proposal{
		ID:            l.nextID,
		Proposer:      proposer,
		Title:         title,
		Description:   description,
		EncodedAction: append([]byte(nil), encodedAction...),
		Status:        Created,
		CreatedAt:     createdAt,
	}

	if l.store != nil {
		if err := l.store.put(p, true); err != nil {
			return 0, err
		}
	}
	l.index(p)

	l.logger.WithFields(logrus.Fields{
		"id":       p.ID,
		"proposer": proposer.Hex(),
		"title":    title,
	}).Info("proposal created")

	return p.ID, nil
}

// MarkExecuted moves a proposal from Created to Executed. Only its proposer
// may do so, and only once.
func (l *Ledger) MarkExecuted(id uint64, caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.proposals[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if p.Proposer != caller {
		return fmt.Errorf("%w: proposal %d, caller %s", ErrUnauthorized, id, caller.Hex())
	}
	if p.Status == Executed {
		return fmt.Errorf("%w: %d", ErrAlreadyExecuted, id)
	}

	updated := p.clone()
	updated.Status = Executed
	if l.store != nil {
		if err := l.store.put(updated, false); err != nil {
			return err
		}
	}
	l.proposals[id] = updated

	l.logger.WithFields(logrus.Fields{
		"id":     id,
		"caller": caller.Hex(),
	}).Info("proposal executed")

	return nil
}
