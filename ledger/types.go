package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("proposal does not exist")
	ErrUnauthorized    = errors.New("only proposer can execute this action")
	ErrAlreadyExecuted = errors.New("proposal already executed")
	ErrAlreadyRecorded = errors.New("proposal id already recorded")
	ErrOutOfOrder      = errors.New("proposal id is not the next one")
)

type ProposalStatus uint8

const (
	Created ProposalStatus = iota
	Executed
)

func (s ProposalStatus) String() string {
	switch s {
	case Created:
		return "Created"
	case Executed:
		return "Executed"
	default:
		return "Unknown"
	}
}

type Proposal struct {
	ID            uint64         `json:"id"`
	Proposer      common.Address `json:"proposer"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	EncodedAction []byte         `json:"encoded_action"`
	Status        ProposalStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (p *Proposal) clone() *Proposal {
	cp := *p
	cp.EncodedAction = append([]byte(nil), p.EncodedAction...)
	return &cp
}
