package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/axiomesh/proposer/action"
	"github.com/google/uuid"
)

var (
	ErrDraftIncomplete = errors.New("draft is incomplete")
	ErrActionNotFound  = errors.New("action not found")
)

// Action is one validated and encoded step of a draft proposal.
type Action struct {
	ID           string
	TemplateID   string
	TemplateName string
	Parameters   action.ParameterSet
	Calldata     action.EncodedAction
	Fallback     bool
}

// Draft collects a proposal before it is submitted. It is not safe for
// concurrent use.
type Draft struct {
	Title       string
	Description string
	Actions     []Action
}

func NewDraft(title, description string) *Draft {
	return &Draft{Title: title, Description: description}
}

// AddAction validates params against the template and appends the encoded
// action. Every field error is returned together in an *action.ValidationError.
func (d *Draft) AddAction(templateID string, params action.ParameterSet) (*Action, error) {
	tmpl, err := action.TemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	validated, err := action.Validate(tmpl, params)
	if err != nil {
		return nil, err
	}
	encoded, err := action.Encode(tmpl.ID, validated)
	if err != nil {
		return nil, err
	}

	a := Action{
		ID:           uuid.NewString(),
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		Parameters:   validated.Raw(),
		Calldata:     encoded.Data,
		Fallback:     encoded.Fallback,
	}
	d.Actions = append(d.Actions, a)
	return &a, nil
}

func (d *Draft) RemoveAction(id string) error {
	for i, a := range d.Actions {
		if a.ID == id {
			d.Actions = append(d.Actions[:i], d.Actions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrActionNotFound, id)
}

// Ready reports whether the draft has a title, a description and at least one action.
func (d *Draft) Ready() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Description) != "" && len(d.Actions) > 0
}

// Payload returns the call data the registry stores for this draft: the
// first action's.
func (d *Draft) Payload() (action.EncodedAction, error) {
	if !d.Ready() {
		return nil, ErrDraftIncomplete
	}
	return d.Actions[0].Calldata, nil
}
