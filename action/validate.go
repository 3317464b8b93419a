package action

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// AmountDecimals is the fixed-point scale amounts are encoded with.
const AmountDecimals = 18

var ErrValidation = errors.New("validation failed")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

const (
	msgMissing       = "missing required field"
	msgAddress       = "invalid address format"
	msgAmount        = "amount must be a positive number"
	msgAmountScale   = "amount exceeds 18 decimal places"
	msgAmountRange   = "amount is too large"
	msgNumber        = "value must be an integer"
	msgNumberRange   = "value exceeds the uint256 range"
	msgBoolean       = "value must be true or false"
	msgPattern       = "value does not match the expected format"
	msgUnsupported   = "value must be text or a number"
	msgSelectOneOfFm = "value must be one of: %s"
)

// ParameterSet maps field ids to raw caller input, text or number.
type ParameterSet map[string]any

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries every field failure of one validation call.
type ValidationError struct {
	TemplateID string
	Fields     []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s: template %s: %s", ErrValidation, e.TemplateID, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidatedParameters can only be produced by Validate and satisfies every
// field constraint of its template.
type ValidatedParameters struct {
	templateID string
	values     map[string]string
	raw        ParameterSet
}

func (v ValidatedParameters) TemplateID() string {
	return v.templateID
}

// Get returns the normalized text form of a field value.
func (v ValidatedParameters) Get(field string) string {
	return v.values[field]
}

// Raw returns a copy of the caller input, unknown fields included.
func (v ValidatedParameters) Raw() ParameterSet {
	out := make(ParameterSet, len(v.raw))
	for k, val := range v.raw {
		out[k] = val
	}
	return out
}

// Validate checks params against every field of the template, in template
// order, and reports all failures at once.
func Validate(template ActionTemplate, params ParameterSet) (ValidatedParameters, error) {
	var fieldErrs []FieldError
	values := make(map[string]string, len(template.Fields))

	for _, field := range template.Fields {
		value, msg := checkField(field, params[field.ID])
		if msg != "" {
			fieldErrs = append(fieldErrs, FieldError{Field: field.ID, Message: msg})
			continue
		}
		if value != "" {
			values[field.ID] = value
		}
	}

	if len(fieldErrs) > 0 {
		return ValidatedParameters{}, &ValidationError{TemplateID: template.ID, Fields: fieldErrs}
	}

	raw := make(ParameterSet, len(params))
	for k, val := range params {
		raw[k] = val
	}
	return ValidatedParameters{templateID: template.ID, values: values, raw: raw}, nil
}

func checkField(field FieldSpec, input any) (string, string) {
	if input == nil {
		if field.Required {
			return "", msgMissing
		}
		return "", ""
	}
	value, err := cast.ToStringE(input)
	if err != nil {
		return "", msgUnsupported
	}
	value = strings.TrimSpace(value)
	if value == "" {
		if field.Required {
			return "", msgMissing
		}
		return "", ""
	}

	switch field.Kind {
	case KindAddress:
		if !addressPattern.MatchString(value) {
			return "", msgAddress
		}
	case KindAmount:
		amount, err := decimal.NewFromString(value)
		if err != nil || !amount.IsPositive() {
			return "", msgAmount
		}
		scaled := amount.Shift(AmountDecimals)
		if !scaled.IsInteger() {
			return "", msgAmountScale
		}
		if !fitsUint256(scaled.BigInt()) {
			return "", msgAmountRange
		}
	case KindNumber:
		n, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return "", msgNumber
		}
		if n.Sign() >= 0 && !fitsUint256(n) {
			return "", msgNumberRange
		}
		if c := field.Constraint; c != nil {
			if c.Min != nil && n.Cmp(big.NewInt(*c.Min)) < 0 {
				return "", fmt.Sprintf("value must be at least %d", *c.Min)
			}
			if c.Max != nil && n.Cmp(big.NewInt(*c.Max)) > 0 {
				return "", fmt.Sprintf("value must be at most %d", *c.Max)
			}
		}
	case KindBoolean:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return "", msgBoolean
		}
		value = cast.ToString(b)
	case KindSelect:
		if !contains(field.Options, value) {
			return "", fmt.Sprintf(msgSelectOneOfFm, strings.Join(field.Options, ", "))
		}
	case KindString:
		if c := field.Constraint; c != nil && c.Pattern != "" {
			matched, err := regexp.MatchString(c.Pattern, value)
			if err != nil || !matched {
				return "", msgPattern
			}
		}
	}

	return value, ""
}

func fitsUint256(n *big.Int) bool {
	return n.Sign() >= 0 && n.Cmp(math.MaxBig256) <= 0
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
