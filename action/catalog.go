package action

import (
	"github.com/pkg/errors"
)

var ErrUnknownTemplate = errors.New("unknown template")

type Category string

const (
	Treasury   Category = "treasury"
	Governance Category = "governance"
	Technical  Category = "technical"
	Roles      Category = "roles"
)

type FieldKind string

const (
	KindAddress FieldKind = "address"
	KindAmount  FieldKind = "amount"
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindSelect  FieldKind = "select"
)

const (
	TreasuryTransfer = "treasury-transfer"
	ParameterChange  = "parameter-change"
	ContractUpgrade  = "contract-upgrade"
	RoleManagement   = "role-management"
)

const (
	GrantRole  = "Grant Role"
	RevokeRole = "Revoke Role"
)

// Constraint narrows the accepted values of a field.
// Min and Max apply to number fields, Pattern to string fields.
type Constraint struct {
	Min     *int64
	Max     *int64
	Pattern string
}

type FieldSpec struct {
	ID          string
	Name        string
	Kind        FieldKind
	Required    bool
	Placeholder string
	Options     []string
	Constraint  *Constraint
}

type ActionTemplate struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Fields      []FieldSpec
}

// Field returns the field spec with the given id.
func (t *ActionTemplate) Field(id string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func int64Ptr(v int64) *int64 {
	return &v
}

// The field lists are what the encoder reads; keep them in sync with encode.go.
var templates = []ActionTemplate{
	{
		ID:          TreasuryTransfer,
		Name:        "Treasury Transfer",
		Description: "Transfer tokens from DAO treasury to a recipient",
		Category:    Treasury,
		Fields: []FieldSpec{
			{ID: "recipient", Name: "Recipient Address", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "token", Name: "Token Contract", Kind: KindAddress, Required: true, Placeholder: "0x... (USDC, DAI, etc.)"},
			{ID: "amount", Name: "Amount", Kind: KindAmount, Required: true, Placeholder: "1000.00"},
		},
	},
	{
		ID:          ParameterChange,
		Name:        "Parameter Update",
		Description: "Update protocol parameters like fees, rates, or limits",
		Category:    Governance,
		Fields: []FieldSpec{
			{ID: "target", Name: "Target Contract", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "parameter", Name: "Parameter Name", Kind: KindString, Required: true, Placeholder: "interest_rate"},
			{ID: "value", Name: "New Value", Kind: KindNumber, Required: true, Placeholder: "500 (for 5%)", Constraint: &Constraint{Min: int64Ptr(0)}},
		},
	},
	{
		ID:          ContractUpgrade,
		Name:        "Contract Upgrade",
		Description: "Upgrade a proxy contract to a new implementation",
		Category:    Technical,
		Fields: []FieldSpec{
			{ID: "proxy", Name: "Proxy Contract", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "implementation", Name: "New Implementation", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "initData", Name: "Initialization Data", Kind: KindString, Required: false, Placeholder: "0x... (optional)", Constraint: &Constraint{Pattern: `^0x([0-9a-fA-F]{2})*$`}},
		},
	},
	{
		ID:          RoleManagement,
		Name:        "Role Management",
		Description: "Grant or revoke admin roles and permissions",
		Category:    Roles,
		Fields: []FieldSpec{
			{ID: "target", Name: "Target Contract", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "user", Name: "User Address", Kind: KindAddress, Required: true, Placeholder: "0x..."},
			{ID: "action", Name: "Action", Kind: KindSelect, Required: true, Options: []string{GrantRole, RevokeRole}},
			{ID: "role", Name: "Role", Kind: KindSelect, Required: true, Options: []string{"ADMIN", "MINTER", "PAUSER", "UPGRADER"}},
		},
	},
}

// Templates returns the catalog in display order.
func Templates() []ActionTemplate {
	out := make([]ActionTemplate, len(templates))
	copy(out, templates)
	return out
}

func TemplateByID(id string) (ActionTemplate, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return ActionTemplate{}, errors.Wrapf(ErrUnknownTemplate, "template %q", id)
}
