package action

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const actionsABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setParameter","stateMutability":"nonpayable","inputs":[{"name":"param","type":"string"},{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]}
]`

var actionsABI abi.ABI

func init() {
	var err error
	actionsABI, err = abi.JSON(strings.NewReader(actionsABIJSON))
	if err != nil {
		panic(err)
	}
}

// EncodedAction is contract call data: a 4 byte selector followed by
// 32 byte argument words.
type EncodedAction []byte

func (e EncodedAction) Hex() string {
	return hexutil.Encode(e)
}

func (e EncodedAction) Selector() []byte {
	if len(e) < 4 {
		return nil
	}
	return e[:4]
}

// Encoded is the outcome of Encode. Fallback is set when the template is not
// one of the known ones and Data holds the UTF-8 JSON text of the parameters
// instead of ABI call data.
type Encoded struct {
	Data     EncodedAction
	Fallback bool
}

// RoleID is the keccak256 hash of the role's UTF-8 name.
func RoleID(role string) common.Hash {
	return crypto.Keccak256Hash([]byte(role))
}

// Encode turns validated parameters into call data. It is pure and the same
// input always yields the same bytes.
func Encode(templateID string, params ValidatedParameters) (Encoded, error) {
	if params.templateID != templateID {
		return Encoded{}, errors.Errorf("parameters were validated for template %q, not %q", params.templateID, templateID)
	}

	var (
		data []byte
		err  error
	)
	switch templateID {
	case TreasuryTransfer:
		data, err = encodeTransfer(params)
	case ParameterChange:
		data, err = encodeSetParameter(params)
	case ContractUpgrade:
		data, err = encodeUpgrade(params)
	case RoleManagement:
		data, err = encodeRole(params)
	default:
		data, err = json.Marshal(params.Raw())
		if err != nil {
			return Encoded{}, errors.Wrap(err, "marshal raw parameters")
		}
		return Encoded{Data: data, Fallback: true}, nil
	}
	if err != nil {
		return Encoded{}, errors.Wrapf(err, "encode %s", templateID)
	}
	return Encoded{Data: data}, nil
}

// ScaleAmount converts a decimal amount into its 18 decimal fixed-point integer.
func ScaleAmount(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(AmountDecimals)
	if !scaled.IsInteger() {
		return nil, errors.Errorf("amount %s has more than %d decimals", amount, AmountDecimals)
	}
	n := scaled.BigInt()
	if !fitsUint256(n) {
		return nil, errors.Errorf("amount %s does not fit in uint256", amount)
	}
	return n, nil
}

func encodeTransfer(params ValidatedParameters) ([]byte, error) {
	amount, err := ScaleAmount(params.Get("amount"))
	if err != nil {
		return nil, err
	}
	return actionsABI.Pack("transfer", common.HexToAddress(params.Get("recipient")), amount)
}

func encodeSetParameter(params ValidatedParameters) ([]byte, error) {
	value, ok := new(big.Int).SetString(params.Get("value"), 10)
	if !ok {
		return nil, errors.Errorf("value %q is not an integer", params.Get("value"))
	}
	if !fitsUint256(value) {
		return nil, errors.Errorf("value %s does not fit in uint256", value)
	}
	return actionsABI.Pack("setParameter", params.Get("parameter"), value)
}

func encodeUpgrade(params ValidatedParameters) ([]byte, error) {
	return actionsABI.Pack("upgradeTo", common.HexToAddress(params.Get("implementation")))
}

func encodeRole(params ValidatedParameters) ([]byte, error) {
	method := "revokeRole"
	if params.Get("action") == GrantRole {
		method = "grantRole"
	}
	role := [32]byte(RoleID(params.Get("role")))
	return actionsABI.Pack(method, role, common.HexToAddress(params.Get("user")))
}
