package action

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	addrC = "0x3333333333333333333333333333333333333333"
)

func mustValidate(t *testing.T, templateID string, params ParameterSet) ValidatedParameters {
	t.Helper()
	tmpl, err := TemplateByID(templateID)
	require.Nil(t, err)
	v, err := Validate(tmpl, params)
	require.Nil(t, err)
	return v
}

func word(data []byte, i int) []byte {
	return data[4+32*i : 4+32*(i+1)]
}

func TestCatalog(t *testing.T) {
	ts := Templates()
	require.Len(t, ts, 4)
	assert.Equal(t, TreasuryTransfer, ts[0].ID)
	assert.Equal(t, ParameterChange, ts[1].ID)
	assert.Equal(t, ContractUpgrade, ts[2].ID)
	assert.Equal(t, RoleManagement, ts[3].ID)

	tmpl, err := TemplateByID(RoleManagement)
	assert.Nil(t, err)
	assert.Equal(t, Roles, tmpl.Category)
	f, ok := tmpl.Field("role")
	assert.True(t, ok)
	assert.Equal(t, KindSelect, f.Kind)

	_, err = TemplateByID("mint-nft")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	// mutating the returned slice must not leak into the catalog
	ts[0].ID = "changed"
	again, _ := TemplateByID(TreasuryTransfer)
	assert.Equal(t, "Treasury Transfer", again.Name)
}

func TestValidate(t *testing.T) {
	transfer, _ := TemplateByID(TreasuryTransfer)

	tests := []struct {
		name   string
		tmpl   string
		params ParameterSet
		errs   []FieldError
	}{
		{
			name:   "valid transfer",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": "1000.5"},
		},
		{
			name:   "numeric amount",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": 25},
		},
		{
			name:   "all missing",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{},
			errs: []FieldError{
				{Field: "recipient", Message: msgMissing},
				{Field: "token", Message: msgMissing},
				{Field: "amount", Message: msgMissing},
			},
		},
		{
			name:   "bad address and negative amount",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": "0x123", "token": "  ", "amount": "-3"},
			errs: []FieldError{
				{Field: "recipient", Message: msgAddress},
				{Field: "token", Message: msgMissing},
				{Field: "amount", Message: msgAmount},
			},
		},
		{
			name:   "non numeric amount",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": "abc"},
			errs:   []FieldError{{Field: "amount", Message: msgAmount}},
		},
		{
			name:   "too many decimals",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": "0.0000000000000000001"},
			errs:   []FieldError{{Field: "amount", Message: msgAmountScale}},
		},
		{
			name:   "select outside options",
			tmpl:   RoleManagement,
			params: ParameterSet{"target": addrA, "user": addrB, "action": "Burn", "role": "ADMIN"},
			errs:   []FieldError{{Field: "action", Message: "value must be one of: Grant Role, Revoke Role"}},
		},
		{
			name:   "parameter value not integer",
			tmpl:   ParameterChange,
			params: ParameterSet{"target": addrA, "parameter": "fee", "value": "5.5"},
			errs:   []FieldError{{Field: "value", Message: msgNumber}},
		},
		{
			name:   "parameter value below minimum",
			tmpl:   ParameterChange,
			params: ParameterSet{"target": addrA, "parameter": "fee", "value": -1},
			errs:   []FieldError{{Field: "value", Message: "value must be at least 0"}},
		},
		{
			name:   "optional init data absent",
			tmpl:   ContractUpgrade,
			params: ParameterSet{"proxy": addrA, "implementation": addrB},
		},
		{
			name:   "optional init data malformed",
			tmpl:   ContractUpgrade,
			params: ParameterSet{"proxy": addrA, "implementation": addrB, "initData": "0xzz"},
			errs:   []FieldError{{Field: "initData", Message: msgPattern}},
		},
		{
			name:   "unknown fields ignored",
			tmpl:   ContractUpgrade,
			params: ParameterSet{"proxy": addrA, "implementation": addrB, "comment": "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := TemplateByID(tt.tmpl)
			require.Nil(t, err)
			v, err := Validate(tmpl, tt.params)
			if len(tt.errs) == 0 {
				assert.Nil(t, err)
				assert.Equal(t, tt.tmpl, v.TemplateID())
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.errs, verr.Fields)
		})
	}

	// one error per missing required field
	_, err := Validate(transfer, ParameterSet{"amount": "1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestEncodeTransfer(t *testing.T) {
	v := mustValidate(t, TreasuryTransfer, ParameterSet{"recipient": addrB, "token": addrA, "amount": "1.5"})
	enc, err := Encode(TreasuryTransfer, v)
	require.Nil(t, err)
	assert.False(t, enc.Fallback)

	data := enc.Data
	require.Len(t, data, 4+2*32)
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(data.Selector()))
	assert.Equal(t, common.LeftPadBytes(common.HexToAddress(addrB).Bytes(), 32), word(data, 0))

	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, common.LeftPadBytes(expected.Bytes(), 32), word(data, 1))
}

func TestEncodeSetParameter(t *testing.T) {
	v := mustValidate(t, ParameterChange, ParameterSet{"target": addrA, "parameter": "interest_rate", "value": 500})
	enc, err := Encode(ParameterChange, v)
	require.Nil(t, err)

	data := enc.Data
	assert.Equal(t, crypto.Keccak256([]byte("setParameter(string,uint256)"))[:4], data.Selector())
	// head: string offset, value; tail: length, padded bytes
	require.Len(t, data, 4+4*32)
	assert.Equal(t, common.LeftPadBytes([]byte{0x40}, 32), word(data, 0))
	assert.Equal(t, common.LeftPadBytes(big.NewInt(500).Bytes(), 32), word(data, 1))
	assert.Equal(t, common.LeftPadBytes([]byte{13}, 32), word(data, 2))
	assert.Equal(t, common.RightPadBytes([]byte("interest_rate"), 32), word(data, 3))
}

func TestEncodeUpgrade(t *testing.T) {
	v := mustValidate(t, ContractUpgrade, ParameterSet{"proxy": addrA, "implementation": addrC})
	enc, err := Encode(ContractUpgrade, v)
	require.Nil(t, err)
	assert.Equal(t, "0x3659cfe6", hexutil.Encode(enc.Data.Selector()))
	assert.Equal(t, common.LeftPadBytes(common.HexToAddress(addrC).Bytes(), 32), word(enc.Data, 0))
}

func TestEncodeRole(t *testing.T) {
	grant := mustValidate(t, RoleManagement, ParameterSet{"target": addrA, "user": addrB, "action": GrantRole, "role": "ADMIN"})
	enc, err := Encode(RoleManagement, grant)
	require.Nil(t, err)
	assert.Equal(t, "0x2f2ff15d", hexutil.Encode(enc.Data.Selector()))
	assert.Equal(t, crypto.Keccak256([]byte("grantRole(bytes32,address)"))[:4], enc.Data.Selector())
	assert.Equal(t, crypto.Keccak256([]byte("ADMIN")), word(enc.Data, 0))
	assert.Equal(t, common.LeftPadBytes(common.HexToAddress(addrB).Bytes(), 32), word(enc.Data, 1))

	revoke := mustValidate(t, RoleManagement, ParameterSet{"target": addrA, "user": addrB, "action": RevokeRole, "role": "MINTER"})
	enc, err = Encode(RoleManagement, revoke)
	require.Nil(t, err)
	assert.Equal(t, "0xd547741f", hexutil.Encode(enc.Data.Selector()))
	assert.Equal(t, RoleID("MINTER").Bytes(), word(enc.Data, 0))
}

func TestEncodeFallback(t *testing.T) {
	custom := ActionTemplate{
		ID:     "custom-call",
		Fields: []FieldSpec{{ID: "note", Kind: KindString, Required: true}},
	}
	v, err := Validate(custom, ParameterSet{"note": "hi", "extra": 7})
	require.Nil(t, err)

	enc, err := Encode("custom-call", v)
	require.Nil(t, err)
	assert.True(t, enc.Fallback)

	var decoded map[string]any
	require.Nil(t, json.Unmarshal(enc.Data, &decoded))
	assert.Equal(t, "hi", decoded["note"])
	assert.EqualValues(t, 7, decoded["extra"])
}

func TestEncodeTemplateMismatch(t *testing.T) {
	v := mustValidate(t, ContractUpgrade, ParameterSet{"proxy": addrA, "implementation": addrC})
	_, err := Encode(TreasuryTransfer, v)
	assert.NotNil(t, err)
}

func TestEncodeDeterministic(t *testing.T) {
	inputs := map[string]ParameterSet{
		TreasuryTransfer: {"recipient": addrA, "token": addrB, "amount": "42.000001"},
		ParameterChange:  {"target": addrA, "parameter": "quorum", "value": "12"},
		ContractUpgrade:  {"proxy": addrA, "implementation": addrB, "initData": "0x"},
		RoleManagement:   {"target": addrA, "user": addrC, "action": RevokeRole, "role": "PAUSER"},
	}
	for id, params := range inputs {
		first, err := Encode(id, mustValidate(t, id, params))
		require.Nil(t, err)
		second, err := Encode(id, mustValidate(t, id, params))
		require.Nil(t, err)
		assert.Equal(t, first.Data, second.Data, id)
	}
}

func TestScaleAmount(t *testing.T) {
	v, err := ScaleAmount("1")
	require.Nil(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = ScaleAmount("0.000000000000000001")
	require.Nil(t, err)
	assert.Equal(t, "1", v.String())

	_, err = ScaleAmount("1.0000000000000000001")
	assert.NotNil(t, err)
}

const (
	maxUint256       = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	maxUint256Plus1  = "115792089237316195423570985008687907853269984665640564039457584007913129639936"
	maxAmount        = "115792089237316195423570985008687907853269984665640564039457.584007913129639935"
	maxAmountPlusWei = "115792089237316195423570985008687907853269984665640564039457.584007913129639936"
)

func TestUint256Bounds(t *testing.T) {
	v := mustValidate(t, ParameterChange, ParameterSet{"target": addrA, "parameter": "cap", "value": maxUint256})
	enc, err := Encode(ParameterChange, v)
	require.Nil(t, err)
	limit, _ := new(big.Int).SetString(maxUint256, 10)
	assert.Equal(t, math.U256Bytes(new(big.Int).Set(limit)), word(enc.Data, 1))

	v = mustValidate(t, TreasuryTransfer, ParameterSet{"recipient": addrA, "token": addrB, "amount": maxAmount})
	enc, err = Encode(TreasuryTransfer, v)
	require.Nil(t, err)
	assert.Equal(t, math.U256Bytes(new(big.Int).Set(limit)), word(enc.Data, 1))

	tests := []struct {
		name   string
		tmpl   string
		params ParameterSet
		err    FieldError
	}{
		{
			name:   "value past uint256",
			tmpl:   ParameterChange,
			params: ParameterSet{"target": addrA, "parameter": "cap", "value": maxUint256Plus1},
			err:    FieldError{Field: "value", Message: msgNumberRange},
		},
		{
			name:   "amount past uint256 by one wei",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": maxAmountPlusWei},
			err:    FieldError{Field: "amount", Message: msgAmountRange},
		},
		{
			name:   "huge amount",
			tmpl:   TreasuryTransfer,
			params: ParameterSet{"recipient": addrA, "token": addrB, "amount": "1e60"},
			err:    FieldError{Field: "amount", Message: msgAmountRange},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := TemplateByID(tt.tmpl)
			require.Nil(t, err)
			_, err = Validate(tmpl, tt.params)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []FieldError{tt.err}, verr.Fields)
		})
	}

	_, err = ScaleAmount(maxAmount)
	assert.Nil(t, err)
	_, err = ScaleAmount(maxAmountPlusWei)
	assert.NotNil(t, err)

	// parameters that bypass Validate still cannot wrap around
	forged := ValidatedParameters{
		templateID: ParameterChange,
		values:     map[string]string{"target": addrA, "parameter": "cap", "value": maxUint256Plus1},
	}
	_, err = Encode(ParameterChange, forged)
	assert.NotNil(t, err)
}
