package main

import (
	"testing"

	"github.com/axiomesh/proposer/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"action=Grant Role", "role=ADMIN", "note=a=b"})
	require.Nil(t, err)
	assert.Equal(t, action.ParameterSet{"action": "Grant Role", "role": "ADMIN", "note": "a=b"}, params)

	_, err = parseParams([]string{"novalue"})
	assert.NotNil(t, err)

	_, err = parseParams([]string{"=x"})
	assert.NotNil(t, err)
}
