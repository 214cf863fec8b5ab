package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinHashRoundTrip(t *testing.T) {
	salt, hash, err := MakePinHash("1234")
	require.NoError(t, err)
	require.NotEmpty(t, salt)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyPin("1234", salt, hash))
	assert.False(t, VerifyPin("4321", salt, hash))
	assert.False(t, VerifyPin("", salt, hash))
}

func TestPinHashUniqueSalts(t *testing.T) {
	salt1, hash1, err := MakePinHash("1234")
	require.NoError(t, err)
	salt2, hash2, err := MakePinHash("1234")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}
