package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTSecret(t *testing.T) {
	first, err := GenerateJWTSecret()
	require.NoError(t, err)
	second, err := GenerateJWTSecret()
	require.NoError(t, err)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotEqual(t, first, second)
}
