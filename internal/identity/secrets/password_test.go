package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "provenant/pkg/domain-errors"
)

func TestHasher(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("wrong horse", hash))
	assert.False(t, h.Verify("correct horse", ""), "empty hash never verifies")
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, dErrors.HasCode(ValidatePassword("short"), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode(ValidatePassword(strings.Repeat("x", 73)), dErrors.CodeValidation))
	assert.NoError(t, ValidatePassword("long enough"))
}

func TestNewHasher_RejectsBadCost(t *testing.T) {
	_, err := NewHasher(99)
	require.Error(t, err)
}
