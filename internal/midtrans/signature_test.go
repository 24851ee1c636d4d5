package midtrans

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	v, err := NewVerifier("SB-Mid-server-test")
	require.NoError(t, err)

	sig := Signature("42-1700000000", "200", "100000.00", "SB-Mid-server-test")
	assert.Len(t, sig, 128)

	assert.NoError(t, v.Verify("42-1700000000", "200", "100000.00", sig))
	assert.NoError(t, v.Verify("42-1700000000", "200", "100000.00", strings.ToUpper(sig)))
	assert.ErrorIs(t, v.Verify("42-1700000000", "200", "999.00", sig), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify("42-1700000000", "200", "100000.00", ""), ErrInvalidSignature)
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier("   ")
	assert.ErrorIs(t, err, ErrMissingServerKey)
}
