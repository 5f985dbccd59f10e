package signing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
)

const secret = "0123456789abcdef0123456789abcdef"

func signedCert(t *testing.T, s *Signer) *models.Certificate {
	t.Helper()
	c, err := models.NewCertificate("GEZDGNBVGY3TQOJQGEZDGNBVGY", id.ProductID(uuid.New()), id.PrincipalID(uuid.New()), time.Now(), nil)
	require.NoError(t, err)
	c.Signature = s.Sign(c.CertificateID, c.ProductID, c.IssueDate)
	return c
}

func TestSigner(t *testing.T) {
	s, err := NewSigner(secret)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		c := signedCert(t, s)
		assert.Len(t, c.Signature, 64)
		assert.True(t, s.Verify(c))
	})

	t.Run("product id swapped", func(t *testing.T) {
		c := signedCert(t, s)
		c.ProductID = id.ProductID(uuid.New())
		assert.False(t, s.Verify(c))
	})

	t.Run("issue date moved", func(t *testing.T) {
		c := signedCert(t, s)
		c.IssueDate = c.IssueDate.Add(time.Microsecond)
		assert.False(t, s.Verify(c))
	})

	t.Run("certificate id changed", func(t *testing.T) {
		c := signedCert(t, s)
		c.CertificateID = "MFRGGZDFMZTWQ2LKNNWG23TPOA"
		assert.False(t, s.Verify(c))
	})

	t.Run("garbage signature", func(t *testing.T) {
		c := signedCert(t, s)
		c.Signature = "zz"
		assert.False(t, s.Verify(c))
	})

	t.Run("different secret", func(t *testing.T) {
		c := signedCert(t, s)
		other, err := NewSigner("fedcba9876543210fedcba9876543210")
		require.NoError(t, err)
		assert.False(t, other.Verify(c))
	})

	t.Run("status and counters are not signed", func(t *testing.T) {
		c := signedCert(t, s)
		c.VerificationCount = 42
		c.Status = models.StatusRevoked
		assert.True(t, s.Verify(c))
	})
}

func TestNewSigner_ShortKey(t *testing.T) {
	_, err := NewSigner("short")
	require.Error(t, err)
}
