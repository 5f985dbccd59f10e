package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

func newCert(t *testing.T, issue time.Time, expiry *time.Time) *Certificate {
	t.Helper()
	c, err := NewCertificate("GEZDGNBVGY3TQOJQGEZDGNBVGY", id.ProductID(uuid.New()), id.PrincipalID(uuid.New()), issue, expiry)
	require.NoError(t, err)
	return c
}

func TestNewCertificate(t *testing.T) {
	issue := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))
	c := newCert(t, issue, nil)
	assert.Equal(t, time.UTC, c.IssueDate.Location())
	assert.Equal(t, 123456000, c.IssueDate.Nanosecond())
	assert.Equal(t, StatusActive, c.Status)

	past := issue.Add(-time.Hour)
	lapsed := newCert(t, issue, &past)
	assert.Equal(t, StatusActive, lapsed.Status)
	assert.Equal(t, StatusExpired, lapsed.EffectiveStatus(issue))

	_, err := NewCertificate("", id.ProductID(uuid.New()), id.PrincipalID(uuid.New()), issue, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestEffectiveStatus(t *testing.T) {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expiry := issue.Add(24 * time.Hour)
	c := newCert(t, issue, &expiry)

	assert.Equal(t, StatusActive, c.EffectiveStatus(expiry.Add(-time.Nanosecond)))
	assert.Equal(t, StatusExpired, c.EffectiveStatus(expiry), "expiry instant is expired")
	assert.Equal(t, StatusExpired, c.EffectiveStatus(expiry.Add(time.Hour)))
	assert.True(t, c.CanMarkExpired(expiry))

	c.ApplyRevocation(id.PrincipalID(uuid.New()), "stolen", issue.Add(time.Hour))
	assert.Equal(t, StatusRevoked, c.EffectiveStatus(expiry.Add(time.Hour)), "revoked wins over expiry")
	assert.False(t, c.CanMarkExpired(expiry))
}

func TestCanRevoke(t *testing.T) {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expiry := issue.Add(time.Hour)
	c := newCert(t, issue, &expiry)

	require.NoError(t, c.CanRevoke())
	require.Equal(t, StatusExpired, c.EffectiveStatus(expiry))
	require.NoError(t, c.CanRevoke(), "lapsed but stored active")

	superseded := newCert(t, issue, &expiry)
	superseded.Status = StatusExpired
	assert.True(t, dErrors.HasCode(superseded.CanRevoke(), dErrors.CodeInvalidState))

	c.ApplyRevocation(id.PrincipalID(uuid.New()), strings.Repeat("x", 600), issue)
	assert.Len(t, c.RevocationReason, 500)
	err := c.CanRevoke()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already revoked")
}
