package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// Status is the stored lifecycle state of a certificate.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

const maxRevocationReason = 500

// Certificate attests that a product is authentic.
//
// Invariants:
//   - Status moves active -> expired or active -> revoked, never back
//   - IssueDate is UTC with microsecond precision so the signature survives storage
//   - Signature covers CertificateID, ProductID and IssueDate only
type Certificate struct {
	ID                uuid.UUID
	CertificateID     id.CertificateID
	ProductID         id.ProductID
	IssueDate         time.Time
	ExpiryDate        *time.Time
	Status            Status
	Signature         string
	VerificationCount int64
	LastVerifiedAt    *time.Time
	IssuedBy          id.PrincipalID
	RevokedAt         *time.Time
	RevokedBy         *id.PrincipalID
	RevocationReason  string
}

// NewCertificate builds an unsigned active certificate.
func NewCertificate(certificateID id.CertificateID, productID id.ProductID, issuedBy id.PrincipalID, issueDate time.Time, expiryDate *time.Time) (*Certificate, error) {
	if certificateID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate id cannot be empty")
	}
	if productID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product id cannot be nil")
	}
	issueDate = NormalizeTime(issueDate)
	if expiryDate != nil {
		// A lapsed expiry is accepted; the certificate resolves as expired.
		exp := NormalizeTime(*expiryDate)
		expiryDate = &exp
	}
	return &Certificate{
		ID:            uuid.New(),
		CertificateID: certificateID,
		ProductID:     productID,
		IssueDate:     issueDate,
		ExpiryDate:    expiryDate,
		Status:        StatusActive,
		IssuedBy:      issuedBy,
	}, nil
}

// NormalizeTime converts t to UTC and truncates it to microseconds, the
// precision Postgres keeps.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// EffectiveStatus derives the status at now. The expiry instant itself counts as expired.
func (c *Certificate) EffectiveStatus(now time.Time) Status {
	switch {
	case c.Status == StatusRevoked:
		return StatusRevoked
	case c.Status == StatusExpired:
		return StatusExpired
	case c.ExpiryDate != nil && !now.Before(*c.ExpiryDate):
		return StatusExpired
	default:
		return StatusActive
	}
}

// CanRevoke checks the certificate can be revoked. A stored-active
// certificate past its expiry can still be revoked; one already persisted as
// expired has been superseded and cannot.
func (c *Certificate) CanRevoke() error {
	switch c.Status {
	case StatusRevoked:
		return dErrors.New(dErrors.CodeInvalidState, "certificate is already revoked")
	case StatusExpired:
		return dErrors.New(dErrors.CodeInvalidState, "superseded certificates cannot be revoked")
	}
	return nil
}

func (c *Certificate) ApplyRevocation(actor id.PrincipalID, reason string, now time.Time) {
	c.Status = StatusRevoked
	c.RevokedAt = &now
	c.RevokedBy = &actor
	c.RevocationReason = TruncateReason(reason)
}

// CanMarkExpired reports whether the stored status may be persisted as expired.
func (c *Certificate) CanMarkExpired(now time.Time) bool {
	return c.Status == StatusActive && c.EffectiveStatus(now) == StatusExpired
}

func TruncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if r := []rune(reason); len(r) > maxRevocationReason {
		return string(r[:maxRevocationReason])
	}
	return reason
}
