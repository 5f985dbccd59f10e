package domain

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"

	dErrors "provenant/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing a
// ProductID where a PrincipalID is expected.
type (
	PrincipalID uuid.UUID
	ProductID   uuid.UUID
	ScanID      uuid.UUID
)

// CertificateID is the opaque, externally facing certificate token. It is
// carried in QR payloads and verification URLs, so it is not a UUID.
type CertificateID string

// certificateIDLen is the unpadded base32 length of 128 random bits.
const certificateIDLen = 26

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// ParsePrincipalID parses a principal id from external input.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s, "principal id")
	return PrincipalID(u), err
}

// ParseProductID parses a product id from external input.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s, "product id")
	return ProductID(u), err
}

// ParseScanID parses a scan id from external input.
func ParseScanID(s string) (ScanID, error) {
	u, err := parseUUID(s, "scan id")
	return ScanID(u), err
}

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string   { return uuid.UUID(id).String() }
func (id ScanID) String() string      { return uuid.UUID(id).String() }

func (id PrincipalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScanID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// ParseCertificateID validates a certificate token. Input is trimmed and
// upper-cased; the decoded value must be exactly 16 bytes.
func ParseCertificateID(s string) (CertificateID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate id cannot be empty")
	}
	if len(s) != certificateIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid certificate id")
	}
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil || len(raw) != 16 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid certificate id")
	}
	return CertificateID(s), nil
}

// EncodeCertificateID renders 16 random bytes as a certificate token.
func EncodeCertificateID(raw [16]byte) CertificateID {
	return CertificateID(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:]))
}

func (id CertificateID) String() string { return string(id) }
