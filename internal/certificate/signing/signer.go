// Package signing computes and checks certificate signatures.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
)

// Signer computes HMAC-SHA256 signatures with a server secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("certificate signing key must be at least 32 bytes")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Message is the canonical signed payload.
func Message(certificateID id.CertificateID, productID id.ProductID, issueDate time.Time) []byte {
	return []byte(certificateID.String() + "|" + productID.String() + "|" + models.NormalizeTime(issueDate).Format(time.RFC3339Nano))
}

func (s *Signer) Sign(certificateID id.CertificateID, productID id.ProductID, issueDate time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(Message(certificateID, productID, issueDate))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over the certificate's current fields and
// compares in constant time.
func (s *Signer) Verify(c *models.Certificate) bool {
	got, err := hex.DecodeString(c.Signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(Message(c.CertificateID, c.ProductID, c.IssueDate))
	return hmac.Equal(got, mac.Sum(nil))
}
