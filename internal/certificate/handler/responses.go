package handler

import (
	"time"

	"provenant/internal/certificate/models"
)

type CertificateResponse struct {
	CertificateID     string     `json:"certificate_id"`
	ProductID         string     `json:"product_id"`
	IssueDate         time.Time  `json:"issue_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Status            string     `json:"status"`
	EffectiveStatus   string     `json:"effective_status"`
	VerificationCount int64      `json:"verification_count"`
	LastVerifiedAt    *time.Time `json:"last_verified_at,omitempty"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	RevocationReason  string     `json:"revocation_reason,omitempty"`
	QRPayload         string     `json:"qr_payload"`
}

func FromCertificate(c *models.Certificate, effective models.Status, qrPayload string) CertificateResponse {
	return CertificateResponse{
		CertificateID:     c.CertificateID.String(),
		ProductID:         c.ProductID.String(),
		IssueDate:         c.IssueDate,
		ExpiryDate:        c.ExpiryDate,
		Status:            c.Status.String(),
		EffectiveStatus:   effective.String(),
		VerificationCount: c.VerificationCount,
		LastVerifiedAt:    c.LastVerifiedAt,
		RevokedAt:         c.RevokedAt,
		RevocationReason:  c.RevocationReason,
		QRPayload:         qrPayload,
	}
}
