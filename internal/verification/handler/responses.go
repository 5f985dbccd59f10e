package handler

import (
	"time"

	"provenant/internal/verification/models"
)

// VerifyResponse is returned for every outcome, including not_found.
type VerifyResponse struct {
	Status            string    `json:"status"`
	Reason            string    `json:"reason"`
	ProductName       string    `json:"product_name,omitempty"`
	SerialNumber      string    `json:"serial_number,omitempty"`
	CertificateID     string    `json:"certificate_id,omitempty"`
	VerificationCount *int64    `json:"verification_count,omitempty"`
	VerifiedAt        time.Time `json:"verified_at"`
}

func FromResult(r *models.Result) VerifyResponse {
	resp := VerifyResponse{
		Status:            string(r.Status),
		Reason:            r.Reason,
		ProductName:       r.ProductName,
		SerialNumber:      r.SerialNumber,
		VerificationCount: r.VerificationCount,
		VerifiedAt:        r.VerifiedAt,
	}
	if r.CertificateID != nil {
		resp.CertificateID = r.CertificateID.String()
	}
	return resp
}
