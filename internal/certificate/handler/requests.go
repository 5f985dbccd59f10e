package handler

import (
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// IssueRequest is the body of POST /admin/certificates.
type IssueRequest struct {
	ProductID  string  `json:"product_id"`
	ExpiryDate *string `json:"expiry_date,omitempty"`

	parsedProductID  id.ProductID
	parsedExpiryDate *time.Time
}

// Validate accepts expiry_date as RFC 3339 or a plain YYYY-MM-DD date (midnight UTC).
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	productID, err := id.ParseProductID(strings.TrimSpace(r.ProductID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "product_id must be a valid id")
	}
	r.parsedProductID = productID

	if r.ExpiryDate != nil && strings.TrimSpace(*r.ExpiryDate) != "" {
		raw := strings.TrimSpace(*r.ExpiryDate)
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t, err = time.Parse(time.DateOnly, raw)
		}
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expiry_date must be RFC 3339 or YYYY-MM-DD")
		}
		r.parsedExpiryDate = &t
	}
	return nil
}

func (r *IssueRequest) ParsedProductID() id.ProductID {
	return r.parsedProductID
}

func (r *IssueRequest) ParsedExpiryDate() *time.Time {
	return r.parsedExpiryDate
}

// RevokeRequest is the body of POST /admin/certificates/{certificate_id}/revoke.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Reason) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "reason must be 2000 characters or less")
	}
	return nil
}
