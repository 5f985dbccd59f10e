package handler

import (
	"strings"

	dErrors "provenant/pkg/domain-errors"
)

const (
	maxIdentifierLen = 2048
	maxLocationLen   = 200
)

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	Identifier string `json:"identifier"`
	Location   string `json:"location,omitempty"`
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Location = strings.TrimSpace(r.Location)
	if strings.TrimSpace(r.Identifier) == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	if len(r.Identifier) > maxIdentifierLen {
		return dErrors.New(dErrors.CodeValidation, "identifier is too long")
	}
	if len(r.Location) > maxLocationLen {
		return dErrors.New(dErrors.CodeValidation, "location is too long")
	}
	return nil
}
