package handler

import (
	"strings"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// RegisterProductRequest is the body of POST /admin/products.
type RegisterProductRequest struct {
	OwnerCustomerID string `json:"owner_customer_id"`
	SerialNumber    string `json:"serial_number"`
	Name            string `json:"name"`
	Description     string `json:"description"`

	parsedOwnerID id.PrincipalID
}

func (r *RegisterProductRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.SerialNumber) > 512 || len(r.Name) > 1024 || len(r.Description) > 8192 {
		return dErrors.New(dErrors.CodeValidation, "field too long")
	}
	if strings.TrimSpace(r.SerialNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "serial_number is required")
	}
	ownerID, err := id.ParsePrincipalID(strings.TrimSpace(r.OwnerCustomerID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "owner_customer_id must be a valid id")
	}
	r.parsedOwnerID = ownerID
	return nil
}

func (r *RegisterProductRequest) ParsedOwnerID() id.PrincipalID {
	return r.parsedOwnerID
}

// TransferRequest is the body of POST /admin/products/{id}/transfer.
type TransferRequest struct {
	NewOwnerCustomerID string `json:"new_owner_customer_id"`

	parsedOwnerID id.PrincipalID
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	ownerID, err := id.ParsePrincipalID(strings.TrimSpace(r.NewOwnerCustomerID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "new_owner_customer_id must be a valid id")
	}
	r.parsedOwnerID = ownerID
	return nil
}

func (r *TransferRequest) ParsedOwnerID() id.PrincipalID {
	return r.parsedOwnerID
}
