package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// Product is a physical item identified by a manufacturer serial number.
//
// Invariants:
//   - SerialNumber is globally unique, trimmed, upper-cased and immutable
//   - OwnerID always refers to a customer principal
type Product struct {
	ID           id.ProductID   `json:"id"`
	SerialNumber string         `json:"serial_number"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	OwnerID      id.PrincipalID `json:"owner_customer_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NormalizeSerial canonicalizes a serial number for storage and lookup.
func NormalizeSerial(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

func NewProduct(productID id.ProductID, ownerID id.PrincipalID, serial, name, description string, now time.Time) (*Product, error) {
	if productID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product id cannot be nil")
	}
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner id cannot be nil")
	}
	serial = NormalizeSerial(serial)
	if serial == "" || utf8.RuneCountInString(serial) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "serial number must be 1-128 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name must be 1-200 characters")
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > 2000 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description must be 2000 characters or less")
	}
	return &Product{
		ID:           productID,
		SerialNumber: serial,
		Name:         name,
		Description:  description,
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanTransfer checks that ownership may move to newOwner. hasCertificates is
// true once any certificate was ever issued against the product.
func (p *Product) CanTransfer(newOwner id.PrincipalID, hasCertificates bool) error {
	if hasCertificates {
		return dErrors.New(dErrors.CodeInvalidState, "ownership is frozen once a certificate has been issued")
	}
	if newOwner == p.OwnerID {
		return dErrors.New(dErrors.CodeInvalidState, "product already belongs to this customer")
	}
	return nil
}

func (p *Product) ApplyTransfer(newOwner id.PrincipalID, now time.Time) {
	p.OwnerID = newOwner
	p.UpdatedAt = now
}

// IsOwnedBy reports whether the customer owns the product.
func (p *Product) IsOwnedBy(customerID id.PrincipalID) bool {
	return p.OwnerID == customerID
}
