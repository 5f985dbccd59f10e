package models

import id "provenant/pkg/domain"

// RegisterRequest carries the fields for a new product.
type RegisterRequest struct {
	OwnerID      id.PrincipalID
	SerialNumber string
	Name         string
	Description  string
}
