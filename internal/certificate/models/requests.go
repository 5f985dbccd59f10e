package models

import (
	"time"

	id "provenant/pkg/domain"
)

// IssueRequest asks for a new certificate on a product.
type IssueRequest struct {
	ProductID  id.ProductID
	ExpiryDate *time.Time
}
