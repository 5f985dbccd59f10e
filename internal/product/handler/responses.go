package handler

import (
	"time"

	"provenant/internal/product/models"
)

type ProductResponse struct {
	ID              string    `json:"id"`
	SerialNumber    string    `json:"serial_number"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	OwnerCustomerID string    `json:"owner_customer_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}

func FromProduct(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:              p.ID.String(),
		SerialNumber:    p.SerialNumber,
		Name:            p.Name,
		Description:     p.Description,
		OwnerCustomerID: p.OwnerID.String(),
		CreatedAt:       p.CreatedAt,
	}
}

func FromProducts(products []*models.Product) ProductListResponse {
	out := ProductListResponse{Products: make([]ProductResponse, 0, len(products))}
	for _, p := range products {
		out.Products = append(out.Products, FromProduct(p))
	}
	return out
}
