// Package store persists products.
package store

import (
	"context"
	"sort"
	"sync"

	"provenant/internal/product/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemory keeps products in maps keyed by id and serial. Serial uniqueness is
// enforced by the check-and-insert under one lock.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[id.ProductID]*models.Product
	bySerial map[string]id.ProductID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[id.ProductID]*models.Product),
		bySerial: make(map[string]id.ProductID),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySerial[p.SerialNumber]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.byID[p.ID] = &cp
	s.bySerial[p.SerialNumber] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindByIDForShare is FindByID; the memory store has no row locks.
func (s *InMemory) FindByIDForShare(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	return s.FindByID(ctx, productID)
}

func (s *InMemory) FindBySerial(_ context.Context, serial string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.bySerial[serial]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[pid]
	return &cp, nil
}

// ListByOwner returns the customer's products, oldest first.
func (s *InMemory) ListByOwner(_ context.Context, ownerID id.PrincipalID) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, 0)
	for _, p := range s.byID {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SerialNumber < out[j].SerialNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListIDsByOwner returns the ids of the customer's products.
func (s *InMemory) ListIDsByOwner(ctx context.Context, ownerID id.PrincipalID) ([]id.ProductID, error) {
	products, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]id.ProductID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *InMemory) Execute(_ context.Context, productID id.ProductID, validate func(*models.Product) error, mutate func(*models.Product)) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.byID[productID] = &cp
	out := cp
	return &out, nil
}
