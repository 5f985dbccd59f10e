// Package store persists certificates.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemory keeps certificates under a single lock. Insert refuses a second
// stored-active certificate for a product.
type InMemory struct {
	mu        sync.RWMutex
	byCertID  map[id.CertificateID]*models.Certificate
	byProduct map[id.ProductID][]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byCertID:  make(map[id.CertificateID]*models.Certificate),
		byProduct: make(map[id.ProductID][]id.CertificateID),
	}
}

// Insert stores a certificate. Returns sentinel.ErrConflict when the product
// already has a stored-active certificate and sentinel.ErrAlreadyUsed when the
// certificate id collides.
func (s *InMemory) Insert(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCertID[c.CertificateID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if c.Status == models.StatusActive {
		for _, cid := range s.byProduct[c.ProductID] {
			if s.byCertID[cid].Status == models.StatusActive {
				return sentinel.ErrConflict
			}
		}
	}
	cp := *c
	s.byCertID[c.CertificateID] = &cp
	s.byProduct[c.ProductID] = append(s.byProduct[c.ProductID], c.CertificateID)
	return nil
}

func (s *InMemory) FindByCertificateID(_ context.Context, certificateID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byCertID[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindActiveForProduct(_ context.Context, productID id.ProductID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cid := range s.byProduct[productID] {
		if c := s.byCertID[cid]; c.Status == models.StatusActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindLatestForProduct(ctx context.Context, productID id.ProductID) (*models.Certificate, error) {
	list, err := s.ListForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

// ListForProduct returns certificates newest first.
func (s *InMemory) ListForProduct(_ context.Context, productID id.ProductID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProduct[productID]
	out := make([]*models.Certificate, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *s.byCertID[ids[i]]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssueDate.After(out[j].IssueDate)
	})
	return out, nil
}

func (s *InMemory) CountForProduct(_ context.Context, productID id.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byProduct[productID]), nil
}

// MarkExpired persists expiry for a stored-active certificate. It reports
// whether the row changed.
func (s *InMemory) MarkExpired(_ context.Context, certificateID id.CertificateID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCertID[certificateID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if c.Status != models.StatusActive {
		return false, nil
	}
	c.Status = models.StatusExpired
	return true, nil
}

func (s *InMemory) Execute(_ context.Context, certificateID id.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCertID[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.byCertID[certificateID] = &cp
	out := cp
	return &out, nil
}

// IncrementVerification bumps the counter and returns the new value.
func (s *InMemory) IncrementVerification(_ context.Context, certificateID id.CertificateID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCertID[certificateID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	c.VerificationCount++
	c.LastVerifiedAt = &at
	return c.VerificationCount, nil
}

// Tamper overwrites a stored certificate without re-signing. Tests use it to
// simulate direct edits to the record.
func (s *InMemory) Tamper(certificateID id.CertificateID, mutate func(*models.Certificate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byCertID[certificateID]; ok {
		mutate(c)
	}
}
