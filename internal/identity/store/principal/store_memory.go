// Package principal persists principals.
package principal

import (
	"context"
	"sync"
	"time"

	"provenant/internal/identity/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

type key struct {
	role     id.Role
	username string
}

// InMemory is a mutex-guarded principal store for tests and single-node runs.
type InMemory struct {
	mu         sync.RWMutex
	byID       map[id.PrincipalID]*models.Principal
	byUsername map[key]id.PrincipalID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[id.PrincipalID]*models.Principal),
		byUsername: make(map[key]id.PrincipalID),
	}
}

// Create stores a new principal. Returns sentinel.ErrConflict if the username
// is taken within the principal's role.
func (s *InMemory) Create(_ context.Context, p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{role: p.Role, username: p.Username}
	if _, ok := s.byUsername[k]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.byID[p.ID] = &cp
	s.byUsername[k] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindByUsername(_ context.Context, role id.Role, username string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.byUsername[key{role: role, username: username}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[pid]
	return &cp, nil
}

// CountByRole counts principals of a role, active or not.
func (s *InMemory) CountByRole(_ context.Context, role id.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.byID {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

// Execute loads a principal, validates it, then applies mutate under the lock.
func (s *InMemory) Execute(_ context.Context, principalID id.PrincipalID, validate func(*models.Principal) error, mutate func(*models.Principal)) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.byID[principalID] = &cp
	out := cp
	return &out, nil
}

func (s *InMemory) UpdateLastLogin(_ context.Context, principalID id.PrincipalID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[principalID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.RecordLogin(at)
	return nil
}
