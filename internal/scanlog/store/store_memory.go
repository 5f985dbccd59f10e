// Package store persists scan logs.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// InMemory is an append-only slice of scans. Reads copy.
type InMemory struct {
	mu    sync.RWMutex
	scans []*models.ScanLog
	ids   map[id.ScanID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{ids: make(map[id.ScanID]struct{})}
}

func (s *InMemory) Append(_ context.Context, scan *models.ScanLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[scan.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *scan
	s.scans = append(s.scans, &cp)
	s.ids[scan.ID] = struct{}{}
	return nil
}

// Query returns the owner's scans matching the filter, newest first.
func (s *InMemory) Query(_ context.Context, ownerID id.PrincipalID, filter models.Filter) ([]*models.ScanLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.ScanLog, 0)
	for i := len(s.scans) - 1; i >= 0; i-- {
		scan := s.scans[i]
		if scan.OwnerID == nil || *scan.OwnerID != ownerID || !filter.Matches(scan) {
			continue
		}
		cp := *scan
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ScannedAt.After(matched[j].ScannedAt)
	})

	if filter.Offset >= len(matched) {
		return []*models.ScanLog{}, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	return matched[filter.Offset:end], nil
}

// Summary counts the owner's scans per outcome since the given instant.
func (s *InMemory) Summary(_ context.Context, ownerID id.PrincipalID, since *time.Time) (*models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := models.NewSummary()
	for _, scan := range s.scans {
		if scan.OwnerID == nil || *scan.OwnerID != ownerID {
			continue
		}
		if since != nil && scan.ScannedAt.Before(*since) {
			continue
		}
		summary.Add(scan.Outcome, 1)
	}
	return summary, nil
}

// Len returns the number of stored scans.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scans)
}

// All returns every stored scan in append order.
func (s *InMemory) All() []*models.ScanLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ScanLog, 0, len(s.scans))
	for _, scan := range s.scans {
		cp := *scan
		out = append(out, &cp)
	}
	return out
}
