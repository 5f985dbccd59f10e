package models

import (
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Validity narrows a query to valid or invalid scans.
type Validity string

const (
	ValidityAll     Validity = ""
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// Filter narrows a customer's scan history.
type Filter struct {
	CertificateID *id.CertificateID
	Outcomes      []Outcome
	Validity      Validity
	Since         *time.Time
	Until         *time.Time
	Limit         int
	Offset        int
}

// Normalize applies the paging defaults and checks the bounds.
func (f *Filter) Normalize() error {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		return dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}
	switch f.Validity {
	case ValidityAll, ValidityValid, ValidityInvalid:
	default:
		return dErrors.New(dErrors.CodeValidation, "validity must be valid or invalid")
	}
	if f.Since != nil && f.Until != nil && f.Until.Before(*f.Since) {
		return dErrors.New(dErrors.CodeValidation, "until must not be before since")
	}
	return nil
}

// Matches reports whether a scan passes every predicate except paging.
func (f Filter) Matches(s *ScanLog) bool {
	if f.CertificateID != nil && (s.CertificateID == nil || *s.CertificateID != *f.CertificateID) {
		return false
	}
	if len(f.Outcomes) > 0 {
		found := false
		for _, o := range f.Outcomes {
			if o == s.Outcome {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch f.Validity {
	case ValidityValid:
		if !s.IsValid {
			return false
		}
	case ValidityInvalid:
		if s.IsValid {
			return false
		}
	}
	if f.Since != nil && s.ScannedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !s.ScannedAt.Before(*f.Until) {
		return false
	}
	return true
}

// Summary aggregates a customer's scans.
type Summary struct {
	Total     int64             `json:"total"`
	Valid     int64             `json:"valid"`
	Invalid   int64             `json:"invalid"`
	ByOutcome map[Outcome]int64 `json:"by_outcome"`
}

// NewSummary returns a summary with every outcome present at zero.
func NewSummary() *Summary {
	s := &Summary{ByOutcome: make(map[Outcome]int64, len(Outcomes))}
	for _, o := range Outcomes {
		s.ByOutcome[o] = 0
	}
	return s
}

// Add counts n scans with the given outcome.
func (s *Summary) Add(o Outcome, n int64) {
	s.Total += n
	if o.IsValid() {
		s.Valid += n
	} else {
		s.Invalid += n
	}
	s.ByOutcome[o] += n
}
