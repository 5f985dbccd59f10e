package models

import (
	"net/url"
	"strings"
	"time"

	scanmodels "provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
)

// Status is the machine-readable verification outcome.
type Status = scanmodels.Outcome

const (
	StatusValid    = scanmodels.OutcomeValid
	StatusExpired  = scanmodels.OutcomeExpired
	StatusRevoked  = scanmodels.OutcomeRevoked
	StatusNotFound = scanmodels.OutcomeNotFound
	StatusTampered = scanmodels.OutcomeTampered
)

var reasons = map[Status]string{
	StatusValid:    "certificate is authentic and active",
	StatusExpired:  "certificate has expired",
	StatusRevoked:  "certificate has been revoked",
	StatusNotFound: "no certificate matches this identifier",
	StatusTampered: "certificate record failed its integrity check",
}

// Reason is the human-readable explanation shown with a status.
func Reason(s Status) string {
	return reasons[s]
}

// Request is one verification submission.
type Request struct {
	Identifier string
	Location   string
}

// Result is returned for every outcome. Product and counter fields are only
// set when the outcome warrants disclosing them.
type Result struct {
	Status            Status
	Reason            string
	ProductName       string
	SerialNumber      string
	CertificateID     *id.CertificateID
	VerificationCount *int64
	VerifiedAt        time.Time
	ScanID            id.ScanID
}

// NormalizeIdentifier trims the input. An http(s) URL yields its cert or
// certificate_id query parameter, or "" when it carries neither.
func NormalizeIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	if v := strings.TrimSpace(q.Get("cert")); v != "" {
		return v
	}
	return strings.TrimSpace(q.Get("certificate_id"))
}
