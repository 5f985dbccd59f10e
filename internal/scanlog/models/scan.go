package models

import (
	"time"
	"unicode/utf8"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// Outcome is the terminal result of one verification attempt.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeExpired  Outcome = "expired"
	OutcomeRevoked  Outcome = "revoked"
	OutcomeNotFound Outcome = "not_found"
	OutcomeTampered Outcome = "tampered"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{OutcomeValid, OutcomeExpired, OutcomeRevoked, OutcomeNotFound, OutcomeTampered}

func (o Outcome) IsValid() bool { return o == OutcomeValid }

func (o Outcome) String() string { return string(o) }

// ParseOutcome rejects anything outside the outcome taxonomy.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes {
		if string(o) == s {
			return o, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown outcome: "+s)
}

// MaxIdentifierLen bounds the stored raw identifier, in runes.
const MaxIdentifierLen = 256

// Device is the browser and platform parsed from a User-Agent.
type Device struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Mobile  bool   `json:"mobile"`
}

// Entry is what the verifier hands to the recorder.
type Entry struct {
	CertificateID *id.CertificateID
	ProductID     *id.ProductID
	OwnerID       *id.PrincipalID
	Identifier    string
	Outcome       Outcome
	ScannedAt     time.Time
	IPAddress     string
	UserAgent     string
	Location      string
}

// ScanLog is one append-only verification record.
type ScanLog struct {
	ID            id.ScanID
	CertificateID *id.CertificateID
	ProductID     *id.ProductID
	OwnerID       *id.PrincipalID
	Identifier    string
	Outcome       Outcome
	IsValid       bool
	ScannedAt     time.Time
	IPAddress     string
	UserAgent     string
	Device        Device
	Location      string
}

// NewScanLog builds a record from an entry. A certificate id requires the
// owning product and customer so tenant-scoped reads can find the row.
func NewScanLog(scanID id.ScanID, e Entry, device Device) (*ScanLog, error) {
	if scanID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scan id required")
	}
	if _, err := ParseOutcome(string(e.Outcome)); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, err.Error())
	}
	if e.ScannedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scanned_at required")
	}
	// Tampered certificates carry an untrusted product_id, so their scans may
	// stay unattributed.
	if e.CertificateID != nil && e.Outcome != OutcomeTampered && (e.ProductID == nil || e.OwnerID == nil) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate scans must carry product and owner")
	}
	return &ScanLog{
		ID:            scanID,
		CertificateID: e.CertificateID,
		ProductID:     e.ProductID,
		OwnerID:       e.OwnerID,
		Identifier:    truncate(e.Identifier, MaxIdentifierLen),
		Outcome:       e.Outcome,
		IsValid:       e.Outcome.IsValid(),
		ScannedAt:     e.ScannedAt.UTC().Truncate(time.Microsecond),
		IPAddress:     e.IPAddress,
		UserAgent:     truncate(e.UserAgent, 512),
		Device:        device,
		Location:      truncate(e.Location, 200),
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
