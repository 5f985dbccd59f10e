package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that change the authenticity record:
	// principals, product ownership, certificate issuance and revocation.
	// These are written synchronously and fail the operation on error.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: login failures, lockouts, tampered certificates.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the primary entity affected: a principal id, product id or
	// certificate id depending on the action.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// ActorID is the principal who performed the action, when different from Subject.
	ActorID   string
	IP        string
	RequestID string
	Severity  Severity
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type AuditEvent string

const (
	// Identity events
	EventPrincipalCreated     AuditEvent = "principal_created"
	EventPrincipalDeactivated AuditEvent = "principal_deactivated"
	EventLoginSucceeded       AuditEvent = "login_succeeded"
	EventAuthFailed           AuditEvent = "auth_failed"
	EventAuthLockoutTriggered AuditEvent = "auth_lockout_triggered"

	// Product events
	EventProductRegistered  AuditEvent = "product_registered"
	EventProductTransferred AuditEvent = "product_transferred"

	// Certificate events
	EventCertificateIssued  AuditEvent = "certificate_issued"
	EventCertificateRevoked AuditEvent = "certificate_revoked"
	EventCertificateExpired AuditEvent = "certificate_expired"

	// Verification events
	EventVerificationPerformed AuditEvent = "verification_performed"
	EventCertificateTampered   AuditEvent = "certificate_tampered"
	EventScanLogWriteFailed    AuditEvent = "scan_log_write_failed"
	EventScanLogQueried        AuditEvent = "scan_log_queried"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventPrincipalCreated:     CategoryCompliance,
	EventPrincipalDeactivated: CategoryCompliance,
	EventProductRegistered:    CategoryCompliance,
	EventProductTransferred:   CategoryCompliance,
	EventCertificateIssued:    CategoryCompliance,
	EventCertificateRevoked:   CategoryCompliance,
	EventCertificateExpired:   CategoryCompliance,

	EventAuthFailed:           CategorySecurity,
	EventAuthLockoutTriggered: CategorySecurity,
	EventCertificateTampered:  CategorySecurity,

	EventLoginSucceeded:        CategoryOperations,
	EventVerificationPerformed: CategoryOperations,
	EventScanLogWriteFailed:    CategoryOperations,
	EventScanLogQueried:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
