package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for logins and principal management.
type Metrics struct {
	LoginAttempts     *prometheus.CounterVec
	LockoutsTriggered prometheus.Counter
	PrincipalsCreated *prometheus.CounterVec
	AuthorizeFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_identity_login_attempts_total",
			Help: "Login attempts by role and result",
		}, []string{"role", "result"}), // result: "success", "invalid_credentials", "locked"

		LockoutsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_identity_lockouts_total",
			Help: "Number of times a username crossed the failed-login threshold",
		}),

		PrincipalsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_identity_principals_created_total",
			Help: "Principals registered by role",
		}, []string{"role"}),

		AuthorizeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_identity_authorize_failures_total",
			Help: "Rejected bearer tokens by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncrementLogin(role, result string) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(role, result).Inc()
	}
}

func (m *Metrics) IncrementLockout() {
	if m != nil {
		m.LockoutsTriggered.Inc()
	}
}

func (m *Metrics) IncrementPrincipalCreated(role string) {
	if m != nil {
		m.PrincipalsCreated.WithLabelValues(role).Inc()
	}
}

func (m *Metrics) IncrementAuthorizeFailure(code string) {
	if m != nil {
		m.AuthorizeFailures.WithLabelValues(code).Inc()
	}
}
