// Package metrics defines the custom Prometheus metrics of the marketplace API.
// All collectors register with the default registry on package init and are
// exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nexus"

// ── Account metrics ───────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Labels:
//   - kind: the requested account kind as sent by the client, or "unknown"
//   - result: "created", "duplicate", "rejected" (verification/validation) or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by account kind and outcome.",
	},
	[]string{"kind", "result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "invalid_credentials"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts session tokens minted, by role.
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of session tokens issued, by account role.",
	},
	[]string{"role"},
)

// TokensRejectedTotal counts bearer tokens refused by the auth middleware.
// Label:
//   - reason: "missing", "malformed", "invalid", "expired" or "revoked"
var TokensRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_rejected_total",
		Help:      "Total number of bearer tokens rejected, by reason.",
	},
	[]string{"reason"},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// ListingsCreatedTotal counts newly posted listings, by kind (JOB or PRODUCT).
var ListingsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_created_total",
		Help:      "Total number of listings created, by kind.",
	},
	[]string{"kind"},
)

// ApplicationsTotal counts job application attempts.
// Label:
//   - result: "accepted", "already_applied", "not_eligible", "wrong_kind" or "error"
var ApplicationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_total",
		Help:      "Total number of job application attempts, by outcome.",
	},
	[]string{"result"},
)
