package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "tokens_issued_total", Help: "Number of token pairs issued, by trigger (login, register, refresh, switch_org)."},
		[]string{"trigger"},
	)
	RefreshResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "refresh_total", Help: "Refresh attempts by outcome (rotated, invalid, expired, org_revoked, error)."},
		[]string{"outcome"},
	)
	GuardDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "guard_denials_total", Help: "Requests rejected by a guard, by guard and reason."},
		[]string{"guard", "reason"},
	)
	SessionsRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "sessions_revoked_total", Help: "Sessions revoked, by trigger (logout, logout_all)."},
		[]string{"trigger"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "iam", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokensIssued)
	reg.MustRegister(RefreshResults)
	reg.MustRegister(GuardDenials)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
