package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Broker-related Prometheus metrics. Defined in a standalone package to avoid
// import cycles between core services and HTTP packages.

var (
	IdentifierCollisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_identifier_collisions_total",
		Help: "Colisiones detectadas al generar identificadores, por kind",
	}, []string{"kind"})

	AliasesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_aliases_created_total",
		Help: "Aliases de email generados",
	})

	QuotaDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_alias_quota_denials_total",
		Help: "Creaciones de alias denegadas por cuota del plan",
	})

	AuthCodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_auth_codes_issued_total",
		Help: "Authorization codes emitidos",
	})

	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_access_tokens_issued_total",
		Help: "Access tokens emitidos",
	})

	GrantFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_grant_failures_total",
		Help: "Fallas de grant en el token endpoint, por razón OAuth",
	}, []string{"reason"})
)

// Register registers the broker metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		IdentifierCollisions,
		AliasesCreated,
		QuotaDenials,
		AuthCodesIssued,
		TokensIssued,
		GrantFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
