// Package metrics provides observability for the webhook path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks webhook deliveries and their dispositions.
type Metrics struct {
	Received           *prometheus.CounterVec
	InvalidSignature   prometheus.Counter
	DuplicateDelivery  prometheus.Counter
	UnknownLoan        prometheus.Counter
	FieldChangeIgnored prometheus.Counter
}

// New creates a Metrics instance with all webhook metrics registered.
func New() *Metrics {
	return &Metrics{
		Received: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "losbridge_webhook_received_total",
			Help: "Total webhook deliveries accepted, by event type",
		}, []string{"event_type"}),
		InvalidSignature: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_webhook_invalid_signature_total",
			Help: "Total webhook deliveries rejected for a bad signature",
		}),
		DuplicateDelivery: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_webhook_duplicate_delivery_total",
			Help: "Total webhook deliveries skipped as already processed",
		}),
		UnknownLoan: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_webhook_unknown_loan_total",
			Help: "Total webhook deliveries referencing a loan with no local link",
		}),
		FieldChangeIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_webhook_field_change_ignored_total",
			Help: "Total field-change deliveries acknowledged without back-sync",
		}),
	}
}
