package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketOperations is the total number of ticket operations by result.
	TicketOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_operations_total",
			Help: "Total number of ticket operations",
		},
		[]string{"operation", "result"},
	)

	// TicketOperationDuration is the duration of ticket operations.
	TicketOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ticketing_operation_duration",
			Help: "Duration of ticket operations",
		},
		[]string{"operation"},
	)
)
