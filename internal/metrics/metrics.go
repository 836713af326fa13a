// Package metrics содержит метрики Prometheus системы баллов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerOperations считает операции журнала по типу и исходу.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scoreledger",
	Name:      "ledger_operations_total",
	Help:      "Ledger operations by type and outcome.",
}, []string{"op", "outcome"})

// CompensationFailures считает неудачные компенсации переводов.
// Каждое срабатывание требует ручной сверки по correlation id.
var CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "scoreledger",
	Name:      "compensation_failures_total",
	Help:      "Transfer compensations that could not be applied.",
})

// PoolClaims считает выдачи долей красных конвертов по исходу.
var PoolClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scoreledger",
	Name:      "pool_claims_total",
	Help:      "Red envelope claims by outcome.",
}, []string{"outcome"})

// HTTPRequests считает HTTP-запросы по методу и коду ответа.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scoreledger",
	Name:      "http_requests_total",
	Help:      "HTTP requests by method and status code.",
}, []string{"method", "code"})
