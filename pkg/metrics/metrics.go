package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoutingMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_messages_total",
			Help: "Total number of envelopes processed by the routing service (count)",
		},
		[]string{"status"},
	)

	RoutingEvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routing_evaluation_duration_ms",
			Help:    "Rule chain evaluation duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	RoutingActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "routing_active_rules",
			Help: "Number of active routing rules (count)",
		},
	)

	RoutingRuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_rule_evaluations_total",
			Help: "Total number of routing rule evaluations (count)",
		},
		[]string{"rule_id", "rule_name", "result"},
	)

	RoutingActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_actions_total",
			Help: "Total number of routing actions applied (count)",
		},
		[]string{"action", "status"},
	)

	DispatchInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_invocations_total",
			Help: "Total number of asset-change dispatch invocations (count)",
		},
		[]string{"status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_ms",
			Help:    "End-to-end dispatch duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of per-tenant webhook delivery attempts (count)",
		},
		[]string{"status"},
	)

	WebhookDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_ms",
			Help:    "Webhook delivery duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	BusPublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publishes_total",
			Help: "Total number of internal bus publishes after delivery (count)",
		},
		[]string{"status"},
	)

	TenantCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_cache_requests_total",
			Help: "Total number of tenant cache lookups (count)",
		},
		[]string{"result"},
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests to upstream asset sources (count)",
		},
		[]string{"source", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_ms",
			Help:    "Upstream request duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"source"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterRoutingMetrics() {
	prometheus.MustRegister(RoutingMessagesTotal)
	prometheus.MustRegister(RoutingEvaluationDuration)
	prometheus.MustRegister(RoutingActiveRules)
	prometheus.MustRegister(RoutingRuleEvaluationsTotal)
	prometheus.MustRegister(RoutingActionsTotal)
}

func RegisterDispatchMetrics() {
	prometheus.MustRegister(DispatchInvocationsTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(WebhookDeliveriesTotal)
	prometheus.MustRegister(WebhookDeliveryDuration)
	prometheus.MustRegister(BusPublishesTotal)
	prometheus.MustRegister(TenantCacheRequestsTotal)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObserveRoutingDuration(duration time.Duration, status string) {
	RoutingEvaluationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveDispatchDuration(duration time.Duration, status string) {
	DispatchDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveWebhookDuration(duration time.Duration, status string) {
	WebhookDeliveryDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveUpstreamDuration(source string, duration time.Duration) {
	UpstreamRequestDuration.WithLabelValues(source).Observe(float64(duration.Milliseconds()))
}

func SetRoutingActiveRules(count int) {
	RoutingActiveRules.Set(float64(count))
}

func IncRoutingRuleEvaluation(ruleID, ruleName, result string) {
	RoutingRuleEvaluationsTotal.WithLabelValues(ruleID, ruleName, result).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
