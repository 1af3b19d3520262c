package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	AgentCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_call_latency_ms",
			Help:    "Generation service call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	DBSlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	RuleMatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_match_count",
			Help: "Rule evaluation outcomes by rule type",
		},
		[]string{"rule_type", "outcome"}, // outcome: matched, no_match, error, integrity
	)

	GateDecisionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decision_count",
			Help: "Action gate decisions",
		},
		[]string{"decision"},
	)

	DraftResultCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_result_count",
			Help: "Knowledge draft outcomes",
		},
		[]string{"status"}, // status: success, failed
	)

	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of emails processed",
		},
		[]string{"status"}, // status: matched, unmatched, failed
	)
)

// RecordMQConsumeLatency records MQ consume latency.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordAgentCallLatency records generation service latency.
func RecordAgentCallLatency(endpoint, status string, duration time.Duration) {
	AgentCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts one slow query.
func IncrementSlowQuery() {
	DBSlowQueryCount.Inc()
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementRuleMatch counts one rule evaluation outcome.
func IncrementRuleMatch(ruleType, outcome string) {
	RuleMatchCount.WithLabelValues(ruleType, outcome).Inc()
}

// IncrementGateDecision counts one gate decision.
func IncrementGateDecision(decision string) {
	GateDecisionCount.WithLabelValues(decision).Inc()
}

// IncrementDraftResult counts one draft outcome.
func IncrementDraftResult(status string) {
	DraftResultCount.WithLabelValues(status).Inc()
}

// IncrementEmailProcessed counts one processed email.
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}
