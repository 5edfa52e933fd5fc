package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is one named series with its current value
type Metric struct {
	Name      string                 `json:"name"`
	Type      MetricType             `json:"type"`
	Value     float64                `json:"value"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// MetricsCollector is an in-process metric store served as JSON from the
// /metrics endpoint. Histograms track count, sum, and running average only.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

// metricKey builds a stable series key; labels are sorted so the same label
// set always maps to the same series
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(".")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

// Inc increments a counter by one
func (mc *MetricsCollector) Inc(name string, labels map[string]string) {
	mc.Add(name, 1, labels)
}

// Add increments a counter by value
func (mc *MetricsCollector) Add(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now()
		return
	}
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeCounter,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Set overwrites a gauge
func (mc *MetricsCollector) Set(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics[metricKey(name, labels)] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Observe folds a sample into a histogram series. Value holds the running
// average; count and sum live in Extra.
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := mc.metrics[key]
	if !exists {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
			Extra: map[string]interface{}{
				"count": 1.0,
				"sum":   value,
			},
		}
		return
	}

	count, _ := metric.Extra["count"].(float64)
	sum, _ := metric.Extra["sum"].(float64)
	count++
	sum += value

	metric.Extra["count"] = count
	metric.Extra["sum"] = sum
	metric.Value = sum / count
	metric.Timestamp = time.Now()
}

// Get retrieves one series by name and labels
func (mc *MetricsCollector) Get(name string, labels map[string]string) (*Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, exists := mc.metrics[metricKey(name, labels)]
	return metric, exists
}

// GetAll returns a snapshot of every series
func (mc *MetricsCollector) GetAll() map[string]*Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*Metric, len(mc.metrics))
	for k, v := range mc.metrics {
		result[k] = v
	}
	return result
}

// Reset clears all series
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = make(map[string]*Metric)
}

// Standard metric names
const (
	// Chat metrics
	MetricChatRequests   = "chat_requests_total"
	MetricChatDuration   = "chat_request_duration_seconds"
	MetricChatAttempts   = "chat_upstream_attempts"
	MetricChatFallbacks  = "chat_fallbacks_total"
	MetricChatGenerative = "chat_generative_total"

	// Upstream LLM metrics
	MetricUpstreamRequests = "upstream_requests_total"
	MetricUpstreamDuration = "upstream_request_duration_seconds"
	MetricUpstreamErrors   = "upstream_errors_total"

	// Circuit breaker metrics
	MetricBreakerFailures = "breaker_failures"
	MetricBreakerOpens    = "breaker_opens_total"

	// Rate limit metrics
	MetricRateLimitHits = "ratelimit_rejections_total"

	// Database metrics
	MetricDBQueries  = "database_queries_total"
	MetricDBDuration = "database_query_duration_seconds"
	MetricDBErrors   = "database_errors_total"

	// Auth metrics
	MetricAuthAttempts      = "auth_attempts_total"
	MetricAuthSuccess       = "auth_success_total"
	MetricAuthFailure       = "auth_failure_total"
	MetricAuthTokensCreated = "auth_tokens_created_total"

	// HTTP metrics
	MetricHTTPRequests     = "http_requests_total"
	MetricHTTPDuration     = "http_request_duration_seconds"
	MetricHTTPErrors       = "http_errors_total"
	MetricHTTPResponseSize = "http_response_size_bytes"
)

// Global metrics collector instance
var globalMetrics = NewMetricsCollector()

// GetGlobalMetrics returns the global metrics collector
func GetGlobalMetrics() *MetricsCollector {
	return globalMetrics
}

// RecordChatMetrics records metrics for one chat gateway call
func RecordChatMetrics(duration time.Duration, mode string, attempts int) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"mode": mode}

	metrics.Inc(MetricChatRequests, labels)
	metrics.Observe(MetricChatDuration, duration.Seconds(), labels)

	if attempts > 0 {
		metrics.Observe(MetricChatAttempts, float64(attempts), nil)
	}

	if mode == "generative" {
		metrics.Inc(MetricChatGenerative, nil)
	} else {
		metrics.Inc(MetricChatFallbacks, labels)
	}
}

// RecordUpstreamMetrics records metrics for one raw upstream request
func RecordUpstreamMetrics(model string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"model": model}

	metrics.Inc(MetricUpstreamRequests, labels)
	metrics.Observe(MetricUpstreamDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricUpstreamErrors, labels)
	}
}

// RecordBreakerState tracks the failure counter and counts open transitions
func RecordBreakerState(failures int, opened bool) {
	metrics := GetGlobalMetrics()

	metrics.Set(MetricBreakerFailures, float64(failures), nil)
	if opened {
		metrics.Inc(MetricBreakerOpens, nil)
	}
}

// RecordRateLimitRejection counts a request turned away by the rate limiter
func RecordRateLimitRejection() {
	GetGlobalMetrics().Inc(MetricRateLimitHits, nil)
}

// RecordDBMetrics records metrics for database operations. Errors are counted
// per operation only; error text is unbounded and belongs in logs.
func RecordDBMetrics(operation string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricDBQueries, labels)
	metrics.Observe(MetricDBDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricDBErrors, labels)
	}
}

// RecordAuthMetrics records the outcome of an authentication attempt
func RecordAuthMetrics(success bool) {
	metrics := GetGlobalMetrics()

	metrics.Inc(MetricAuthAttempts, nil)
	if success {
		metrics.Inc(MetricAuthSuccess, nil)
		metrics.Inc(MetricAuthTokensCreated, nil)
	} else {
		metrics.Inc(MetricAuthFailure, nil)
	}
}

// RecordHTTPMetrics records metrics for HTTP requests
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration, responseSize int) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	metrics.Inc(MetricHTTPRequests, labels)
	metrics.Observe(MetricHTTPDuration, duration.Seconds(), labels)

	if statusCode >= 400 {
		metrics.Inc(MetricHTTPErrors, labels)
	}

	if responseSize > 0 {
		metrics.Observe(MetricHTTPResponseSize, float64(responseSize), labels)
	}
}
