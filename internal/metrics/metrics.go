package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	RefreshSucceeded = "succeeded"
	RefreshFailed    = "failed"
	RefreshReused    = "reused"
)

var (
	registerOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_client_requests_total",
			Help: "Total number of backend requests by response status class",
		},
		[]string{"status_class"},
	)

	tokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_client_token_refresh_total",
			Help: "Total number of access token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	devRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_dev_requests_total",
			Help: "Requests served by the development backend by route and status class",
		},
		[]string{"method", "route", "status_class"},
	)

	sessionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_client_session_operations_total",
			Help: "Total number of session lifecycle operations",
		},
		[]string{"operation", "status"},
	)
)

// Register adds the client collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, tokenRefreshTotal, sessionOperationsTotal, devRequestsTotal)
	})
}

// ObserveRequest counts a completed request. A zero status counts as a transport error.
func ObserveRequest(status int) {
	Register()
	requestsTotal.WithLabelValues(statusClass(status)).Inc()
}

// ObserveServedRequest counts a request handled by the development backend.
// route is the matched pattern, not the raw path.
func ObserveServedRequest(method, route string, status int) {
	Register()
	if route == "" {
		route = "unmatched"
	}
	devRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
}

// ObserveRefresh counts a refresh attempt outcome.
func ObserveRefresh(outcome string) {
	Register()
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}

// ObserveSessionOperation counts a session lifecycle operation.
func ObserveSessionOperation(operation string, err error) {
	Register()
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	sessionOperationsTotal.WithLabelValues(operation, status).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
