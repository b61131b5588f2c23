package apiclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "echobox",
			Name:      "gateway_requests_total",
			Help:      "Total number of requests sent to the message gateway",
		},
		[]string{"op", "status"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "echobox",
			Name:      "gateway_request_duration_seconds",
			Help:      "Message gateway request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)
)

func observe(op string, start time.Time, resp *http.Response, err error) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	gatewayRequestsTotal.WithLabelValues(op, status).Inc()
	gatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
