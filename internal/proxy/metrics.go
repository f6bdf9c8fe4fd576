package proxy

import "github.com/prometheus/client_golang/prometheus"

var (
	proxyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Hosted model calls by final status code (or error)",
		},
		[]string{"service", "code"},
	)

	proxyRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "proxy",
			Name:      "retries_total",
			Help:      "Retried hosted model attempts",
		},
		[]string{"service"},
	)

	proxyCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "proxy",
			Name:      "cache_hits_total",
			Help:      "Instances answered from the prediction cache",
		},
		[]string{"service"},
	)
)

func init() {
	prometheus.MustRegister(proxyRequests, proxyRetries, proxyCacheHits)
}
