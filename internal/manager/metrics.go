package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Name:      "predictions_total",
			Help:      "Prediction calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	predictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictd",
			Name:      "prediction_duration_seconds",
			Help:      "Prediction call latency including admission wait",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	instancesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Name:      "instances_total",
			Help:      "Instances scored successfully",
		},
		[]string{"service"},
	)
)

func init() {
	prometheus.MustRegister(predictionsTotal, predictionDuration, instancesTotal)
}
