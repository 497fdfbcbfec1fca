package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HCDPAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilo_hcdp_api_calls_total",
			Help: "Total HCDP API calls",
		},
		[]string{"collection", "status"},
	)

	HCDPAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kilo_hcdp_api_latency_seconds",
			Help:    "HCDP API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	RecordsAggregated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilo_records_aggregated_total",
			Help: "Total station-day records produced by aggregation",
		},
		[]string{"island"},
	)

	ForecastsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kilo_forecasts_generated_total",
			Help: "Total rainfall forecasts generated",
		},
	)
)
