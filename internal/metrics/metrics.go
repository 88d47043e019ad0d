package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greengrid_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greengrid_http_request_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greengrid_predictions_total",
			Help: "Total load predictions served, by formula and risk tier",
		},
		[]string{"formula", "risk"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greengrid_validation_failures_total",
			Help: "Total requests rejected at the boundary, by field",
		},
		[]string{"field"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greengrid_notifications_total",
			Help: "Total simulated customer notifications, by risk tier",
		},
		[]string{"risk"},
	)

	HistoryRecordsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "greengrid_history_records_loaded",
			Help: "Number of historical records held by the dataset provider",
		},
	)

	HistoryLoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "greengrid_history_load_errors_total",
			Help: "Total failed attempts to load the historical dataset",
		},
	)
)
