package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OfferingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offerings_created_total",
		Help: "Total number of token offerings issued",
	})

	OfferingsFundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offerings_funded_total",
		Help: "Total number of offerings fully funded",
	})

	RequestsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_requests_submitted_total",
		Help: "Total number of purchase requests submitted",
	})

	RequestsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_requests_failed_total",
		Help: "Total number of rejected purchase request operations",
	}, []string{"reason"})

	TokensAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokens_assigned_total",
		Help: "Total tokens assigned from primary issuance",
	})

	ListingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_created_total",
		Help: "Total number of resale listings created",
	})

	ListingsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_expired_total",
		Help: "Total number of listings expired by the sweep",
	})

	TransfersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "token_transfers_total",
		Help: "Total number of committed peer-to-peer transfers",
	})

	TransfersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_transfers_failed_total",
		Help: "Total number of rejected peer-to-peer transfers",
	}, []string{"reason"})

	TransferLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "token_transfer_latency_seconds",
		Help:    "Latency of the transfer transaction",
		Buckets: prometheus.DefBuckets,
	})

	TokenReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "token_reserve_latency_seconds",
		Help:    "Latency of availability reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
