package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Marketplace
	ListingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_created_total",
			Help: "Listings created",
		},
		[]string{"type"}, // FIXED|AUCTION
	)
	BidsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bids_total",
			Help: "Bids by outcome",
		},
		[]string{"outcome"}, // accepted|rejected
	)
	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Completed settlements",
		},
	)
	SettlementsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_failed_total",
			Help: "Settlements that failed the funds check",
		},
	)
	DisputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disputes_total",
			Help: "Disputes by outcome",
		},
		[]string{"outcome"}, // raised|REFUND|UPHOLD|REJECT
	)
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_sweep_runs_total",
			Help: "Expired-auction sweep invocations",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(ListingsCreated)
	prometheus.MustRegister(BidsTotal)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(SettlementsFailed)
	prometheus.MustRegister(DisputesTotal)
	prometheus.MustRegister(SweepRuns)
	prometheus.MustRegister(WorkerQueueDepth)
}
