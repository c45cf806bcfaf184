package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_checkouts_created_total",
			Help: "Checkout sessions opened with a payment provider",
		},
		[]string{"provider", "intent"},
	)

	PaymentConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_payment_confirmations_total",
			Help: "Payment confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)

	CommissionsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_commissions_credited_total",
			Help: "Affiliate commissions credited to referrers",
		},
	)

	Payouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_payouts_total",
			Help: "Payout requests by resulting status",
		},
		[]string{"status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
