package common

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TxSubmitted counts write submissions per operation and outcome
	// ("ok", "reverted", "failed").
	TxSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inheritchain",
		Name:      "tx_submitted_total",
		Help:      "ledger write submissions",
	}, []string{"op", "status"})

	// TxReverted counts domain-rule reverts per reason.
	TxReverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inheritchain",
		Name:      "tx_reverted_total",
		Help:      "ledger write reverts by reason",
	}, []string{"reason"})

	// LivenessChecks counts monitor polls per result.
	LivenessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inheritchain",
		Name:      "liveness_checks_total",
		Help:      "liveness monitor polls",
	}, []string{"result"})
)

func NewMetricServer() {
	port := ":9000"
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			panic(err)
		}
	}()
}
