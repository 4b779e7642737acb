package assist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assist_client",
			Name:      "calls_total",
			Help:      "Dispatched calls by outcome.",
		},
		[]string{"outcome"},
	)

	tokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assist_client",
			Name:      "tokens_total",
			Help:      "Total tokens billed across completed calls.",
		},
	)
)

const (
	outcomeOK      = "ok"
	outcomeDenied  = "denied"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

func observeCall(res *CallResult, err error) {
	switch {
	case err == nil:
		callsTotal.WithLabelValues(outcomeOK).Inc()
		if res != nil {
			tokensTotal.Add(float64(res.Tokens.Total))
		}
	case IsAdmissionDenied(err):
		callsTotal.WithLabelValues(outcomeDenied).Inc()
	case IsRequestTimeout(err):
		callsTotal.WithLabelValues(outcomeTimeout).Inc()
	default:
		callsTotal.WithLabelValues(outcomeError).Inc()
	}
}
