package referral

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricNameSpace = "nftmarket"
)

var (
	capturedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "referral_captured_total",
			Help:      "referral codes captured from urls",
		},
	)
	registrationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "referral_registration_total",
			Help:      "referral registration calls by result",
		},
		[]string{"result"},
	)
	pendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "referral_pending",
			Help:      "1 if a referral code waits for registration",
		},
	)
)

func init() {
	prometheus.MustRegister(
		capturedCounter,
		registrationCounter,
		pendingGauge,
	)
}

func metricRegistration(err error) {
	if err != nil {
		registrationCounter.WithLabelValues("failed").Inc()
		return
	}
	registrationCounter.WithLabelValues("success").Inc()
}

func metricState(st State) {
	if st == StateIdle {
		pendingGauge.Set(0)
		return
	}
	pendingGauge.Set(1)
}
