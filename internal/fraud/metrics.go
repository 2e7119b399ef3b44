package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_evaluations_total",
			Help: "Total number of check-in fraud evaluations by resulting risk level",
		},
		[]string{"risk_level"},
	)

	alertsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_alerts_generated_total",
			Help: "Total number of fraud alerts generated by type and severity",
		},
		[]string{"type", "severity"},
	)

	overallScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_overall_score",
			Help:    "Distribution of overall fraud scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func observeEvaluation(score *Score, alerts []*Alert) {
	evaluationsTotal.WithLabelValues(string(score.RiskLevel)).Inc()
	overallScoreHistogram.Observe(score.Overall)
	for _, alert := range alerts {
		alertsGeneratedTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
	}
}
