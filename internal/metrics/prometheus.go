// Package metrics records plan pipeline outcomes as Prometheus series.
package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shiva/tripplanner/internal/model"
)

// Outcome label values for tripplanner_plans_total.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Recorder implements the orchestrator's metrics sink.
type Recorder struct {
	plansTotal         *prometheus.CounterVec
	failuresTotal      *prometheus.CounterVec
	plansByCountry     *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	bestRouteCost      prometheus.Histogram
	validationWarnings prometheus.Counter
	invalidPlans       prometheus.Counter
	outliersTotal      *prometheus.CounterVec
	creditsTotal       prometheus.Counter
}

// NewRecorder registers the plan series on reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		plansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_plans_total",
			Help: "Plan requests by pipeline outcome",
		}, []string{"outcome"}),
		failuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_plan_failures_total",
			Help: "Failed plans by reason code",
		}, []string{"reason"}),
		plansByCountry: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_plans_by_country_total",
			Help: "Plans by resolved destination country and pipeline outcome",
		}, []string{"country", "outcome"}),
		generationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripplanner_generation_duration_seconds",
			Help:    "Time from claim to terminal status",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 120},
		}, []string{"outcome"}),
		bestRouteCost: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripplanner_best_route_cost",
			Help:    "Cheapest route total of completed plans",
			Buckets: prometheus.ExponentialBuckets(250, 2, 10),
		}),
		validationWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "tripplanner_validation_warnings_total",
			Help: "Price validation warnings emitted",
		}),
		invalidPlans: f.NewCounter(prometheus.CounterOpts{
			Name: "tripplanner_invalid_plans_total",
			Help: "Completed plans whose price report was not valid",
		}),
		outliersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_price_outliers_total",
			Help: "Price outliers by cost category",
		}, []string{"category"}),
		creditsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "tripplanner_credits_used_total",
			Help: "Generation credits charged",
		}),
	}
}

func (r *Recorder) PlanAccepted(country string) {
	defer r.guard("accepted")
	r.plansTotal.WithLabelValues(OutcomeAccepted).Inc()
	r.plansByCountry.WithLabelValues(countryLabel(country), OutcomeAccepted).Inc()
}

func (r *Recorder) PlanRejected(country string) {
	defer r.guard("rejected")
	r.plansTotal.WithLabelValues(OutcomeRejected).Inc()
	r.plansByCountry.WithLabelValues(countryLabel(country), OutcomeRejected).Inc()
}

func (r *Recorder) PlanCompleted(country string, elapsed time.Duration, bestCost float64, report model.ValidationReport, credits int) {
	defer r.guard("completed")
	r.plansTotal.WithLabelValues(OutcomeCompleted).Inc()
	r.plansByCountry.WithLabelValues(countryLabel(country), OutcomeCompleted).Inc()
	r.generationDuration.WithLabelValues(OutcomeCompleted).Observe(elapsed.Seconds())
	if bestCost > 0 {
		r.bestRouteCost.Observe(bestCost)
	}
	r.validationWarnings.Add(float64(len(report.Warnings)))
	if !report.IsValid {
		r.invalidPlans.Inc()
	}
	for _, o := range report.Outliers {
		r.outliersTotal.WithLabelValues(o.Category).Inc()
	}
	if credits > 0 {
		r.creditsTotal.Add(float64(credits))
	}
}

func (r *Recorder) PlanFailed(reason string, elapsed time.Duration) {
	defer r.guard("failed")
	r.plansTotal.WithLabelValues(OutcomeFailed).Inc()
	r.failuresTotal.WithLabelValues(reason).Inc()
	if elapsed > 0 {
		r.generationDuration.WithLabelValues(OutcomeFailed).Observe(elapsed.Seconds())
	}
}

// guard keeps a metrics fault from reaching the pipeline.
func (r *Recorder) guard(event string) {
	if rec := recover(); rec != nil {
		log.Printf("[metrics] %s: recovered: %v", event, rec)
	}
}

func countryLabel(country string) string {
	if country == "" {
		return "Unknown"
	}
	return country
}
