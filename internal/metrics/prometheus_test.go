package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/shiva/tripplanner/internal/model"
)

func TestRecorder_PlanLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.PlanAccepted("France")
	r.PlanAccepted("")
	r.PlanRejected("North Korea")
	r.PlanCompleted("France", 12*time.Second, 1800, model.ValidationReport{
		IsValid:  false,
		Warnings: []string{"a", "b"},
		Outliers: []model.Outlier{{RouteID: 3, Category: "totalCost"}},
	}, 3)
	r.PlanFailed("generation_timeout", 30*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.plansTotal.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansTotal.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansTotal.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansByCountry.WithLabelValues("Unknown", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansByCountry.WithLabelValues("France", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansByCountry.WithLabelValues("France", OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansByCountry.WithLabelValues("North Korea", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failuresTotal.WithLabelValues("generation_timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.validationWarnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.invalidPlans))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outliersTotal.WithLabelValues("totalCost")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.creditsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(r.generationDuration))
}

func TestRecorder_GuardRecovers(t *testing.T) {
	r := &Recorder{}
	assert.NotPanics(t, func() { r.PlanAccepted("France") })
}
