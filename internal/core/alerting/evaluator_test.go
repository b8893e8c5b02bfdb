package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func samplesAt(base time.Time, values ...float64) []MetricSample {
	samples := make([]MetricSample, 0, len(values))
	for i, v := range values {
		samples = append(samples, MetricSample{
			MetricType: "response_time",
			Value:      v,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	return samples
}

func TestEvaluateConditionOperators(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	max := 95.0

	tests := []struct {
		name  string
		cond  AlertCondition
		value float64
		want  bool
	}{
		{"greater_than breach", AlertCondition{Operator: OpGreaterThan, Threshold: 2000, DurationMinutes: 5}, 2001, true},
		{"greater_than at threshold", AlertCondition{Operator: OpGreaterThan, Threshold: 2000, DurationMinutes: 5}, 2000, false},
		{"less_than breach", AlertCondition{Operator: OpLessThan, Threshold: 10, DurationMinutes: 5}, 9, true},
		{"less_than at threshold", AlertCondition{Operator: OpLessThan, Threshold: 10, DurationMinutes: 5}, 10, false},
		{"equals match", AlertCondition{Operator: OpEquals, Threshold: 0, DurationMinutes: 5}, 0, true},
		{"equals mismatch", AlertCondition{Operator: OpEquals, Threshold: 0, DurationMinutes: 5}, 1, false},
		{"not_equals match", AlertCondition{Operator: OpNotEquals, Threshold: 0, DurationMinutes: 5}, 1, true},
		{"between inside", AlertCondition{Operator: OpBetween, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 92, true},
		{"between lower bound inclusive", AlertCondition{Operator: OpBetween, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 90, true},
		{"between upper bound inclusive", AlertCondition{Operator: OpBetween, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 95, true},
		{"between outside", AlertCondition{Operator: OpBetween, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 96, false},
		{"outside below", AlertCondition{Operator: OpOutside, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 89, true},
		{"outside above", AlertCondition{Operator: OpOutside, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 96, true},
		{"outside inside range", AlertCondition{Operator: OpOutside, Threshold: 90, ThresholdMax: &max, DurationMinutes: 5}, 92, false},
		{"unknown operator", AlertCondition{Operator: "bogus", Threshold: 1, DurationMinutes: 5}, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := []MetricSample{{Value: tt.value, Timestamp: now.Add(-time.Minute)}}
			got := EvaluateCondition(samples, tt.cond, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateConditionSustainedBreach(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cond := AlertCondition{
		Operator:                OpGreaterThan,
		Threshold:               2000,
		DurationMinutes:         2,
		EvaluationWindowMinutes: 5,
	}

	// Every sample in the trailing 2 minutes breaches.
	sustained := []MetricSample{
		{Value: 2100, Timestamp: now.Add(-90 * time.Second)},
		{Value: 2200, Timestamp: now.Add(-60 * time.Second)},
		{Value: 2300, Timestamp: now.Add(-30 * time.Second)},
	}
	assert.True(t, EvaluateCondition(sustained, cond, now))

	// One dip inside the sub-window defeats the breach.
	withDip := append([]MetricSample{}, sustained...)
	withDip = append(withDip, MetricSample{Value: 1500, Timestamp: now.Add(-45 * time.Second)})
	assert.False(t, EvaluateCondition(withDip, cond, now))

	// Samples outside the sub-window are ignored even when they dip.
	oldDip := append([]MetricSample{}, sustained...)
	oldDip = append(oldDip, MetricSample{Value: 100, Timestamp: now.Add(-4 * time.Minute)})
	assert.True(t, EvaluateCondition(oldDip, cond, now))
}

func TestEvaluateConditionEmptyWindowIsFalse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cond := AlertCondition{Operator: OpGreaterThan, Threshold: 2000, DurationMinutes: 2}

	// No samples at all.
	assert.False(t, EvaluateCondition(nil, cond, now))

	// Samples exist but all predate the sub-window.
	stale := samplesAt(now.Add(-time.Hour), 3000, 3000, 3000)
	assert.False(t, EvaluateCondition(stale, cond, now))
}

func TestEvaluateConditionIgnoresFutureSamples(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cond := AlertCondition{Operator: OpGreaterThan, Threshold: 2000, DurationMinutes: 2}

	samples := []MetricSample{
		{Value: 2500, Timestamp: now.Add(-time.Minute)},
		{Value: 100, Timestamp: now.Add(time.Minute)},
	}
	assert.True(t, EvaluateCondition(samples, cond, now))
}

func TestConditionValidate(t *testing.T) {
	max := 95.0
	bad := 80.0

	assert.NoError(t, AlertCondition{
		Operator: OpGreaterThan, Threshold: 1, DurationMinutes: 2, EvaluationWindowMinutes: 5,
	}.Validate())

	assert.Error(t, AlertCondition{
		Operator: OpBetween, Threshold: 90, DurationMinutes: 2, EvaluationWindowMinutes: 5,
	}.Validate(), "range operator without threshold_max")

	assert.Error(t, AlertCondition{
		Operator: OpBetween, Threshold: 90, ThresholdMax: &bad, DurationMinutes: 2, EvaluationWindowMinutes: 5,
	}.Validate(), "inverted range")

	assert.Error(t, AlertCondition{
		Operator: OpGreaterThan, Threshold: 1, DurationMinutes: 10, EvaluationWindowMinutes: 5,
	}.Validate(), "duration exceeds window")

	assert.NoError(t, AlertCondition{
		Operator: OpBetween, Threshold: 90, ThresholdMax: &max, DurationMinutes: 2, EvaluationWindowMinutes: 5,
	}.Validate())
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, Severity("bogus").AtLeast(SeverityLow))
}
