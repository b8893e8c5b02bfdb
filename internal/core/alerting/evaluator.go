package alerting

import "time"

// EvaluateCondition decides whether a rule's condition currently holds given
// all samples fetched for the evaluation window.
//
// Only the trailing duration sub-window is examined, and the condition holds
// only when every sample inside it individually breaches the threshold(s).
// An empty sub-window evaluates to false: missing data never fires an alert.
func EvaluateCondition(samples []MetricSample, cond AlertCondition, now time.Time) bool {
	cutoff := now.Add(-time.Duration(cond.DurationMinutes) * time.Minute)

	matched := 0
	for _, sample := range samples {
		if sample.Timestamp.Before(cutoff) || sample.Timestamp.After(now) {
			continue
		}
		if !satisfies(sample.Value, cond) {
			return false
		}
		matched++
	}

	return matched > 0
}

func satisfies(value float64, cond AlertCondition) bool {
	switch cond.Operator {
	case OpGreaterThan:
		return value > cond.Threshold
	case OpLessThan:
		return value < cond.Threshold
	case OpEquals:
		return value == cond.Threshold
	case OpNotEquals:
		return value != cond.Threshold
	case OpBetween:
		if cond.ThresholdMax == nil {
			return false
		}
		return value >= cond.Threshold && value <= *cond.ThresholdMax
	case OpOutside:
		if cond.ThresholdMax == nil {
			return false
		}
		return value < cond.Threshold || value > *cond.ThresholdMax
	default:
		return false
	}
}
