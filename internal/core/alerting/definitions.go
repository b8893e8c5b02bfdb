package alerting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions holds rule and policy configuration loaded from a YAML file.
type Definitions struct {
	Rules    []AlertRule        `yaml:"rules"`
	Policies []EscalationPolicy `yaml:"policies"`
}

// LoadDefinitions reads alert rules and escalation policies from a YAML file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions file: %w", err)
	}

	for i := range defs.Rules {
		if err := defs.Rules[i].Condition.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", defs.Rules[i].Name, err)
		}
	}
	return &defs, nil
}

// DefaultRules returns the built-in rules applied when no definitions file is
// configured.
func DefaultRules() []*AlertRule {
	maxMem := 95.0
	return []*AlertRule{
		{
			ID:         "high_response_time",
			Name:       "High Response Time",
			MetricType: "response_time",
			Condition: AlertCondition{
				Operator:                OpGreaterThan,
				Threshold:               2000,
				DurationMinutes:         2,
				EvaluationWindowMinutes: 5,
			},
			Severity: SeverityHigh,
			Enabled:  true,
		},
		{
			ID:         "high_cpu_usage",
			Name:       "High CPU Usage",
			MetricType: "cpu_usage",
			Condition: AlertCondition{
				Operator:                OpGreaterThan,
				Threshold:               85,
				DurationMinutes:         5,
				EvaluationWindowMinutes: 10,
			},
			Severity: SeverityMedium,
			Enabled:  true,
		},
		{
			ID:         "memory_pressure",
			Name:       "Memory Pressure",
			MetricType: "memory_usage",
			Condition: AlertCondition{
				Operator:                OpBetween,
				Threshold:               90,
				ThresholdMax:            &maxMem,
				DurationMinutes:         5,
				EvaluationWindowMinutes: 10,
			},
			Severity: SeverityHigh,
			Enabled:  true,
		},
		{
			ID:         "elevated_error_rate",
			Name:       "Elevated Error Rate",
			MetricType: "error_rate",
			Condition: AlertCondition{
				Operator:                OpGreaterThan,
				Threshold:               5,
				DurationMinutes:         3,
				EvaluationWindowMinutes: 10,
			},
			Severity: SeverityCritical,
			Enabled:  true,
		},
	}
}

// DefaultPolicies returns the built-in escalation policies applied when no
// definitions file is configured.
func DefaultPolicies() []*EscalationPolicy {
	return []*EscalationPolicy{
		{
			ID:         "critical_escalation",
			Name:       "Critical Escalation",
			Enabled:    true,
			Severities: []Severity{SeverityCritical},
			Levels: []EscalationLevel{
				{
					DelayMinutes: 0,
					Channels: []NotificationChannel{
						{Type: ChannelInApp, Enabled: true},
						{Type: ChannelEmail, Enabled: true},
					},
					Recipients: []string{"oncall@pulseboard.io"},
				},
				{
					DelayMinutes: 15,
					Channels: []NotificationChannel{
						{Type: ChannelSlack, Enabled: true},
						{Type: ChannelPagerDuty, Enabled: true},
					},
					Recipients: []string{"team-lead@pulseboard.io", "ops@pulseboard.io"},
					Conditions: []EscalationCondition{{Type: IfNotAcknowledged}},
				},
				{
					DelayMinutes: 30,
					Channels: []NotificationChannel{
						{Type: ChannelEmail, Enabled: true},
					},
					Recipients: []string{"cto@pulseboard.io", "vp-eng@pulseboard.io"},
					Conditions: []EscalationCondition{{Type: IfNotResolved}},
				},
			},
		},
		{
			ID:         "standard_escalation",
			Name:       "Standard Escalation",
			Enabled:    true,
			Severities: []Severity{SeverityHigh, SeverityMedium},
			Levels: []EscalationLevel{
				{
					DelayMinutes: 0,
					Channels: []NotificationChannel{
						{Type: ChannelInApp, Enabled: true},
					},
					Recipients: []string{"oncall@pulseboard.io"},
				},
				{
					DelayMinutes: 30,
					Channels: []NotificationChannel{
						{Type: ChannelSlack, Enabled: true},
					},
					Recipients: []string{"ops@pulseboard.io"},
					Conditions: []EscalationCondition{
						{Type: IfNotAcknowledged},
						{Type: IfSeverityAtLeast, Severity: SeverityHigh},
					},
				},
			},
		},
	}
}
