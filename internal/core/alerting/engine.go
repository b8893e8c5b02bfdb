package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateActiveAlert is returned by AlertStore.Insert when an active
// alert for the same rule already exists. The store's uniqueness guarantee
// closes the check-then-insert race between overlapping evaluation ticks.
var ErrDuplicateActiveAlert = errors.New("active alert already exists for rule")

// MetricSource supplies time-stamped samples for a rule's scope.
type MetricSource interface {
	GetSamples(ctx context.Context, serviceName, metricType string, from, to time.Time) ([]MetricSample, error)
}

// AlertStore persists SystemAlert records. The persisted status is the
// authoritative source of truth so external acknowledge/resolve calls are
// immediately visible to the escalation loop.
type AlertStore interface {
	Insert(ctx context.Context, alert *SystemAlert) error
	Update(ctx context.Context, alert *SystemAlert) error
	GetByID(ctx context.Context, id string) (*SystemAlert, error)
	// GetActiveByType returns the current active alert for a rule, or
	// (nil, nil) when none exists.
	GetActiveByType(ctx context.Context, alertType string) (*SystemAlert, error)
	GetByStatus(ctx context.Context, status AlertStatus) ([]*SystemAlert, error)
	GetInRange(ctx context.Context, from, to time.Time) ([]*SystemAlert, error)
}

// Dispatcher sends a notification through one channel. Implementations must
// swallow provider failures into the returned error so one channel never
// blocks its siblings.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *SystemAlert, channel NotificationChannel, recipients []string) error
}

// Metric types that are sampled continuously; alerts on these are eligible
// for automatic resolution once the condition clears.
var autoResolveMetrics = map[string]bool{
	"response_time": true,
	"cpu_usage":     true,
	"memory_usage":  true,
	"error_rate":    true,
}

// Engine runs the rule evaluation and escalation loops and owns the rule,
// policy and incident registries.
type Engine struct {
	logger     *logrus.Logger
	clock      Clock
	store      AlertStore
	source     MetricSource
	dispatcher Dispatcher
	metrics    *engineMetrics

	mu        sync.RWMutex
	rules     map[string]*AlertRule
	policies  map[string]*EscalationPolicy
	incidents map[string]*IncidentContext

	running bool
	stopCh  chan struct{}

	onAlertCreated      []func(*SystemAlert)
	onAlertAcknowledged []func(*SystemAlert)
	onAlertResolved     []func(*SystemAlert)
}

// NewEngine creates an alerting engine with injected collaborators. Pass a
// dedicated prometheus registry in tests to avoid collector collisions.
func NewEngine(store AlertStore, source MetricSource, dispatcher Dispatcher, logger *logrus.Logger, reg prometheus.Registerer) *Engine {
	return &Engine{
		logger:     logger,
		clock:      SystemClock(),
		store:      store,
		source:     source,
		dispatcher: dispatcher,
		metrics:    newEngineMetrics(reg),
		rules:      make(map[string]*AlertRule),
		policies:   make(map[string]*EscalationPolicy),
		incidents:  make(map[string]*IncidentContext),
	}
}

// Start launches the evaluation and escalation loops. It re-seeds escalation
// for alerts that were still active when a previous process exited.
func (e *Engine) Start(evalInterval, escInterval time.Duration) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("alerting engine already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stop := e.stopCh
	e.mu.Unlock()

	if err := e.recoverIncidents(context.Background()); err != nil {
		e.logger.WithError(err).Warn("Failed to recover incidents for active alerts")
	}

	go e.runLoop(evalInterval, stop, e.evaluateRules)
	go e.runLoop(escInterval, stop, e.processEscalations)

	e.logger.WithFields(logrus.Fields{
		"evaluation_interval": evalInterval,
		"escalation_interval": escInterval,
	}).Info("Alerting engine started")
	return nil
}

// Stop halts both loops. In-flight iterations finish naturally.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	e.logger.Info("Alerting engine stopped")
}

func (e *Engine) runLoop(interval time.Duration, stop <-chan struct{}, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick(context.Background())
		}
	}
}

// evaluateRules runs one evaluation pass over all enabled rules. Per-rule
// failures are logged and never abort the pass for other rules.
func (e *Engine) evaluateRules(ctx context.Context) {
	e.mu.RLock()
	rules := make([]*AlertRule, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.Enabled {
			rules = append(rules, rule)
		}
	}
	e.mu.RUnlock()

	for _, rule := range rules {
		if err := e.evaluateRule(ctx, rule); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"rule_id":   rule.ID,
				"rule_name": rule.Name,
			}).Error("Rule evaluation failed")
		}
	}
}

func (e *Engine) evaluateRule(ctx context.Context, rule *AlertRule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule evaluation panicked: %v", r)
		}
	}()

	now := e.clock.Now()
	from := now.Add(-time.Duration(rule.Condition.EvaluationWindowMinutes) * time.Minute)

	samples, err := e.source.GetSamples(ctx, rule.ServiceName, rule.MetricType, from, now)
	if err != nil {
		return fmt.Errorf("failed to fetch samples: %w", err)
	}

	breached := EvaluateCondition(samples, rule.Condition, now)

	existing, err := e.store.GetActiveByType(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to look up active alert: %w", err)
	}

	if breached {
		if existing != nil {
			// Dedup: at most one active alert per rule.
			return nil
		}
		return e.createAlert(ctx, rule, samples, now)
	}

	if existing != nil && existing.AutoResolve {
		return e.autoResolveAlert(ctx, existing, now)
	}
	return nil
}

func (e *Engine) createAlert(ctx context.Context, rule *AlertRule, samples []MetricSample, now time.Time) error {
	latest := latestSample(samples)

	alert := &SystemAlert{
		ID:               uuid.New().String(),
		AlertType:        rule.ID,
		Severity:         rule.Severity,
		Title:            rule.Name,
		ServiceName:      rule.ServiceName,
		MetricType:       rule.MetricType,
		Status:           StatusActive,
		AutoResolve:      autoResolveMetrics[rule.MetricType],
		TriggerCondition: rule.Condition,
		Trend:            sampleTrend(samples),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if latest != nil {
		alert.CurrentValue = latest.Value
		alert.Description = fmt.Sprintf("%s: %s is %.2f%s (threshold %s %.2f)",
			rule.Name, rule.MetricType, latest.Value, unitSuffix(latest.Unit),
			rule.Condition.Operator, rule.Condition.Threshold)
	} else {
		alert.Description = rule.Description
	}

	if err := e.store.Insert(ctx, alert); err != nil {
		if errors.Is(err, ErrDuplicateActiveAlert) {
			e.logger.WithField("rule_id", rule.ID).Debug("Concurrent tick already created the alert")
			return nil
		}
		return fmt.Errorf("failed to persist alert: %w", err)
	}

	e.metrics.alertsCreated.WithLabelValues(string(alert.Severity)).Inc()
	e.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"rule_id":  rule.ID,
		"severity": alert.Severity,
		"value":    alert.CurrentValue,
	}).Warn("Alert created")

	e.seedIncidents(ctx, alert)

	e.mu.RLock()
	callbacks := append([]func(*SystemAlert){}, e.onAlertCreated...)
	e.mu.RUnlock()
	for _, cb := range callbacks {
		go cb(alert)
	}
	return nil
}

func (e *Engine) autoResolveAlert(ctx context.Context, alert *SystemAlert, now time.Time) error {
	alert.Status = StatusResolved
	alert.ResolvedBy = "system"
	alert.ResolvedAt = &now
	alert.UpdatedAt = now

	if err := e.store.Update(ctx, alert); err != nil {
		return fmt.Errorf("failed to auto-resolve alert: %w", err)
	}

	e.dropIncidentsForAlert(alert.ID)
	e.metrics.alertsResolved.WithLabelValues("system").Inc()
	e.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"rule_id":  alert.AlertType,
	}).Info("Alert auto-resolved, condition no longer met")

	e.mu.RLock()
	callbacks := append([]func(*SystemAlert){}, e.onAlertResolved...)
	e.mu.RUnlock()
	for _, cb := range callbacks {
		go cb(alert)
	}
	return nil
}

// AcknowledgeAlert marks an alert acknowledged and halts its escalation.
func (e *Engine) AcknowledgeAlert(ctx context.Context, id, user, notes string) error {
	alert, err := e.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch alert %s: %w", id, err)
	}
	if alert.Status.Terminal() {
		return fmt.Errorf("alert %s is already %s", id, alert.Status)
	}

	now := e.clock.Now()
	alert.Status = StatusAcknowledged
	alert.AcknowledgedBy = user
	alert.AcknowledgedAt = &now
	if notes != "" {
		alert.Notes = notes
	}
	alert.UpdatedAt = now

	if err := e.store.Update(ctx, alert); err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}

	e.dropIncidentsForAlert(alert.ID)
	e.logger.WithFields(logrus.Fields{
		"alert_id":        alert.ID,
		"acknowledged_by": user,
	}).Info("Alert acknowledged")

	e.mu.RLock()
	callbacks := append([]func(*SystemAlert){}, e.onAlertAcknowledged...)
	e.mu.RUnlock()
	for _, cb := range callbacks {
		go cb(alert)
	}
	return nil
}

// ResolveAlert marks an alert resolved and halts its escalation.
func (e *Engine) ResolveAlert(ctx context.Context, id, user, notes string) error {
	alert, err := e.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch alert %s: %w", id, err)
	}
	if alert.Status.Terminal() {
		return fmt.Errorf("alert %s is already %s", id, alert.Status)
	}

	now := e.clock.Now()
	alert.Status = StatusResolved
	alert.ResolvedBy = user
	alert.ResolvedAt = &now
	if notes != "" {
		alert.Notes = notes
	}
	alert.UpdatedAt = now

	if err := e.store.Update(ctx, alert); err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}

	e.dropIncidentsForAlert(alert.ID)
	e.metrics.alertsResolved.WithLabelValues("user").Inc()
	e.logger.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"resolved_by": user,
	}).Info("Alert resolved")

	e.mu.RLock()
	callbacks := append([]func(*SystemAlert){}, e.onAlertResolved...)
	e.mu.RUnlock()
	for _, cb := range callbacks {
		go cb(alert)
	}
	return nil
}

// DismissAlert closes an active alert without any condition check.
func (e *Engine) DismissAlert(ctx context.Context, id, user string) error {
	alert, err := e.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch alert %s: %w", id, err)
	}
	if alert.Status != StatusActive {
		return fmt.Errorf("alert %s is %s, only active alerts can be dismissed", id, alert.Status)
	}

	now := e.clock.Now()
	alert.Status = StatusDismissed
	alert.ResolvedBy = user
	alert.ResolvedAt = &now
	alert.UpdatedAt = now

	if err := e.store.Update(ctx, alert); err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}

	e.dropIncidentsForAlert(alert.ID)
	e.logger.WithFields(logrus.Fields{
		"alert_id":     alert.ID,
		"dismissed_by": user,
	}).Info("Alert dismissed")
	return nil
}

// GetActiveAlerts returns all currently active alerts.
func (e *Engine) GetActiveAlerts(ctx context.Context) ([]*SystemAlert, error) {
	return e.store.GetByStatus(ctx, StatusActive)
}

// AddAlertRule registers a rule. Rules without an ID get a generated one.
func (e *Engine) AddAlertRule(rule *AlertRule) error {
	if err := rule.Condition.Validate(); err != nil {
		return fmt.Errorf("invalid condition for rule %q: %w", rule.Name, err)
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"rule_name": rule.Name,
	}).Info("Alert rule added")
	return nil
}

// RemoveAlertRule deregisters a rule. Existing alerts are left untouched.
func (e *Engine) RemoveAlertRule(id string) error {
	e.mu.Lock()
	_, exists := e.rules[id]
	delete(e.rules, id)
	e.mu.Unlock()

	if !exists {
		return fmt.Errorf("alert rule %s not found", id)
	}
	e.logger.WithField("rule_id", id).Info("Alert rule removed")
	return nil
}

// GetAlertRules returns a snapshot of all registered rules.
func (e *Engine) GetAlertRules() []*AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*AlertRule, 0, len(e.rules))
	for _, rule := range e.rules {
		rules = append(rules, rule)
	}
	return rules
}

// AddEscalationPolicy registers a policy. Level indices are normalized to
// their position; level 0 is executed immediately on alert creation.
func (e *Engine) AddEscalationPolicy(policy *EscalationPolicy) error {
	if len(policy.Levels) == 0 {
		return fmt.Errorf("escalation policy %q has no levels", policy.Name)
	}
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	for i := range policy.Levels {
		policy.Levels[i].Level = i
	}
	policy.Levels[0].DelayMinutes = 0

	e.mu.Lock()
	e.policies[policy.ID] = policy
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"policy_id":   policy.ID,
		"policy_name": policy.Name,
		"levels":      len(policy.Levels),
	}).Info("Escalation policy added")
	return nil
}

// RemoveEscalationPolicy deregisters a policy and drops its incidents.
func (e *Engine) RemoveEscalationPolicy(id string) error {
	e.mu.Lock()
	_, exists := e.policies[id]
	delete(e.policies, id)
	for incID, inc := range e.incidents {
		if inc.PolicyID == id {
			delete(e.incidents, incID)
		}
	}
	e.metrics.activeIncidents.Set(float64(len(e.incidents)))
	e.mu.Unlock()

	if !exists {
		return fmt.Errorf("escalation policy %s not found", id)
	}
	e.logger.WithField("policy_id", id).Info("Escalation policy removed")
	return nil
}

// GetEscalationPolicies returns a snapshot of all registered policies.
func (e *Engine) GetEscalationPolicies() []*EscalationPolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]*EscalationPolicy, 0, len(e.policies))
	for _, policy := range e.policies {
		policies = append(policies, policy)
	}
	return policies
}

// EngineStatus summarizes the engine's runtime state.
type EngineStatus struct {
	Running         bool `json:"running"`
	RuleCount       int  `json:"rule_count"`
	EnabledRules    int  `json:"enabled_rules"`
	PolicyCount     int  `json:"policy_count"`
	ActiveIncidents int  `json:"active_incidents"`
}

// GetStatus returns the engine's runtime state.
func (e *Engine) GetStatus() EngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	enabled := 0
	for _, rule := range e.rules {
		if rule.Enabled {
			enabled++
		}
	}
	return EngineStatus{
		Running:         e.running,
		RuleCount:       len(e.rules),
		EnabledRules:    enabled,
		PolicyCount:     len(e.policies),
		ActiveIncidents: len(e.incidents),
	}
}

// OnAlertCreated registers a callback invoked when an alert is created.
func (e *Engine) OnAlertCreated(cb func(*SystemAlert)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAlertCreated = append(e.onAlertCreated, cb)
}

// OnAlertAcknowledged registers a callback invoked when an alert is acknowledged.
func (e *Engine) OnAlertAcknowledged(cb func(*SystemAlert)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAlertAcknowledged = append(e.onAlertAcknowledged, cb)
}

// OnAlertResolved registers a callback invoked when an alert is resolved.
func (e *Engine) OnAlertResolved(cb func(*SystemAlert)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAlertResolved = append(e.onAlertResolved, cb)
}

func latestSample(samples []MetricSample) *MetricSample {
	var latest *MetricSample
	for i := range samples {
		if latest == nil || samples[i].Timestamp.After(latest.Timestamp) {
			latest = &samples[i]
		}
	}
	return latest
}

// sampleTrend compares the newest sample against the oldest one in the window.
func sampleTrend(samples []MetricSample) string {
	if len(samples) < 2 {
		return "stable"
	}
	oldest, newest := &samples[0], &samples[0]
	for i := range samples {
		if samples[i].Timestamp.Before(oldest.Timestamp) {
			oldest = &samples[i]
		}
		if samples[i].Timestamp.After(newest.Timestamp) {
			newest = &samples[i]
		}
	}
	switch {
	case newest.Value > oldest.Value:
		return "rising"
	case newest.Value < oldest.Value:
		return "falling"
	default:
		return "stable"
	}
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
