package usecase

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
	"github.com/arklim/social-platform-authkit/internal/infra/telemetry"
)

// alertBuffer is the capacity of the dispatch channel. Ingestion never
// blocks on slow subscribers; overflowing alerts are kept in the log but
// dropped from dispatch.
const alertBuffer = 64

// AlertCallback receives raised alerts on the monitor's dispatch goroutine.
type AlertCallback func(domain.SecurityAlert)

// SecurityMonitor ingests security events, detects anomalous token activity
// against configured thresholds, and fans raised alerts out to subscribers.
type SecurityMonitor struct {
	cfg       config.SecuritySettings
	telemetry *telemetry.Provider
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	events    []domain.SecurityEvent
	alerts    []domain.SecurityAlert
	callbacks map[int]AlertCallback
	nextCB    int

	alertCh   chan domain.SecurityAlert
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSecurityMonitor constructs the monitor and starts its dispatch and
// sweep goroutines. Call Close to stop them.
func NewSecurityMonitor(cfg config.SecuritySettings, log *zap.Logger) *SecurityMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 1000
	}
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = 500
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.EventRetention <= 0 {
		cfg.EventRetention = 24 * time.Hour
	}

	m := &SecurityMonitor{
		cfg:       cfg,
		logger:    log,
		callbacks: make(map[int]AlertCallback),
		alertCh:   make(chan domain.SecurityAlert, alertBuffer),
		done:      make(chan struct{}),
	}
	m.now = func() time.Time { return time.Now().UTC() }

	m.wg.Add(2)
	go m.dispatchLoop()
	go m.sweepLoop()

	return m
}

// WithClock overrides the monitor clock for deterministic tests.
func (m *SecurityMonitor) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// WithTelemetry wires the metrics provider.
func (m *SecurityMonitor) WithTelemetry(provider *telemetry.Provider) *SecurityMonitor {
	m.telemetry = provider
	return m
}

// OnAlert registers a subscriber and returns its unsubscribe function.
// Callbacks run on the dispatch goroutine in registration order; a panicking
// callback is isolated and never disturbs the others.
func (m *SecurityMonitor) OnAlert(callback AlertCallback) func() {
	m.mu.Lock()
	id := m.nextCB
	m.nextCB++
	m.callbacks[id] = callback
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.callbacks, id)
		m.mu.Unlock()
	}
}

// LogSecurityEvent ingests one event, bounds the retained history, and runs
// the anomaly analyzers. It never blocks and never fails the caller.
func (m *SecurityMonitor) LogSecurityEvent(event domain.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	if len(m.events) > m.cfg.MaxEvents {
		m.events = m.events[len(m.events)-m.cfg.MaxEvents:]
	}
	raised := m.analyzeLocked(event)
	m.mu.Unlock()

	if m.telemetry != nil {
		m.telemetry.SecurityEvents.WithLabelValues(string(event.Type)).Inc()
	}

	for _, alert := range raised {
		m.publish(alert)
	}
}

// CheckTokenAge raises a low, auto-resolving alert when a token has been
// alive longer than the configured maximum. Called by the lifecycle manager
// around refreshes.
func (m *SecurityMonitor) CheckTokenAge(userID string, issuedAt time.Time) {
	maxAge := time.Duration(m.cfg.MaxTokenAgeHours) * time.Hour
	if maxAge <= 0 || m.now().Sub(issuedAt) <= maxAge {
		return
	}

	m.mu.Lock()
	alert := m.raiseLocked(domain.AlertLow, "old_token_detected", "Token exceeded its maximum allowed age", userID, "", false)
	m.mu.Unlock()
	m.publish(alert)
}

// DetectAnomalousActivity combines the per-user heuristics over their
// respective windows: hourly refresh rate, a short all-event burst, and
// recent validation failures. Any one of them firing raises a single medium
// alert and reports true.
func (m *SecurityMonitor) DetectAnomalousActivity(userID string) bool {
	now := m.now()

	m.mu.Lock()
	var reasons []string
	if m.cfg.MaxRefreshesPerHour > 0 &&
		m.countLocked(domain.EventTokenRefresh, userID, now.Add(-time.Hour)) > m.cfg.MaxRefreshesPerHour {
		reasons = append(reasons, "hourly refresh rate")
	}
	if m.cfg.BurstThreshold > 0 &&
		m.countUserLocked(userID, now.Add(-m.cfg.BurstWindow)) > m.cfg.BurstThreshold {
		reasons = append(reasons, "event burst")
	}
	if m.cfg.ValidationFailureThreshold > 0 &&
		m.countLocked(domain.EventTokenValidationFail, userID, now.Add(-m.cfg.ValidationFailureWindow)) > m.cfg.ValidationFailureThreshold {
		reasons = append(reasons, "validation failures")
	}
	if len(reasons) == 0 {
		m.mu.Unlock()
		return false
	}

	alert := m.raiseLocked(domain.AlertMedium, "anomalous_activity",
		"Anomalous account activity: "+strings.Join(reasons, ", "), userID, "", true)
	m.mu.Unlock()
	m.publish(alert)
	return true
}

// ActiveAlerts returns the unresolved alerts, newest last.
func (m *SecurityMonitor) ActiveAlerts() []domain.SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SecurityAlert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if !alert.AutoResolved {
			out = append(out, alert)
		}
	}
	return out
}

// ResolveAlert marks an alert resolved by id.
func (m *SecurityMonitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id && !m.alerts[i].AutoResolved {
			m.alerts[i].AutoResolved = true
			return true
		}
	}
	return false
}

// Metrics summarizes activity within the trailing timeframe; zero covers the
// whole retained history.
func (m *SecurityMonitor) Metrics(timeframe time.Duration) domain.SecurityMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metricsLocked(m.sinceFor(timeframe))
}

// Report assembles the security snapshot for diagnostics surfaces, limited to
// the trailing timeframe when one is given.
func (m *SecurityMonitor) Report(timeframe time.Duration) domain.SecurityReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	since := m.sinceFor(timeframe)
	events := make([]domain.SecurityEvent, 0, len(m.events))
	for _, event := range m.events {
		if event.Timestamp.After(since) {
			events = append(events, event)
		}
	}
	alerts := make([]domain.SecurityAlert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if alert.Timestamp.After(since) {
			alerts = append(alerts, alert)
		}
	}

	summary := m.metricsLocked(since)

	return domain.SecurityReport{
		Summary:         summary,
		Events:          events,
		Alerts:          alerts,
		Recommendations: recommendationsFor(summary),
		GeneratedAt:     m.now(),
	}
}

// Close stops the dispatch and sweep goroutines. Alerts still queued are
// delivered before the dispatcher exits.
func (m *SecurityMonitor) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *SecurityMonitor) sinceFor(timeframe time.Duration) time.Time {
	if timeframe <= 0 {
		return time.Time{}
	}
	return m.now().Add(-timeframe)
}

func (m *SecurityMonitor) metricsLocked(since time.Time) domain.SecurityMetrics {
	var metrics domain.SecurityMetrics

	var lifetimes time.Duration
	var lifetimeCount int
	for _, event := range m.events {
		if !event.Timestamp.After(since) {
			continue
		}
		metrics.TotalEvents++
		switch event.Type {
		case domain.EventTokenRefresh:
			metrics.TotalRefreshes++
			if raw, ok := event.Details["expires_at"].(string); ok {
				if expiresAt, err := time.Parse(time.RFC3339, raw); err == nil && expiresAt.After(event.Timestamp) {
					lifetimes += expiresAt.Sub(event.Timestamp)
					lifetimeCount++
				}
			}
		case domain.EventTokenValidationFail:
			metrics.FailedValidations++
		case domain.EventSuspiciousActivity:
			metrics.SuspiciousActivities++
		}
	}
	if lifetimeCount > 0 {
		metrics.AverageTokenLifetime = lifetimes / time.Duration(lifetimeCount)
	}

	for _, alert := range m.alerts {
		if !alert.AutoResolved {
			metrics.ActiveAlerts++
		}
	}

	return metrics
}

// analyzeLocked runs the threshold checks for the incoming event. Each check
// fires exactly when its count first crosses the threshold, so a sustained
// stream raises one alert per crossing, not one per event.
func (m *SecurityMonitor) analyzeLocked(event domain.SecurityEvent) []domain.SecurityAlert {
	var raised []domain.SecurityAlert
	now := event.Timestamp

	switch event.Type {
	case domain.EventTokenRefresh:
		hourly := m.countLocked(domain.EventTokenRefresh, event.UserID, now.Add(-time.Hour))
		if m.cfg.MaxRefreshesPerHour > 0 && hourly == m.cfg.MaxRefreshesPerHour+1 {
			raised = append(raised, m.raiseLocked(domain.AlertHigh, "excessive_token_refresh",
				"Token refresh rate exceeded the hourly limit", event.UserID, event.DeviceID, true))
		}

		rapid := m.countLocked(domain.EventTokenRefresh, event.UserID, now.Add(-m.cfg.RapidRefreshWindow))
		if m.cfg.RapidRefreshThreshold > 0 && rapid == m.cfg.RapidRefreshThreshold {
			raised = append(raised, m.raiseLocked(domain.AlertMedium, "rapid_token_refresh",
				"Multiple token refreshes within a short window", event.UserID, event.DeviceID, false))
		}

	case domain.EventTokenValidationFail:
		hourly := m.countLocked(domain.EventTokenValidationFail, event.UserID, now.Add(-time.Hour))
		if m.cfg.MaxFailedValidationsPerHour > 0 && hourly == m.cfg.MaxFailedValidationsPerHour+1 {
			raised = append(raised, m.raiseLocked(domain.AlertHigh, "excessive_validation_failures",
				"Failed token validations exceeded the hourly limit", event.UserID, event.DeviceID, true))
		}

	case domain.EventSuspiciousActivity:
		// Explicitly reported suspicion always escalates; only a human
		// resolves these.
		raised = append(raised, m.raiseLocked(domain.AlertCritical, "suspicious_activity",
			"Suspicious activity reported", event.UserID, event.DeviceID, true))
	}

	return raised
}

func (m *SecurityMonitor) countLocked(eventType domain.SecurityEventType, userID string, since time.Time) int {
	count := 0
	for _, event := range m.events {
		if event.Type == eventType && event.UserID == userID && event.Timestamp.After(since) {
			count++
		}
	}
	return count
}

func (m *SecurityMonitor) countUserLocked(userID string, since time.Time) int {
	count := 0
	for _, event := range m.events {
		if event.UserID == userID && event.Timestamp.After(since) {
			count++
		}
	}
	return count
}

func (m *SecurityMonitor) raiseLocked(level domain.AlertLevel, alertType, message, userID, deviceID string, actionRequired bool) domain.SecurityAlert {
	alert := domain.SecurityAlert{
		ID:             uuid.NewString(),
		Level:          level,
		Type:           alertType,
		Message:        message,
		Timestamp:      m.now(),
		UserID:         userID,
		DeviceID:       deviceID,
		ActionRequired: actionRequired,
	}

	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > m.cfg.MaxAlerts {
		m.alerts = m.alerts[len(m.alerts)-m.cfg.MaxAlerts:]
	}

	return alert
}

func (m *SecurityMonitor) publish(alert domain.SecurityAlert) {
	if m.telemetry != nil {
		m.telemetry.SecurityAlerts.WithLabelValues(string(alert.Level)).Inc()
	}
	m.logger.Warn("security alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("type", alert.Type),
		zap.String("level", string(alert.Level)),
	)

	select {
	case m.alertCh <- alert:
	default:
		m.logger.Warn("alert dispatch queue full, alert not delivered", zap.String("alert_id", alert.ID))
	}
}

func (m *SecurityMonitor) dispatchLoop() {
	defer m.wg.Done()

	for {
		select {
		case alert := <-m.alertCh:
			m.deliver(alert)
		case <-m.done:
			// Drain what was queued before shutdown.
			for {
				select {
				case alert := <-m.alertCh:
					m.deliver(alert)
				default:
					return
				}
			}
		}
	}
}

func (m *SecurityMonitor) deliver(alert domain.SecurityAlert) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.callbacks))
	for id := range m.callbacks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	callbacks := make([]AlertCallback, 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, m.callbacks[id])
	}
	m.mu.Unlock()

	for _, callback := range callbacks {
		m.invoke(callback, alert)
	}
}

func (m *SecurityMonitor) invoke(callback AlertCallback, alert domain.SecurityAlert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("alert callback panicked", zap.Any("panic", r), zap.String("alert_id", alert.ID))
		}
	}()
	callback(alert)
}

func (m *SecurityMonitor) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep prunes events past retention and auto-resolves stale low alerts.
// Exposed so tests and diagnostics can trigger it without waiting a tick.
func (m *SecurityMonitor) Sweep() {
	now := m.now()
	cutoff := now.Add(-m.cfg.EventRetention)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, event := range m.events {
		if event.Timestamp.After(cutoff) {
			kept = append(kept, event)
		}
	}
	m.events = kept

	if m.cfg.AutoResolveAfter <= 0 {
		return
	}
	for i := range m.alerts {
		alert := &m.alerts[i]
		if alert.AutoResolved || alert.Level != domain.AlertLow {
			continue
		}
		if now.Sub(alert.Timestamp) >= m.cfg.AutoResolveAfter {
			alert.AutoResolved = true
		}
	}
}

func recommendationsFor(summary domain.SecurityMetrics) []string {
	var out []string
	if summary.FailedValidations > 0 {
		out = append(out, "Review recent token validation failures for credential abuse.")
	}
	if summary.SuspiciousActivities > 0 || summary.ActiveAlerts > 0 {
		out = append(out, "Investigate open security alerts and consider rotating credentials.")
	}
	if summary.TotalRefreshes > 0 && summary.AverageTokenLifetime > 0 && summary.AverageTokenLifetime < 5*time.Minute {
		out = append(out, "Token lifetimes are unusually short; verify backend session policy.")
	}
	if len(out) == 0 {
		out = append(out, "No anomalies detected in the current window.")
	}
	return out
}
