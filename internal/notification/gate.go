package notification

import (
	"sync"
	"time"

	"github.com/smartdevs17/notify-service/internal/models"
)

// Rejection reasons reported before dispatch
const (
	RejectReasonDisabled    = "disabled"
	RejectReasonCooldown    = "cooldown"
	RejectReasonRateLimited = "rate_limited"
)

// AlertGate enforces the cooldown and hourly rate limits that guard alert
// dispatch. The checks and the acceptance bookkeeping share one critical
// section so concurrent senders cannot slip past the limits.
type AlertGate struct {
	mu sync.Mutex

	lastAlertTime  *time.Time
	alertsThisHour int
	hourStart      time.Time

	now func() time.Time
}

// GateDecision reports the outcome of an admission check
type GateDecision struct {
	Allowed           bool
	Reason            string
	CooldownRemaining time.Duration
}

// GateStatus is a point-in-time snapshot of the gate state
type GateStatus struct {
	AlertsThisHour    int
	LastAlertTime     *time.Time
	CooldownActive    bool
	CooldownRemaining time.Duration
}

// NewAlertGate creates a new alert gate
func NewAlertGate() *AlertGate {
	return &AlertGate{now: time.Now}
}

// Admit runs both gates and, when the alert passes, records the acceptance
// side effects (last alert time, hour counter) before releasing the lock
func (g *AlertGate) Admit(config *models.NotificationConfig) GateDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollWindow(now)

	if g.lastAlertTime != nil {
		elapsed := now.Sub(*g.lastAlertTime)
		if cooldown := config.CooldownDuration(); elapsed < cooldown {
			return GateDecision{
				Reason:            RejectReasonCooldown,
				CooldownRemaining: cooldown - elapsed,
			}
		}
	}

	if g.alertsThisHour >= config.MaxAlertsPerHour {
		return GateDecision{Reason: RejectReasonRateLimited}
	}

	accepted := now
	g.lastAlertTime = &accepted
	g.alertsThisHour++

	return GateDecision{Allowed: true}
}

// rollWindow resets the hourly counter when the clock crosses into a new
// calendar hour
func (g *AlertGate) rollWindow(now time.Time) {
	hour := now.Truncate(time.Hour)
	if hour.After(g.hourStart) {
		g.hourStart = hour
		g.alertsThisHour = 0
	}
}

// Status returns a snapshot of the gate state
func (g *AlertGate) Status(config *models.NotificationConfig) GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollWindow(now)

	status := GateStatus{
		AlertsThisHour: g.alertsThisHour,
	}

	if g.lastAlertTime != nil {
		last := *g.lastAlertTime
		status.LastAlertTime = &last
		if remaining := config.CooldownDuration() - now.Sub(last); remaining > 0 {
			status.CooldownActive = true
			status.CooldownRemaining = remaining
		}
	}

	return status
}

// Reset clears the gate state
func (g *AlertGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastAlertTime = nil
	g.alertsThisHour = 0
	g.hourStart = time.Time{}
}
