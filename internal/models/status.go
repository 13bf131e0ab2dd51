package models

import (
	"fmt"
	"strings"
	"time"
)

// Resource types with configurable alert thresholds
const (
	ResourceCPU     = "cpu"
	ResourceMemory  = "memory"
	ResourceDisk    = "disk"
	ResourceNetwork = "network"
)

// IsValidResourceType checks whether the resource type has a known threshold key
func IsValidResourceType(resource string) bool {
	switch resource {
	case ResourceCPU, ResourceMemory, ResourceDisk, ResourceNetwork:
		return true
	}
	return false
}

// ServiceStatus is the reported health of a monitored service
type ServiceStatus string

const (
	ServiceStatusHealthy   ServiceStatus = "healthy"
	ServiceStatusDegraded  ServiceStatus = "degraded"
	ServiceStatusUnhealthy ServiceStatus = "unhealthy"
	ServiceStatusOffline   ServiceStatus = "offline"
)

// Severity places the status on the ordered scale
// healthy < degraded < unhealthy < offline. Unknown statuses rank below
// healthy so they never trigger a transition alert.
func (s ServiceStatus) Severity() int {
	switch s {
	case ServiceStatusHealthy:
		return 0
	case ServiceStatusDegraded:
		return 1
	case ServiceStatusUnhealthy:
		return 2
	case ServiceStatusOffline:
		return 3
	}
	return -1
}

// IsValid checks whether the status is one of the known states
func (s ServiceStatus) IsValid() bool {
	return s.Severity() >= 0
}

// ParseServiceStatus parses a case-insensitive status string
func ParseServiceStatus(s string) (ServiceStatus, error) {
	status := ServiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid service status: %q", s)
	}
	return status, nil
}

// NotificationStatus is the operational snapshot served by the status endpoint
type NotificationStatus struct {
	Enabled           bool                `json:"enabled"`
	Config            *NotificationConfig `json:"config"`
	TotalAlertsSent   int64               `json:"total_alerts_sent"`
	AlertsThisHour    int                 `json:"alerts_this_hour"`
	LastAlertTime     *time.Time          `json:"last_alert_time,omitempty"`
	CooldownActive    bool                `json:"cooldown_active"`
	CooldownRemaining float64             `json:"cooldown_remaining_seconds"`
}
