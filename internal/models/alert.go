package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertLevel defines the severity of an alert
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelError    AlertLevel = "error"
	AlertLevelCritical AlertLevel = "critical"
)

// IsValid checks whether the level is one of the known alert levels
func (l AlertLevel) IsValid() bool {
	switch l {
	case AlertLevelInfo, AlertLevelWarning, AlertLevelError, AlertLevelCritical:
		return true
	}
	return false
}

// ParseAlertLevel parses a case-insensitive level string
func ParseAlertLevel(s string) (AlertLevel, error) {
	level := AlertLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", fmt.Errorf("invalid alert level: %q", s)
	}
	return level, nil
}

// AlertMessage is the immutable record of one accepted alert dispatch.
// SentTo and FailedTo are filled in after channel fan-out, then the
// record is persisted once and never mutated.
type AlertMessage struct {
	ID             string                 `json:"id" db:"id"`
	Timestamp      time.Time              `json:"timestamp" db:"timestamp"`
	Level          AlertLevel             `json:"level" db:"level"`
	Title          string                 `json:"title" db:"title"`
	Message        string                 `json:"message" db:"message"`
	ServiceName    *string                `json:"service_name,omitempty" db:"service_name"`
	ResourceType   *string                `json:"resource_type,omitempty" db:"resource_type"`
	CurrentValue   *float64               `json:"current_value,omitempty" db:"current_value"`
	ThresholdValue *float64               `json:"threshold_value,omitempty" db:"threshold_value"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	SentTo         []string               `json:"sent_to" db:"sent_to"`
	FailedTo       []string               `json:"failed_to" db:"failed_to"`
}

// NotificationRequest is the input contract for a single alert
type NotificationRequest struct {
	Level          AlertLevel             `json:"level"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	ServiceName    *string                `json:"service_name,omitempty"`
	ResourceType   *string                `json:"resource_type,omitempty"`
	CurrentValue   *float64               `json:"current_value,omitempty"`
	ThresholdValue *float64               `json:"threshold_value,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the request fields
func (r *NotificationRequest) Validate() error {
	if !r.Level.IsValid() {
		return fmt.Errorf("invalid alert level: %q", r.Level)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("alert title is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("alert message is required")
	}
	return nil
}

// NewAlertMessage builds the persistent alert record for an accepted request
func NewAlertMessage(req *NotificationRequest) *AlertMessage {
	return &AlertMessage{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		Level:          req.Level,
		Title:          req.Title,
		Message:        req.Message,
		ServiceName:    req.ServiceName,
		ResourceType:   req.ResourceType,
		CurrentValue:   req.CurrentValue,
		ThresholdValue: req.ThresholdValue,
		Metadata:       req.Metadata,
		SentTo:         []string{},
		FailedTo:       []string{},
	}
}

// NotificationResponse reports the outcome of one dispatch attempt
type NotificationResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	SentTo    []string  `json:"sent_to"`
	FailedTo  []string  `json:"failed_to"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFilter describes history query criteria
type AlertFilter struct {
	Level       *AlertLevel `json:"level,omitempty"`
	ServiceName *string     `json:"service_name,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}
