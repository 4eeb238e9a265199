package store

import (
	"context"
	"time"

	"homeauto/internal/models"
)

// Store is the durable rule/device store. It owns the rule definitions; the
// engine only reads them and writes back execution bookkeeping and mutated
// embedded rule arrays.
type Store interface {
	// GetEnabledRules returns every enabled automation rule document
	GetEnabledRules(ctx context.Context) ([]models.AutomationRule, error)
	// GetAutomatedDevices returns devices carrying at least one embedded
	// auto-behavior or schedule rule
	GetAutomatedDevices(ctx context.Context) ([]models.Device, error)
	// GetDevice fetches one device within a home
	GetDevice(ctx context.Context, homeID, deviceID string) (*models.Device, error)
	// UpdateLastExecuted records when a rule last fired
	UpdateLastExecuted(ctx context.Context, ruleID string, at time.Time) error
	// UpdateDeviceBehaviors replaces a device's embedded behavior rule array
	UpdateDeviceBehaviors(ctx context.Context, deviceID string, behaviors []models.BehaviorRule) error
	// UpdateDeviceSchedules replaces a device's embedded schedule rule array
	UpdateDeviceSchedules(ctx context.Context, deviceID string, schedules []models.ScheduleRule) error
}
