package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"homeauto/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against the store database
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// GetEnabledRules fetches all enabled automation rules
func (s *PostgresStore) GetEnabledRules(ctx context.Context) ([]models.AutomationRule, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, home_id, enabled, rule_type, condition, schedule, actions, last_executed_at FROM automation_rules WHERE enabled = true")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AutomationRule
	for rows.Next() {
		var (
			r            models.AutomationRule
			conditionRaw []byte
			scheduleRaw  []byte
			actionsRaw   []byte
		)
		if err := rows.Scan(&r.ID, &r.HomeID, &r.Enabled, &r.Type, &conditionRaw, &scheduleRaw, &actionsRaw, &r.LastExecutedAt); err != nil {
			return nil, err
		}
		if len(conditionRaw) > 0 {
			var c models.Condition
			if err := json.Unmarshal(conditionRaw, &c); err != nil {
				return nil, err
			}
			r.Condition = &c
		}
		if len(scheduleRaw) > 0 {
			var sch models.Schedule
			if err := json.Unmarshal(scheduleRaw, &sch); err != nil {
				return nil, err
			}
			r.Schedule = &sch
		}
		if len(actionsRaw) > 0 {
			if err := json.Unmarshal(actionsRaw, &r.Actions); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAutomatedDevices fetches devices with non-empty embedded rule arrays
func (s *PostgresStore) GetAutomatedDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT device_id, home_id, name, auto_behaviors, schedule_rules FROM devices WHERE jsonb_array_length(auto_behaviors) > 0 OR jsonb_array_length(schedule_rules) > 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDevice fetches one device within a home
func (s *PostgresStore) GetDevice(ctx context.Context, homeID, deviceID string) (*models.Device, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT device_id, home_id, name, auto_behaviors, schedule_rules FROM devices WHERE device_id = $1 AND home_id = $2", deviceID, homeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, models.ErrNotFound
	}
	d, err := scanDevice(rows)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDevice(rows pgx.Rows) (models.Device, error) {
	var (
		d            models.Device
		behaviorsRaw []byte
		schedulesRaw []byte
	)
	if err := rows.Scan(&d.ID, &d.HomeID, &d.Name, &behaviorsRaw, &schedulesRaw); err != nil {
		return models.Device{}, err
	}
	if len(behaviorsRaw) > 0 {
		if err := json.Unmarshal(behaviorsRaw, &d.AutoBehaviors); err != nil {
			return models.Device{}, err
		}
	}
	if len(schedulesRaw) > 0 {
		if err := json.Unmarshal(schedulesRaw, &d.ScheduleRules); err != nil {
			return models.Device{}, err
		}
	}
	return d, nil
}

// UpdateLastExecuted records when a rule last fired
func (s *PostgresStore) UpdateLastExecuted(ctx context.Context, ruleID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, "UPDATE automation_rules SET last_executed_at = $1 WHERE id = $2", at, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateDeviceBehaviors replaces a device's embedded behavior rule array
func (s *PostgresStore) UpdateDeviceBehaviors(ctx context.Context, deviceID string, behaviors []models.BehaviorRule) error {
	raw, err := json.Marshal(behaviors)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "UPDATE devices SET auto_behaviors = $1 WHERE device_id = $2", raw, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateDeviceSchedules replaces a device's embedded schedule rule array
func (s *PostgresStore) UpdateDeviceSchedules(ctx context.Context, deviceID string, schedules []models.ScheduleRule) error {
	raw, err := json.Marshal(schedules)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "UPDATE devices SET schedule_rules = $1 WHERE device_id = $2", raw, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-row condition from either the
// driver or the store's own sentinel
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, models.ErrNotFound)
}
