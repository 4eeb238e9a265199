package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleType distinguishes the two automation rule flavors
type RuleType string

const (
	RuleTypeTimeBased      RuleType = "time_based"
	RuleTypeConditionBased RuleType = "condition_based"
)

// ValueType tags a condition's expected value
type ValueType string

const (
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueString  ValueType = "string"
)

// Operator names for condition evaluation
const (
	OpGT       = "gt"
	OpGTE      = "gte"
	OpLT       = "lt"
	OpLTE      = "lte"
	OpEQ       = "eq"
	OpNEQ      = "neq"
	OpContains = "contains"
)

// Value is a closed tagged value: number, boolean, string, or structured JSON.
// Decoding validates the payload against the tag instead of keeping an opaque blob.
type Value struct {
	Type   ValueType
	Number float64
	Bool   bool
	Str    string
	Raw    json.RawMessage
}

// Num builds a number value
func Num(f float64) Value { return Value{Type: ValueNumber, Number: f} }

// Boolean builds a boolean value
func Boolean(b bool) Value { return Value{Type: ValueBoolean, Bool: b} }

// Str builds a string value
func Str(s string) Value { return Value{Type: ValueString, Str: s} }

// UnmarshalJSON decodes a JSON scalar into a tagged Value; objects and arrays
// are kept as structured raw JSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch p := probe.(type) {
	case float64:
		v.Type = ValueNumber
		v.Number = p
	case bool:
		v.Type = ValueBoolean
		v.Bool = p
	case string:
		v.Type = ValueString
		v.Str = p
	default:
		v.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// MarshalJSON emits the underlying scalar or raw payload
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueNumber:
		return json.Marshal(v.Number)
	case ValueBoolean:
		return json.Marshal(v.Bool)
	case ValueString:
		return json.Marshal(v.Str)
	}
	if len(v.Raw) > 0 {
		return v.Raw, nil
	}
	return []byte("null"), nil
}

// Validate checks the tag matches the expected type
func (v Value) Validate(want ValueType) error {
	if v.Type != want {
		return fmt.Errorf("%w: expected %s value, got %s", ErrValidation, want, v.Type)
	}
	return nil
}

// Condition is the single condition carried by a condition-based rule
type Condition struct {
	SensorID  string    `json:"sensor_id"`
	Field     string    `json:"field"`
	ValueType ValueType `json:"value_type"`
	Operator  string    `json:"operator"`
	Expected  Value     `json:"expected_value"`
}

// Schedule carries the cron-like fields of a time-based rule.
// Each field defaults to wildcard when empty.
type Schedule struct {
	Second     string `json:"second,omitempty"`
	Minute     string `json:"minute,omitempty"`
	Hour       string `json:"hour,omitempty"`
	DayOfMonth string `json:"day_of_month,omitempty"`
	Month      string `json:"month,omitempty"`
	DayOfWeek  string `json:"day_of_week,omitempty"`
}

// Action is one command step in a device-embedded rule's ordered action list
type Action struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RuleAction is one command step in an automation rule document; unlike the
// embedded shape it names its own target device.
type RuleAction struct {
	DeviceID   string `json:"device_id"`
	Command    string `json:"command"`
	Parameters Value  `json:"parameters"`
}

// Text renders a value as the string carried in a command payload
func (v Value) Text() string {
	switch v.Type {
	case ValueNumber:
		raw, _ := json.Marshal(v.Number)
		return string(raw)
	case ValueBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueString:
		return v.Str
	}
	return string(v.Raw)
}

// AutomationRule is the durably stored rule document. The engine reads it and
// writes back LastExecutedAt; everything else is owned by the external API.
type AutomationRule struct {
	ID             string     `json:"id"`
	HomeID         string     `json:"home_id"`
	Enabled        bool       `json:"enabled"`
	Type           RuleType   `json:"rule_type"`
	Condition      *Condition   `json:"condition,omitempty"`
	Schedule       *Schedule    `json:"schedule,omitempty"`
	Actions        []RuleAction `json:"actions"`
	LastExecutedAt *time.Time   `json:"last_executed_at,omitempty"`
}

// Validate enforces the condition-xor-schedule invariant
func (r AutomationRule) Validate() error {
	switch r.Type {
	case RuleTypeConditionBased:
		if r.Condition == nil || r.Schedule != nil {
			return fmt.Errorf("%w: condition_based rule %s must carry a condition and no schedule", ErrValidation, r.ID)
		}
	case RuleTypeTimeBased:
		if r.Schedule == nil || r.Condition != nil {
			return fmt.Errorf("%w: time_based rule %s must carry a schedule and no condition", ErrValidation, r.ID)
		}
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrValidation, r.Type)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: rule %s has no actions", ErrValidation, r.ID)
	}
	return nil
}

// Range is an inclusive value range; a nil bound is unbounded on that side
type Range struct {
	GE *float64 `json:"ge,omitempty"`
	LE *float64 `json:"le,omitempty"`
}

// Contains reports whether v falls within the range, bounds inclusive
func (r Range) Contains(v float64) bool {
	if r.GE != nil && v < *r.GE {
		return false
	}
	if r.LE != nil && v > *r.LE {
		return false
	}
	return true
}

// BehaviorRule is a device-embedded auto-behavior rule
type BehaviorRule struct {
	DeviceName string   `json:"name"`
	Measure    string   `json:"measure"`
	Range      Range    `json:"range"`
	Actions    []Action `json:"action"`
}

// Validate requires at least one range bound and a non-empty action list
func (b BehaviorRule) Validate() error {
	if b.Range.GE == nil && b.Range.LE == nil {
		return fmt.Errorf("%w: behavior rule for %s needs at least one range bound", ErrValidation, b.DeviceName)
	}
	if len(b.Actions) == 0 {
		return fmt.Errorf("%w: behavior rule for %s has no actions", ErrValidation, b.DeviceName)
	}
	return nil
}

// ScheduleRule is a device-embedded schedule rule with a constrained
// 5-field cron expression (each field literal * or a single integer)
type ScheduleRule struct {
	DeviceName     string   `json:"name"`
	CronExpression string   `json:"cronExpression"`
	Actions        []Action `json:"action"`
}

// Device is the slice of the device record the engine cares about
type Device struct {
	ID            string         `json:"id"`
	HomeID        string         `json:"home_id"`
	Name          string         `json:"name"`
	AutoBehaviors []BehaviorRule `json:"auto_behaviors"`
	ScheduleRules []ScheduleRule `json:"schedule_rules"`
}

// SensorReading is one ingested measurement tuple
type SensorReading struct {
	HomeID    string           `json:"home_id"`
	SensorID  string           `json:"sensor_id"`
	Fields    map[string]Value `json:"fields"`
	Timestamp time.Time        `json:"timestamp"`
}
