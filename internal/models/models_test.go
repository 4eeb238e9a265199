package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestRangeContainsInclusiveBounds(t *testing.T) {
	t.Run("lower bound only", func(t *testing.T) {
		r := Range{GE: f(20)}
		assert.True(t, r.Contains(25))
		assert.True(t, r.Contains(20))
		assert.False(t, r.Contains(19))
	})

	t.Run("upper bound only", func(t *testing.T) {
		r := Range{LE: f(30)}
		assert.True(t, r.Contains(30))
		assert.False(t, r.Contains(31))
	})

	t.Run("both bounds", func(t *testing.T) {
		r := Range{GE: f(20), LE: f(30)}
		assert.True(t, r.Contains(20))
		assert.True(t, r.Contains(25))
		assert.True(t, r.Contains(30))
		assert.False(t, r.Contains(19.9))
		assert.False(t, r.Contains(30.1))
	})

	t.Run("unbounded", func(t *testing.T) {
		assert.True(t, Range{}.Contains(-1e9))
	})
}

func TestValueUnmarshalTagsScalars(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`22.5`), &v))
	assert.Equal(t, ValueNumber, v.Type)
	assert.Equal(t, 22.5, v.Number)

	require.NoError(t, json.Unmarshal([]byte(`true`), &v))
	assert.Equal(t, ValueBoolean, v.Type)
	assert.True(t, v.Bool)

	require.NoError(t, json.Unmarshal([]byte(`"open"`), &v))
	assert.Equal(t, ValueString, v.Type)
	assert.Equal(t, "open", v.Str)
}

func TestValueUnmarshalKeepsStructuredRaw(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"r":255,"g":0,"b":0}`), &v))
	assert.Empty(t, v.Type)
	assert.JSONEq(t, `{"r":255,"g":0,"b":0}`, string(v.Raw))
}

func TestValueValidate(t *testing.T) {
	assert.NoError(t, Num(1).Validate(ValueNumber))
	assert.ErrorIs(t, Num(1).Validate(ValueString), ErrValidation)
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "4", Num(4).Text())
	assert.Equal(t, "true", Boolean(true).Text())
	assert.Equal(t, "on", Str("on").Text())
}

func TestAutomationRuleValidate(t *testing.T) {
	cond := &Condition{SensorID: "s", Field: "temperature", ValueType: ValueNumber, Operator: OpGT, Expected: Num(25)}
	sched := &Schedule{Minute: "0", Hour: "8"}
	actions := []RuleAction{{DeviceID: "d", Command: "power", Parameters: Str("on")}}

	t.Run("valid condition rule", func(t *testing.T) {
		r := AutomationRule{ID: "r1", Type: RuleTypeConditionBased, Condition: cond, Actions: actions}
		assert.NoError(t, r.Validate())
	})

	t.Run("valid time rule", func(t *testing.T) {
		r := AutomationRule{ID: "r2", Type: RuleTypeTimeBased, Schedule: sched, Actions: actions}
		assert.NoError(t, r.Validate())
	})

	t.Run("condition rule with schedule", func(t *testing.T) {
		r := AutomationRule{ID: "r3", Type: RuleTypeConditionBased, Condition: cond, Schedule: sched, Actions: actions}
		assert.ErrorIs(t, r.Validate(), ErrValidation)
	})

	t.Run("time rule without schedule", func(t *testing.T) {
		r := AutomationRule{ID: "r4", Type: RuleTypeTimeBased, Actions: actions}
		assert.ErrorIs(t, r.Validate(), ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		r := AutomationRule{ID: "r5", Type: "periodic", Actions: actions}
		assert.ErrorIs(t, r.Validate(), ErrValidation)
	})

	t.Run("no actions", func(t *testing.T) {
		r := AutomationRule{ID: "r6", Type: RuleTypeConditionBased, Condition: cond}
		assert.ErrorIs(t, r.Validate(), ErrValidation)
	})
}

func TestBehaviorRuleValidate(t *testing.T) {
	valid := BehaviorRule{
		DeviceName: "fan",
		Measure:    "temperature",
		Range:      Range{GE: f(28)},
		Actions:    []Action{{Name: "speed", Value: "4"}},
	}
	assert.NoError(t, valid.Validate())

	noBounds := valid
	noBounds.Range = Range{}
	assert.ErrorIs(t, noBounds.Validate(), ErrValidation)

	noActions := valid
	noActions.Actions = nil
	assert.ErrorIs(t, noActions.Validate(), ErrValidation)
}
