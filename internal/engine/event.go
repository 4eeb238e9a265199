package engine

import (
	"context"
	"log"

	"homeauto/internal/models"
	"homeauto/internal/rules"
)

// conditionRuleEvaluator runs stored condition-based rule documents against
// readings. This path fires unconditionally on a match — throttling is left
// to the sensor reporting cadence, unlike the behavior path's cooldown gate.
type conditionRuleEvaluator struct {
	engine *Engine
}

func (ev *conditionRuleEvaluator) HandleReading(ctx context.Context, reading models.SensorReading) {
	e := ev.engine
	matched := e.index.lookup(reading.SensorID)
	for _, rule := range matched {
		cond := rule.Condition
		if _, ok := reading.Fields[cond.Field]; !ok {
			// reading does not carry the watched field; not an error
			continue
		}
		if !rules.EvaluateCondition(*cond, reading.Fields) {
			continue
		}
		log.Printf("ENGINE: Rule %s matched on sensor %s field %s", rule.ID, reading.SensorID, cond.Field)
		ev.execute(ctx, rule)
	}
}

// execute dispatches every action of a matched rule and records the run
func (ev *conditionRuleEvaluator) execute(ctx context.Context, rule models.AutomationRule) {
	e := ev.engine
	fired := false
	for _, group := range groupActionsByDevice(rule.Actions) {
		if e.dispatchActions(ctx, rule.HomeID, group.deviceID, group.actions) {
			fired = true
		}
	}
	if !fired {
		return
	}
	if err := e.store.UpdateLastExecuted(ctx, rule.ID, e.now()); err != nil {
		log.Printf("ENGINE: Failed to record execution of rule %s: %v", rule.ID, err)
	}
}

// behaviorRuleEvaluator feeds each numeric field of a reading through the
// cached auto-behavior rules for (home, measure)
type behaviorRuleEvaluator struct {
	engine *Engine
}

func (ev *behaviorRuleEvaluator) HandleReading(ctx context.Context, reading models.SensorReading) {
	for measure, value := range reading.Fields {
		if value.Type != models.ValueNumber {
			continue
		}
		ev.engine.EvaluateBehavior(ctx, reading.HomeID, measure, value.Number)
	}
}
