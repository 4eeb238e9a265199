package rules

import (
	"encoding/json"
	"sort"

	"homeauto/internal/models"
)

// canonicalForm is the stable encoding of a behavior rule. Field order is
// fixed by the struct, and the action list is sorted by name before encoding,
// so semantically identical rules always collide.
type canonicalForm struct {
	Name    string          `json:"name"`
	Measure string          `json:"measure"`
	Range   models.Range    `json:"range"`
	Actions []models.Action `json:"action"`
}

// sortedActions returns a copy of the action list ordered by action name
func sortedActions(actions []models.Action) []models.Action {
	out := append([]models.Action(nil), actions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CanonicalBehavior encodes a behavior rule as its canonical string, used both
// as the cached list entry and for duplicate detection on the device record.
func CanonicalBehavior(b models.BehaviorRule) string {
	form := canonicalForm{
		Name:    b.DeviceName,
		Measure: b.Measure,
		Range:   b.Range,
		Actions: sortedActions(b.Actions),
	}
	raw, _ := json.Marshal(form)
	return string(raw)
}

// CanonicalActions encodes an action list sorted by name, for
// order-independent comparison
func CanonicalActions(actions []models.Action) string {
	raw, _ := json.Marshal(sortedActions(actions))
	return string(raw)
}

// DecodeBehavior parses a cached canonical entry back into a behavior rule
func DecodeBehavior(entry string) (models.BehaviorRule, error) {
	var form canonicalForm
	if err := json.Unmarshal([]byte(entry), &form); err != nil {
		return models.BehaviorRule{}, err
	}
	return models.BehaviorRule{
		DeviceName: form.Name,
		Measure:    form.Measure,
		Range:      form.Range,
		Actions:    form.Actions,
	}, nil
}

// ScheduleEntry is the cached payload stored under each expanded schedule key.
// RuleID is set only for entries derived from stored automation rules, so the
// engine can write back their last execution time.
type ScheduleEntry struct {
	HomeID         string          `json:"home"`
	DeviceName     string          `json:"name"`
	CronExpression string          `json:"cronExpression"`
	Actions        []models.Action `json:"action"`
	RuleID         string          `json:"ruleId,omitempty"`
}

// EncodeScheduleEntry encodes a schedule entry for cache storage
func EncodeScheduleEntry(e ScheduleEntry) string {
	raw, _ := json.Marshal(e)
	return string(raw)
}

// DecodeScheduleEntry parses a cached schedule entry
func DecodeScheduleEntry(entry string) (ScheduleEntry, error) {
	var e ScheduleEntry
	err := json.Unmarshal([]byte(entry), &e)
	return e, err
}
