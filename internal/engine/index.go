package engine

import (
	"sync"

	"homeauto/internal/models"
)

// conditionIndex maps sensor IDs to the condition-based rules watching them.
// It is a full in-process projection, rebuilt wholesale at startup and on
// rule-set mutation rather than patched incrementally.
type conditionIndex struct {
	mu    sync.RWMutex
	rules map[string][]models.AutomationRule
}

func newConditionIndex() *conditionIndex {
	return &conditionIndex{rules: make(map[string][]models.AutomationRule)}
}

// rebuild replaces the index contents from a fresh rule snapshot
func (ix *conditionIndex) rebuild(ruleDocs []models.AutomationRule) {
	fresh := make(map[string][]models.AutomationRule)
	for _, r := range ruleDocs {
		if !r.Enabled || r.Type != models.RuleTypeConditionBased || r.Condition == nil {
			continue
		}
		fresh[r.Condition.SensorID] = append(fresh[r.Condition.SensorID], r)
	}
	ix.mu.Lock()
	ix.rules = fresh
	ix.mu.Unlock()
}

// lookup returns the rules watching one sensor, in stored order
func (ix *conditionIndex) lookup(sensorID string) []models.AutomationRule {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.rules[sensorID]
}

func (ix *conditionIndex) size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, list := range ix.rules {
		n += len(list)
	}
	return n
}
