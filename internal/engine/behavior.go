package engine

import (
	"context"
	"log"
	"strconv"

	"homeauto/internal/cache"
	"homeauto/internal/models"
	"homeauto/internal/rules"
)

// EvaluateBehavior matches one observed measure value against the cached
// behavior rules for (home, measure) and dispatches every rule whose range
// contains the value and whose cooldown has elapsed. A missing or unreachable
// cache yields zero matches: the engine fails open on firing.
func (e *Engine) EvaluateBehavior(ctx context.Context, homeID, measure string, value float64) int {
	key := cache.RulesKey(homeID, measure)
	entries, err := e.cache.ListRange(ctx, key)
	if err != nil {
		log.Printf("ENGINE: Behavior lookup failed for %s: %v", key, err)
		return 0
	}

	fired := 0
	for i, entry := range entries {
		rule, err := rules.DecodeBehavior(entry)
		if err != nil {
			log.Printf("ENGINE: Corrupt behavior entry at %s[%d]: %v", key, i, err)
			continue
		}
		if !rule.Range.Contains(value) {
			continue
		}
		if !e.cooldownElapsed(ctx, key, i) {
			continue
		}
		if e.dispatchActions(ctx, homeID, rule.DeviceName, rule.Actions) {
			e.recordTrigger(ctx, key, i)
			fired++
		}
	}
	return fired
}

// cooldownElapsed checks the per-(key, index) last-triggered marker. This is
// a plain read-then-write gate; two near-simultaneous evaluations can both
// pass it, an accepted bounded race.
func (e *Engine) cooldownElapsed(ctx context.Context, rulesKey string, ruleIndex int) bool {
	marker := cache.CooldownKey(rulesKey, ruleIndex)
	val, ok, err := e.cache.Get(ctx, marker)
	if err != nil {
		log.Printf("ENGINE: Cooldown read failed for %s: %v", marker, err)
		return false
	}
	if !ok {
		return true
	}
	last, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Printf("ENGINE: Corrupt cooldown marker %s=%q", marker, val)
		return true
	}
	return e.now().UnixMilli()-last >= e.cooldown.Milliseconds()
}

// recordTrigger overwrites the cooldown marker with the current time
func (e *Engine) recordTrigger(ctx context.Context, rulesKey string, ruleIndex int) {
	marker := cache.CooldownKey(rulesKey, ruleIndex)
	now := strconv.FormatInt(e.now().UnixMilli(), 10)
	if err := e.cache.Set(ctx, marker, now, 0); err != nil {
		log.Printf("ENGINE: Cooldown write failed for %s: %v", marker, err)
	}
}

// AddBehaviorRule validates and persists a new device-embedded behavior rule,
// then appends its canonical entry to the home+measure cache list. A rule
// whose canonical form already exists on the device is rejected before the
// cache is touched.
func (e *Engine) AddBehaviorRule(ctx context.Context, homeID, deviceID string, rule models.BehaviorRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	dev, err := e.store.GetDevice(ctx, homeID, deviceID)
	if err != nil {
		return err
	}
	if rule.DeviceName == "" {
		rule.DeviceName = dev.Name
	}

	canonical := rules.CanonicalBehavior(rule)
	for _, existing := range dev.AutoBehaviors {
		if rules.CanonicalBehavior(existing) == canonical {
			return models.ErrDuplicateRule
		}
	}

	behaviors := append(dev.AutoBehaviors, rule)
	if err := e.store.UpdateDeviceBehaviors(ctx, dev.ID, behaviors); err != nil {
		return err
	}

	key := cache.RulesKey(homeID, rule.Measure)
	if err := e.cache.ListAppend(ctx, key, canonical); err != nil {
		log.Printf("ENGINE: Cache append failed for %s, projection stale until rebuild: %v", key, err)
	}
	return nil
}

// RemoveBehaviorRule removes a behavior rule from the device record and
// deletes the first value-equal entry from the cache list
func (e *Engine) RemoveBehaviorRule(ctx context.Context, homeID, deviceID string, rule models.BehaviorRule) error {
	dev, err := e.store.GetDevice(ctx, homeID, deviceID)
	if err != nil {
		return err
	}
	if rule.DeviceName == "" {
		rule.DeviceName = dev.Name
	}

	canonical := rules.CanonicalBehavior(rule)
	found := -1
	for i, existing := range dev.AutoBehaviors {
		if rules.CanonicalBehavior(existing) == canonical {
			found = i
			break
		}
	}
	if found < 0 {
		return models.ErrNotFound
	}

	behaviors := append(append([]models.BehaviorRule(nil), dev.AutoBehaviors[:found]...), dev.AutoBehaviors[found+1:]...)
	if err := e.store.UpdateDeviceBehaviors(ctx, dev.ID, behaviors); err != nil {
		return err
	}

	key := cache.RulesKey(homeID, rule.Measure)
	if err := e.cache.ListRemove(ctx, key, canonical); err != nil {
		log.Printf("ENGINE: Cache remove failed for %s, projection stale until rebuild: %v", key, err)
	}
	return nil
}
