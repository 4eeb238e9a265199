package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"homeauto/internal/cache"
	"homeauto/internal/models"
	"homeauto/internal/rules"
)

// probeKeys lists the six schedule keys matching one instant, in decreasing
// specificity: exact, the three single/double day-field wildcards, the
// minute-and-hour wildcard, and the fully wildcarded key. A rule lives under
// exactly the one key its own expansion produced, so no rule is seen twice.
func probeKeys(t time.Time) []string {
	m := strconv.Itoa(t.Minute())
	h := strconv.Itoa(t.Hour())
	dow := strconv.Itoa(int(t.Weekday()))
	dom := strconv.Itoa(t.Day())
	return []string{
		rules.ScheduleKey(m, h, dow, dom),
		rules.ScheduleKey(m, h, "*", dom),
		rules.ScheduleKey(m, h, dow, "*"),
		rules.ScheduleKey(m, h, "*", "*"),
		rules.ScheduleKey("*", "*", dow, dom),
		rules.ScheduleKey("*", "*", "*", "*"),
	}
}

// OnScheduleTick runs one schedule poll cycle: probe the candidate keys for
// "now", then push every retrieved rule through the execution dedupe guard
// before dispatch. Transient cache failures skip the key and move on.
func (e *Engine) OnScheduleTick(ctx context.Context) {
	now := e.now()
	bucket := cache.MinuteBucket(now)

	for _, key := range probeKeys(now) {
		entries, err := e.cache.ListRange(ctx, key)
		if err != nil {
			log.Printf("ENGINE: Schedule lookup failed for %s: %v", key, err)
			continue
		}
		for _, raw := range entries {
			entry, err := rules.DecodeScheduleEntry(raw)
			if err != nil {
				log.Printf("ENGINE: Corrupt schedule entry under %s: %v", key, err)
				continue
			}
			e.executeScheduled(ctx, entry, bucket)
		}
	}
}

// executeScheduled dispatches one schedule candidate at most once per device
// per minute bucket. The atomic create-if-absent closes the race between
// overlapping ticks.
func (e *Engine) executeScheduled(ctx context.Context, entry rules.ScheduleEntry, bucket int64) {
	marker := cache.ExecKey(entry.DeviceName, bucket)
	created, err := e.cache.SetNX(ctx, marker, "1", e.execWindow)
	if err != nil {
		log.Printf("ENGINE: Dedupe check failed for %s: %v", marker, err)
		return
	}
	if !created {
		return
	}

	log.Printf("ENGINE: Schedule fired for device %s (cron %q)", entry.DeviceName, entry.CronExpression)
	if !e.dispatchActions(ctx, entry.HomeID, entry.DeviceName, entry.Actions) {
		return
	}
	if entry.RuleID != "" {
		if err := e.store.UpdateLastExecuted(ctx, entry.RuleID, e.now()); err != nil {
			log.Printf("ENGINE: Failed to record execution of rule %s: %v", entry.RuleID, err)
		}
	}
}

// AddScheduleRule validates and persists a device-embedded schedule rule and
// registers it under every cache key its expression expands to
func (e *Engine) AddScheduleRule(ctx context.Context, homeID, deviceID, expression string, actions []models.Action) error {
	if _, err := rules.ParseCron(expression); err != nil {
		return err
	}
	if len(actions) == 0 {
		return fmt.Errorf("%w: schedule rule needs at least one action", models.ErrValidation)
	}

	dev, err := e.store.GetDevice(ctx, homeID, deviceID)
	if err != nil {
		return err
	}

	rule := models.ScheduleRule{
		DeviceName:     dev.Name,
		CronExpression: expression,
		Actions:        actions,
	}
	for _, existing := range dev.ScheduleRules {
		if sameScheduleRule(existing, rule) {
			return models.ErrDuplicateRule
		}
	}

	schedules := append(dev.ScheduleRules, rule)
	if err := e.store.UpdateDeviceSchedules(ctx, dev.ID, schedules); err != nil {
		return err
	}

	entry := rules.ScheduleEntry{
		HomeID:         homeID,
		DeviceName:     dev.Name,
		CronExpression: expression,
		Actions:        actions,
	}
	if err := e.cacheScheduleEntry(ctx, expression, entry); err != nil {
		log.Printf("ENGINE: Schedule cache append failed, projection stale until rebuild: %v", err)
	}
	return nil
}

// RemoveScheduleRule removes a schedule rule from the device record and from
// every cache key it occupies
func (e *Engine) RemoveScheduleRule(ctx context.Context, homeID, deviceID, expression string, actions []models.Action) error {
	dev, err := e.store.GetDevice(ctx, homeID, deviceID)
	if err != nil {
		return err
	}

	target := models.ScheduleRule{
		DeviceName:     dev.Name,
		CronExpression: expression,
		Actions:        actions,
	}
	found := -1
	for i, existing := range dev.ScheduleRules {
		if sameScheduleRule(existing, target) {
			found = i
			break
		}
	}
	if found < 0 {
		return models.ErrNotFound
	}

	schedules := append(append([]models.ScheduleRule(nil), dev.ScheduleRules[:found]...), dev.ScheduleRules[found+1:]...)
	if err := e.store.UpdateDeviceSchedules(ctx, dev.ID, schedules); err != nil {
		return err
	}

	keys, err := rules.ExpandExpression(expression)
	if err != nil {
		return err
	}
	encoded := rules.EncodeScheduleEntry(rules.ScheduleEntry{
		HomeID:         homeID,
		DeviceName:     dev.Name,
		CronExpression: expression,
		Actions:        actions,
	})
	for _, key := range keys {
		if err := e.cache.ListRemove(ctx, key, encoded); err != nil {
			log.Printf("ENGINE: Schedule cache remove failed for %s, projection stale until rebuild: %v", key, err)
		}
	}
	return nil
}

// sameScheduleRule compares two schedule rules by expression and sorted
// action list, so action order does not create distinct rules
func sameScheduleRule(a, b models.ScheduleRule) bool {
	if a.CronExpression != b.CronExpression || a.DeviceName != b.DeviceName {
		return false
	}
	return rules.CanonicalActions(a.Actions) == rules.CanonicalActions(b.Actions)
}
