package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the derived-projection store the engine works against. Losing it
// is non-fatal; the projections are rebuilt from the rule/device store.
type Cache interface {
	// ListAppend appends value to the list at key
	ListAppend(ctx context.Context, key, value string) error
	// ListRemove deletes the first value-equal entry from the list at key
	ListRemove(ctx context.Context, key, value string) error
	// ListRange returns the full list at key, in insertion order
	ListRange(ctx context.Context, key string) ([]string, error)
	// Get returns the string at key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes a string with an optional TTL (0 = no expiry)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX atomically creates key with a TTL; false when it already exists
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// DeleteByPrefix removes every key under prefix (used on rebuild)
	DeleteByPrefix(ctx context.Context, prefix string) error
	// StreamAdd appends an entry to a capped stream (time-series sink)
	StreamAdd(ctx context.Context, stream string, values map[string]interface{}) error
}

// RulesKey is the per-home, per-measure behavior rule list key
func RulesKey(homeID, measure string) string {
	return fmt.Sprintf("rules:%s:%s", homeID, measure)
}

// CooldownKey holds the last-triggered epoch millis for one list entry.
// Identity is (rules key, list index), so rules sharing a device and measure
// cool down independently.
func CooldownKey(rulesKey string, ruleIndex int) string {
	return fmt.Sprintf("%s:cooldown:%d", rulesKey, ruleIndex)
}

// ExecKey is the per-device, per-minute-bucket dedupe marker key
func ExecKey(deviceName string, minuteBucket int64) string {
	return fmt.Sprintf("schedule:exec:%s:%d", deviceName, minuteBucket)
}

// MinuteBucket maps a wall-clock instant to its dedupe bucket
func MinuteBucket(t time.Time) int64 {
	return t.UnixMilli() / 60000
}
