package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRulesKey(t *testing.T) {
	assert.Equal(t, "rules:home-1:temperature", RulesKey("home-1", "temperature"))
}

func TestCooldownKey(t *testing.T) {
	assert.Equal(t, "rules:home-1:temperature:cooldown:2", CooldownKey(RulesKey("home-1", "temperature"), 2))
}

func TestExecKey(t *testing.T) {
	assert.Equal(t, "schedule:exec:fan:12345", ExecKey("fan", 12345))
}

func TestMinuteBucket(t *testing.T) {
	base := time.Date(2026, 8, 31, 22, 30, 0, 0, time.UTC)

	// everything inside one wall-clock minute lands in the same bucket
	assert.Equal(t, MinuteBucket(base), MinuteBucket(base.Add(59*time.Second)))
	assert.Equal(t, MinuteBucket(base)+1, MinuteBucket(base.Add(time.Minute)))
	assert.Equal(t, base.UnixMilli()/60000, MinuteBucket(base))
}
