package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"homeauto/internal/models"
)

var errUnavailable = errors.New("cache unavailable")

// memCache is an in-memory Cache for tests. SetNX is atomic under the mutex,
// matching the real store's create-if-absent guarantee.
type memCache struct {
	mu      sync.Mutex
	lists   map[string][]string
	strings map[string]string
	streams map[string]int
	down    bool
}

func newMemCache() *memCache {
	return &memCache{
		lists:   map[string][]string{},
		strings: map[string]string{},
		streams: map[string]int{},
	}
}

func (c *memCache) ListAppend(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errUnavailable
	}
	c.lists[key] = append(c.lists[key], value)
	return nil
}

func (c *memCache) ListRemove(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errUnavailable
	}
	list := c.lists[key]
	for i, v := range list {
		if v == value {
			c.lists[key] = append(append([]string(nil), list[:i]...), list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (c *memCache) ListRange(ctx context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errUnavailable
	}
	return append([]string(nil), c.lists[key]...), nil
}

func (c *memCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", false, errUnavailable
	}
	v, ok := c.strings[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errUnavailable
	}
	c.strings[key] = value
	return nil
}

func (c *memCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return false, errUnavailable
	}
	if _, exists := c.strings[key]; exists {
		return false, nil
	}
	c.strings[key] = value
	return true, nil
}

func (c *memCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errUnavailable
	}
	for k := range c.lists {
		if strings.HasPrefix(k, prefix) {
			delete(c.lists, k)
		}
	}
	for k := range c.strings {
		if strings.HasPrefix(k, prefix) {
			delete(c.strings, k)
		}
	}
	return nil
}

func (c *memCache) StreamAdd(ctx context.Context, stream string, values map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errUnavailable
	}
	c.streams[stream]++
	return nil
}

// memStore is an in-memory Store for tests
type memStore struct {
	mu           sync.Mutex
	rules        []models.AutomationRule
	devices      map[string]models.Device
	lastExecuted map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		devices:      map[string]models.Device{},
		lastExecuted: map[string]time.Time{},
	}
}

func (s *memStore) GetEnabledRules(ctx context.Context) ([]models.AutomationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AutomationRule
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) GetAutomatedDevices(ctx context.Context) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Device
	for _, d := range s.devices {
		if len(d.AutoBehaviors) > 0 || len(d.ScheduleRules) > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) GetDevice(ctx context.Context, homeID, deviceID string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok || d.HomeID != homeID {
		return nil, models.ErrNotFound
	}
	copied := d
	return &copied, nil
}

func (s *memStore) UpdateLastExecuted(ctx context.Context, ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExecuted[ruleID] = at
	return nil
}

func (s *memStore) UpdateDeviceBehaviors(ctx context.Context, deviceID string, behaviors []models.BehaviorRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return models.ErrNotFound
	}
	d.AutoBehaviors = behaviors
	s.devices[deviceID] = d
	return nil
}

func (s *memStore) UpdateDeviceSchedules(ctx context.Context, deviceID string, schedules []models.ScheduleRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return models.ErrNotFound
	}
	d.ScheduleRules = schedules
	s.devices[deviceID] = d
	return nil
}

type dispatchCall struct {
	homeID     string
	deviceName string
	actions    []models.Action
}

// recordingDispatcher captures dispatch attempts
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  bool
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, homeID, deviceName string, actions []models.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("broker unreachable")
	}
	d.calls = append(d.calls, dispatchCall{homeID, deviceName, actions})
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *recordingDispatcher) last() dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[len(d.calls)-1]
}
