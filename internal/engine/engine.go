package engine

import (
	"context"
	"log"
	"time"

	"homeauto/internal/cache"
	"homeauto/internal/config"
	"homeauto/internal/dispatch"
	"homeauto/internal/models"
	"homeauto/internal/rules"
	"homeauto/internal/store"
)

// ReadingEvaluator handles one ingested sensor reading. The engine registers
// one evaluator per rule representation (stored automation rules and
// device-embedded behavior rules) and runs all of them for every reading.
type ReadingEvaluator interface {
	HandleReading(ctx context.Context, reading models.SensorReading)
}

// Engine wires rule lookup, evaluation, gating, and dispatch for both
// trigger paths. All mutable state lives here, with an explicit
// init/rebuild lifecycle; nothing is package-global.
type Engine struct {
	cache      cache.Cache
	store      store.Store
	dispatcher dispatch.Dispatcher

	cooldown   time.Duration
	execWindow time.Duration

	index      *conditionIndex
	evaluators []ReadingEvaluator

	now func() time.Time
}

// NewEngine creates an engine with both reading evaluators registered
func NewEngine(c cache.Cache, s store.Store, d dispatch.Dispatcher, cfg *config.Config) *Engine {
	e := &Engine{
		cache:      c,
		store:      s,
		dispatcher: d,
		cooldown:   cfg.Cooldown(),
		execWindow: cfg.ExecWindow(),
		index:      newConditionIndex(),
		now:        time.Now,
	}
	e.evaluators = []ReadingEvaluator{
		&conditionRuleEvaluator{engine: e},
		&behaviorRuleEvaluator{engine: e},
	}
	return e
}

// Init rebuilds the cache projections and the condition index from the store.
// A partial rebuild is logged and accepted; the engine serves with whatever
// it managed to load until the next rebuild.
func (e *Engine) Init(ctx context.Context) error {
	log.Println("ENGINE: Rebuilding rule projections")

	if err := e.RefreshIndex(ctx); err != nil {
		log.Printf("ENGINE: Condition index rebuild failed: %v", err)
		return err
	}

	if err := e.rebuildBehaviorCache(ctx); err != nil {
		log.Printf("ENGINE: Behavior cache rebuild failed: %v", err)
		return err
	}

	if err := e.rebuildScheduleCache(ctx); err != nil {
		log.Printf("ENGINE: Schedule cache rebuild failed: %v", err)
		return err
	}

	log.Println("ENGINE: Projections rebuilt")
	return nil
}

// RefreshIndex rebuilds the in-process condition rule index. Called at
// startup and whenever the stored rule set mutates.
func (e *Engine) RefreshIndex(ctx context.Context) error {
	ruleDocs, err := e.store.GetEnabledRules(ctx)
	if err != nil {
		return err
	}
	e.index.rebuild(ruleDocs)
	log.Printf("ENGINE: Indexed %d condition rules", e.index.size())
	return nil
}

// rebuildBehaviorCache repopulates the rules:{home}:{measure} lists
func (e *Engine) rebuildBehaviorCache(ctx context.Context) error {
	if err := e.cache.DeleteByPrefix(ctx, "rules:"); err != nil {
		return err
	}
	devices, err := e.store.GetAutomatedDevices(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, dev := range devices {
		for _, b := range dev.AutoBehaviors {
			key := cache.RulesKey(dev.HomeID, b.Measure)
			if err := e.cache.ListAppend(ctx, key, rules.CanonicalBehavior(b)); err != nil {
				return err
			}
			count++
		}
	}
	log.Printf("ENGINE: Cached %d behavior rules from %d devices", count, len(devices))
	return nil
}

// rebuildScheduleCache repopulates the schedule key lists from device-embedded
// schedule rules and from enabled time-based rule documents
func (e *Engine) rebuildScheduleCache(ctx context.Context) error {
	if err := e.cache.DeleteByPrefix(ctx, "schedule:"); err != nil {
		return err
	}

	devices, err := e.store.GetAutomatedDevices(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, dev := range devices {
		for _, s := range dev.ScheduleRules {
			entry := rules.ScheduleEntry{
				HomeID:         dev.HomeID,
				DeviceName:     s.DeviceName,
				CronExpression: s.CronExpression,
				Actions:        s.Actions,
			}
			if err := e.cacheScheduleEntry(ctx, s.CronExpression, entry); err != nil {
				log.Printf("ENGINE: Skipping schedule %q on device %s: %v", s.CronExpression, dev.Name, err)
				continue
			}
			count++
		}
	}

	ruleDocs, err := e.store.GetEnabledRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range ruleDocs {
		if r.Type != models.RuleTypeTimeBased || r.Schedule == nil {
			continue
		}
		expr := rules.ScheduleExpression(*r.Schedule)
		// one entry per target device carrying that device's full ordered
		// action list; per-action entries would collide on the dedupe marker
		// and drop every command after the first
		for _, group := range groupActionsByDevice(r.Actions) {
			entry := rules.ScheduleEntry{
				HomeID:         r.HomeID,
				DeviceName:     group.deviceID,
				CronExpression: expr,
				Actions:        group.actions,
				RuleID:         r.ID,
			}
			if err := e.cacheScheduleEntry(ctx, expr, entry); err != nil {
				log.Printf("ENGINE: Skipping schedule on rule %s: %v", r.ID, err)
				continue
			}
			count++
		}
	}

	log.Printf("ENGINE: Cached %d schedule entries", count)
	return nil
}

type deviceActions struct {
	deviceID string
	actions  []models.Action
}

// groupActionsByDevice collapses a rule's action list into one command list
// per target device, preserving first-appearance device order and the
// in-device action order
func groupActionsByDevice(actions []models.RuleAction) []deviceActions {
	var groups []deviceActions
	index := map[string]int{}
	for _, a := range actions {
		converted := models.Action{Name: a.Command, Value: a.Parameters.Text()}
		if i, ok := index[a.DeviceID]; ok {
			groups[i].actions = append(groups[i].actions, converted)
			continue
		}
		index[a.DeviceID] = len(groups)
		groups = append(groups, deviceActions{deviceID: a.DeviceID, actions: []models.Action{converted}})
	}
	return groups
}

// cacheScheduleEntry appends an entry under every key its expression expands to
func (e *Engine) cacheScheduleEntry(ctx context.Context, expr string, entry rules.ScheduleEntry) error {
	keys, err := rules.ExpandExpression(expr)
	if err != nil {
		return err
	}
	encoded := rules.EncodeScheduleEntry(entry)
	for _, key := range keys {
		if err := e.cache.ListAppend(ctx, key, encoded); err != nil {
			return err
		}
	}
	return nil
}

// OnSensorEvent runs every registered evaluator against one reading. Each
// evaluator swallows its own transient failures; one bad cycle never stops
// the ingestion loop.
func (e *Engine) OnSensorEvent(ctx context.Context, reading models.SensorReading) {
	for _, ev := range e.evaluators {
		ev.HandleReading(ctx, reading)
	}
}

// dispatchActions hands one command to the transport. Failures are logged and
// treated as "nothing fired"; the next trigger is the retry.
func (e *Engine) dispatchActions(ctx context.Context, homeID, deviceName string, actions []models.Action) bool {
	if err := e.dispatcher.Dispatch(ctx, homeID, deviceName, actions); err != nil {
		log.Printf("ENGINE: Dispatch to %s failed: %v", deviceName, err)
		return false
	}
	return true
}
