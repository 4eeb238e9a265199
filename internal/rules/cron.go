package rules

import (
	"fmt"
	"strconv"
	"strings"

	"homeauto/internal/models"
)

// CronFields is a parsed constrained cron expression. Each field is either
// the literal "*" or a single integer; ranges, lists, and steps are rejected
// on purpose — the engine keys its schedule cache on literal segments.
type CronFields struct {
	Minute     string
	Hour       string
	DayOfMonth string
	Month      string
	DayOfWeek  string
}

type fieldSpec struct {
	name string
	min  int
	max  int
}

var cronFieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// ParseCron parses a 5-field "minute hour day-of-month month day-of-week"
// expression under the constrained grammar.
func ParseCron(expr string) (CronFields, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return CronFields{}, fmt.Errorf("%w: cron expression %q must have 5 fields", models.ErrValidation, expr)
	}
	for i, p := range parts {
		if p == "*" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return CronFields{}, fmt.Errorf("%w: cron field %s %q must be * or a single integer", models.ErrValidation, cronFieldSpecs[i].name, p)
		}
		if n < cronFieldSpecs[i].min || n > cronFieldSpecs[i].max {
			return CronFields{}, fmt.Errorf("%w: cron field %s value %d out of range [%d,%d]", models.ErrValidation, cronFieldSpecs[i].name, n, cronFieldSpecs[i].min, cronFieldSpecs[i].max)
		}
	}
	return CronFields{
		Minute:     parts[0],
		Hour:       parts[1],
		DayOfMonth: parts[2],
		Month:      parts[3],
		DayOfWeek:  parts[4],
	}, nil
}

// ExpandCron expands a parsed expression into the set of schedule cache keys
// it occupies: the Cartesian product over the four retained axes (minute,
// hour, day-of-week, day-of-month). A wildcard contributes the literal "*"
// segment, never a concrete range; the month field is parsed but not keyed.
func ExpandCron(f CronFields) []string {
	minutes := []string{f.Minute}
	hours := []string{f.Hour}
	dows := []string{f.DayOfWeek}
	doms := []string{f.DayOfMonth}

	var keys []string
	for _, m := range minutes {
		for _, h := range hours {
			for _, dow := range dows {
				for _, dom := range doms {
					keys = append(keys, ScheduleKey(m, h, dow, dom))
				}
			}
		}
	}
	return keys
}

// ExpandExpression parses and expands in one step
func ExpandExpression(expr string) ([]string, error) {
	f, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return ExpandCron(f), nil
}

// ScheduleKey builds a schedule cache key from literal segments
func ScheduleKey(minute, hour, dow, dom string) string {
	return fmt.Sprintf("schedule:%s:%s:%s:%s", minute, hour, dow, dom)
}

// ScheduleExpression renders a stored rule's six-field schedule as the
// constrained 5-field expression; empty fields default to wildcard and the
// reserved second field is dropped.
func ScheduleExpression(s models.Schedule) string {
	field := func(v string) string {
		if v == "" {
			return "*"
		}
		return v
	}
	return strings.Join([]string{
		field(s.Minute),
		field(s.Hour),
		field(s.DayOfMonth),
		field(s.Month),
		field(s.DayOfWeek),
	}, " ")
}
