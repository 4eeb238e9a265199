package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller drives the engine's schedule tick on a fixed interval. Ticks are
// free-running from process start, not wall-clock-minute aligned; the dedupe
// guard absorbs any boundary skew between consecutive ticks.
type Poller struct {
	cron     *cron.Cron
	interval time.Duration
	tick     func(ctx context.Context)
}

// NewPoller creates a poller invoking tick every interval
func NewPoller(interval time.Duration, tick func(ctx context.Context)) *Poller {
	return &Poller{
		cron:     cron.New(),
		interval: interval,
		tick:     tick,
	}
}

// Start registers the tick job and starts the cron runner
func (p *Poller) Start() error {
	spec := fmt.Sprintf("@every %s", p.interval)
	_, err := p.cron.AddFunc(spec, func() {
		p.tick(context.Background())
	})
	if err != nil {
		return err
	}
	p.cron.Start()
	log.Printf("SCHEDULER: Poller started (%s)", spec)
	return nil
}

// Stop halts the runner and waits for an in-flight tick to finish
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	log.Println("SCHEDULER: Poller stopped")
}
