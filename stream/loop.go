// stream/loop.go
package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/wfunc/courtstream/aggregator"
	"github.com/wfunc/courtstream/broadcast"
	"github.com/wfunc/courtstream/clock"
	"github.com/wfunc/courtstream/config"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
	"github.com/wfunc/courtstream/monitor"
	"github.com/wfunc/courtstream/persistence"
	"github.com/wfunc/courtstream/simulation"
)

// Fetcher is the aggregation step the loop calls once per tick.
type Fetcher interface {
	FetchAll(ctx context.Context, sessionID string, sources map[string]string) map[string]aggregator.Result
}

// Loop drives one session: ingest, merge, simulate, persist, publish,
// pace. It is the only writer of its session's snapshot.
type Loop struct {
	sessionID string
	fetcher   Fetcher
	sources   map[string]string
	store     persistence.Store
	engine    *simulation.Engine
	hub       *broadcast.Hub
	clk       clock.Clock
	cfg       config.StreamConfig
	mon       *monitor.Monitor

	// tickMu serializes loop ticks with harness-forced ticks.
	tickMu  sync.Mutex
	current *models.SessionSnapshot
}

func NewLoop(sessionID string, fetcher Fetcher, sources map[string]string, store persistence.Store,
	engine *simulation.Engine, hub *broadcast.Hub, clk clock.Clock, cfg config.StreamConfig, mon *monitor.Monitor) *Loop {
	return &Loop{
		sessionID: sessionID,
		fetcher:   fetcher,
		sources:   sources,
		store:     store,
		engine:    engine,
		hub:       hub,
		clk:       clk,
		cfg:       cfg,
		mon:       mon,
	}
}

// Run ticks until ctx is cancelled. A tick already in flight finishes
// before the loop exits. A failed tick switches the next pause to the
// back-off interval and keeps running.
func (l *Loop) Run(ctx context.Context) {
	logger.Log.Infof("Stream loop started for session %s", l.sessionID)
	for {
		delay := l.cfg.TickInterval
		if err := l.Tick(ctx); err != nil {
			logger.Log.Errorf("Tick failed for session %s, backing off: %v", l.sessionID, err)
			delay = l.cfg.BackoffInterval
		}

		select {
		case <-ctx.Done():
			logger.Log.Infof("Stream loop stopped for session %s", l.sessionID)
			return
		case <-l.clk.After(delay):
		}
	}
}

// Tick runs one full ingest-merge-simulate-persist-publish pass. It is
// safe to call from outside the loop goroutine; ticks are serialized.
// Any panic below the aggregation boundary surfaces as an error, never
// as a crash of the loop.
func (l *Loop) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected tick failure for session %s: %v", l.sessionID, r)
		}
	}()

	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	start := l.clk.Now()

	if l.current == nil {
		snap, ok, err := l.store.Get(ctx, l.sessionID)
		if err != nil {
			return fmt.Errorf("load session %s: %w", l.sessionID, err)
		}
		if !ok {
			snap = models.SessionSnapshot{GameState: models.GameState{GameID: l.sessionID, Quarter: 1}}
		}
		l.current = &snap
	}

	results := l.fetcher.FetchAll(ctx, l.sessionID, l.sources)
	for name, res := range results {
		if !res.OK() && l.mon != nil {
			l.mon.IncFetchFailure(name)
		}
	}
	Merge(l.current, results)

	next := l.engine.Advance(*l.current, l.clk.Now())
	l.current = &next

	// Persist, then publish. A store outage still publishes the fresh
	// in-memory snapshot and signals back-off afterwards.
	storeErr := l.store.Set(ctx, l.sessionID, next)

	l.hub.Publish(l.sessionID, next)
	if l.mon != nil {
		l.mon.IncTicks()
		l.mon.ObserveTickLatency(l.clk.Now().Sub(start))
	}

	if storeErr != nil {
		return fmt.Errorf("persist session %s: %w", l.sessionID, storeErr)
	}
	return nil
}

// Current returns a copy of the loop's working snapshot, or ok=false
// before the first tick.
func (l *Loop) Current() (models.SessionSnapshot, bool) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	if l.current == nil {
		return models.SessionSnapshot{}, false
	}
	return l.current.Clone(), true
}

// Reset replaces the working snapshot, e.g. after the harness seeds a
// fresh game.
func (l *Loop) Reset(snap models.SessionSnapshot) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	copied := snap.Clone()
	l.current = &copied
}
