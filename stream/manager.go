// stream/manager.go
package stream

import (
	"context"
	"sync"

	"github.com/wfunc/courtstream/broadcast"
	"github.com/wfunc/courtstream/clock"
	"github.com/wfunc/courtstream/config"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
	"github.com/wfunc/courtstream/monitor"
	"github.com/wfunc/courtstream/persistence"
	"github.com/wfunc/courtstream/simulation"
)

// EngineFactory builds a simulation engine per session. Each loop owns
// its engine so random sources are never shared across goroutines.
type EngineFactory func(sessionID string) *simulation.Engine

// Manager 流循环管理器
// One loop goroutine per active session; stopping one session never
// touches the others.
type Manager struct {
	fetcher Fetcher
	sources map[string]string
	store   persistence.Store
	hub     *broadcast.Hub
	clk     clock.Clock
	cfg     config.StreamConfig
	mon     *monitor.Monitor
	engines EngineFactory

	mu    sync.Mutex
	loops map[string]*runningLoop
}

type runningLoop struct {
	loop   *Loop
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(fetcher Fetcher, sources map[string]string, store persistence.Store, hub *broadcast.Hub,
	clk clock.Clock, cfg config.StreamConfig, mon *monitor.Monitor, engines EngineFactory) *Manager {
	return &Manager{
		fetcher: fetcher,
		sources: sources,
		store:   store,
		hub:     hub,
		clk:     clk,
		cfg:     cfg,
		mon:     mon,
		engines: engines,
		loops:   make(map[string]*runningLoop),
	}
}

// StartSession launches the stream loop for a session. Starting an
// already-running session is a no-op.
func (m *Manager) StartSession(parent context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loops[sessionID]; exists {
		return
	}

	loop := m.newLoop(sessionID)
	ctx, cancel := context.WithCancel(parent)
	rl := &runningLoop{loop: loop, cancel: cancel, done: make(chan struct{})}
	m.loops[sessionID] = rl

	go func() {
		defer close(rl.done)
		loop.Run(ctx)
	}()

	if m.mon != nil {
		m.mon.SetActiveSessions(len(m.loops))
	}
}

// StopSession cancels one session's loop and waits for its in-flight
// tick to finish.
func (m *Manager) StopSession(sessionID string) {
	m.mu.Lock()
	rl, exists := m.loops[sessionID]
	if exists {
		delete(m.loops, sessionID)
	}
	count := len(m.loops)
	m.mu.Unlock()

	if !exists {
		return
	}
	rl.cancel()
	<-rl.done
	if m.mon != nil {
		m.mon.SetActiveSessions(count)
	}
}

// StopAll shuts down every loop. Used on server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[string]*runningLoop)
	m.mu.Unlock()

	for id, rl := range loops {
		rl.cancel()
		<-rl.done
		logger.Log.Infof("Stopped stream loop for session %s", id)
	}
	if m.mon != nil {
		m.mon.SetActiveSessions(0)
	}
}

// ForceTick runs one tick-equivalent for the test harness. It reuses the
// running loop when there is one so the tick serializes with the loop's
// own; otherwise it runs a one-shot loop against the store.
func (m *Manager) ForceTick(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	rl, exists := m.loops[sessionID]
	m.mu.Unlock()

	if exists {
		return rl.loop.Tick(ctx)
	}
	return m.newLoop(sessionID).Tick(ctx)
}

// Seed replaces a session's snapshot wholesale: store write, reset of
// any running loop's working copy, one publish.
func (m *Manager) Seed(ctx context.Context, sessionID string, snap models.SessionSnapshot) error {
	if err := m.store.Set(ctx, sessionID, snap); err != nil {
		return err
	}

	m.mu.Lock()
	rl, exists := m.loops[sessionID]
	m.mu.Unlock()
	if exists {
		rl.loop.Reset(snap)
	}

	m.hub.Publish(sessionID, snap)
	return nil
}

// ActiveSessions reports the number of running loops.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

func (m *Manager) newLoop(sessionID string) *Loop {
	return NewLoop(sessionID, m.fetcher, m.sources, m.store, m.engines(sessionID), m.hub, m.clk, m.cfg, m.mon)
}
