package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/repo"
	"github.com/quantflow/quantflow/internal/schedule"
	"github.com/quantflow/quantflow/internal/service/exchange"
)

// Clock supplies wall-clock time to every scheduling decision.
type Clock func() time.Time

var ErrStrategyActive = fmt.Errorf("strategy is active, stop or pause it first")

// Manager owns the strategy registry: at most one live runner per strategy
// id, ever. All start/stop paths, user-triggered or tick-triggered, go
// through the per-id state lock; independent ids never block each other.
type Manager struct {
	strategyRepo repo.StrategyRepo
	logRepo      repo.LogRepo
	sink         LogSink
	provider     ExchangeProvider
	clock        Clock

	pollInterval time.Duration
	tickTimeout  time.Duration

	baseCtx context.Context

	mu     sync.Mutex
	states map[string]*strategyState
}

// strategyState serializes transitions for one strategy id.
type strategyState struct {
	mu     sync.Mutex
	status string
	runner *runnerHandle
}

// runnerHandle is the lifecycle-internal view of a live runner.
type runnerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type ManagerOption func(m *Manager)

func WithClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithRunnerPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

func WithRunnerTickTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.tickTimeout = d
	}
}

func NewManager(ctx context.Context, strategyRepo repo.StrategyRepo, logRepo repo.LogRepo,
	sink LogSink, provider ExchangeProvider, opts ...ManagerOption) *Manager {
	m := &Manager{
		strategyRepo: strategyRepo,
		logRepo:      logRepo,
		sink:         sink,
		provider:     provider,
		clock:        time.Now,
		pollInterval: 5 * time.Second,
		baseCtx:      ctx,
		states:       make(map[string]*strategyState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new strategy in STOPPED.
func (m *Manager) Create(ctx context.Context, strategy entity.Strategy) (entity.Strategy, error) {
	strategy.Id = uuid.NewString()
	strategy.Status = entity.StatusStopped
	if strategy.Symbol == "" {
		strategy.Symbol = "BTCUSDT"
	}
	if strategy.ScheduleStart == "" {
		strategy.ScheduleStart = "00:00"
	}
	if strategy.ScheduleEnd == "" {
		strategy.ScheduleEnd = "23:59"
	}
	if err := m.strategyRepo.Create(ctx, strategy); err != nil {
		return entity.Strategy{}, err
	}

	m.mu.Lock()
	m.states[strategy.Id] = &strategyState{status: entity.StatusStopped}
	m.mu.Unlock()
	return strategy, nil
}

// Start marks the user intent as "run". Inside the window the runner is
// spawned immediately; outside it the strategy waits in SCHEDULED. Calling
// Start on an already RUNNING/SCHEDULED strategy is a no-op.
func (m *Manager) Start(ctx context.Context, id string) error {
	st, _, err := m.loadState(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	strategy, err := m.refreshLocked(ctx, st, id)
	if err != nil {
		return err
	}

	if entity.HasRunIntent(st.status) {
		return nil
	}

	if inWindowAt(m.clock(), strategy.ScheduleStart, strategy.ScheduleEnd) {
		if err := m.transitionLocked(ctx, st, id, entity.StatusRunning, "started inside window"); err != nil {
			return err
		}
		m.spawnLocked(st, strategy)
		return nil
	}
	return m.transitionLocked(ctx, st, id, entity.StatusScheduled, "started, waiting for window")
}

// Pause holds a RUNNING or SCHEDULED strategy; any runner is stopped.
func (m *Manager) Pause(ctx context.Context, id string) error {
	st, _, err := m.loadState(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := m.refreshLocked(ctx, st, id); err != nil {
		return err
	}

	if !entity.HasRunIntent(st.status) {
		return nil
	}
	m.stopRunnerLocked(st)
	return m.transitionLocked(ctx, st, id, entity.StatusPaused, "paused by user")
}

// Stop holds the strategy from any state; any runner is stopped.
func (m *Manager) Stop(ctx context.Context, id string) error {
	st, _, err := m.loadState(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := m.refreshLocked(ctx, st, id); err != nil {
		return err
	}

	if st.status == entity.StatusStopped {
		return nil
	}
	m.stopRunnerLocked(st)
	return m.transitionLocked(ctx, st, id, entity.StatusStopped, "stopped by user")
}

// Delete stops any live runner first, then removes the strategy and its
// logs. A RUNNING strategy is never silently dropped.
func (m *Manager) Delete(ctx context.Context, id string) error {
	st, _, err := m.loadState(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	m.stopRunnerLocked(st)

	if err := m.strategyRepo.Delete(ctx, id); err != nil {
		return err
	}
	// let queued entries land before the purge so none reappear after it
	if sink, ok := m.sink.(*Sink); ok {
		sink.Flush()
	}
	if err := m.logRepo.DeleteByStrategyId(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.states, id)
	m.mu.Unlock()

	slog.Info("strategy deleted", "strategy", id)
	return nil
}

// Update rewrites name, description, code and window. Code and window are
// mutable only while the strategy holds in STOPPED or PAUSED.
func (m *Manager) Update(ctx context.Context, strategy entity.Strategy) error {
	st, _, err := m.loadState(ctx, strategy.Id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	current, err := m.refreshLocked(ctx, st, strategy.Id)
	if err != nil {
		return err
	}

	if !entity.IsHold(st.status) {
		return ErrStrategyActive
	}
	if strategy.Symbol == "" {
		strategy.Symbol = current.Symbol
	}
	return m.strategyRepo.Update(ctx, strategy)
}

// EvaluateSchedules is the periodic tick: it promotes SCHEDULED strategies
// whose window has opened and demotes RUNNING ones whose window has closed.
// This is the single place wall-clock time enters the lifecycle.
func (m *Manager) EvaluateSchedules(ctx context.Context) error {
	strategies, err := m.strategyRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list strategies: %w", err)
	}

	now := m.clock()
	for _, listed := range strategies {
		if !entity.HasRunIntent(listed.Status) {
			continue
		}

		st := m.state(listed.Id, listed.Status)
		st.mu.Lock()

		strategy, err := m.refreshLocked(ctx, st, listed.Id)
		if err != nil {
			st.mu.Unlock()
			continue
		}

		inWindow := inWindowAt(now, strategy.ScheduleStart, strategy.ScheduleEnd)
		switch {
		case st.status == entity.StatusScheduled && inWindow:
			if err := m.transitionLocked(ctx, st, strategy.Id, entity.StatusRunning, "entered schedule window"); err != nil {
				slog.Error("failed to persist window transition", "strategy", strategy.Id, "error", err)
			} else {
				m.spawnLocked(st, strategy)
			}
		case st.status == entity.StatusRunning && !inWindow:
			m.stopRunnerLocked(st)
			if err := m.transitionLocked(ctx, st, strategy.Id, entity.StatusScheduled, "left schedule window"); err != nil {
				slog.Error("failed to persist window transition", "strategy", strategy.Id, "error", err)
			}
		}

		st.mu.Unlock()
	}
	return nil
}

// ScheduleTask adapts the tick to the scheduler.
func (m *Manager) ScheduleTask() schedule.Task {
	return schedule.TaskFunc{
		TaskName: "strategy schedule tick",
		Fn:       m.EvaluateSchedules,
	}
}

// Restore re-evaluates persisted intent after a restart. Strategies left
// RUNNING or SCHEDULED resume intent against the current schedule; no
// in-flight execution state is carried over. Hold states stay put.
func (m *Manager) Restore(ctx context.Context) error {
	strategies, err := m.strategyRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	now := m.clock()
	for _, listed := range strategies {
		st := m.state(listed.Id, listed.Status)
		if !entity.HasRunIntent(listed.Status) {
			continue
		}

		st.mu.Lock()
		strategy, err := m.refreshLocked(ctx, st, listed.Id)
		if err != nil {
			st.mu.Unlock()
			continue
		}
		if inWindowAt(now, strategy.ScheduleStart, strategy.ScheduleEnd) {
			if err = m.transitionLocked(ctx, st, strategy.Id, entity.StatusRunning, "restored inside window"); err == nil {
				m.spawnLocked(st, strategy)
			}
		} else {
			err = m.transitionLocked(ctx, st, strategy.Id, entity.StatusScheduled, "restored, waiting for window")
		}
		st.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Shutdown cancels every live runner and waits for them to exit. Persisted
// statuses are left untouched so Restore can re-evaluate intent.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	states := make([]*strategyState, 0, len(m.states))
	for _, st := range m.states {
		states = append(states, st)
	}
	m.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		m.stopRunnerLocked(st)
		st.mu.Unlock()
	}
}

// RunnerAlive reports whether a live runner exists for id.
func (m *Manager) RunnerAlive(id string) bool {
	m.mu.Lock()
	st, ok := m.states[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.runner != nil
}

// Status returns the in-memory status for id.
func (m *Manager) Status(ctx context.Context, id string) (string, error) {
	st, _, err := m.loadState(ctx, id)
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status, nil
}

// spawnLocked creates the runner goroutine. Caller holds st.mu; the
// registry invariant (one handle per id) follows from stopRunnerLocked
// always preceding a new spawn under the same lock.
func (m *Manager) spawnLocked(st *strategyState, strategy entity.Strategy) {
	if st.runner != nil {
		return
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	h := &runnerHandle{cancel: cancel, done: make(chan struct{})}
	st.runner = h

	opts := []RunnerOption{
		WithPollInterval(m.pollInterval),
		WithTickTimeout(m.tickTimeout),
		WithPnlRecorder(func(pnl float64) {
			if err := m.strategyRepo.UpdatePnl(context.Background(), strategy.Id, pnl); err != nil {
				slog.Error("failed to persist pnl", "strategy", strategy.Id, "error", err)
			}
		}),
	}
	if sym := exchange.ParseSymbol(strategy.Symbol); !sym.IsZero() {
		opts = append(opts, WithSymbol(sym))
	}
	runner := NewRunner(strategy, m.provider, m.sink, opts...)

	go func() {
		err := runner.Run(ctx)
		close(h.done)
		if err != nil {
			m.runnerFailed(strategy.Id, h, err)
		}
	}()
}

// stopRunnerLocked cancels the live runner, if any, and waits for it to
// exit. Caller holds st.mu.
func (m *Manager) stopRunnerLocked(st *strategyState) {
	if st.runner == nil {
		return
	}
	h := st.runner
	st.runner = nil
	h.cancel()
	<-h.done
}

// runnerFailed handles a setup fault reported by a runner goroutine: the
// strategy moves to ERROR and stays there until an explicit Start retries.
func (m *Manager) runnerFailed(id string, h *runnerHandle, runErr error) {
	m.mu.Lock()
	st, ok := m.states[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// a concurrent stop/pause already detached this handle; its transition wins
	if st.runner != h {
		return
	}
	st.runner = nil

	if err := m.transitionLocked(context.Background(), st, id, entity.StatusError,
		fmt.Sprintf("runner failed: %v", runErr)); err != nil {
		slog.Error("failed to persist error status", "strategy", id, "error", err)
	}
}

// transitionLocked persists and announces a status change. Transitions are
// never silent. Caller holds st.mu.
func (m *Manager) transitionLocked(ctx context.Context, st *strategyState, id, status, reason string) error {
	if err := m.strategyRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to persist status %s: %w", status, err)
	}
	st.status = status
	level := entity.LogLevelInfo
	if status == entity.StatusError {
		level = entity.LogLevelError
	}
	m.sink.Append(id, level, fmt.Sprintf("status %s: %s", status, reason))
	return nil
}

// state returns the per-id state, creating it with the given status seed.
func (m *Manager) state(id, status string) *strategyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		st = &strategyState{status: status}
		m.states[id] = st
	}
	return st
}

// refreshLocked re-reads the strategy row while holding st.mu. The state
// resolved before the lock can be stale: a concurrent delete may have won
// the race, and a concurrent update may have changed the code a new runner
// must load. A vanished row also evicts the registry entry so no runner can
// ever be spawned for a deleted strategy.
func (m *Manager) refreshLocked(ctx context.Context, st *strategyState, id string) (entity.Strategy, error) {
	strategy, err := m.strategyRepo.FindById(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrStrategyNotFound) {
			m.mu.Lock()
			if m.states[id] == st {
				delete(m.states, id)
			}
			m.mu.Unlock()
		}
		return entity.Strategy{}, err
	}
	return strategy, nil
}

// loadState resolves id to its state, hitting the repo for strategies
// created before this process started.
func (m *Manager) loadState(ctx context.Context, id string) (*strategyState, entity.Strategy, error) {
	strategy, err := m.strategyRepo.FindById(ctx, id)
	if err != nil {
		return nil, entity.Strategy{}, err
	}
	return m.state(id, strategy.Status), strategy, nil
}
