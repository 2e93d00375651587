package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/repo"
	"github.com/quantflow/quantflow/internal/service/exchange"
)

// in-memory repos and a stub provider for engine tests

type memStrategyRepo struct {
	mu sync.Mutex
	m  map[string]entity.Strategy

	// afterFind, when set, runs after every successful FindById lookup,
	// outside the repo lock. Lets a test park a caller between its repo
	// read and whatever it does next.
	afterFind func(id string)
	// updateStatusErr fails every UpdateStatus call when set.
	updateStatusErr error
}

func newMemStrategyRepo() *memStrategyRepo {
	return &memStrategyRepo{m: make(map[string]entity.Strategy)}
}

func (r *memStrategyRepo) Create(ctx context.Context, strategy entity.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[strategy.Id] = strategy
	return nil
}

func (r *memStrategyRepo) FindById(ctx context.Context, id string) (entity.Strategy, error) {
	r.mu.Lock()
	strategy, ok := r.m[id]
	hook := r.afterFind
	r.mu.Unlock()
	if !ok {
		return entity.Strategy{}, repo.ErrStrategyNotFound
	}
	if hook != nil {
		hook(id)
	}
	return strategy, nil
}

func (r *memStrategyRepo) FindAll(ctx context.Context) ([]entity.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	strategies := make([]entity.Strategy, 0, len(r.m))
	for _, s := range r.m {
		strategies = append(strategies, s)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i].Id < strategies[j].Id })
	return strategies, nil
}

func (r *memStrategyRepo) Update(ctx context.Context, strategy entity.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.m[strategy.Id]
	if !ok {
		return repo.ErrStrategyNotFound
	}
	cur.Name = strategy.Name
	cur.Description = strategy.Description
	cur.Code = strategy.Code
	cur.Symbol = strategy.Symbol
	cur.ScheduleStart = strategy.ScheduleStart
	cur.ScheduleEnd = strategy.ScheduleEnd
	r.m[strategy.Id] = cur
	return nil
}

func (r *memStrategyRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	cur, ok := r.m[id]
	if !ok {
		return repo.ErrStrategyNotFound
	}
	cur.Status = status
	r.m[id] = cur
	return nil
}

func (r *memStrategyRepo) UpdatePnl(ctx context.Context, id string, pnl float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.m[id]
	if !ok {
		return repo.ErrStrategyNotFound
	}
	cur.PnlDay = pnl
	r.m[id] = cur
	return nil
}

func (r *memStrategyRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type memLogRepo struct {
	mu     sync.Mutex
	logs   []entity.Log
	nextId int64
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{nextId: 1}
}

func (r *memLogRepo) Create(ctx context.Context, log entity.Log) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Id = r.nextId
	r.nextId++
	r.logs = append(r.logs, log)
	return log.Id, nil
}

func (r *memLogRepo) FindByStrategyId(ctx context.Context, strategyId string, limit int) ([]entity.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Log
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].StrategyId == strategyId {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}

func (r *memLogRepo) DeleteByStrategyId(ctx context.Context, strategyId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	for _, l := range r.logs {
		if l.StrategyId != strategyId {
			kept = append(kept, l)
		}
	}
	r.logs = kept
	return nil
}

// entriesFor returns the entries for one strategy in arrival order.
func (r *memLogRepo) entriesFor(strategyId string) []entity.Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Log
	for _, l := range r.logs {
		if l.StrategyId == strategyId {
			out = append(out, l)
		}
	}
	return out
}

// stubProvider hands out a fixed exchange, or fails every acquisition.
type stubProvider struct {
	svc exchange.Service
	err error
}

func (p *stubProvider) Acquire(ctx context.Context) (exchange.Service, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.svc, nil
}
