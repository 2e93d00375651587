package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/quantflow/quantflow/internal/service/sandbox"
	"github.com/quantflow/quantflow/pkg/decimalx"
	"github.com/shopspring/decimal"
)

// trendWindow is how many recent last prices feed the trend slope.
const trendWindow = 20

// ExchangeProvider yields the exchange capability a runner trades through.
// Acquisition happens once per runner spawn; a failure is a setup fault.
type ExchangeProvider interface {
	Acquire(ctx context.Context) (exchange.Service, error)
}

// Runner drives one strategy's live execution: acquire the exchange, load
// the code into the sandbox, then poll ticker -> on_tick -> sleep until
// cancelled. A setup fault is returned to the manager; a tick fault is
// logged and survived.
type Runner struct {
	strategy     entity.Strategy
	provider     ExchangeProvider
	sink         LogSink
	symbol       exchange.Symbol
	pollInterval time.Duration
	tickTimeout  time.Duration
	recordPnl    func(pnl float64)

	history []decimal.Decimal

	// fill bookkeeping behind the session PnL figure
	position decimal.Decimal
	cash     decimal.Decimal
}

type RunnerOption func(r *Runner)

func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.pollInterval = d
	}
}

func WithTickTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.tickTimeout = d
	}
}

func WithSymbol(symbol exchange.Symbol) RunnerOption {
	return func(r *Runner) {
		r.symbol = symbol
	}
}

// WithPnlRecorder reports the mark-to-market PnL of the session after every
// fill.
func WithPnlRecorder(fn func(pnl float64)) RunnerOption {
	return func(r *Runner) {
		r.recordPnl = fn
	}
}

func NewRunner(strategy entity.Strategy, provider ExchangeProvider, sink LogSink, opts ...RunnerOption) *Runner {
	r := &Runner{
		strategy:     strategy,
		provider:     provider,
		sink:         sink,
		symbol:       exchange.Symbol{Base: "BTC", Quote: "USDT"},
		pollInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until the context is cancelled or a setup fault aborts the
// attempt. The returned error is non-nil only for setup faults.
func (r *Runner) Run(ctx context.Context) error {
	r.sink.Append(r.strategy.Id, entity.LogLevelInfo, "starting strategy runner")

	ex, err := r.provider.Acquire(ctx)
	if err != nil {
		r.sink.Append(r.strategy.Id, entity.LogLevelError,
			fmt.Sprintf("exchange init failed: %v", err))
		return fmt.Errorf("exchange init failed: %w", err)
	}

	sb, err := sandbox.Load(r.strategy.Code, sandbox.Capabilities{
		Log:  r.appendLeveled,
		Buy:  r.orderFunc(ctx, ex, exchange.Buy),
		Sell: r.orderFunc(ctx, ex, exchange.Sell),
	}, sandbox.WithTickTimeout(r.tickTimeout))
	if err != nil {
		r.sink.Append(r.strategy.Id, entity.LogLevelError, err.Error())
		return fmt.Errorf("strategy code rejected: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.sink.Append(r.strategy.Id, entity.LogLevelInfo, "strategy stopped")
			return nil
		default:
		}

		ticker, err := ex.Ticker(ctx, r.symbol)
		if err != nil {
			// a bad fetch is a tick fault, the next poll may succeed
			r.sink.Append(r.strategy.Id, entity.LogLevelError,
				fmt.Sprintf("failed to fetch ticker: %v", err))
		} else if err := sb.OnTick(r.toTick(ticker)); err != nil {
			r.sink.Append(r.strategy.Id, entity.LogLevelError, err.Error())
		}

		select {
		case <-ctx.Done():
			r.sink.Append(r.strategy.Id, entity.LogLevelInfo, "strategy stopped")
			return nil
		case <-time.After(r.pollInterval):
		}
	}
}

// appendLeveled is the log capability handed to strategy code. Unknown
// levels are recorded as INFO rather than rejected.
func (r *Runner) appendLeveled(level, message string) {
	switch level {
	case entity.LogLevelInfo, entity.LogLevelWarn, entity.LogLevelError, entity.LogLevelTrade:
	default:
		level = entity.LogLevelInfo
	}
	r.sink.Append(r.strategy.Id, level, message)
}

// orderFunc builds the buy/sell capability. A rejected order comes back to
// the strategy as nil, never as a fault.
func (r *Runner) orderFunc(ctx context.Context, ex exchange.Service, side exchange.Side) func(string, float64) *sandbox.OrderResult {
	return func(symbolStr string, quantity float64) *sandbox.OrderResult {
		symbol := exchange.ParseSymbol(symbolStr)
		qty := decimal.NewFromFloat(quantity)

		order, err := ex.MarketOrder(ctx, symbol, side, qty)
		if err != nil {
			r.sink.Append(r.strategy.Id, entity.LogLevelError,
				fmt.Sprintf("order failed: %s %s %s: %v", side, symbol.ToString(), qty, err))
			return nil
		}

		r.sink.Append(r.strategy.Id, entity.LogLevelTrade,
			fmt.Sprintf("%s %s %s filled, order %s at %s",
				side, symbol.ToString(), qty, order.Id, order.Price))
		r.settle(side, qty, order.Price)

		price, _ := order.Price.Float64()
		return &sandbox.OrderResult{
			Id:       order.Id.ToString(),
			Symbol:   symbol.ToString(),
			Side:     string(side),
			Quantity: quantity,
			Price:    price,
		}
	}
}

// settle folds a fill into the position/cash books and reports the session
// PnL, marking the open position at the fill price.
func (r *Runner) settle(side exchange.Side, qty, price decimal.Decimal) {
	cost := price.Mul(qty)
	if side == exchange.Buy {
		r.position = r.position.Add(qty)
		r.cash = r.cash.Sub(cost)
	} else {
		r.position = r.position.Sub(qty)
		r.cash = r.cash.Add(cost)
	}
	if r.recordPnl != nil {
		pnl, _ := r.cash.Add(r.position.Mul(price)).Float64()
		r.recordPnl(pnl)
	}
}

// toTick builds the snapshot for on_tick, folding the new last price into
// the trend window.
func (r *Runner) toTick(t exchange.Ticker) sandbox.Tick {
	r.history = append(r.history, t.Last)
	if len(r.history) > trendWindow {
		r.history = r.history[len(r.history)-trendWindow:]
	}
	trend, _ := decimalx.Slope(r.history).Float64()

	last, _ := t.Last.Float64()
	bid, _ := t.Bid.Float64()
	ask, _ := t.Ask.Float64()
	return sandbox.Tick{
		Symbol:    t.Symbol.ToString(),
		Last:      last,
		Bid:       bid,
		Ask:       ask,
		Trend:     trend,
		Timestamp: t.Timestamp.UnixMilli(),
	}
}
