package paper

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/quantflow/quantflow/pkg/decimalx"
	"github.com/shopspring/decimal"
)

// 编译时检查接口实现
var _ exchange.Service = (*Exchange)(nil)

// Exchange is an in-memory simulated exchange used when no real credentials
// are configured, and in tests. Prices random-walk around a per-symbol base
// price; every market order fills immediately at the current price.
type Exchange struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	basePrices  map[string]decimal.Decimal
	balance     decimal.Decimal
	nextOrderId int64
	rnd         *rand.Rand
	now         func() time.Time
}

type Option func(ex *Exchange)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(ex *Exchange) {
		ex.now = now
	}
}

func WithBasePrice(symbol exchange.Symbol, price decimal.Decimal) Option {
	return func(ex *Exchange) {
		ex.basePrices[symbol.ToString()] = price
	}
}

func NewExchange(initialBalance decimal.Decimal, opts ...Option) *Exchange {
	ex := &Exchange{
		prices:      make(map[string]decimal.Decimal),
		basePrices:  make(map[string]decimal.Decimal),
		balance:     initialBalance,
		nextOrderId: 1,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
	ex.basePrices["BTCUSDT"] = decimalx.MustFromString("30000")
	ex.basePrices["ETHUSDT"] = decimalx.MustFromString("2000")
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

func (ex *Exchange) Ticker(ctx context.Context, symbol exchange.Symbol) (exchange.Ticker, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	price := ex.step(symbol)
	spread := price.Mul(decimal.NewFromFloat(0.0002))
	return exchange.Ticker{
		Symbol:    symbol,
		Last:      price,
		Bid:       price.Sub(spread),
		Ask:       price.Add(spread),
		Timestamp: ex.now(),
	}, nil
}

func (ex *Exchange) MarketOrder(ctx context.Context, symbol exchange.Symbol, side exchange.Side, quantity decimal.Decimal) (exchange.Order, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	price := ex.step(symbol)
	id := ex.nextOrderId
	ex.nextOrderId++

	cost := price.Mul(quantity)
	if side == exchange.Buy {
		ex.balance = ex.balance.Sub(cost)
	} else {
		ex.balance = ex.balance.Add(cost)
	}

	return exchange.Order{
		Id:       exchange.OrderId("paper-" + strconv.FormatInt(id, 10)),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Status:   exchange.OrderStatusFilled,
	}, nil
}

func (ex *Exchange) GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	return exchange.AccountInfo{
		TotalBalance:     ex.balance,
		AvailableBalance: ex.balance,
		UnrealizedPnl:    decimal.Zero,
		UsedMargin:       decimal.Zero,
	}, nil
}

// step advances the random walk for symbol and returns the new price.
// Caller holds ex.mu.
func (ex *Exchange) step(symbol exchange.Symbol) decimal.Decimal {
	key := symbol.ToString()
	base, ok := ex.basePrices[key]
	if !ok {
		base = decimal.NewFromInt(100)
		ex.basePrices[key] = base
	}

	price, ok := ex.prices[key]
	if !ok {
		price = base
	}

	// drift within ±1% of the base price per step
	drift := base.Mul(decimal.NewFromFloat((ex.rnd.Float64() - 0.5) * 0.02))
	price = price.Add(drift)
	if price.LessThanOrEqual(decimal.Zero) {
		price = base
	}
	ex.prices[key] = price
	return price
}
