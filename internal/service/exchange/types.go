package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol 交易对
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func (s Symbol) ToString() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

// ParseSymbol splits a compact symbol string ("BTCUSDT", "BTC/USDT") on the
// common quote assets.
func ParseSymbol(s string) Symbol {
	s = strings.ToUpper(strings.ReplaceAll(s, "/", ""))
	quotes := []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return Symbol{Base: strings.TrimSuffix(s, q), Quote: q}
		}
	}
	return Symbol{Base: s}
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderId string

func (id OrderId) ToString() string {
	return string(id)
}

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "created"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
)

// Ticker 一次行情快照
type Ticker struct {
	Symbol    Symbol
	Last      decimal.Decimal
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

type Order struct {
	Id       OrderId
	Symbol   Symbol
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Status   OrderStatus
}

type AccountInfo struct {
	TotalBalance     decimal.Decimal
	AvailableBalance decimal.Decimal
	UnrealizedPnl    decimal.Decimal
	UsedMargin       decimal.Decimal
}

type MarketService interface {
	Ticker(ctx context.Context, symbol Symbol) (Ticker, error)
}

type TradingService interface {
	// MarketOrder submits a market order and returns the filled order.
	MarketOrder(ctx context.Context, symbol Symbol, side Side, quantity decimal.Decimal) (Order, error)
}

type AccountService interface {
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
}

// Service is the full capability surface a strategy runner acquires.
type Service interface {
	MarketService
	TradingService
	AccountService
}
