package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.MarketService = (*MarketService)(nil)

type MarketService struct {
	cli *binance.Client
}

func NewMarketService(cli *binance.Client) *MarketService {
	return &MarketService{cli: cli}
}

func (m *MarketService) Ticker(ctx context.Context, symbol exchange.Symbol) (exchange.Ticker, error) {
	// 币安API使用 BTCUSDT 格式，不是 BTC/USDT
	stats, err := m.cli.NewListBookTickersService().Symbol(symbol.ToString()).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, err
	}
	if len(stats) == 0 {
		return exchange.Ticker{}, fmt.Errorf("no ticker for %s", symbol.ToString())
	}

	bid, err := decimal.NewFromString(stats[0].BidPrice)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("failed to parse bid price %q: %w", stats[0].BidPrice, err)
	}
	ask, err := decimal.NewFromString(stats[0].AskPrice)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("failed to parse ask price %q: %w", stats[0].AskPrice, err)
	}

	return exchange.Ticker{
		Symbol: symbol,
		// mid price, the book ticker endpoint does not return last trade price
		Last:      bid.Add(ask).Div(decimal.NewFromInt(2)),
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}, nil
}
