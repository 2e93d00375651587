package binance

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.Service = (*Service)(nil)

// Service bundles the spot market, trading and account capabilities behind
// the exchange.Service surface the runner consumes.
type Service struct {
	marketSvc  *MarketService
	tradingSvc *TradingService
	accountSvc *AccountService
}

func NewService(cli *binance.Client) *Service {
	return &Service{
		marketSvc:  NewMarketService(cli),
		tradingSvc: NewTradingService(cli),
		accountSvc: NewAccountService(cli),
	}
}

func (s *Service) Ticker(ctx context.Context, symbol exchange.Symbol) (exchange.Ticker, error) {
	return s.marketSvc.Ticker(ctx, symbol)
}

func (s *Service) MarketOrder(ctx context.Context, symbol exchange.Symbol, side exchange.Side, quantity decimal.Decimal) (exchange.Order, error) {
	return s.tradingSvc.MarketOrder(ctx, symbol, side, quantity)
}

func (s *Service) GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error) {
	return s.accountSvc.GetAccountInfo(ctx)
}
