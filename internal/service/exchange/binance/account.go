package binance

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.AccountService = (*AccountService)(nil)

type AccountService struct {
	cli *binance.Client
}

func NewAccountService(cli *binance.Client) *AccountService {
	return &AccountService{cli: cli}
}

// GetAccountInfo sums the USDT balances of the spot account. Free balance
// is what can back new orders; locked balance is margin held by open orders.
func (s *AccountService) GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error) {
	account, err := s.cli.NewGetAccountService().Do(ctx)
	if err != nil {
		return exchange.AccountInfo{}, err
	}

	free, locked := decimal.Zero, decimal.Zero
	for _, balance := range account.Balances {
		if balance.Asset != "USDT" {
			continue
		}
		f, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return exchange.AccountInfo{}, err
		}
		l, err := decimal.NewFromString(balance.Locked)
		if err != nil {
			return exchange.AccountInfo{}, err
		}
		free = free.Add(f)
		locked = locked.Add(l)
	}

	return exchange.AccountInfo{
		TotalBalance:     free.Add(locked),
		AvailableBalance: free,
		UnrealizedPnl:    decimal.Zero,
		UsedMargin:       locked,
	}, nil
}
