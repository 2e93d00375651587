package provider

import (
	"context"
	"fmt"
	"log/slog"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/quantflow/quantflow/internal/service/exchange/binance"
	"github.com/quantflow/quantflow/internal/service/exchange/paper"
	"github.com/quantflow/quantflow/internal/service/settings"
	"github.com/shopspring/decimal"
)

// Provider picks the exchange capability for a runner at spawn time:
// Binance when credentials are configured, the paper exchange otherwise.
// Credentials are read fresh on every acquire so a settings change applies
// to the next runner without a restart.
type Provider struct {
	settings     settings.Service
	paperBalance decimal.Decimal
}

func NewProvider(settingsSvc settings.Service) *Provider {
	return &Provider{
		settings:     settingsSvc,
		paperBalance: decimal.NewFromInt(10000),
	}
}

func (p *Provider) Acquire(ctx context.Context) (exchange.Service, error) {
	cfg, err := p.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange settings: %w", err)
	}

	if !cfg.Exchange.HasCredentials() {
		slog.Info("no exchange credentials configured, using paper exchange")
		return paper.NewExchange(p.paperBalance), nil
	}

	gobinance.UseTestnet = cfg.Exchange.IsTestnet
	cli := gobinance.NewClient(cfg.Exchange.ApiKey, cfg.Exchange.SecretKey)

	svc := binance.NewService(cli)
	// fail fast on bad credentials so the runner surfaces a setup fault
	if _, err := svc.GetAccountInfo(ctx); err != nil {
		return nil, fmt.Errorf("exchange auth failed: %w", err)
	}
	return svc, nil
}
