package binance

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/quantflow/quantflow/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.TradingService = (*TradingService)(nil)

type TradingService struct {
	cli *binance.Client
}

func NewTradingService(cli *binance.Client) *TradingService {
	return &TradingService{cli: cli}
}

func (t *TradingService) MarketOrder(ctx context.Context, symbol exchange.Symbol, side exchange.Side, quantity decimal.Decimal) (exchange.Order, error) {
	res, err := t.cli.NewCreateOrderService().
		Symbol(symbol.ToString()).
		Side(binanceSide(side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return exchange.Order{}, err
	}

	price := decimal.Zero
	if res.Price != "" {
		price, _ = decimal.NewFromString(res.Price)
	}
	// market orders report the real fill price through the fills
	if price.IsZero() && len(res.Fills) > 0 {
		price, _ = decimal.NewFromString(res.Fills[0].Price)
	}

	return exchange.Order{
		Id:       exchange.OrderId(strconv.FormatInt(res.OrderID, 10)),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Status:   fromBinanceOrderStatus(res.Status),
	}, nil
}

func binanceSide(side exchange.Side) binance.SideType {
	switch side {
	case exchange.Buy:
		return binance.SideTypeBuy
	case exchange.Sell:
		return binance.SideTypeSell
	default:
		return ""
	}
}

func fromBinanceOrderStatus(status binance.OrderStatusType) exchange.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return exchange.OrderStatusCreated
	case binance.OrderStatusTypeFilled:
		return exchange.OrderStatusFilled
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return exchange.OrderStatusRejected
	default:
		return exchange.OrderStatus(status)
	}
}
