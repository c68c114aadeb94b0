package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/pkg/models"
)

// BinanceClient клиент для взаимодействия со спотовым API Binance
type BinanceClient struct {
	spot *binance.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	binance.UseTestnet = cfg.Testnet
	return &BinanceClient{
		spot: binance.NewClient(cfg.APIKey, cfg.APISecret),
	}
}

// Klines получает исторические свечи
func (c *BinanceClient) Klines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, len(klines))
	for i, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}
		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}
		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}
		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}

		candles[i] = &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.UnixMilli(k.CloseTime),
		}
	}

	return candles, nil
}

// Price получает текущую цену пары.
// Неположительная цена считается ошибкой биржи.
func (c *BinanceClient) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка получения цены: %w", err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("ошибка разбора цены %q: %w", p.Price, err)
		}
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("биржа вернула неположительную цену %s для %s", price, symbol)
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("цена для %s не найдена", symbol)
}

// AccountBalances получает свободные остатки всех активов аккаунта
func (c *BinanceClient) AccountBalances(ctx context.Context) ([]models.AssetBalance, error) {
	account, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}

	balances := make([]models.AssetBalance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора баланса %s: %w", b.Asset, err)
		}
		balances = append(balances, models.AssetBalance{Asset: b.Asset, Free: free})
	}
	return balances, nil
}

// LotSizeFilter получает ограничения LOT_SIZE для пары.
// Отсутствие символа или фильтра — ошибка конфигурации, фатальная на старте.
func (c *BinanceClient) LotSizeFilter(ctx context.Context, symbol string) (models.LotSizeFilter, error) {
	info, err := c.spot.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return models.LotSizeFilter{}, fmt.Errorf("ошибка получения информации о бирже: %w", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		lot := s.LotSizeFilter()
		if lot == nil {
			return models.LotSizeFilter{}, fmt.Errorf("фильтр LOT_SIZE для %s не найден", symbol)
		}
		minQty, err := decimal.NewFromString(lot.MinQuantity)
		if err != nil {
			return models.LotSizeFilter{}, fmt.Errorf("ошибка разбора minQty: %w", err)
		}
		maxQty, err := decimal.NewFromString(lot.MaxQuantity)
		if err != nil {
			return models.LotSizeFilter{}, fmt.Errorf("ошибка разбора maxQty: %w", err)
		}
		stepSize, err := decimal.NewFromString(lot.StepSize)
		if err != nil {
			return models.LotSizeFilter{}, fmt.Errorf("ошибка разбора stepSize: %w", err)
		}
		return models.LotSizeFilter{MinQty: minQty, MaxQty: maxQty, StepSize: stepSize}, nil
	}

	return models.LotSizeFilter{}, fmt.Errorf("символ %s не найден на бирже", symbol)
}

// OpenOCOOrders получает открытые OCO-группы по паре.
// Ордера группируются по orderListId, -1 означает обычный ордер.
func (c *BinanceClient) OpenOCOOrders(ctx context.Context, symbol string) ([]models.OCOOrder, error) {
	orders, err := c.spot.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытых ордеров: %w", err)
	}

	groups := make(map[int64][]*binance.Order)
	var listIDs []int64
	for _, o := range orders {
		if o.OrderListId == -1 {
			continue
		}
		if _, ok := groups[o.OrderListId]; !ok {
			listIDs = append(listIDs, o.OrderListId)
		}
		groups[o.OrderListId] = append(groups[o.OrderListId], o)
	}

	result := make([]models.OCOOrder, 0, len(groups))
	for _, listID := range listIDs {
		legs := groups[listID]

		// Лимитная нога — тейк-профит, стоп-лимитная — стоп-лосс
		limitLeg := legs[0]
		stopLeg := legs[0]
		for _, leg := range legs {
			switch leg.Type {
			case binance.OrderTypeLimitMaker:
				limitLeg = leg
			case binance.OrderTypeStopLossLimit:
				stopLeg = leg
			}
		}

		oco := models.OCOOrder{
			OrderListID: listID,
			Symbol:      symbol,
			Status:      string(limitLeg.Status),
			Quantity:    limitLeg.OrigQuantity,
			Price:       limitLeg.Price,
			StopPrice:   stopLeg.StopPrice,
			CreatedAt:   time.UnixMilli(limitLeg.Time),
		}
		for _, leg := range legs {
			oco.OrderIDs = append(oco.OrderIDs, leg.OrderID)
		}
		result = append(result, oco)
	}

	return result, nil
}

// SubmitMarketOrder отправляет маркет-ордер
func (c *BinanceClient) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, quantity string) error {
	_, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отправки маркет-ордера %s %s: %w", side, quantity, err)
	}
	return nil
}

// SubmitOCOSell выставляет OCO-брекет на продажу: лимитная нога на
// тейк-профите, стоп-лимитная на стоп-лоссе, GTC.
func (c *BinanceClient) SubmitOCOSell(ctx context.Context, symbol, quantity, limitPrice, stopPrice string) error {
	_, err := c.spot.NewCreateOCOService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Quantity(quantity).
		Price(limitPrice).
		StopPrice(stopPrice).
		StopLimitPrice(stopPrice).
		StopLimitTimeInForce(binance.TimeInForceTypeGTC).
		ListClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка выставления OCO-брекета: %w", err)
	}
	return nil
}

// CancelOpenOrders отменяет все открытые ордера по паре
func (c *BinanceClient) CancelOpenOrders(ctx context.Context, symbol string) error {
	_, err := c.spot.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отмены открытых ордеров: %w", err)
	}
	return nil
}
