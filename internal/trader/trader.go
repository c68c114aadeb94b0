package trader

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skalibog/ocobot/pkg/logger"
	"github.com/skalibog/ocobot/pkg/models"
)

// pricePrecision число знаков цен тейк-профита и стоп-лосса
const pricePrecision = 2

// ExchangeAPI операции биржи, нужные трейдеру.
// Транспортные ошибки и отказы биржи для потока управления
// равнозначны: операция прерывается, состояние не меняется.
type ExchangeAPI interface {
	AccountAPI
	OpenOCOOrders(ctx context.Context, symbol string) ([]models.OCOOrder, error)
	LotSizeFilter(ctx context.Context, symbol string) (models.LotSizeFilter, error)
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
	SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, quantity string) error
	SubmitOCOSell(ctx context.Context, symbol, quantity, limitPrice, stopPrice string) error
	CancelOpenOrders(ctx context.Context, symbol string) error
}

// Settings параметры риска и брекет-ордеров
type Settings struct {
	RiskPercent       float64
	StopLossPercent   float64
	TakeProfitPercent float64
}

// Execution цена и количество исполненной операции
type Execution struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Trader управляет жизненным циклом позиции: вход маркет-покупкой
// с OCO-брекетом, выход отменой брекета и маркет-продажей.
// Одновременно активен не более одного брекета; hasPosition меняется
// только здесь и только после подтвержденного успеха операции.
type Trader struct {
	api         ExchangeAPI
	pair        models.CoinPair
	settings    Settings
	wallet      *Wallet
	filters     models.LotSizeFilter
	hasPosition bool
}

// New создает трейдер для пары
func New(api ExchangeAPI, pair models.CoinPair, settings Settings) *Trader {
	return &Trader{
		api:      api,
		pair:     pair,
		settings: settings,
		wallet:   NewWallet(api, pair),
	}
}

// Init восстанавливает состояние позиции по открытым OCO-ордерам и
// загружает балансы и фильтры. Ошибка любого запроса фатальна:
// без фильтров безопасно рассчитать ордер невозможно.
func (t *Trader) Init(ctx context.Context) error {
	ocoOrders, err := t.api.OpenOCOOrders(ctx, t.pair.Symbol)
	if err != nil {
		return fmt.Errorf("ошибка получения открытых OCO-ордеров: %w", err)
	}
	t.hasPosition = len(ocoOrders) > 0

	if _, err := t.wallet.Cached(ctx); err != nil {
		return fmt.Errorf("ошибка начальной загрузки балансов: %w", err)
	}

	filters, err := t.api.LotSizeFilter(ctx, t.pair.Symbol)
	if err != nil {
		return fmt.Errorf("ошибка получения фильтров биржи: %w", err)
	}
	if filters.StepSize.Sign() <= 0 {
		return fmt.Errorf("некорректный stepSize в фильтре LOT_SIZE: %s", filters.StepSize)
	}
	t.filters = filters

	logger.Info("Трейдер инициализирован",
		zap.String("symbol", t.pair.Symbol),
		zap.Bool("hasPosition", t.hasPosition),
		zap.String("minQty", filters.MinQty.String()),
		zap.String("maxQty", filters.MaxQty.String()),
		zap.String("stepSize", filters.StepSize.String()))
	return nil
}

// HasPosition сообщает, открыта ли позиция с брекетом
func (t *Trader) HasPosition() bool {
	return t.hasPosition
}

// EnterLong входит в длинную позицию: маркет-покупка на riskPercent
// от котируемого баланса и OCO-брекет на продажу. Возвращает nil,nil
// когда вход осознанно не состоялся (позиция уже открыта, нулевой
// баланс, количество ниже минимума лота).
//
// Если покупка прошла, а выставление брекета упало, позиция остается
// без защиты: hasPosition не выставляется, ошибка отдается наверх.
// Автоматического отката или повтора здесь нет умышленно.
func (t *Trader) EnterLong(ctx context.Context) (*Execution, error) {
	if t.hasPosition {
		logger.Debug("Вход пропущен: позиция уже открыта", zap.String("symbol", t.pair.Symbol))
		return nil, nil
	}

	balance, err := t.wallet.Cached(ctx)
	if err != nil {
		// Устаревшее значение пригодно для оценки размера
		logger.Warn("Используется устаревший баланс", zap.Error(err))
	}
	if !balance.Quote.IsPositive() {
		logger.Info("Вход пропущен: нет котируемого актива",
			zap.String("asset", t.pair.Quote))
		return nil, nil
	}

	price, err := t.api.Price(ctx, t.pair.Symbol)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения цены: %w", err)
	}

	inBase := balance.Quote.Div(price)
	target := inBase.Mul(decimal.NewFromFloat(t.settings.RiskPercent))
	quantity := NormalizeQuantity(t.filters, target)
	if quantity.IsZero() {
		logger.Info("Вход пропущен: количество ниже минимума лота",
			zap.String("target", target.String()),
			zap.String("minQty", t.filters.MinQty.String()))
		return nil, nil
	}

	qtyStr := FormatQuantity(quantity)
	logger.Info("Покупка",
		zap.String("symbol", t.pair.Symbol),
		zap.String("quantity", qtyStr),
		zap.String("price", price.StringFixed(pricePrecision)))

	if err := t.api.SubmitMarketOrder(ctx, t.pair.Symbol, models.SideBuy, qtyStr); err != nil {
		return nil, fmt.Errorf("ошибка маркет-покупки: %w", err)
	}

	one := decimal.NewFromInt(1)
	stopLoss := price.Mul(one.Sub(decimal.NewFromFloat(t.settings.StopLossPercent))).Round(pricePrecision)
	takeProfit := price.Mul(one.Add(decimal.NewFromFloat(t.settings.TakeProfitPercent))).Round(pricePrecision)

	if err := t.api.SubmitOCOSell(ctx, t.pair.Symbol, qtyStr,
		takeProfit.StringFixed(pricePrecision), stopLoss.StringFixed(pricePrecision)); err != nil {
		return nil, fmt.Errorf("позиция куплена, но осталась без брекета: %w", err)
	}

	t.hasPosition = true
	logger.Info("OCO-брекет выставлен",
		zap.String("takeProfit", takeProfit.StringFixed(pricePrecision)),
		zap.String("stopLoss", stopLoss.StringFixed(pricePrecision)))
	return &Execution{Price: price, Quantity: quantity}, nil
}

// ExitLong выходит из позиции: отмена брекет-ордеров, затем
// маркет-продажа всего базового остатка. Без открытой позиции — no-op.
// Остаток ниже минимума лота не продается, пыль остается на счете.
func (t *Trader) ExitLong(ctx context.Context) (*Execution, error) {
	if !t.hasPosition {
		logger.Debug("Выход пропущен: позиция не открыта", zap.String("symbol", t.pair.Symbol))
		return nil, nil
	}

	if err := t.api.CancelOpenOrders(ctx, t.pair.Symbol); err != nil {
		return nil, fmt.Errorf("ошибка отмены брекет-ордеров: %w", err)
	}
	t.hasPosition = false

	balance, err := t.wallet.Cached(ctx)
	if err != nil {
		logger.Warn("Используется устаревший баланс", zap.Error(err))
	}
	if !balance.Base.IsPositive() {
		logger.Info("Выход пропущен: нет базового актива",
			zap.String("asset", t.pair.Base))
		return nil, nil
	}

	quantity := NormalizeQuantity(t.filters, balance.Base)
	if quantity.IsZero() {
		logger.Info("Выход пропущен: остаток ниже минимума лота",
			zap.String("balance", balance.Base.String()))
		return nil, nil
	}

	price, err := t.api.Price(ctx, t.pair.Symbol)
	if err != nil {
		// Цена нужна только для уведомления, продажу не блокируем
		logger.Debug("Цена для уведомления недоступна", zap.Error(err))
		price = decimal.Zero
	}

	qtyStr := FormatQuantity(quantity)
	logger.Info("Продажа",
		zap.String("symbol", t.pair.Symbol),
		zap.String("quantity", qtyStr))

	if err := t.api.SubmitMarketOrder(ctx, t.pair.Symbol, models.SideSell, qtyStr); err != nil {
		return nil, fmt.Errorf("ошибка маркет-продажи: %w", err)
	}

	return &Execution{Price: price, Quantity: quantity}, nil
}
