package strategy

import (
	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/internal/indicators"
)

// SignalType тип торгового сигнала
type SignalType string

const (
	Buy  SignalType = "buy"
	Sell SignalType = "sell"
	Hold SignalType = "hold"
)

// Strategy идентификатор стратегии
type Strategy string

const (
	TrendFollowing Strategy = "trendFollowing"
	MeanReversion  Strategy = "meanReversion"
	MACDCrossover  Strategy = "macdCrossover"
)

// Signal результат оценки одной стратегии
type Signal struct {
	Type     SignalType
	Reason   string
	Strategy Strategy
}

// IndicatorSource поставщик индикаторных представлений.
// Реализуется indicators.Snapshot, в тестах — заглушкой.
type IndicatorSource interface {
	EMA(shortPeriod, longPeriod int) indicators.EMAView
	MACD(fastPeriod, slowPeriod, signalPeriod int) indicators.MACDView
	RSI(period int) indicators.RSIView
	ADX(period int) indicators.ADXView
}

// Generator оценивает стратегии по текущему снимку индикаторов.
// Состояния не хранит, каждый вызов дает свежий сигнал.
type Generator struct {
	src    IndicatorSource
	params config.StrategyParams
}

// NewGenerator создает генератор сигналов
func NewGenerator(src IndicatorSource, params config.StrategyParams) *Generator {
	return &Generator{src: src, params: params}
}

// Evaluate возвращает сигнал выбранной стратегии.
// Неизвестный идентификатор — hold: стратегия может прийти из
// конфигурации, падать из-за опечатки в проде нельзя.
func (g *Generator) Evaluate(s Strategy) Signal {
	switch s {
	case TrendFollowing:
		return g.trendFollowing()
	case MeanReversion:
		return g.meanReversion()
	case MACDCrossover:
		return g.macdCrossover()
	default:
		return Signal{Type: Hold, Reason: "unknown strategy", Strategy: s}
	}
}

// EvaluateAll возвращает сигналы всех стратегий
func (g *Generator) EvaluateAll() []Signal {
	return []Signal{
		g.trendFollowing(),
		g.meanReversion(),
		g.macdCrossover(),
	}
}

// trendFollowing пересечение EMA с фильтром силы тренда по ADX.
// Пересечения шумят во флэте, ADX отсекает сделки без тренда.
func (g *Generator) trendFollowing() Signal {
	ema := g.src.EMA(g.params.EMA.ShortPeriod, g.params.EMA.LongPeriod)
	adx := g.src.ADX(g.params.ADX.Period)
	if !ema.OK || !adx.OK {
		return Signal{Type: Hold, Reason: "insufficient data", Strategy: TrendFollowing}
	}

	crossUp, crossDown := indicators.Crossover(ema.PrevShort, ema.LastShort, ema.PrevLong, ema.LastLong)
	threshold := g.params.ADX.Threshold

	switch {
	case adx.ADX > threshold && crossUp && adx.PlusDI > adx.MinusDI:
		return Signal{
			Type:     Buy,
			Reason:   "EMA cross up with strong uptrend (ADX > threshold, +DI > -DI)",
			Strategy: TrendFollowing,
		}
	case adx.ADX > threshold && crossDown && adx.MinusDI > adx.PlusDI:
		return Signal{
			Type:     Sell,
			Reason:   "EMA cross down with strong downtrend (ADX > threshold, -DI > +DI)",
			Strategy: TrendFollowing,
		}
	default:
		return Signal{Type: Hold, Reason: "no strong trend or no EMA cross", Strategy: TrendFollowing}
	}
}

// meanReversion RSI с обратным фильтром ADX: возвратным сигналам
// доверяем только когда тренд слабый.
func (g *Generator) meanReversion() Signal {
	rsi := g.src.RSI(g.params.RSI.Period)
	adx := g.src.ADX(g.params.ADX.Period)
	if !rsi.OK || !adx.OK {
		return Signal{Type: Hold, Reason: "insufficient data", Strategy: MeanReversion}
	}

	threshold := g.params.ADX.Threshold

	switch {
	case adx.ADX < threshold && rsi.Last < g.params.RSI.Oversold:
		return Signal{
			Type:     Buy,
			Reason:   "oversold RSI in flat market (ADX < threshold)",
			Strategy: MeanReversion,
		}
	case adx.ADX < threshold && rsi.Last > g.params.RSI.Overbought:
		return Signal{
			Type:     Sell,
			Reason:   "overbought RSI in flat market (ADX < threshold)",
			Strategy: MeanReversion,
		}
	default:
		return Signal{Type: Hold, Reason: "no oversold/overbought in flat market", Strategy: MeanReversion}
	}
}

// macdCrossover пересечение линии MACD и сигнальной линии строго
// между предыдущей и последней точками.
func (g *Generator) macdCrossover() Signal {
	view := g.src.MACD(g.params.MACD.FastPeriod, g.params.MACD.SlowPeriod, g.params.MACD.SignalPeriod)
	if !view.OK {
		return Signal{Type: Hold, Reason: "no data for calculation", Strategy: MACDCrossover}
	}

	switch {
	case view.Last.MACD > view.Last.Signal && view.Prev.MACD <= view.Prev.Signal:
		return Signal{Type: Buy, Reason: "MACD cross up (bullish signal)", Strategy: MACDCrossover}
	case view.Last.MACD < view.Last.Signal && view.Prev.MACD >= view.Prev.Signal:
		return Signal{Type: Sell, Reason: "MACD cross down (bearish signal)", Strategy: MACDCrossover}
	default:
		return Signal{Type: Hold, Reason: "no MACD crossover", Strategy: MACDCrossover}
	}
}
