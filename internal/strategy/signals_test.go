package strategy

import (
	"testing"

	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/internal/indicators"
)

// fakeSource заглушка поставщика индикаторов
type fakeSource struct {
	ema  indicators.EMAView
	macd indicators.MACDView
	rsi  indicators.RSIView
	adx  indicators.ADXView
}

func (f fakeSource) EMA(int, int) indicators.EMAView       { return f.ema }
func (f fakeSource) MACD(int, int, int) indicators.MACDView { return f.macd }
func (f fakeSource) RSI(int) indicators.RSIView            { return f.rsi }
func (f fakeSource) ADX(int) indicators.ADXView            { return f.adx }

func testParams() config.StrategyParams {
	return config.StrategyParams{
		EMA:  config.EMAParams{ShortPeriod: 9, LongPeriod: 21},
		MACD: config.MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		RSI:  config.RSIParams{Period: 14, Oversold: 30, Overbought: 70},
		ADX:  config.ADXParams{Period: 14, Threshold: 25},
	}
}

// crossUpEMA пересечение вверх: короткая была ниже, стала выше
func crossUpEMA() indicators.EMAView {
	return indicators.EMAView{OK: true, PrevShort: 10, LastShort: 12, PrevLong: 11, LastLong: 11.5}
}

// noCrossEMA короткая все время выше длинной
func noCrossEMA() indicators.EMAView {
	return indicators.EMAView{OK: true, PrevShort: 12, LastShort: 13, PrevLong: 11, LastLong: 11.5}
}

func TestTrendFollowing(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
		want SignalType
	}{
		{
			name: "покупка: кросс вверх при сильном тренде",
			src: fakeSource{
				ema: crossUpEMA(),
				adx: indicators.ADXView{OK: true, ADX: 30, PlusDI: 25, MinusDI: 15},
			},
			want: Buy,
		},
		{
			name: "hold: те же условия, но без кросса",
			src: fakeSource{
				ema: noCrossEMA(),
				adx: indicators.ADXView{OK: true, ADX: 30, PlusDI: 25, MinusDI: 15},
			},
			want: Hold,
		},
		{
			name: "hold: кросс вверх при слабом тренде",
			src: fakeSource{
				ema: crossUpEMA(),
				adx: indicators.ADXView{OK: true, ADX: 20, PlusDI: 25, MinusDI: 15},
			},
			want: Hold,
		},
		{
			name: "hold: кросс вверх, но -DI доминирует",
			src: fakeSource{
				ema: crossUpEMA(),
				adx: indicators.ADXView{OK: true, ADX: 30, PlusDI: 15, MinusDI: 25},
			},
			want: Hold,
		},
		{
			name: "продажа: кросс вниз при сильном нисходящем тренде",
			src: fakeSource{
				ema: indicators.EMAView{OK: true, PrevShort: 12, LastShort: 10, PrevLong: 11, LastLong: 11.5},
				adx: indicators.ADXView{OK: true, ADX: 30, PlusDI: 15, MinusDI: 25},
			},
			want: Sell,
		},
		{
			name: "hold: нет данных ADX",
			src:  fakeSource{ema: crossUpEMA()},
			want: Hold,
		},
		{
			name: "hold: нет данных EMA",
			src:  fakeSource{adx: indicators.ADXView{OK: true, ADX: 30, PlusDI: 25, MinusDI: 15}},
			want: Hold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.src, testParams())
			sig := g.Evaluate(TrendFollowing)
			if sig.Type != tt.want {
				t.Fatalf("получен %s (%s), ожидался %s", sig.Type, sig.Reason, tt.want)
			}
			if sig.Strategy != TrendFollowing {
				t.Fatalf("неверный тег стратегии: %s", sig.Strategy)
			}
		})
	}
}

func TestMeanReversion(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
		want SignalType
	}{
		{
			name: "покупка: перепроданность во флэте",
			src: fakeSource{
				rsi: indicators.RSIView{OK: true, Last: 25},
				adx: indicators.ADXView{OK: true, ADX: 15},
			},
			want: Buy,
		},
		{
			name: "продажа: перекупленность во флэте",
			src: fakeSource{
				rsi: indicators.RSIView{OK: true, Last: 75},
				adx: indicators.ADXView{OK: true, ADX: 15},
			},
			want: Sell,
		},
		{
			name: "hold: перепроданность при сильном тренде",
			src: fakeSource{
				rsi: indicators.RSIView{OK: true, Last: 25},
				adx: indicators.ADXView{OK: true, ADX: 35},
			},
			want: Hold,
		},
		{
			name: "hold: RSI в нейтральной зоне",
			src: fakeSource{
				rsi: indicators.RSIView{OK: true, Last: 50},
				adx: indicators.ADXView{OK: true, ADX: 15},
			},
			want: Hold,
		},
		{
			name: "hold: нет данных RSI",
			src:  fakeSource{adx: indicators.ADXView{OK: true, ADX: 15}},
			want: Hold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.src, testParams())
			sig := g.Evaluate(MeanReversion)
			if sig.Type != tt.want {
				t.Fatalf("получен %s (%s), ожидался %s", sig.Type, sig.Reason, tt.want)
			}
		})
	}
}

func TestMACDCrossover(t *testing.T) {
	tests := []struct {
		name string
		view indicators.MACDView
		want SignalType
	}{
		{
			name: "покупка: кросс вверх между точками",
			view: indicators.MACDView{
				OK:   true,
				Last: indicators.MACDPoint{MACD: 1.2, Signal: 1.0},
				Prev: indicators.MACDPoint{MACD: 0.9, Signal: 1.0},
			},
			want: Buy,
		},
		{
			name: "продажа: кросс вниз между точками",
			view: indicators.MACDView{
				OK:   true,
				Last: indicators.MACDPoint{MACD: 0.8, Signal: 1.0},
				Prev: indicators.MACDPoint{MACD: 1.1, Signal: 1.0},
			},
			want: Sell,
		},
		{
			name: "hold: линия выше без свежего кросса",
			view: indicators.MACDView{
				OK:   true,
				Last: indicators.MACDPoint{MACD: 1.2, Signal: 1.0},
				Prev: indicators.MACDPoint{MACD: 1.1, Signal: 1.0},
			},
			want: Hold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(fakeSource{macd: tt.view}, testParams())
			sig := g.Evaluate(MACDCrossover)
			if sig.Type != tt.want {
				t.Fatalf("получен %s (%s), ожидался %s", sig.Type, sig.Reason, tt.want)
			}
		})
	}
}

func TestMACDCrossoverInsufficientData(t *testing.T) {
	g := NewGenerator(fakeSource{}, testParams())
	sig := g.Evaluate(MACDCrossover)
	if sig.Type != Hold {
		t.Fatalf("получен %s, ожидался hold", sig.Type)
	}
	if sig.Reason != "no data for calculation" {
		t.Fatalf("неверная причина: %q", sig.Reason)
	}
}

func TestUnknownStrategyHolds(t *testing.T) {
	g := NewGenerator(fakeSource{}, testParams())
	sig := g.Evaluate(Strategy("scalping"))
	if sig.Type != Hold {
		t.Fatalf("получен %s, ожидался hold", sig.Type)
	}
	if sig.Reason != "unknown strategy" {
		t.Fatalf("неверная причина: %q", sig.Reason)
	}
}

func TestEvaluateAllReturnsThreeSignals(t *testing.T) {
	g := NewGenerator(fakeSource{}, testParams())
	signals := g.EvaluateAll()
	if len(signals) != 3 {
		t.Fatalf("получено %d сигналов, ожидалось 3", len(signals))
	}
	seen := map[Strategy]bool{}
	for _, s := range signals {
		seen[s.Strategy] = true
	}
	for _, want := range []Strategy{TrendFollowing, MeanReversion, MACDCrossover} {
		if !seen[want] {
			t.Fatalf("нет сигнала стратегии %s", want)
		}
	}
}
