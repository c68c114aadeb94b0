package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// Snapshot владеет рядами close/high/low одинаковой длины.
// Ряды только растут за время жизни процесса: полная история нужна
// MACD и ADX, поэтому усечение изменило бы их численный выход.
// Потолок памяти ~24 байта на свечу, для минутных свечей это
// около 13 МБ в год на пару.
type Snapshot struct {
	closes []float64
	highs  []float64
	lows   []float64
}

// NewSnapshot создает пустой снимок
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Initialize целиком заменяет ряды после исторической загрузки.
// Ряды разной длины — ошибка вызывающего.
func (s *Snapshot) Initialize(closes, highs, lows []float64) error {
	if len(closes) != len(highs) || len(closes) != len(lows) {
		return fmt.Errorf("ряды разной длины: close=%d high=%d low=%d", len(closes), len(highs), len(lows))
	}
	s.closes = append([]float64(nil), closes...)
	s.highs = append([]float64(nil), highs...)
	s.lows = append([]float64(nil), lows...)
	return nil
}

// Append атомарно добавляет по одному значению во все три ряда
func (s *Snapshot) Append(close, high, low float64) {
	s.closes = append(s.closes, close)
	s.highs = append(s.highs, high)
	s.lows = append(s.lows, low)
}

// Len возвращает текущую длину рядов
func (s *Snapshot) Len() int {
	return len(s.closes)
}

// EMAView последние два значения короткой и длинной EMA.
// OK=false если данных меньше, чем нужно для двух точек обеих линий.
type EMAView struct {
	OK        bool
	LastShort float64
	PrevShort float64
	LastLong  float64
	PrevLong  float64
}

// EMA считает короткую и длинную EMA по скользящему окну period*2.
// Окно ограничивает стоимость пересчета ценой потери хвоста точности.
func (s *Snapshot) EMA(shortPeriod, longPeriod int) EMAView {
	lastShort, prevShort, okShort := emaTail(s.closes, shortPeriod)
	lastLong, prevLong, okLong := emaTail(s.closes, longPeriod)
	if !okShort || !okLong {
		return EMAView{}
	}
	return EMAView{
		OK:        true,
		LastShort: lastShort,
		PrevShort: prevShort,
		LastLong:  lastLong,
		PrevLong:  prevLong,
	}
}

// emaTail возвращает два последних значения EMA по окну period*2.
// Для двух вычисленных точек нужно минимум period+1 входных значений:
// talib заполняет первые period-1 позиций нулями прогрева.
func emaTail(values []float64, period int) (last, prev float64, ok bool) {
	window := tail(values, period*2)
	if len(window) < period+1 {
		return 0, 0, false
	}
	out := talib.Ema(window, period)
	return out[len(out)-1], out[len(out)-2], true
}

// MACDPoint значения линии MACD и сигнальной линии в одной точке
type MACDPoint struct {
	MACD   float64
	Signal float64
}

// MACDView последняя и предыдущая точки MACD.
// OK=false если вычисленных точек меньше двух.
type MACDView struct {
	OK   bool
	Last MACDPoint
	Prev MACDPoint
}

// MACD считает MACD по всей сохраненной истории: сигнальной линии
// нужен длинный прогрев, окно здесь не применяется.
func (s *Snapshot) MACD(fastPeriod, slowPeriod, signalPeriod int) MACDView {
	// Первая валидная точка сигнальной линии — индекс slow+signal-2,
	// для двух точек нужно минимум slow+signal значений.
	if len(s.closes) < slowPeriod+signalPeriod {
		return MACDView{}
	}
	macd, signal, _ := talib.Macd(s.closes, fastPeriod, slowPeriod, signalPeriod)
	n := len(macd)
	return MACDView{
		OK:   true,
		Last: MACDPoint{MACD: macd[n-1], Signal: signal[n-1]},
		Prev: MACDPoint{MACD: macd[n-2], Signal: signal[n-2]},
	}
}

// RSIView последнее значение RSI
type RSIView struct {
	OK   bool
	Last float64
}

// RSI считает RSI по скользящему окну period*2
func (s *Snapshot) RSI(period int) RSIView {
	window := tail(s.closes, period*2)
	// talib.Rsi валиден с индекса period
	if len(window) < period+1 {
		return RSIView{}
	}
	out := talib.Rsi(window, period)
	return RSIView{OK: true, Last: out[len(out)-1]}
}

// ADXView последние значения ADX и направленных индикаторов.
// OK=false — данных меньше периода прогрева, вызывающий трактует как hold.
type ADXView struct {
	OK      bool
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX считает ADX/+DI/-DI по всей сохраненной истории
func (s *Snapshot) ADX(period int) ADXView {
	// talib.Adx валиден с индекса 2*period-1
	if len(s.closes) < 2*period {
		return ADXView{}
	}
	adx := talib.Adx(s.highs, s.lows, s.closes, period)
	pdi := talib.PlusDI(s.highs, s.lows, s.closes, period)
	mdi := talib.MinusDI(s.highs, s.lows, s.closes, period)
	n := len(adx)
	return ADXView{
		OK:      true,
		ADX:     adx[n-1],
		PlusDI:  pdi[n-1],
		MinusDI: mdi[n-1],
	}
}

// Crossover определяет пересечение короткой и длинной линий между
// предыдущей и последней точками. Равенство в обеих точках — не пересечение.
func Crossover(prevShort, lastShort, prevLong, lastLong float64) (crossUp, crossDown bool) {
	crossUp = prevShort <= prevLong && lastShort > lastLong
	crossDown = prevShort >= prevLong && lastShort < lastLong
	return crossUp, crossDown
}

// tail возвращает последние n элементов ряда
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
