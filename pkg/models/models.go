package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// KlineEvent представляет событие свечи из потока биржи.
// CloseTime в миллисекундах Unix, как отдает Binance.
type KlineEvent struct {
	Symbol    string
	Interval  string
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	IsFinal   bool
}

// CoinPair представляет торговую пару
type CoinPair struct {
	Base   string
	Quote  string
	Symbol string
}

// NewCoinPair создает торговую пару из базового и котируемого активов
func NewCoinPair(base, quote string) CoinPair {
	return CoinPair{
		Base:   base,
		Quote:  quote,
		Symbol: base + quote,
	}
}

// Side сторона ордера
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// AssetBalance свободный остаток по одному активу аккаунта
type AssetBalance struct {
	Asset string
	Free  decimal.Decimal
}

// BalancePair остатки по базовому и котируемому активам пары
type BalancePair struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// LotSizeFilter представляет ограничения LOT_SIZE биржи для пары
type LotSizeFilter struct {
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal
	StepSize decimal.Decimal
}

// OCOOrder представляет открытую OCO-группу (тейк-профит + стоп-лосс)
type OCOOrder struct {
	OrderListID int64
	Symbol      string
	Status      string
	Quantity    string
	Price       string
	StopPrice   string
	CreatedAt   time.Time
	OrderIDs    []int64
}

// TradeEvent представляет исполненную торговую операцию
type TradeEvent struct {
	Action   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Time     time.Time
}
