package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading"`
	Strategy StrategyConfig `yaml:"strategy"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит настройки торговли
type TradingConfig struct {
	BaseAsset         string  `yaml:"base_asset"`
	QuoteAsset        string  `yaml:"quote_asset"`
	Interval          string  `yaml:"interval"`
	RiskPercent       float64 `yaml:"risk_percent"`
	StopLossPercent   float64 `yaml:"stop_loss_percent"`
	TakeProfitPercent float64 `yaml:"take_profit_percent"`
	KlinesLimit       int     `yaml:"klines_limit"`
}

// StrategyConfig содержит параметры стратегий по интервалам.
// Пустые таблицы заполняются встроенными значениями по умолчанию.
type StrategyConfig struct {
	Live string                `yaml:"live"`
	EMA  map[string]EMAParams  `yaml:"ema"`
	MACD map[string]MACDParams `yaml:"macd"`
	RSI  map[string]RSIParams  `yaml:"rsi"`
	ADX  map[string]ADXParams  `yaml:"adx"`
}

// EMAParams периоды короткой и длинной EMA
type EMAParams struct {
	ShortPeriod int `yaml:"short_period"`
	LongPeriod  int `yaml:"long_period"`
}

// MACDParams периоды MACD
type MACDParams struct {
	FastPeriod   int `yaml:"fast_period"`
	SlowPeriod   int `yaml:"slow_period"`
	SignalPeriod int `yaml:"signal_period"`
}

// RSIParams период и пороги RSI
type RSIParams struct {
	Period     int     `yaml:"period"`
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`
}

// ADXParams период и порог силы тренда ADX
type ADXParams struct {
	Period    int     `yaml:"period"`
	Threshold float64 `yaml:"threshold"`
}

// StrategyParams параметры всех стратегий для одного интервала
type StrategyParams struct {
	EMA  EMAParams
	MACD MACDParams
	RSI  RSIParams
	ADX  ADXParams
}

// StorageConfig настройки записи телеметрии в InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// TelegramConfig настройки уведомлений в Telegram
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Таблицы параметров по умолчанию, ключ — интервал свечи
var (
	defaultEMA = map[string]EMAParams{
		"1m":  {ShortPeriod: 9, LongPeriod: 21},
		"15m": {ShortPeriod: 12, LongPeriod: 26},
		"1h":  {ShortPeriod: 50, LongPeriod: 200},
	}
	defaultMACD = map[string]MACDParams{
		"1m":  {FastPeriod: 3, SlowPeriod: 10, SignalPeriod: 3},
		"15m": {FastPeriod: 5, SlowPeriod: 13, SignalPeriod: 5},
		"1h":  {FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
	}
	defaultRSI = map[string]RSIParams{
		"1m":  {Period: 9, Oversold: 20, Overbought: 80},
		"15m": {Period: 14, Oversold: 30, Overbought: 70},
		"1h":  {Period: 14, Oversold: 30, Overbought: 70},
	}
	defaultADX = map[string]ADXParams{
		"1m":  {Period: 10, Threshold: 20},
		"15m": {Period: 14, Threshold: 25},
		"1h":  {Period: 14, Threshold: 25},
	}
)

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults подставляет значения по умолчанию для незаданных полей
func (c *Config) applyDefaults() {
	if c.Strategy.Live == "" {
		c.Strategy.Live = "trendFollowing"
	}
	if c.Trading.KlinesLimit == 0 {
		c.Trading.KlinesLimit = 1000
	}
	if c.Strategy.EMA == nil {
		c.Strategy.EMA = defaultEMA
	}
	if c.Strategy.MACD == nil {
		c.Strategy.MACD = defaultMACD
	}
	if c.Strategy.RSI == nil {
		c.Strategy.RSI = defaultRSI
	}
	if c.Strategy.ADX == nil {
		c.Strategy.ADX = defaultADX
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Trading.BaseAsset == "" || c.Trading.QuoteAsset == "" {
		return fmt.Errorf("не задана торговая пара (base_asset/quote_asset)")
	}
	if c.Trading.Interval == "" {
		return fmt.Errorf("не задан интервал свечей")
	}
	if c.Trading.RiskPercent <= 0 || c.Trading.RiskPercent > 1 {
		return fmt.Errorf("risk_percent должен быть в диапазоне (0, 1], задано %v", c.Trading.RiskPercent)
	}
	if c.Trading.StopLossPercent <= 0 || c.Trading.StopLossPercent >= 1 {
		return fmt.Errorf("stop_loss_percent должен быть в диапазоне (0, 1), задано %v", c.Trading.StopLossPercent)
	}
	if c.Trading.TakeProfitPercent <= 0 {
		return fmt.Errorf("take_profit_percent должен быть положительным, задано %v", c.Trading.TakeProfitPercent)
	}
	if c.Trading.KlinesLimit < 0 {
		return fmt.Errorf("klines_limit не может быть отрицательным")
	}
	if _, err := c.Strategy.ParamsFor(c.Trading.Interval); err != nil {
		return err
	}
	return nil
}

// ParamsFor возвращает параметры стратегий для интервала.
// Отсутствие таблицы для интервала — ошибка конфигурации.
func (s *StrategyConfig) ParamsFor(interval string) (StrategyParams, error) {
	ema, okEMA := s.EMA[interval]
	if !okEMA {
		ema, okEMA = defaultEMA[interval]
	}
	macd, okMACD := s.MACD[interval]
	if !okMACD {
		macd, okMACD = defaultMACD[interval]
	}
	rsi, okRSI := s.RSI[interval]
	if !okRSI {
		rsi, okRSI = defaultRSI[interval]
	}
	adx, okADX := s.ADX[interval]
	if !okADX {
		adx, okADX = defaultADX[interval]
	}
	if !okEMA || !okMACD || !okRSI || !okADX {
		return StrategyParams{}, fmt.Errorf("нет параметров стратегий для интервала %q", interval)
	}
	return StrategyParams{EMA: ema, MACD: macd, RSI: rsi, ADX: adx}, nil
}
