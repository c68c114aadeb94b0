package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/internal/exchange"
	"github.com/skalibog/ocobot/internal/indicators"
	"github.com/skalibog/ocobot/internal/strategy"
	"github.com/skalibog/ocobot/pkg/logger"
	"github.com/skalibog/ocobot/pkg/models"
)

// Прогон стратегии по историческим свечам: наивная длинная позиция
// без комиссий и проскальзывания, продажа только в плюс.
// Оценка сигналов, не исполнение.
func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	strategyFlag := flag.String("strategy", "", "стратегия прогона (по умолчанию из конфигурации)")
	flag.Parse()

	logger.Init(false)
	defer logger.GetLogger().Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	live := cfg.Strategy.Live
	if *strategyFlag != "" {
		live = *strategyFlag
	}

	params, err := cfg.Strategy.ParamsFor(cfg.Trading.Interval)
	if err != nil {
		logger.Fatal("Ошибка параметров стратегий", zap.Error(err))
	}

	pair := models.NewCoinPair(cfg.Trading.BaseAsset, cfg.Trading.QuoteAsset)
	client := exchange.NewBinanceClient(cfg.Binance)

	candles, err := client.Klines(context.Background(), pair.Symbol, cfg.Trading.Interval, cfg.Trading.KlinesLimit)
	if err != nil {
		logger.Fatal("Ошибка загрузки свечей", zap.Error(err))
	}

	snapshot := indicators.NewSnapshot()
	generator := strategy.NewGenerator(snapshot, params)

	inPosition := false
	lastBuyPrice := 0.0
	profit := 0.0
	trades := 0

	for _, c := range candles {
		snapshot.Append(c.Close, c.High, c.Low)

		signal := generator.Evaluate(strategy.Strategy(live))
		switch {
		case signal.Type == strategy.Buy && !inPosition:
			inPosition = true
			lastBuyPrice = c.Close
			fmt.Printf("BUY  %s @ %.2f\n", c.CloseTime.Format("2006-01-02 15:04"), c.Close)
		case signal.Type == strategy.Sell && inPosition && c.Close > lastBuyPrice:
			inPosition = false
			profit += c.Close - lastBuyPrice
			trades++
			fmt.Printf("SELL %s @ %.2f\n", c.CloseTime.Format("2006-01-02 15:04"), c.Close)
		}
	}

	fmt.Printf("\nСтратегия: %s, свечей: %d, закрытых сделок: %d\n", live, len(candles), trades)
	fmt.Printf("PROFIT: %.2f %s\n", profit, pair.Quote)
	if inPosition {
		fmt.Printf("Осталась открытая позиция с входа @ %.2f\n", lastBuyPrice)
	}
}
