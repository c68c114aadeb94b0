package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/skalibog/ocobot/internal/bot"
	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/internal/exchange"
	"github.com/skalibog/ocobot/internal/indicators"
	"github.com/skalibog/ocobot/internal/notify"
	"github.com/skalibog/ocobot/internal/storage"
	"github.com/skalibog/ocobot/internal/strategy"
	"github.com/skalibog/ocobot/internal/trader"
	"github.com/skalibog/ocobot/pkg/logger"
	"github.com/skalibog/ocobot/pkg/models"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	debug := flag.Bool("debug", false, "включить отладочные логи")
	flag.Parse()

	logger.Init(*debug)
	defer logger.GetLogger().Sync()

	// Проверяем наличие файла конфигурации
	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	pair := models.NewCoinPair(cfg.Trading.BaseAsset, cfg.Trading.QuoteAsset)
	logger.Info("Запуск торгового бота",
		zap.String("symbol", pair.Symbol),
		zap.String("interval", cfg.Trading.Interval),
		zap.String("strategy", cfg.Strategy.Live))

	// Создаем контекст с отменой по сигналам завершения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
	}()

	// Инициализируем хранилище телеметрии
	recorder, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
	}
	defer recorder.Close()

	// Инициализируем клиент биржи и трейдер
	client := exchange.NewBinanceClient(cfg.Binance)

	tr := trader.New(client, pair, trader.Settings{
		RiskPercent:       cfg.Trading.RiskPercent,
		StopLossPercent:   cfg.Trading.StopLossPercent,
		TakeProfitPercent: cfg.Trading.TakeProfitPercent,
	})
	if err := tr.Init(ctx); err != nil {
		logger.Fatal("Ошибка инициализации трейдера", zap.Error(err))
	}

	// Собираем торговую сессию
	params, err := cfg.Strategy.ParamsFor(cfg.Trading.Interval)
	if err != nil {
		logger.Fatal("Ошибка параметров стратегий", zap.Error(err))
	}

	snapshot := indicators.NewSnapshot()
	generator := strategy.NewGenerator(snapshot, params)
	notifier := notify.FromConfig(cfg.Telegram)

	session := bot.NewSession(pair, cfg.Trading.Interval, cfg.Trading.KlinesLimit,
		strategy.Strategy(cfg.Strategy.Live), client, snapshot, generator, tr, notifier, recorder)

	// Запускаем поток свечей и цикл обработки
	stream := exchange.NewKlineStream(pair.Symbol, cfg.Trading.Interval)
	go stream.Run(ctx)

	if err := session.Run(ctx, stream.Events()); err != nil {
		logger.Fatal("Торговый цикл завершился с ошибкой", zap.Error(err))
	}

	logger.Info("Бот остановлен")
}
