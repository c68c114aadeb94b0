package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/ocobot/internal/indicators"
	"github.com/skalibog/ocobot/internal/notify"
	"github.com/skalibog/ocobot/internal/storage"
	"github.com/skalibog/ocobot/internal/strategy"
	"github.com/skalibog/ocobot/internal/trader"
	"github.com/skalibog/ocobot/pkg/logger"
	"github.com/skalibog/ocobot/pkg/models"
)

// KlineHistory исторические свечи для начальной загрузки
type KlineHistory interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
}

// Session однопоточный торговый цикл одной пары: снимок индикаторов,
// генератор сигналов и трейдер. Каждое событие свечи обрабатывается
// до конца, включая отправку ордеров, прежде чем берется следующее —
// это и защищает от дублирующихся входов при частых событиях.
type Session struct {
	pair     models.CoinPair
	interval string
	limit    int
	live     strategy.Strategy

	history  KlineHistory
	snapshot *indicators.Snapshot
	signals  *strategy.Generator
	trader   *trader.Trader
	notifier notify.Notifier
	recorder storage.Recorder

	// Время закрытия последней обработанной свечи, мс Unix.
	// Ноль на старте: первая финальная свеча всегда проходит.
	lastCandleTime int64
}

// NewSession собирает торговую сессию
func NewSession(
	pair models.CoinPair,
	interval string,
	limit int,
	live strategy.Strategy,
	history KlineHistory,
	snapshot *indicators.Snapshot,
	signals *strategy.Generator,
	tr *trader.Trader,
	notifier notify.Notifier,
	recorder storage.Recorder,
) *Session {
	return &Session{
		pair:     pair,
		interval: interval,
		limit:    limit,
		live:     live,
		history:  history,
		snapshot: snapshot,
		signals:  signals,
		trader:   tr,
		notifier: notifier,
		recorder: recorder,
	}
}

// Backfill загружает историю свечей и целиком заполняет снимок
func (s *Session) Backfill(ctx context.Context) error {
	candles, err := s.history.Klines(ctx, s.pair.Symbol, s.interval, s.limit)
	if err != nil {
		return fmt.Errorf("ошибка загрузки истории свечей: %w", err)
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	if err := s.snapshot.Initialize(closes, highs, lows); err != nil {
		return fmt.Errorf("ошибка инициализации снимка: %w", err)
	}

	logger.Info("История свечей загружена",
		zap.String("symbol", s.pair.Symbol),
		zap.String("interval", s.interval),
		zap.Int("candles", s.snapshot.Len()))
	return nil
}

// HandleKline обрабатывает одно событие свечи.
// Действуем только на финальные свечи со строго растущим временем
// закрытия: незакрытые и повторные события отбрасываются.
func (s *Session) HandleKline(ctx context.Context, ev models.KlineEvent) {
	if !ev.IsFinal || ev.CloseTime <= s.lastCandleTime {
		return
	}
	s.lastCandleTime = ev.CloseTime

	s.snapshot.Append(ev.Close, ev.High, ev.Low)

	signal := s.signals.Evaluate(s.live)
	logger.Debug("Сигнал",
		zap.String("symbol", s.pair.Symbol),
		zap.String("strategy", string(signal.Strategy)),
		zap.String("type", string(signal.Type)),
		zap.String("reason", signal.Reason),
		zap.Float64("close", ev.Close))
	s.recorder.RecordSignal(s.pair.Symbol, signal, ev.Close)

	switch {
	case signal.Type == strategy.Buy && !s.trader.HasPosition():
		exec, err := s.trader.EnterLong(ctx)
		if err != nil {
			// Состояние не изменилось, следующая свеча может повторить
			logger.Error("Вход не выполнен", zap.Error(err))
			return
		}
		if exec != nil {
			s.announce("BUY", exec)
		}
	case signal.Type == strategy.Sell && s.trader.HasPosition():
		exec, err := s.trader.ExitLong(ctx)
		if err != nil {
			logger.Error("Выход не выполнен", zap.Error(err))
			return
		}
		if exec != nil {
			s.announce("SELL", exec)
		}
	}
}

// announce рассылает событие сделки, ошибки доставки не влияют
// на торговлю
func (s *Session) announce(action string, exec *trader.Execution) {
	s.notifier.TradeExecuted(action, exec.Price, exec.Quantity)
	s.recorder.RecordTrade(s.pair.Symbol, models.TradeEvent{
		Action:   action,
		Price:    exec.Price,
		Quantity: exec.Quantity,
		Time:     time.Now(),
	})
}

// Run загружает историю и обрабатывает события до закрытия канала
func (s *Session) Run(ctx context.Context, events <-chan models.KlineEvent) error {
	if err := s.Backfill(ctx); err != nil {
		return err
	}

	for ev := range events {
		s.HandleKline(ctx, ev)
	}
	return nil
}
