package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/skalibog/ocobot/pkg/logger"
	"github.com/skalibog/ocobot/pkg/models"
)

// KlineStream поток событий свечей по websocket.
// Переподключается с нарастающей задержкой, пока контекст жив.
type KlineStream struct {
	symbol   string
	interval string
	events   chan models.KlineEvent
	backoff  *backoff.Backoff
}

// NewKlineStream создает поток свечей для пары и интервала
func NewKlineStream(symbol, interval string) *KlineStream {
	return &KlineStream{
		symbol:   symbol,
		interval: interval,
		events:   make(chan models.KlineEvent, 64),
		backoff: &backoff.Backoff{
			Min:    time.Second,
			Max:    time.Minute,
			Jitter: true,
		},
	}
}

// Events возвращает канал событий. Канал закрывается после
// завершения Run.
func (s *KlineStream) Events() <-chan models.KlineEvent {
	return s.events
}

// Run держит websocket-соединение открытым до отмены контекста
func (s *KlineStream) Run(ctx context.Context) {
	defer close(s.events)

	for {
		doneC, stopC, err := binance.WsKlineServe(s.symbol, s.interval, s.handleKline(ctx), s.handleError)
		if err != nil {
			delay := s.backoff.Duration()
			logger.Warn("Ошибка подключения к потоку свечей",
				zap.String("symbol", s.symbol),
				zap.Duration("retryIn", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		logger.Info("Поток свечей подключен",
			zap.String("symbol", s.symbol),
			zap.String("interval", s.interval))
		s.backoff.Reset()

		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return
		case <-doneC:
			delay := s.backoff.Duration()
			logger.Warn("Поток свечей разорван, переподключение",
				zap.String("symbol", s.symbol),
				zap.Duration("retryIn", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// handleKline преобразует событие Binance во внутреннее и отправляет
// в канал. Некорректные числа в событии отбрасываются с логом.
func (s *KlineStream) handleKline(ctx context.Context) binance.WsKlineHandler {
	return func(event *binance.WsKlineEvent) {
		k := event.Kline

		open, err1 := strconv.ParseFloat(k.Open, 64)
		high, err2 := strconv.ParseFloat(k.High, 64)
		low, err3 := strconv.ParseFloat(k.Low, 64)
		closePrice, err4 := strconv.ParseFloat(k.Close, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			logger.Warn("Событие свечи с некорректными числами отброшено",
				zap.String("symbol", event.Symbol))
			return
		}

		ev := models.KlineEvent{
			Symbol:    event.Symbol,
			Interval:  k.Interval,
			CloseTime: k.EndTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			IsFinal:   k.IsFinal,
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	}
}

func (s *KlineStream) handleError(err error) {
	logger.Error("Ошибка потока свечей", zap.Error(err))
}
