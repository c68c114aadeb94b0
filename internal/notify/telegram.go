package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/pkg/logger"
)

// Notifier отправляет оператору события об исполненных сделках.
// Вызовы не возвращают ошибок: сбой уведомления никогда не влияет
// на торговое решение.
type Notifier interface {
	TradeExecuted(action string, price, quantity decimal.Decimal)
}

// Nop заглушка уведомлений
type Nop struct{}

func (Nop) TradeExecuted(string, decimal.Decimal, decimal.Decimal) {}

// Telegram отправляет уведомления в чат Telegram
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram создает уведомитель Telegram
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID}, nil
}

// TradeExecuted отправляет сообщение о сделке, ошибки только логируются
func (t *Telegram) TradeExecuted(action string, price, quantity decimal.Decimal) {
	text := fmt.Sprintf("%s %s @ %s", action, quantity.StringFixed(8), price.StringFixed(2))
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		logger.Warn("Не удалось отправить уведомление", zap.Error(err))
	}
}

// FromConfig возвращает Telegram-уведомитель либо заглушку,
// когда токен не задан
func FromConfig(cfg config.TelegramConfig) Notifier {
	if cfg.Token == "" {
		return Nop{}
	}
	tg, err := NewTelegram(cfg)
	if err != nil {
		logger.Warn("Telegram недоступен, уведомления отключены", zap.Error(err))
		return Nop{}
	}
	return tg
}
