package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/utils"
)

// telegramLimiter is the global rate limiter for Telegram messages
var telegramLimiter *rate.Limiter

// initTelegramLimiter initializes the Telegram rate limiter
func initTelegramLimiter(ratePerSecond int) {
	telegramLimiter = rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond)
}

// SendTelegram sends a dispatch task via the go-telegram/bot library to the
// recipient's chat.
func SendTelegram(ctx context.Context, task models.DispatchTask, logger *logging.Logger, cfg config.Config) error {
	if telegramLimiter == nil {
		initTelegramLimiter(cfg.RateLimit.TelegramPerSecond)
	}

	if err := telegramLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing TELEGRAM_BOT_TOKEN configuration")
	}
	chatID := task.Recipient.TelegramChatID
	if chatID == 0 {
		return fmt.Errorf("recipient %s has no telegram chat_id", task.Recipient.ID)
	}

	text := task.Body
	if task.Subject != "" {
		text = fmt.Sprintf("*%s*\n%s", task.Subject, task.Body)
	}

	return utils.Retry(logger, 3, time.Second, func() error {
		b, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}

		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
		}
		return nil
	})
}
