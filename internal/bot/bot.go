// Package bot runs the Telegram bot that hands users the mini-app entry
// button.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/bestsbot/backend/internal/config"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/metrics"
)

const launchText = "Запустить Mini App:"

// Bot long-polls Telegram and answers /start with the mini-app button.
type Bot struct {
	api       *bot.Bot
	log       *logging.Logger
	webAppURL string
}

// New connects to the Bot API with the configured token.
func New(cfg config.BotConfig, log *logging.Logger) (*Bot, error) {
	b := &Bot{
		log:       log,
		webAppURL: cfg.WebAppURL,
	}

	api, err := bot.New(cfg.Token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	b.api = api

	return b, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("bot polling for updates")
	b.api.Start(ctx)
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, api *bot.Bot, update *models.Update) {
	if !isStartCommand(update) {
		metrics.RecordBotUpdate("ignored")
		return
	}

	_, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        launchText,
		ReplyMarkup: launchKeyboard(b.webAppURL),
	})
	if err != nil {
		metrics.RecordBotUpdate("send_failed")
		b.log.WithError(err).WithField("chat_id", update.Message.Chat.ID).Warn("send start reply")
		return
	}
	metrics.RecordBotUpdate("handled")
}

// isStartCommand reports whether the update is a /start message, including
// deep-link payloads ("/start ref123") and the /start@botname form.
func isStartCommand(update *models.Update) bool {
	if update == nil || update.Message == nil {
		return false
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "/start" {
		return true
	}
	if rest, ok := strings.CutPrefix(text, "/start"); ok {
		return strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "@")
	}
	return false
}

// launchKeyboard is a single inline button opening the mini app.
func launchKeyboard(url string) models.InlineKeyboardMarkup {
	return models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{
					Text:   "Open App",
					WebApp: &models.WebAppInfo{URL: url},
				},
			},
		},
	}
}
