package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run consumes the long-polling update channel until ctx is cancelled.
// Every update is dispatched on its own goroutine, so a slow lookup for one
// chat never delays the next update; HandleUpdate bounds each unit of work
// with its own timeout.
func Run(ctx context.Context, api *tgbotapi.BotAPI, b *Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	slog.Info("bot polling started", slog.String("username", api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}
