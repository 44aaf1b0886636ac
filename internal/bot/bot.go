package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cinegram/internal/domain"
	"cinegram/internal/fanout"
	"cinegram/internal/metrics"
	"cinegram/internal/providers/tmdb"
	"cinegram/internal/query"
	"cinegram/internal/resolver"
)

const feedListLimit = 5

// MovieResolver resolves one interpreted query to at most one record.
type MovieResolver interface {
	Resolve(ctx context.Context, q domain.MovieQuery) (domain.MovieRecord, error)
}

// Discovery is the slice of the data provider the browse commands use.
type Discovery interface {
	NowPlaying(ctx context.Context) ([]domain.MovieSummary, error)
	Upcoming(ctx context.Context) ([]domain.MovieSummary, error)
	Discover(ctx context.Context, filters tmdb.DiscoverFilters) ([]domain.MovieSummary, error)
	RandomPick(ctx context.Context, originalLanguage string) (domain.MovieSummary, error)
}

// Subscriptions is the slice of the registry the chat commands use.
type Subscriptions interface {
	Add(chatID int64)
	Remove(chatID int64)
	Contains(chatID int64) bool
}

// telegramAPI is the part of tgbotapi.BotAPI the bot calls. Tests install a
// recording fake here.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot routes decoded commands to the resolver, discovery feeds and the
// registry, and formats every outcome as a plain chat reply.
type Bot struct {
	api        telegramAPI
	resolver   MovieResolver
	discovery  Discovery
	subs       Subscriptions
	timeout    time.Duration
	messageTTL time.Duration
	logger     *slog.Logger
}

type Config struct {
	API      telegramAPI
	Resolver MovieResolver
	// Discovery backs /latest, /upcoming, /random and the language buttons.
	Discovery Discovery
	Subs      Subscriptions
	// Timeout bounds the upstream work for one inbound update.
	Timeout time.Duration
	// MessageTTL, when positive, schedules best-effort deletion of the
	// bot's own replies after the TTL.
	MessageTTL time.Duration
	Logger     *slog.Logger
}

func New(cfg Config) *Bot {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:        cfg.API,
		resolver:   cfg.Resolver,
		discovery:  cfg.Discovery,
		subs:       cfg.Subs,
		timeout:    timeout,
		messageTTL: cfg.MessageTTL,
		logger:     logger,
	}
}

// HandleUpdate dispatches one Telegram update. Each update is an independent
// unit of work; the caller may invoke this concurrently.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		// Ack first so the button stops spinning even if the lookup is slow.
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.logger.Warn("callback ack failed", slog.String("error", err.Error()))
		}
		if cb.Message == nil {
			return
		}
		cmd := DecodeCallback(cb.Data)
		metrics.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()
		b.dispatch(ctx, cb.Message.Chat.ID, cmd)
	case update.Message != nil && update.Message.Text != "":
		cmd := DecodeText(update.Message.Text)
		metrics.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()
		b.dispatch(ctx, update.Message.Chat.ID, cmd)
	}
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, cmd domain.Command) {
	switch cmd.Kind {
	case domain.CommandStart:
		b.handleStart(chatID)
	case domain.CommandLatest:
		b.handleFeed(ctx, chatID, "🔥 Latest Movies:", b.discovery.NowPlaying)
	case domain.CommandUpcoming:
		b.handleFeed(ctx, chatID, "🎬 Upcoming Movies:", b.discovery.Upcoming)
	case domain.CommandRandom:
		b.handleRandom(ctx, chatID)
	case domain.CommandSelectLanguage:
		b.handleLanguage(ctx, chatID, cmd.Language)
	case domain.CommandSubscribe:
		b.subs.Add(chatID)
		b.reply(chatID, "Subscribed to new movie updates.")
	case domain.CommandUnsubscribe:
		b.subs.Remove(chatID)
		b.reply(chatID, "Unsubscribed.")
	case domain.CommandSearch:
		b.handleSearch(ctx, chatID, cmd.Text)
	}
}

func (b *Bot) handleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"🎬 Send a movie name to look it up, or pick a language below.\n\n"+
			"/latest — now playing\n"+
			"/upcoming — coming soon\n"+
			"/random — surprise me\n"+
			"/subscribe — new-release updates")
	markup := languageKeyboard()
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, text string) {
	q := query.Interpret(text)
	record, err := b.resolver.Resolve(ctx, q)
	if err != nil {
		if !errors.Is(err, resolver.ErrNotFound) {
			b.logger.Warn("resolution failed upstream",
				slog.String("query", q.CleanedTitle),
				slog.String("error", err.Error()),
			)
		}
		b.reply(chatID, "Movie not found.")
		return
	}

	caption := Caption(record)
	keyboard := trailerKeyboard(record)
	if record.PosterURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(record.PosterURL))
		photo.Caption = caption
		if keyboard != nil {
			photo.ReplyMarkup = keyboard
		}
		b.send(photo)
		return
	}
	msg := tgbotapi.NewMessage(chatID, caption)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	b.send(msg)
}

func (b *Bot) handleFeed(ctx context.Context, chatID int64, header string, fetch func(context.Context) ([]domain.MovieSummary, error)) {
	items, err := fetch(ctx)
	if err != nil {
		b.logger.Warn("feed fetch failed", slog.String("error", err.Error()))
		b.reply(chatID, "Error fetching movies.")
		return
	}
	text := listCaption(header, items, feedListLimit)
	if text == "" {
		b.reply(chatID, "No movies found right now.")
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) handleLanguage(ctx context.Context, chatID int64, code string) {
	items, err := b.discovery.Discover(ctx, tmdb.DiscoverFilters{OriginalLanguage: code})
	if err != nil {
		b.logger.Warn("language discover failed",
			slog.String("language", code),
			slog.String("error", err.Error()),
		)
		b.reply(chatID, "Error fetching movies.")
		return
	}
	text := listCaption("🔥 Popular movies:", items, feedListLimit)
	if text == "" {
		b.reply(chatID, "No movies found for that language.")
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) handleRandom(ctx context.Context, chatID int64) {
	item, err := b.discovery.RandomPick(ctx, "")
	if err != nil {
		b.logger.Warn("random pick failed", slog.String("error", err.Error()))
		b.reply(chatID, "Error fetching movies.")
		return
	}
	b.sendSummary(chatID, "🎲 How about this one?\n\n", item)
}

// SendFeedItem delivers one fan-out item to one chat. It satisfies
// fanout.Sender.
func (b *Bot) SendFeedItem(ctx context.Context, chatID int64, item domain.MovieSummary) error {
	caption := FeedCaption(item)
	if item.PosterPath != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(tmdb.PosterURL(item.PosterPath)))
		photo.Caption = caption
		_, err := b.api.Send(photo)
		return err
	}
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, caption))
	return err
}

func (b *Bot) sendSummary(chatID int64, prefix string, item domain.MovieSummary) {
	caption := truncate(prefix+FeedCaption(item), captionLimit)
	if item.PosterPath != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(tmdb.PosterURL(item.PosterPath)))
		photo.Caption = caption
		b.send(photo)
		return
	}
	b.reply(chatID, caption)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	sent, err := b.api.Send(c)
	if err != nil {
		b.logger.Warn("send failed", slog.String("error", err.Error()))
		return
	}
	b.scheduleDelete(sent)
}

// scheduleDelete removes the bot's own reply after the configured TTL.
// Deletion is best-effort: "message to delete not found" is expected when a
// user clears the chat first.
func (b *Bot) scheduleDelete(sent tgbotapi.Message) {
	if b.messageTTL <= 0 || sent.MessageID == 0 || sent.Chat == nil {
		return
	}
	chatID := sent.Chat.ID
	messageID := sent.MessageID
	time.AfterFunc(b.messageTTL, func() {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
			if !strings.Contains(strings.ToLower(err.Error()), "not found") {
				b.logger.Debug("delayed delete failed", slog.String("error", err.Error()))
			}
		}
	})
}

var _ fanout.Sender = (*Bot)(nil)
