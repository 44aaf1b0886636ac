package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cinegram/internal/domain"
	"cinegram/internal/query"
)

const (
	notAvailable = "Not available"

	// Telegram caps photo captions at 1024 characters.
	captionLimit  = 1024
	overviewLimit = 400
)

// Caption renders the reply text for one resolved movie. Missing fields
// degrade to an explicit marker instead of being dropped silently.
func Caption(record domain.MovieRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 %s\n", record.Title)
	if record.Rating > 0 {
		fmt.Fprintf(&b, "⭐ Rating: %.1f\n", record.Rating)
	} else {
		fmt.Fprintf(&b, "⭐ Rating: %s\n", notAvailable)
	}
	if record.ReleaseDate != "" {
		fmt.Fprintf(&b, "🗓 Release: %s\n", record.ReleaseDate)
	} else {
		fmt.Fprintf(&b, "🗓 Release: %s\n", notAvailable)
	}
	if record.StreamingOn != "" {
		fmt.Fprintf(&b, "📺 Streaming on: %s\n", record.StreamingOn)
	}
	if record.CollectionName != "" {
		fmt.Fprintf(&b, "🎞 Part of: %s\n", record.CollectionName)
	}
	if record.Overview != "" {
		fmt.Fprintf(&b, "\n%s", truncate(record.Overview, overviewLimit))
	}
	return truncate(b.String(), captionLimit)
}

// FeedCaption renders one now-playing feed item for fan-out delivery.
func FeedCaption(item domain.MovieSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 Now playing: %s\n", item.Title)
	if item.VoteAverage > 0 {
		fmt.Fprintf(&b, "⭐ Rating: %.1f\n", item.VoteAverage)
	}
	if item.ReleaseDate != "" {
		fmt.Fprintf(&b, "🗓 Release: %s\n", item.ReleaseDate)
	}
	if item.Overview != "" {
		fmt.Fprintf(&b, "\n%s", truncate(item.Overview, 300))
	}
	return truncate(b.String(), captionLimit)
}

// listCaption renders a compact multi-movie digest (latest/upcoming lists).
func listCaption(header string, items []domain.MovieSummary, limit int) string {
	if len(items) == 0 {
		return ""
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, item := range items {
		if item.VoteAverage > 0 {
			fmt.Fprintf(&b, "%s ⭐ %.1f\n", item.Title, item.VoteAverage)
		} else {
			fmt.Fprintf(&b, "%s\n", item.Title)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// trailerKeyboard returns a single URL button, or nil when no trailer is known.
func trailerKeyboard(record domain.MovieRecord) *tgbotapi.InlineKeyboardMarkup {
	if record.TrailerURL == "" {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("▶️ Trailer", record.TrailerURL),
		),
	)
	return &markup
}

// languageKeyboard renders one button per recognized language, two per row.
func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	options := query.Languages()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(options)+1)/2)
	for i := 0; i < len(options); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(options[i].Name, languageCallbackPrefix+options[i].Code),
		}
		if i+1 < len(options) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(options[i+1].Name, languageCallbackPrefix+options[i+1].Code))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🔥 Latest", "latest"),
		tgbotapi.NewInlineKeyboardButtonData("🎲 Random", "random"),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	cut := value[:limit-3]
	// Do not split a multi-byte rune at the boundary.
	for len(cut) > 0 {
		b := cut[len(cut)-1]
		if b < 0x80 {
			break
		}
		cut = cut[:len(cut)-1]
		if b >= 0xC0 {
			break
		}
	}
	return cut + "..."
}
