package bot

import (
	"strings"

	"cinegram/internal/domain"
	"cinegram/internal/query"
)

const languageCallbackPrefix = "lang:"

// DecodeText turns one inbound message into a tagged command. Anything that
// is not a known slash command is treated as a free-text search.
func DecodeText(text string) domain.Command {
	trimmed := strings.TrimSpace(text)

	cmd, args, isSlash := splitSlashCommand(trimmed)
	if !isSlash {
		return domain.Command{Kind: domain.CommandSearch, Text: trimmed}
	}

	switch cmd {
	case "start", "help":
		return domain.Command{Kind: domain.CommandStart}
	case "latest":
		return domain.Command{Kind: domain.CommandLatest}
	case "upcoming":
		return domain.Command{Kind: domain.CommandUpcoming}
	case "random":
		return domain.Command{Kind: domain.CommandRandom}
	case "subscribe":
		return domain.Command{Kind: domain.CommandSubscribe}
	case "unsubscribe":
		return domain.Command{Kind: domain.CommandUnsubscribe}
	case "search":
		return domain.Command{Kind: domain.CommandSearch, Text: args}
	default:
		// Unknown slash commands fall through to search so typos like
		// "/Drishyam" still produce a useful reply.
		return domain.Command{Kind: domain.CommandSearch, Text: strings.TrimPrefix(trimmed, "/")}
	}
}

// DecodeCallback turns a button press payload into a tagged command.
// Unknown payloads decode to Start, which re-renders the menu.
func DecodeCallback(data string) domain.Command {
	trimmed := strings.TrimSpace(data)
	if code, ok := strings.CutPrefix(trimmed, languageCallbackPrefix); ok && query.KnownCode(code) {
		return domain.Command{Kind: domain.CommandSelectLanguage, Language: code}
	}
	switch trimmed {
	case "latest":
		return domain.Command{Kind: domain.CommandLatest}
	case "upcoming":
		return domain.Command{Kind: domain.CommandUpcoming}
	case "random":
		return domain.Command{Kind: domain.CommandRandom}
	case "subscribe":
		return domain.Command{Kind: domain.CommandSubscribe}
	default:
		return domain.Command{Kind: domain.CommandStart}
	}
}

func splitSlashCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, "/")
	name, args, _ := strings.Cut(rest, " ")
	// Group chats address commands as /latest@botname.
	name, _, _ = strings.Cut(name, "@")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(args), true
}
