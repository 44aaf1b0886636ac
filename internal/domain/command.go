package domain

// CommandKind discriminates the decoded form of one inbound message or
// callback press. Raw button labels and slash commands are decoded exactly
// once at the chat boundary; everything past that point matches on the kind.
type CommandKind string

const (
	CommandStart          CommandKind = "start"
	CommandLatest         CommandKind = "latest"
	CommandUpcoming       CommandKind = "upcoming"
	CommandRandom         CommandKind = "random"
	CommandSubscribe      CommandKind = "subscribe"
	CommandUnsubscribe    CommandKind = "unsubscribe"
	CommandSelectLanguage CommandKind = "select_language"
	CommandSearch         CommandKind = "search"
)

// Command is the tagged result of decoding one update.
type Command struct {
	Kind CommandKind
	// Language carries the ISO 639-1 code for CommandSelectLanguage.
	Language string
	// Text carries the free-text query for CommandSearch.
	Text string
}
