package query

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"cinegram/internal/domain"
)

// languageTags is the fixed set of language names the interpreter recognizes
// in free text. Keys are the lower-cased token as typed by users, values are
// BCP 47 tags whose base gives the ISO 639-1 code used for provider filters.
var languageTags = map[string]language.Tag{
	"malayalam": language.Malayalam,
	"tamil":     language.Tamil,
	"hindi":     language.Hindi,
	"english":   language.English,
	"telugu":    language.Telugu,
	"kannada":   language.Kannada,
	"korean":    language.Korean,
	"japanese":  language.Japanese,
	"spanish":   language.Spanish,
	"chinese":   language.Chinese,
}

const (
	minYear = 1880
	maxYear = 2100
	maxPart = 20
)

// Interpret parses free text into a MovieQuery. It never fails: any input,
// including empty, yields a valid query, possibly with an empty title.
func Interpret(text string) domain.MovieQuery {
	q := domain.MovieQuery{RawText: text}

	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return q
	}

	tokens := strings.Fields(lowered)
	remaining := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if q.LanguageHint == "" {
			if tag, ok := languageTags[token]; ok {
				q.LanguageHint = languageCode(tag)
				continue
			}
		}
		if q.YearHint == "" && isYearToken(token) {
			q.YearHint = token
			continue
		}
		remaining = append(remaining, token)
	}

	// A year that consumed the whole title is the title itself ("2012").
	if len(remaining) == 0 && q.YearHint != "" {
		remaining = append(remaining, q.YearHint)
		q.YearHint = ""
	}

	// A trailing small integer reads as a sequel number ("drishyam 2"), but
	// only when it is not the whole query.
	if len(remaining) > 1 {
		last := remaining[len(remaining)-1]
		if part, ok := parsePart(last); ok {
			q.PartHint = part
		}
	}

	q.CleanedTitle = strings.Join(remaining, " ")
	return q
}

// Languages returns the recognized language names with their codes, sorted by
// name. Display names come from the x/text registry, so keyboard labels stay
// consistent with the tags the interpreter emits.
func Languages() []LanguageOption {
	options := make([]LanguageOption, 0, len(languageTags))
	namer := display.English.Languages()
	for _, tag := range languageTags {
		options = append(options, LanguageOption{
			Code: languageCode(tag),
			Name: namer.Name(tag),
		})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

// KnownCode reports whether code is one of the interpreter's language codes.
func KnownCode(code string) bool {
	for _, tag := range languageTags {
		if languageCode(tag) == code {
			return true
		}
	}
	return false
}

type LanguageOption struct {
	Code string
	Name string
}

func languageCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

func isYearToken(token string) bool {
	if len(token) != 4 {
		return false
	}
	year, err := strconv.Atoi(token)
	if err != nil {
		return false
	}
	return year >= minYear && year <= maxYear
}

func parsePart(token string) (int, bool) {
	part, err := strconv.Atoi(token)
	if err != nil || part < 1 || part > maxPart {
		return 0, false
	}
	return part, true
}
