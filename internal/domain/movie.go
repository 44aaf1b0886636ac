package domain

// MovieQuery is the interpreted form of one inbound free-text message.
// It is built once per message and discarded after resolution.
type MovieQuery struct {
	RawText      string
	CleanedTitle string
	LanguageHint string // ISO 639-1 code, empty when no language was recognized
	YearHint     string // 4-digit year as typed, empty when absent
	PartHint     int    // sequel number, 0 when absent
}

// MovieSummary is one candidate row from a provider search or discovery feed.
type MovieSummary struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalLanguage string  `json:"original_language"`
	ReleaseDate      string  `json:"release_date"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
}

// ReleaseYear returns the leading 4 digits of ReleaseDate, or "" when unknown.
func (m MovieSummary) ReleaseYear() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return ""
}

// MovieRecord is the fully resolved, enriched representation of one movie.
// Fields that could not be enriched stay zero; formatting degrades them to
// "Not available" markers instead of failing the resolution.
type MovieRecord struct {
	ID               int
	Title            string
	OriginalLanguage string
	ReleaseDate      string
	Rating           float64
	Overview         string
	PosterURL        string
	TrailerURL       string
	StreamingOn      string
	CollectionName   string
}
