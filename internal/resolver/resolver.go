package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cinegram/internal/domain"
	"cinegram/internal/metrics"
	"cinegram/internal/providers/tmdb"
)

var (
	// ErrNotFound means the query legitimately matched nothing. Upstream
	// failures are returned as distinct wrapped errors so callers and tests
	// can tell the two apart.
	ErrNotFound = errors.New("movie not found")
)

// SearchProvider is the slice of the data provider the resolver needs.
type SearchProvider interface {
	SearchTitle(ctx context.Context, title string) ([]domain.MovieSummary, error)
	GetDetails(ctx context.Context, id int) (tmdb.Details, error)
	StreamingProvider(ctx context.Context, id int) (string, error)
}

// TrailerProvider is the optional video-search collaborator.
type TrailerProvider interface {
	Enabled() bool
	FindTrailer(ctx context.Context, title string) (string, error)
}

type Resolver struct {
	provider   SearchProvider
	trailers   TrailerProvider
	strictLang bool
	logger     *slog.Logger
}

type Option func(*Resolver)

// WithStrictLanguage makes a language hint that eliminates every candidate
// fail the resolution instead of falling back to the unfiltered set.
func WithStrictLanguage(strict bool) Option {
	return func(r *Resolver) {
		r.strictLang = strict
	}
}

func WithTrailerProvider(trailers TrailerProvider) Option {
	return func(r *Resolver) {
		r.trailers = trailers
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(provider SearchProvider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve turns an interpreted query into at most one enriched record.
// It performs one search call, one detail call and at most one trailer
// lookup; enrichment failures degrade fields rather than fail the result.
func (r *Resolver) Resolve(ctx context.Context, q domain.MovieQuery) (domain.MovieRecord, error) {
	if strings.TrimSpace(q.CleanedTitle) == "" {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		return domain.MovieRecord{}, ErrNotFound
	}

	candidates, err := r.provider.SearchTitle(ctx, q.CleanedTitle)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("upstream_error").Inc()
		return domain.MovieRecord{}, fmt.Errorf("search %q: %w", q.CleanedTitle, err)
	}
	if len(candidates) == 0 {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		return domain.MovieRecord{}, ErrNotFound
	}

	best, ok := pickBest(candidates, q, r.strictLang)
	if !ok {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		return domain.MovieRecord{}, ErrNotFound
	}

	record := r.enrich(ctx, best)
	metrics.ResolutionsTotal.WithLabelValues("matched").Inc()
	return record, nil
}

// pickBest applies the ranking rules in order until one candidate remains.
// Language and year filters fall back to the unfiltered set when they would
// empty it; strict mode turns the language fallback into a failure.
func pickBest(candidates []domain.MovieSummary, q domain.MovieQuery, strictLang bool) (domain.MovieSummary, bool) {
	remaining := candidates

	if q.LanguageHint != "" {
		filtered := filter(remaining, func(m domain.MovieSummary) bool {
			return strings.EqualFold(m.OriginalLanguage, q.LanguageHint)
		})
		switch {
		case len(filtered) > 0:
			remaining = filtered
		case strictLang:
			return domain.MovieSummary{}, false
		}
	}

	if q.YearHint != "" {
		filtered := filter(remaining, func(m domain.MovieSummary) bool {
			return m.ReleaseYear() == q.YearHint
		})
		if len(filtered) > 0 {
			remaining = filtered
		}
	}

	if q.PartHint > 0 {
		part := fmt.Sprintf("%d", q.PartHint)
		filtered := filter(remaining, func(m domain.MovieSummary) bool {
			return containsToken(m.Title, part)
		})
		if len(filtered) > 0 {
			remaining = filtered
		}
	}

	if len(remaining) == 1 {
		return remaining[0], true
	}

	// Highest popularity wins; provider order breaks the remaining ties
	// because the scan keeps the earlier candidate on equal scores.
	best := remaining[0]
	for _, candidate := range remaining[1:] {
		if candidate.Popularity > best.Popularity {
			best = candidate
		}
	}
	return best, true
}

// enrich upgrades a candidate to a full record. Every enrichment call is
// best-effort: a failed detail fetch leaves the summary fields, a failed
// trailer or streaming lookup leaves that field empty.
func (r *Resolver) enrich(ctx context.Context, summary domain.MovieSummary) domain.MovieRecord {
	record := domain.MovieRecord{
		ID:               summary.ID,
		Title:            summary.Title,
		OriginalLanguage: summary.OriginalLanguage,
		ReleaseDate:      summary.ReleaseDate,
		Rating:           summary.VoteAverage,
		Overview:         summary.Overview,
		PosterURL:        tmdb.PosterURL(summary.PosterPath),
	}

	details, err := r.provider.GetDetails(ctx, summary.ID)
	if err != nil {
		r.logger.Warn("detail fetch failed, replying with summary fields",
			slog.Int("movieID", summary.ID),
			slog.String("error", err.Error()),
		)
	} else {
		record = details.Record
		record.TrailerURL = details.TrailerURL
		if record.Overview == "" {
			record.Overview = summary.Overview
		}
	}

	if record.TrailerURL == "" && r.trailers != nil && r.trailers.Enabled() {
		trailerURL, err := r.trailers.FindTrailer(ctx, record.Title)
		if err != nil {
			r.logger.Warn("trailer lookup failed",
				slog.String("title", record.Title),
				slog.String("error", err.Error()),
			)
		} else {
			record.TrailerURL = trailerURL
		}
	}

	streaming, err := r.provider.StreamingProvider(ctx, summary.ID)
	if err != nil {
		r.logger.Warn("watch provider lookup failed",
			slog.Int("movieID", summary.ID),
			slog.String("error", err.Error()),
		)
	} else {
		record.StreamingOn = streaming
	}

	return record
}

func filter(items []domain.MovieSummary, keep func(domain.MovieSummary) bool) []domain.MovieSummary {
	filtered := make([]domain.MovieSummary, 0, len(items))
	for _, item := range items {
		if keep(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func containsToken(title, token string) bool {
	for _, field := range strings.Fields(strings.ToLower(title)) {
		trimmed := strings.Trim(field, ".,:;!?()[]")
		if trimmed == token {
			return true
		}
	}
	return false
}
