package resolver

import (
	"context"
	"errors"
	"testing"

	"cinegram/internal/domain"
	"cinegram/internal/providers/tmdb"
	"cinegram/internal/query"
)

type fakeProvider struct {
	searchResults []domain.MovieSummary
	searchErr     error
	details       map[int]tmdb.Details
	detailsErr    error
	streaming     string
	streamingErr  error

	searchCalls  int
	detailsCalls int
}

func (f *fakeProvider) SearchTitle(ctx context.Context, title string) ([]domain.MovieSummary, error) {
	f.searchCalls++
	return f.searchResults, f.searchErr
}

func (f *fakeProvider) GetDetails(ctx context.Context, id int) (tmdb.Details, error) {
	f.detailsCalls++
	if f.detailsErr != nil {
		return tmdb.Details{}, f.detailsErr
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return tmdb.Details{Record: domain.MovieRecord{ID: id}}, nil
}

func (f *fakeProvider) StreamingProvider(ctx context.Context, id int) (string, error) {
	return f.streaming, f.streamingErr
}

type fakeTrailers struct {
	url     string
	err     error
	enabled bool
	calls   int
}

func (f *fakeTrailers) Enabled() bool { return f.enabled }

func (f *fakeTrailers) FindTrailer(ctx context.Context, title string) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestResolveEmptyTitleIsNotFoundWithoutSearch(t *testing.T) {
	provider := &fakeProvider{}
	r := New(provider)
	_, err := r.Resolve(context.Background(), domain.MovieQuery{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if provider.searchCalls != 0 {
		t.Fatalf("empty title must not hit the provider, got %d calls", provider.searchCalls)
	}
}

func TestResolveNoCandidatesIsNotFound(t *testing.T) {
	r := New(&fakeProvider{})
	_, err := r.Resolve(context.Background(), query.Interpret("definitely unknown movie"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveUpstreamErrorIsNotNotFound(t *testing.T) {
	r := New(&fakeProvider{searchErr: errors.New("connection refused")})
	_, err := r.Resolve(context.Background(), query.Interpret("premalu"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("upstream failure must stay distinguishable from a legitimate miss")
	}
}

func TestResolveSingleCandidate(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 42, Title: "Premalu", OriginalLanguage: "ml", VoteAverage: 7.8},
		},
		details: map[int]tmdb.Details{
			42: {Record: domain.MovieRecord{ID: 42, Title: "Premalu", OriginalLanguage: "ml", Rating: 7.8}},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Premalu"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 42 || record.Title != "Premalu" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if provider.searchCalls != 1 || provider.detailsCalls != 1 {
		t.Fatalf("expected exactly one search and one detail call, got %d/%d",
			provider.searchCalls, provider.detailsCalls)
	}
}

func TestResolveLanguageFilterSelects(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Drishyam", OriginalLanguage: "hi", Popularity: 90},
			{ID: 2, Title: "Drishyam", OriginalLanguage: "ml", Popularity: 50},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Drishyam malayalam"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 2 {
		t.Fatalf("expected the malayalam candidate, got id=%d", record.ID)
	}
}

func TestResolveLanguageFilterFallsBackWhenEmpty(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Premalu", OriginalLanguage: "en", Popularity: 10},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Premalu malayalam"))
	if err != nil {
		t.Fatalf("language mismatch alone must not fail resolution: %v", err)
	}
	if record.ID != 1 {
		t.Fatalf("expected fallback to the english candidate, got id=%d", record.ID)
	}
}

func TestResolveStrictLanguageFails(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Premalu", OriginalLanguage: "en"},
		},
	}
	r := New(provider, WithStrictLanguage(true))
	_, err := r.Resolve(context.Background(), query.Interpret("Premalu malayalam"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("strict mode must fail on language mismatch, got %v", err)
	}
}

func TestResolveYearFilter(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Leo", ReleaseDate: "1990-05-01", Popularity: 99},
			{ID: 2, Title: "Leo", ReleaseDate: "2023-10-19", Popularity: 80},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Leo 2023"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 2 {
		t.Fatalf("expected the 2023 release, got id=%d", record.ID)
	}
}

func TestResolveYearFilterFallsBackWhenEmpty(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Leo", ReleaseDate: "1990-05-01"},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Leo 2023"))
	if err != nil {
		t.Fatalf("year mismatch alone must not fail resolution: %v", err)
	}
	if record.ID != 1 {
		t.Fatalf("expected fallback candidate, got id=%d", record.ID)
	}
}

func TestResolvePartHintPrefersSequel(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Drishyam", Popularity: 99},
			{ID: 2, Title: "Drishyam 2", Popularity: 50},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Drishyam 2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 2 {
		t.Fatalf("expected the sequel, got id=%d", record.ID)
	}
}

func TestResolvePopularityBreaksTies(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 1, Title: "Alpha", Popularity: 10},
			{ID: 2, Title: "Alpha", Popularity: 70},
			{ID: 3, Title: "Alpha", Popularity: 40},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("alpha"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 2 {
		t.Fatalf("expected the most popular candidate, got id=%d", record.ID)
	}
}

func TestResolveEqualPopularityKeepsProviderOrder(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 7, Title: "Alpha", Popularity: 40},
			{ID: 8, Title: "Alpha", Popularity: 40},
		},
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("alpha"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != 7 {
		t.Fatalf("expected the first provider-order candidate, got id=%d", record.ID)
	}
}

func TestResolveDetailFailureDegradesToSummary(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{
			{ID: 5, Title: "Kantara", OriginalLanguage: "kn", VoteAverage: 8.2, Overview: "A thriller."},
		},
		detailsErr: errors.New("tmdb HTTP 500"),
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("Kantara"))
	if err != nil {
		t.Fatalf("enrichment failure must not fail resolution: %v", err)
	}
	if record.Title != "Kantara" || record.Overview != "A thriller." {
		t.Fatalf("expected summary fields to survive, got %+v", record)
	}
}

func TestResolveTrailerFallback(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{{ID: 9, Title: "Jawan"}},
		details: map[int]tmdb.Details{
			9: {Record: domain.MovieRecord{ID: 9, Title: "Jawan"}},
		},
	}
	trailers := &fakeTrailers{enabled: true, url: "https://www.youtube.com/watch?v=abc"}
	r := New(provider, WithTrailerProvider(trailers))
	record, err := r.Resolve(context.Background(), query.Interpret("Jawan"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TrailerURL != trailers.url {
		t.Fatalf("expected trailer fallback URL, got %q", record.TrailerURL)
	}
	if trailers.calls != 1 {
		t.Fatalf("expected exactly one trailer lookup, got %d", trailers.calls)
	}
}

func TestResolveTrailerNotLookedUpWhenDetailsHaveOne(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{{ID: 9, Title: "Jawan"}},
		details: map[int]tmdb.Details{
			9: {Record: domain.MovieRecord{ID: 9, Title: "Jawan"}, TrailerURL: "https://www.youtube.com/watch?v=xyz"},
		},
	}
	trailers := &fakeTrailers{enabled: true, url: "https://www.youtube.com/watch?v=abc"}
	r := New(provider, WithTrailerProvider(trailers))
	record, err := r.Resolve(context.Background(), query.Interpret("Jawan"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TrailerURL != "https://www.youtube.com/watch?v=xyz" {
		t.Fatalf("details trailer must win, got %q", record.TrailerURL)
	}
	if trailers.calls != 0 {
		t.Fatalf("trailer provider must not be called, got %d calls", trailers.calls)
	}
}

func TestResolveTrailerFailureDegrades(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{{ID: 9, Title: "Jawan"}},
		details: map[int]tmdb.Details{
			9: {Record: domain.MovieRecord{ID: 9, Title: "Jawan"}},
		},
	}
	trailers := &fakeTrailers{enabled: true, err: errors.New("quota exceeded")}
	r := New(provider, WithTrailerProvider(trailers))
	record, err := r.Resolve(context.Background(), query.Interpret("Jawan"))
	if err != nil {
		t.Fatalf("trailer failure must not fail resolution: %v", err)
	}
	if record.TrailerURL != "" {
		t.Fatalf("expected empty trailer, got %q", record.TrailerURL)
	}
}

func TestResolveStreamingEnrichment(t *testing.T) {
	provider := &fakeProvider{
		searchResults: []domain.MovieSummary{{ID: 3, Title: "RRR"}},
		streaming:     "Netflix",
	}
	r := New(provider)
	record, err := r.Resolve(context.Background(), query.Interpret("RRR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.StreamingOn != "Netflix" {
		t.Fatalf("expected streaming enrichment, got %q", record.StreamingOn)
	}
}
