package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Client:  server.Client(),
	})
}

func TestSearchTitle(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{
			"page": 1,
			"results": [
				{"id": 1071806, "title": "Premalu", "original_language": "ml",
				 "release_date": "2024-02-09", "vote_average": 7.8, "popularity": 21.5,
				 "poster_path": "/premalu.jpg", "overview": "A romcom."}
			],
			"total_pages": 1, "total_results": 1
		}`))
	})

	results, err := client.SearchTitle(context.Background(), "Premalu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/search/movie" {
		t.Fatalf("path = %q, want /search/movie", gotPath)
	}
	if gotQuery != "Premalu" {
		t.Fatalf("query = %q, want Premalu", gotQuery)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	movie := results[0]
	if movie.ID != 1071806 || movie.Title != "Premalu" || movie.OriginalLanguage != "ml" {
		t.Fatalf("unexpected result: %+v", movie)
	}
	if movie.ReleaseYear() != "2024" {
		t.Fatalf("ReleaseYear = %q, want 2024", movie.ReleaseYear())
	}
}

func TestSearchTitleEmptyResultsIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	})
	results, err := client.SearchTitle(context.Background(), "no such movie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestNon200IsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Invalid API key"}`))
	})
	_, err := client.SearchTitle(context.Background(), "Premalu")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry the status code, got %v", err)
	}
}

func TestDisabledClientErrorsWithoutNetwork(t *testing.T) {
	client := NewClient(Config{})
	if client.Enabled() {
		t.Fatal("client without key must report disabled")
	}
	if _, err := client.SearchTitle(context.Background(), "Premalu"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGetDetailsExtractsTrailerAndCollection(t *testing.T) {
	var gotAppend string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppend = r.URL.Query().Get("append_to_response")
		w.Write([]byte(`{
			"id": 19404, "title": "Drishyam", "original_language": "ml",
			"release_date": "2013-12-19", "vote_average": 8.2,
			"overview": "A cable operator covers up a crime.",
			"poster_path": "/drishyam.jpg",
			"belongs_to_collection": {"name": "Drishyam Collection"},
			"videos": {"results": [
				{"key": "teaser1", "site": "YouTube", "type": "Teaser"},
				{"key": "trail99", "site": "YouTube", "type": "Trailer"},
				{"key": "other", "site": "Vimeo", "type": "Trailer"}
			]}
		}`))
	})

	details, err := client.GetDetails(context.Background(), 19404)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAppend != "videos" {
		t.Fatalf("append_to_response = %q, want videos", gotAppend)
	}
	if details.TrailerURL != "https://www.youtube.com/watch?v=trail99" {
		t.Fatalf("trailer = %q", details.TrailerURL)
	}
	record := details.Record
	if record.CollectionName != "Drishyam Collection" {
		t.Fatalf("collection = %q", record.CollectionName)
	}
	if record.PosterURL != "https://image.tmdb.org/t/p/w500/drishyam.jpg" {
		t.Fatalf("poster = %q", record.PosterURL)
	}
}

func TestGetDetailsWithoutTrailer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 5, "title": "Obscure", "videos": {"results": []}}`))
	})
	details, err := client.GetDetails(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.TrailerURL != "" {
		t.Fatalf("expected no trailer, got %q", details.TrailerURL)
	}
}

func TestStreamingProviderRegionFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": {
			"US": {"flatrate": [{"provider_name": "Netflix"}]},
			"GB": {"flatrate": [{"provider_name": "BBC iPlayer"}]}
		}}`))
	})
	name, err := client.StreamingProvider(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Netflix" {
		t.Fatalf("provider = %q, want Netflix (US fallback)", name)
	}
}

func TestStreamingProviderPrefersIndia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": {
			"IN": {"flatrate": [{"provider_name": "Hotstar"}]},
			"US": {"flatrate": [{"provider_name": "Netflix"}]}
		}}`))
	})
	name, err := client.StreamingProvider(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Hotstar" {
		t.Fatalf("provider = %q, want Hotstar", name)
	}
}

func TestStreamingProviderNoneKnown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": {}}`))
	})
	name, err := client.StreamingProvider(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty provider, got %q", name)
	}
}

func TestDiscoverParams(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"with_original_language": q.Get("with_original_language"),
			"primary_release_year":   q.Get("primary_release_year"),
			"page":                   q.Get("page"),
			"sort_by":                q.Get("sort_by"),
		}
		w.Write([]byte(`{"page":3,"results":[{"id":1,"title":"X"}]}`))
	})

	results, err := client.Discover(context.Background(), DiscoverFilters{
		OriginalLanguage: "ml",
		Year:             "2024",
		Page:             3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	want := map[string]string{
		"with_original_language": "ml",
		"primary_release_year":   "2024",
		"page":                   "3",
		"sort_by":                "popularity.desc",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("param %s = %q, want %q", key, got[key], value)
		}
	}
}

func TestRandomPickRetriesFirstPage(t *testing.T) {
	var pages []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" || page == "" {
			w.Write([]byte(`{"page":1,"results":[{"id":7,"title":"Lucky"}]}`))
			return
		}
		w.Write([]byte(`{"page":2,"results":[]}`))
	})

	pick, err := client.RandomPick(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pick.ID != 7 {
		t.Fatalf("pick = %+v, want id 7", pick)
	}
	// Either the random page had results or the loop fell back to page 1.
	if len(pages) == 0 || len(pages) > 2 {
		t.Fatalf("unexpected request count: %v", pages)
	}
}

func TestCacheIsScopedPerMovie(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	titles := map[string]string{"1": "Premalu", "2": "Leo"}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		id := strings.TrimPrefix(r.URL.Path, "/movie/")
		fmt.Fprintf(w, `{"id": %s, "title": %q, "videos": {"results": []}}`, id, titles[id])
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Client:  server.Client(),
		Redis:   rdb,
	})

	first, err := client.GetDetails(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Record.ID != 1 || first.Record.Title != "Premalu" {
		t.Fatalf("unexpected first record: %+v", first.Record)
	}

	second, err := client.GetDetails(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Record.ID != 2 || second.Record.Title != "Leo" {
		t.Fatalf("movie 2 served movie %d's cached record %q", second.Record.ID, second.Record.Title)
	}

	// Repeats are cache hits for their own id.
	again, err := client.GetDetails(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Record.ID != 1 || again.Record.Title != "Premalu" {
		t.Fatalf("unexpected cached record: %+v", again.Record)
	}
	if requests != 2 {
		t.Fatalf("expected 2 upstream requests, got %d", requests)
	}
}

func TestCacheNeverHoldsCredentials(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"page":1,"results":[]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:  "secret-key",
		BaseURL: server.URL,
		Client:  server.Client(),
		Redis:   rdb,
	})
	if _, err := client.SearchTitle(context.Background(), "Premalu"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range mr.Keys() {
		if strings.Contains(key, "secret-key") {
			t.Fatalf("api key leaked into cache key %q", key)
		}
	}
}

func TestPosterURL(t *testing.T) {
	if got := PosterURL("/premalu.jpg"); got != "https://image.tmdb.org/t/p/w500/premalu.jpg" {
		t.Fatalf("PosterURL = %q", got)
	}
	if got := PosterURL(""); got != "" {
		t.Fatalf("empty path must produce empty URL, got %q", got)
	}
	if got := PosterURL("   "); got != "" {
		t.Fatalf("blank path must produce empty URL, got %q", got)
	}
}
