package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cinegram/internal/domain"
	"cinegram/internal/metrics"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	defaultLanguage = "en-US"
	redisCacheKey   = "cinegram:tmdb:"

	// Discovery pages above this are mostly empty filler; random picks stay below it.
	maxDiscoverPage = 40
)

type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
}

type Config struct {
	APIKey   string
	BaseURL  string
	Client   *http.Client
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type listResponse struct {
	Page         int                   `json:"page"`
	Results      []domain.MovieSummary `json:"results"`
	TotalPages   int                   `json:"total_pages"`
	TotalResults int                   `json:"total_results"`
}

// SearchTitle runs a title search and returns the raw candidate list in
// provider order. A non-200 status or malformed body is an error; an empty
// result list is not.
func (c *Client) SearchTitle(ctx context.Context, title string) ([]domain.MovieSummary, error) {
	params := url.Values{
		"query":    {strings.TrimSpace(title)},
		"language": {defaultLanguage},
	}
	var response listResponse
	if err := c.getJSON(ctx, "search", "/search/movie", params, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// NowPlaying returns the first page of the now-playing feed.
func (c *Client) NowPlaying(ctx context.Context) ([]domain.MovieSummary, error) {
	var response listResponse
	if err := c.getJSON(ctx, "now_playing", "/movie/now_playing", url.Values{"language": {defaultLanguage}}, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// Upcoming returns the first page of the upcoming feed.
func (c *Client) Upcoming(ctx context.Context) ([]domain.MovieSummary, error) {
	var response listResponse
	if err := c.getJSON(ctx, "upcoming", "/movie/upcoming", url.Values{"language": {defaultLanguage}}, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// DiscoverFilters narrows a Discover call. Zero values mean no filter.
type DiscoverFilters struct {
	OriginalLanguage string
	Year             string
	Page             int
}

// Discover queries the discovery endpoint with optional language/year filters.
func (c *Client) Discover(ctx context.Context, filters DiscoverFilters) ([]domain.MovieSummary, error) {
	params := url.Values{
		"language":      {defaultLanguage},
		"sort_by":       {"popularity.desc"},
		"include_adult": {"false"},
	}
	if filters.OriginalLanguage != "" {
		params.Set("with_original_language", filters.OriginalLanguage)
	}
	if filters.Year != "" {
		params.Set("primary_release_year", filters.Year)
	}
	if filters.Page > 0 {
		params.Set("page", strconv.Itoa(filters.Page))
	}
	var response listResponse
	if err := c.getJSON(ctx, "discover", "/discover/movie", params, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// RandomPick returns one random movie from a random discovery page,
// optionally restricted to an original language.
func (c *Client) RandomPick(ctx context.Context, originalLanguage string) (domain.MovieSummary, error) {
	page := rand.IntN(maxDiscoverPage) + 1
	results, err := c.Discover(ctx, DiscoverFilters{OriginalLanguage: originalLanguage, Page: page})
	if err != nil {
		return domain.MovieSummary{}, err
	}
	if len(results) == 0 {
		// High pages can run past the end of the filtered set.
		results, err = c.Discover(ctx, DiscoverFilters{OriginalLanguage: originalLanguage, Page: 1})
		if err != nil {
			return domain.MovieSummary{}, err
		}
	}
	if len(results) == 0 {
		return domain.MovieSummary{}, fmt.Errorf("discover returned no results")
	}
	return results[rand.IntN(len(results))], nil
}

type detailsResponse struct {
	ID                  int     `json:"id"`
	Title               string  `json:"title"`
	OriginalLanguage    string  `json:"original_language"`
	ReleaseDate         string  `json:"release_date"`
	VoteAverage         float64 `json:"vote_average"`
	Overview            string  `json:"overview"`
	PosterPath          string  `json:"poster_path"`
	BelongsToCollection *struct {
		Name string `json:"name"`
	} `json:"belongs_to_collection"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

// Details holds the enrichment fields of one detail fetch.
type Details struct {
	Record     domain.MovieRecord
	TrailerURL string
}

// GetDetails fetches the detail document for one movie id, with videos
// appended so a trailer can usually be derived without a second provider.
func (c *Client) GetDetails(ctx context.Context, id int) (Details, error) {
	params := url.Values{
		"language":           {defaultLanguage},
		"append_to_response": {"videos"},
	}
	var response detailsResponse
	if err := c.getJSON(ctx, "details", "/movie/"+strconv.Itoa(id), params, &response); err != nil {
		return Details{}, err
	}

	record := domain.MovieRecord{
		ID:               response.ID,
		Title:            response.Title,
		OriginalLanguage: response.OriginalLanguage,
		ReleaseDate:      response.ReleaseDate,
		Rating:           response.VoteAverage,
		Overview:         response.Overview,
		PosterURL:        PosterURL(response.PosterPath),
	}
	if response.BelongsToCollection != nil {
		record.CollectionName = response.BelongsToCollection.Name
	}

	trailerURL := ""
	for _, video := range response.Videos.Results {
		if strings.EqualFold(video.Site, "YouTube") && strings.EqualFold(video.Type, "Trailer") {
			trailerURL = "https://www.youtube.com/watch?v=" + video.Key
			break
		}
	}
	return Details{Record: record, TrailerURL: trailerURL}, nil
}

type watchProvidersResponse struct {
	Results map[string]struct {
		Flatrate []struct {
			ProviderName string `json:"provider_name"`
		} `json:"flatrate"`
	} `json:"results"`
}

// StreamingProvider returns the first flatrate streaming provider listed for
// the given region (IN, then US as fallback), or "" when none is known.
func (c *Client) StreamingProvider(ctx context.Context, id int) (string, error) {
	var response watchProvidersResponse
	if err := c.getJSON(ctx, "watch_providers", "/movie/"+strconv.Itoa(id)+"/watch/providers", url.Values{}, &response); err != nil {
		return "", err
	}
	for _, region := range []string{"IN", "US"} {
		entry, ok := response.Results[region]
		if !ok || len(entry.Flatrate) == 0 {
			continue
		}
		return entry.Flatrate[0].ProviderName, nil
	}
	return "", nil
}

// PosterURL expands a relative poster path into a full image URL.
func PosterURL(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return posterBaseURL + path
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if !c.Enabled() {
		return fmt.Errorf("tmdb api key not configured")
	}
	// Cache key is built before the api key is added so credentials never
	// reach Redis. The path is part of the key: detail and watch-provider
	// requests carry the movie id there, not in the query string.
	cacheable := c.redis != nil && endpoint != "discover"
	cacheKey := redisCacheKey + endpoint + ":" + path + "?" + params.Encode()

	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()
	if cacheable {
		if data, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			if json.Unmarshal(data, out) == nil {
				metrics.CacheHitsTotal.Inc()
				return nil
			}
		}
		metrics.CacheMissesTotal.Inc()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues("tmdb", endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("tmdb", endpoint, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues("tmdb", endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("tmdb", endpoint, "error").Inc()
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("tmdb", endpoint, "error").Inc()
		return err
	}
	metrics.ProviderRequestsTotal.WithLabelValues("tmdb", endpoint, "ok").Inc()

	if cacheable {
		_ = c.redis.Set(ctx, cacheKey, body, c.cacheTTL).Err()
	}
	return nil
}
