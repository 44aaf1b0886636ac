package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Client looks up official trailers via the YouTube Data API. Without an API
// key it stays disabled and FindTrailer reports no result.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type Config struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
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
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// FindTrailer returns a watch URL for the top "official trailer" search hit,
// or "" when the client is disabled or nothing matched.
func (c *Client) FindTrailer(ctx context.Context, title string) (string, error) {
	if !c.Enabled() || strings.TrimSpace(title) == "" {
		return "", nil
	}

	params := url.Values{
		"part":       {"snippet"},
		"q":          {strings.TrimSpace(title) + " official trailer"},
		"type":       {"video"},
		"maxResults": {"1"},
		"key":        {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("youtube HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 512*1024)).Decode(&response); err != nil {
		return "", err
	}
	if len(response.Items) == 0 || response.Items[0].ID.VideoID == "" {
		return "", nil
	}
	return "https://www.youtube.com/watch?v=" + response.Items[0].ID.VideoID, nil
}
