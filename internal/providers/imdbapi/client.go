// Package imdbapi implements the last catalog lookup of the resolution
// chain, a title-search wrapper around imdb-api.com.
package imdbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"videofinder/searchservice/internal/domain"
)

const (
	defaultEndpoint  = "https://imdb-api.com/API/Search"
	defaultUserAgent = "videofinder-search/1.0"
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Client struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

type searchResponse struct {
	Results []struct {
		ID         string `json:"id"`
		ResultType string `json:"resultType"`
	} `json:"results"`
	ErrorMessage string `json:"errorMessage"`
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		client:    client,
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
	}
}

func (c *Client) Name() string {
	return "imdbapi"
}

func (c *Client) Label() string {
	return "IMDb API"
}

func (c *Client) CredentialKey() string {
	return "imdb"
}

// Lookup searches by title only; the API key is a path segment.
func (c *Client) Lookup(ctx context.Context, apiKey, title string, _ int) (*domain.ExternalID, error) {
	requestURL := c.endpoint + "/" + url.PathEscape(strings.TrimSpace(apiKey)) + "/" + url.PathEscape(strings.TrimSpace(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("imdb-api HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("imdb-api payload: %w", err)
	}
	if message := strings.TrimSpace(parsed.ErrorMessage); message != "" {
		return nil, fmt.Errorf("imdb-api error: %s", message)
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}

	first := parsed.Results[0]
	id := strings.TrimSpace(first.ID)
	if id == "" {
		return nil, nil
	}

	return &domain.ExternalID{
		ID:          id,
		Provider:    c.Name(),
		ContentType: contentTypeFromResult(first.ResultType),
	}, nil
}

func contentTypeFromResult(raw string) domain.ContentType {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "title", "movie":
		return domain.ContentTypeMovie
	case "series", "tvseries":
		return domain.ContentTypeSeries
	default:
		return domain.NormalizeContentType(value)
	}
}
