// Package kinopoisk implements the highest-priority catalog lookup of the
// resolution chain.
package kinopoisk

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
	defaultEndpoint  = "https://api.kinopoisk.dev/v1.2/movie/search"
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
	Docs []struct {
		ID   json.Number `json:"id"`
		Type string      `json:"type"`
		Year int         `json:"year"`
	} `json:"docs"`
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
		endpoint:  endpoint,
		userAgent: userAgent,
	}
}

func (c *Client) Name() string {
	return "kinopoisk"
}

func (c *Client) Label() string {
	return "Kinopoisk"
}

func (c *Client) CredentialKey() string {
	return "kinopoisk"
}

// Lookup returns the first catalog match for the title, or nil when the
// catalog has no such entry. Year is passed through as a hint only; this
// endpoint does not filter by it.
func (c *Client) Lookup(ctx context.Context, apiKey, title string, year int) (*domain.ExternalID, error) {
	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := uri.Query()
	query.Set("page", "1")
	query.Set("limit", "1")
	query.Set("query", strings.TrimSpace(title))
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("kinopoisk HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("kinopoisk payload: %w", err)
	}
	if len(parsed.Docs) == 0 {
		return nil, nil
	}

	doc := parsed.Docs[0]
	id := strings.TrimSpace(doc.ID.String())
	if id == "" || id == "0" {
		return nil, nil
	}

	return &domain.ExternalID{
		ID:          id,
		Provider:    c.Name(),
		ContentType: contentTypeFromDoc(doc.Type),
	}, nil
}

func contentTypeFromDoc(raw string) domain.ContentType {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "anime" || strings.HasPrefix(value, "anime"):
		return domain.ContentTypeAnime
	case strings.Contains(value, "series"):
		return domain.ContentTypeSeries
	case value == "movie" || value == "film" || value == "cartoon":
		return domain.ContentTypeMovie
	case value == "":
		return domain.ContentTypeUnknown
	default:
		return domain.ContentTypeUnknown
	}
}
