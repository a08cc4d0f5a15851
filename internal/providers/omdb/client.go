// Package omdb implements the second catalog lookup of the resolution
// chain. OMDb is the only provider in the chain that honors the year hint.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"videofinder/searchservice/internal/domain"
)

const (
	defaultEndpoint  = "https://www.omdbapi.com/"
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
	Response string `json:"Response"`
	IMDBID   string `json:"imdbID"`
	Type     string `json:"Type"`
	Error    string `json:"Error"`
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
	return "omdb"
}

func (c *Client) Label() string {
	return "OMDb"
}

func (c *Client) CredentialKey() string {
	return "omdb"
}

func (c *Client) Lookup(ctx context.Context, apiKey, title string, year int) (*domain.ExternalID, error) {
	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := uri.Query()
	query.Set("apikey", apiKey)
	query.Set("t", strings.TrimSpace(title))
	if year > 0 {
		query.Set("y", strconv.Itoa(year))
	}
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
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
		return nil, fmt.Errorf("omdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("omdb payload: %w", err)
	}

	// OMDb reports "no such title" as Response=False with HTTP 200.
	if !strings.EqualFold(strings.TrimSpace(parsed.Response), "true") {
		return nil, nil
	}
	id := strings.TrimSpace(parsed.IMDBID)
	if id == "" {
		return nil, nil
	}

	contentType := domain.ContentTypeSeries
	if strings.EqualFold(strings.TrimSpace(parsed.Type), "movie") {
		contentType = domain.ContentTypeMovie
	}

	return &domain.ExternalID{
		ID:          id,
		Provider:    c.Name(),
		ContentType: contentType,
	}, nil
}
