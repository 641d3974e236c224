// Package unsplash searches the Unsplash photo API.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"photosearch/cache"
	"photosearch/logging"
	"photosearch/types"

	"github.com/twmb/murmur3"
)

// DefaultBaseURL is the public Unsplash API endpoint
const DefaultBaseURL = "https://api.unsplash.com"

// DefaultPerPage is the page size used when none is given
const DefaultPerPage = 20

// Errors returned by the client
var (
	ErrInvalidQuery    = errors.New("invalid search query")
	ErrInvalidResponse = errors.New("invalid response")
)

// Client talks to the Unsplash API
type Client struct {
	BaseURL  string
	ClientID string
	HTTP     *http.Client

	// Cache is optional; search responses are stored in it keyed by their parameters
	Cache cache.Provider

	auto *cache.Auto
}

// New creates a client. A nil provider disables caching.
func New(baseURL, clientID string, provider cache.Provider) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Cache:    provider,
	}

	if provider != nil {
		c.auto = &cache.Auto{
			Provider: provider,
			Loader:   c.loadCached,
		}
	}

	return c
}

// SearchPhotos returns one page of photos matching query
func (c *Client) SearchPhotos(ctx context.Context, query string, page, perPage int) (*types.PhotoResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	endpoint := c.searchURL(query, page, perPage)

	var body []byte
	var err error
	if c.auto != nil {
		body, err = c.auto.Get(context.WithValue(ctx, endpointKey{}, endpoint), cacheKey(endpoint))
	} else {
		body, err = c.fetch(ctx, endpoint)
	}
	if err != nil {
		return nil, err
	}

	resp, err := decodePage(body)
	if err != nil {
		return nil, err
	}

	logging.DebugLog("search %q page %d returned %d of %d photos", query, page, len(resp.Results), resp.Total)
	return resp, nil
}

func decodePage(body []byte) (*types.PhotoResponse, error) {
	var resp types.PhotoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &resp, nil
}

func (c *Client) searchURL(query string, page, perPage int) string {
	params := url.Values{}
	params.Set("client_id", c.ClientID)
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	return c.BaseURL + "/search/photos?" + params.Encode()
}

// cacheKey hashes the request so credentials never end up in the cache
func cacheKey(endpoint string) string {
	return fmt.Sprintf("unsplash:search:%016x", murmur3.StringSum64(endpoint))
}

// loadCached is the cache loader. Keys are hashes, so the endpoint travels in the context.
// Only bodies that decode as a page are handed to the cache.
func (c *Client) loadCached(ctx context.Context, key string) ([]byte, error) {
	endpoint, ok := ctx.Value(endpointKey{}).(string)
	if !ok {
		return nil, fmt.Errorf("no endpoint for cache key %s", key)
	}

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if _, err := decodePage(body); err != nil {
		return nil, err
	}
	return body, nil
}

type endpointKey struct{}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	req.Header.Set("Accept-Version", "v1")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrInvalidResponse, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	return body, nil
}
