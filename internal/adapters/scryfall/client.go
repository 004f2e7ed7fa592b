package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client talks to the Scryfall REST API. Scryfall asks for 50-100ms
// between requests, so every call goes through a shared pacing gate, and
// concurrent identical fetches are collapsed with singleflight.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	imageClient  *http.Client
	requestDelay time.Duration
	logger       *zap.Logger

	group       singleflight.Group
	paceMu      sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new Scryfall API client
func NewClient(baseURL, userAgent string, requestDelay, requestTimeout, imageTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: requestTimeout},
		imageClient:  &http.Client{Timeout: imageTimeout},
		requestDelay: requestDelay,
		logger:       logger,
	}
}

// ResolveCard fetches a card by fuzzy name, optionally narrowed to a set
// and collector number
func (c *Client) ResolveCard(ctx context.Context, name, setCode, collectorNumber string) ([]byte, error) {
	if setCode != "" && collectorNumber != "" {
		// Direct lookup by set + collector number, most precise
		path := fmt.Sprintf("/cards/%s/%s", strings.ToLower(setCode), collectorNumber)
		return c.get(ctx, path, nil)
	}

	params := url.Values{}
	params.Set("fuzzy", name)
	if setCode != "" {
		params.Set("set", strings.ToLower(setCode))
	}
	return c.get(ctx, "/cards/named", params)
}

// ResolveRulings fetches Oracle rulings for a card by its Scryfall UUID
func (c *Client) ResolveRulings(ctx context.Context, cardID string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/cards/%s/rulings", cardID), nil)
}

// FetchImage downloads a card image for attachment
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.imageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected image response status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// apiError is the shape of Scryfall's error object
type apiError struct {
	Object   string   `json:"object"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Warnings []string `json:"warnings"`
}

// get performs a paced GET, collapsing concurrent identical requests
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	v, err, _ := c.group.Do(fullURL, func() (interface{}, error) {
		return c.doGet(ctx, fullURL)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) doGet(ctx context.Context, fullURL string) ([]byte, error) {
	c.pace()

	c.logger.Debug("GET", zap.String("url", fullURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read card API response: %w", err)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Object == "error" {
		status := apiErr.Status
		if status == 0 {
			status = resp.StatusCode
		}
		return nil, &core.ResolveError{
			Status:   status,
			Details:  apiErr.Details,
			Warnings: apiErr.Warnings,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &core.ResolveError{
			Status:  resp.StatusCode,
			Details: fmt.Sprintf("unexpected response status %d", resp.StatusCode),
		}
	}

	return body, nil
}

// pace enforces the minimum gap between upstream requests
func (c *Client) pace() {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()

	if elapsed := time.Since(c.lastRequest); elapsed < c.requestDelay {
		time.Sleep(c.requestDelay - elapsed)
	}
	c.lastRequest = time.Now()
}
