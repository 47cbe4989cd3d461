// Package scraperclient is an HTTP client for the scraper service that
// extracts page metadata (title, descriptions, favicon, tags) for a target
// URL. The wire contract is an envelope tagged by a "success" boolean,
// carrying a ScrapeResults object of string arrays on success.
package scraperclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jtsearch/tfidxd/internal/httptransport"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns a Config pointing at the conventional local scraper
// port with a 10s timeout and a single retry.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8002",
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	}
}

// Page is the metadata the core needs to index a URL: the first entry of
// the scraper's title and favicon arrays, plus the full description and
// tag lists.
type Page struct {
	URL          string
	Title        string
	Favicon      string
	Descriptions []string
	Tags         []string
}

type scrapeResults struct {
	Author       []string `json:"author"`
	Base         []string `json:"base"`
	Canonical    []string `json:"canonical"`
	ContentHTML  []string `json:"content_html"`
	Descriptions []string `json:"descriptions"`
	Favicon      []string `json:"favicon"`
	Headings     []string `json:"headings"`
	Lang         []string `json:"lang"`
	Links        []string `json:"links"`
	Modified     []string `json:"modified"`
	Next         []string `json:"next"`
	Prev         []string `json:"prev"`
	Published    []string `json:"published"`
	RSS          []string `json:"rss"`
	SiteName     []string `json:"site_name"`
	Tags         []string `json:"tags"`
	Title        []string `json:"title"`
}

type envelope struct {
	Success bool           `json:"success"`
	Status  int            `json:"status"`
	URL     string         `json:"url"`
	Results *scrapeResults `json:"results"`
	Error   string         `json:"error"`
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Client fetches scraped page metadata over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
}

// New builds a Client from cfg, applying DefaultConfig's values for any
// zero fields.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &Client{
		httpClient: httptransport.New(cfg.Timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch asks the scraper to extract metadata for target, a raw (not yet
// escaped) URL or path segment appended to the configured base under
// "/url/". Any failed attempt (transport error, non-200 status, undecodable
// body, or a failure envelope) is retried, up to maxRetries times.
func (c *Client) Fetch(ctx context.Context, target string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/url/%s", c.baseURL, url.PathEscape(target))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		page, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("scraperclient: fetch %s: %w", endpoint, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "scraper reported failure with no message"
		}
		return nil, fmt.Errorf("scraper error: %s", env.Error)
	}
	if env.Results == nil {
		return nil, fmt.Errorf("scraper success response missing results")
	}

	return &Page{
		URL:          env.URL,
		Title:        first(env.Results.Title),
		Favicon:      first(env.Results.Favicon),
		Descriptions: env.Results.Descriptions,
		Tags:         env.Results.Tags,
	}, nil
}
