// Package tokenizerclient is an HTTP client for the Japanese morphological
// tokenizer service. Long inputs are split client-side into sentence-
// boundary-aligned chunks before being sent, mirroring the chunking the
// tokenizer itself used to do when invoked as a local subprocess.
package tokenizerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jtsearch/tfidxd/internal/httptransport"
)

// Mode selects the tokenizer's unit-splitting mode (A = shortest units,
// B = middle, C = longest named entities), matching the three granularity
// modes of the underlying morphological analyzer.
type Mode string

const (
	ModeA Mode = "A"
	ModeB Mode = "B"
	ModeC Mode = "C"
)

// sentenceBoundaries are the runes a chunk may be safely split after
// without severing a sentence mid-way.
const sentenceBoundaries = "。！？!?、,\n"

// DefaultMaxChunk is the chunk size used when a caller does not have a
// more specific limit in mind.
const DefaultMaxChunk = 2000

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns a Config pointing at the conventional local
// tokenizer port with a 10s timeout and a single retry.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8001",
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	}
}

// Client tokenizes text over HTTP.
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

// Tokenize splits text into maxChunk-rune (or smaller) sentence-aligned
// chunks, tokenizes each over HTTP in sequence, and concatenates the
// resulting token streams in order. maxChunk <= 0 uses DefaultMaxChunk.
func (c *Client) Tokenize(ctx context.Context, text string, mode Mode, maxChunk int) ([]string, error) {
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	chunks := splitForTokenizer(text, maxChunk)

	var tokens []string
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		t, err := c.tokenizeChunkWithRetry(ctx, chunk, mode)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t...)
	}
	return tokens, nil
}

func (c *Client) tokenizeChunkWithRetry(ctx context.Context, chunk string, mode Mode) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		tokens, err := c.tokenizeChunk(ctx, chunk, mode)
		if err == nil {
			return tokens, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("tokenizerclient: tokenize chunk: %w", lastErr)
}

type tokenizeRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type tokenizeResponse struct {
	Tokens []string `json:"tokens"`
	Error  string   `json:"error"`
}

func (c *Client) tokenizeChunk(ctx context.Context, chunk string, mode Mode) ([]string, error) {
	body, err := json.Marshal(tokenizeRequest{Text: chunk, Mode: string(mode)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tokenize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tokenizer error: %s", out.Error)
	}
	return out.Tokens, nil
}

// splitForTokenizer splits text into chunks of at most maxChunk runes,
// preferring to cut immediately after the last sentence-boundary rune at
// or before the limit so individual sentences are never torn across a
// request. Falls back to a hard cut at maxChunk when no boundary is found.
func splitForTokenizer(text string, maxChunk int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= maxChunk {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChunk
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := lastBoundary(runes, start, end)
		if cut <= start {
			cut = end
		}
		chunks = append(chunks, string(runes[start:cut]))
		start = cut
	}
	return chunks
}

func lastBoundary(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if strings.ContainsRune(sentenceBoundaries, runes[i-1]) {
			return i
		}
	}
	return -1
}
