package tokenizerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeShortTextSendsSingleRequest(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req tokenizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "A", req.Mode)
		_ = json.NewEncoder(w).Encode(tokenizeResponse{Tokens: []string{"東京", "は", "晴れ"}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second})
	tokens, err := c.Tokenize(context.Background(), "東京は晴れ", ModeA, DefaultMaxChunk)
	require.NoError(t, err)
	assert.Equal(t, []string{"東京", "は", "晴れ"}, tokens)
	assert.Equal(t, 1, requests)
}

func TestTokenizeLongTextSplitsIntoMultipleChunks(t *testing.T) {
	var seenChunks []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tokenizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seenChunks = append(seenChunks, req.Text)
		_ = json.NewEncoder(w).Encode(tokenizeResponse{Tokens: []string{req.Text}})
	}))
	defer srv.Close()

	sentence := "これはテストです。"
	text := strings.Repeat(sentence, 10)

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second})
	tokens, err := c.Tokenize(context.Background(), text, ModeA, 20)
	require.NoError(t, err)
	assert.Greater(t, len(seenChunks), 1)
	assert.Equal(t, len(seenChunks), len(tokens))
	for _, chunk := range seenChunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 20)
	}
}

func TestTokenizeReturnsErrorOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 0})
	_, err := c.Tokenize(context.Background(), "text", ModeA, DefaultMaxChunk)
	require.Error(t, err)
}

func TestTokenizeEmptyTextReturnsNoTokens(t *testing.T) {
	c := New(DefaultConfig())
	tokens, err := c.Tokenize(context.Background(), "", ModeA, DefaultMaxChunk)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
