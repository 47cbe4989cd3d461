package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jtsearch/tfidxd/internal/pool"
	"github.com/jtsearch/tfidxd/internal/scraperclient"
	"github.com/jtsearch/tfidxd/internal/tokenizerclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizerStub(t *testing.T, tokensFor func(text string) []string) *tokenizerclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(struct {
			Tokens []string `json:"tokens"`
		}{Tokens: tokensFor(req.Text)})
	}))
	t.Cleanup(srv.Close)
	return tokenizerclient.New(tokenizerclient.Config{BaseURL: srv.URL})
}

func newScraperStub(t *testing.T, descriptions []string) *scraperclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "status": 200, "url": "` + r.URL.Path + `", "results": {
			"title": ["Stub Title"],
			"favicon": ["https://stub.example/favicon.ico"],
			"descriptions": ["` + strings.Join(descriptions, `","`) + `"],
			"tags": ["news"]
		}}`))
	}))
	t.Cleanup(srv.Close)
	return scraperclient.New(scraperclient.Config{BaseURL: srv.URL})
}

func newTestServer(t *testing.T) (*Server, *pool.Pool) {
	t.Helper()
	p := pool.New(t.TempDir(), 4)
	words := map[string][]string{
		"猫はかわいい":     {"猫", "は", "かわいい"},
		"犬は忠実":       {"犬", "は", "忠実"},
		"猫":          {"猫"},
	}
	tok := newTokenizerStub(t, func(text string) []string {
		if toks, ok := words[text]; ok {
			return toks
		}
		return strings.Fields(text)
	})
	scr := newScraperStub(t, []string{"猫はかわいい"})
	s := New(p, tok, scr, DefaultLimits())
	return s, p
}

func TestHandleAddIndexesDocumentViaScraperAndTokenizer(t *testing.T) {
	s, p := newTestServer(t)

	body := strings.NewReader(`{"url": "https://cats.example", "tags": ["news"]}`)
	req := httptest.NewRequest(http.MethodPost, "/add", body)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp addResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://cats.example", resp.URL)
	assert.EqualValues(t, 1, p.Documents())
}

func TestHandleAddMissingURLIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSearchReturnsIndexedDocument(t *testing.T) {
	s, _ := newTestServer(t)

	addReq := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(`{"url": "https://cats.example", "tags": ["news"]}`))
	addW := httptest.NewRecorder()
	s.ServeHTTP(addW, addReq)
	require.Equal(t, http.StatusOK, addW.Code)

	searchReq := httptest.NewRequest(http.MethodGet, "/search?query=%E7%8C%AB", nil)
	searchW := httptest.NewRecorder()
	s.ServeHTTP(searchW, searchReq)

	require.Equal(t, http.StatusOK, searchW.Code)
	var resp searchResponse
	require.NoError(t, json.NewDecoder(searchW.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://cats.example", resp.Results[0].URL)
}

func TestHandleSearchMissingQueryIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatusReportsDocumentCount(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.EqualValues(t, 0, resp.Documents)
}
