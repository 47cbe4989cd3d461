// Package httpapi is the thin HTTP façade over internal/pool: POST /add,
// GET /search, GET /status. It decodes requests, calls into the Pool, and
// encodes the response; no ranking or persistence logic lives here.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/pool"
	"github.com/jtsearch/tfidxd/internal/scraperclient"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/tokenizerclient"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

// Limits bounds string fields trimmed into metadata records.
type Limits struct {
	MaxTitleChars       int
	MaxDescriptionChars int
	DefaultResults      int
	MaxResults          int
}

// DefaultLimits mirrors spec.md §6's compile-time constants.
func DefaultLimits() Limits {
	return Limits{
		MaxTitleChars:       100,
		MaxDescriptionChars: 100,
		DefaultResults:      20,
		MaxResults:          1000,
	}
}

// Server wires the Pool to the tokenizer/scraper collaborators and exposes
// the HTTP surface described in spec.md §6.
type Server struct {
	pool      *pool.Pool
	tokenizer *tokenizerclient.Client
	scraper   *scraperclient.Client
	limits    Limits
	mux       *http.ServeMux
}

// New builds a Server. scraper may be nil: a nil scraper means /add expects
// the caller to supply descriptions directly instead of triggering a fetch.
func New(p *pool.Pool, tok *tokenizerclient.Client, scr *scraperclient.Client, limits Limits) *Server {
	s := &Server{pool: p, tokenizer: tok, scraper: scr, limits: limits}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add", s.handleAdd)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /status", s.handleStatus)
	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func trimChars(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- POST /add ---

type addRequest struct {
	URL          string   `json:"url"`
	Title        *string  `json:"title,omitempty"`
	Favicon      *string  `json:"favicon,omitempty"`
	Tags         []string `json:"tags"`
	Descriptions []string `json:"descriptions,omitempty"`
}

type addResponse struct {
	Success      bool     `json:"success"`
	URL          string   `json:"url,omitempty"`
	Title        string   `json:"title,omitempty"`
	Favicon      string   `json:"favicon,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		aerr := apperrors.InvalidRequest("invalid JSON body", err)
		apperrors.Log(aerr, slog.String("path", r.URL.Path))
		writeJSON(w, apperrors.HTTPStatus(aerr), addResponse{Success: false, Error: aerr.Message})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		aerr := apperrors.InvalidRequest("missing url", nil)
		apperrors.Log(aerr)
		writeJSON(w, apperrors.HTTPStatus(aerr), addResponse{Success: false, Error: aerr.Message})
		return
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	favicon := ""
	if req.Favicon != nil {
		favicon = *req.Favicon
	}
	descriptions := req.Descriptions

	if len(descriptions) == 0 && s.scraper != nil {
		page, err := s.scraper.Fetch(r.Context(), req.URL)
		if err != nil {
			aerr := apperrors.IOFailure("scraper fetch failed", err)
			apperrors.Log(aerr, slog.String("url", req.URL))
			writeJSON(w, http.StatusBadGateway, addResponse{Success: false, Error: aerr.Message})
			return
		}
		descriptions = page.Descriptions
		if title == "" {
			title = page.Title
		}
		if favicon == "" {
			favicon = page.Favicon
		}
		if len(req.Tags) == 0 {
			req.Tags = page.Tags
		}
	}
	if len(descriptions) == 0 {
		aerr := apperrors.InvalidRequest("no description found", nil)
		apperrors.Log(aerr, slog.String("url", req.URL))
		writeJSON(w, http.StatusNotFound, addResponse{Success: false, Error: aerr.Message})
		return
	}
	desc := descriptions[0]

	tokens, err := s.tokenizer.Tokenize(r.Context(), desc, tokenizerclient.ModeA, tokenizerclient.DefaultMaxChunk)
	if err != nil {
		aerr := apperrors.New(apperrors.ErrCodeInternal, "tokenize failed", err)
		apperrors.Log(aerr, slog.String("url", req.URL))
		writeJSON(w, apperrors.HTTPStatus(aerr), addResponse{Success: false, Error: aerr.Message})
		return
	}

	tf := tfvector.New()
	for _, tok := range tokens {
		id := s.pool.Corpus().Intern(tok)
		tf.Add(id, 1)
	}

	record := metastore.Record{
		Title:       trimChars(title, s.limits.MaxTitleChars),
		Description: trimChars(desc, s.limits.MaxDescriptionChars),
		Favicon:     favicon,
		URL:         req.URL,
		Timestamp:   time.Now(),
		Tags:        tagset.FromStrings(req.Tags),
	}

	outcome, _, shardID := s.pool.Insert(tf, record)
	if outcome == pool.Failed {
		aerr := apperrors.New(apperrors.ErrCodeInternal, "insertion failed", nil)
		apperrors.Log(aerr, slog.String("url", req.URL))
		writeJSON(w, apperrors.HTTPStatus(aerr), addResponse{Success: false, Error: aerr.Message})
		return
	}

	slog.Info("httpapi: indexed url", slog.String("url", req.URL), slog.Int("shard", shardID), slog.String("outcome", outcome.String()))
	writeJSON(w, http.StatusOK, addResponse{
		Success:      true,
		URL:          req.URL,
		Title:        record.Title,
		Favicon:      record.Favicon,
		Tags:         record.Tags.ToNames(),
		Descriptions: descriptions,
	})
}

// --- GET /search ---

type searchResultView struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Favicon     string   `json:"favicon"`
	Tags        []string `json:"tags"`
	Score       float64  `json:"score"`
	Points      float64  `json:"points"`
	Length      uint64   `json:"length"`
	ID          int      `json:"id"`
	IndexID     int      `json:"index_id"`
	Time        string   `json:"time"`
}

type searchResponse struct {
	Success       bool                `json:"success"`
	Query         string              `json:"query,omitempty"`
	TokenizeQuery []string            `json:"tokenize_query,omitempty"`
	Algorithm     string              `json:"algorithm,omitempty"`
	Range         string              `json:"range,omitempty"`
	Results       []searchResultView  `json:"results,omitempty"`
	Error         string              `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQueryParam(r, "query")
	if err != nil || strings.TrimSpace(query) == "" {
		aerr := apperrors.InvalidRequest("missing query", err)
		apperrors.Log(aerr)
		writeJSON(w, apperrors.HTTPStatus(aerr), searchResponse{Success: false, Error: aerr.Message})
		return
	}

	algoRaw, _ := decodeQueryParam(r, "algo")
	algo := vectorizer.ParseAlgorithm(algoRaw)
	algoStr := vectorizer.FormatAlgorithm(algo)

	start, end := ParseRange(r.URL.Query().Get("range"))

	tagRaw, _ := decodeQueryParam(r, "tag")
	var tags []string
	if tagRaw != "" {
		tags = strings.Split(tagRaw, ",")
	}
	filter := tagset.FromStrings(tags)
	exclusive := ParseTagExclusive(r.URL.Query().Get("tag_exclusive"))

	tokens, err := s.tokenizer.Tokenize(r.Context(), query, tokenizerclient.ModeA, tokenizerclient.DefaultMaxChunk)
	if err != nil {
		aerr := apperrors.New(apperrors.ErrCodeInternal, "tokenize failed", err)
		apperrors.Log(aerr, slog.String("query", query))
		writeJSON(w, apperrors.HTTPStatus(aerr), searchResponse{Success: false, Error: aerr.Message})
		return
	}
	if len(tokens) == 0 {
		writeJSON(w, http.StatusOK, searchResponse{
			Success:       true,
			Query:         query,
			TokenizeQuery: tokens,
			Algorithm:     algoStr,
			Range:         formatRange(start, end),
			Results:       []searchResultView{},
		})
		return
	}

	corpus := s.pool.Corpus()
	tf := tfvector.New()
	for _, tok := range tokens {
		if id, ok := corpus.Lookup(tok); ok {
			tf.Add(id, 1)
		}
	}

	entries := s.pool.Search(r.Context(), tf, algo)
	hydrated := s.pool.Hydrate(entries, start, end, filter, exclusive)

	results := make([]searchResultView, 0, len(hydrated))
	for _, h := range hydrated {
		results = append(results, searchResultView{
			URL:         h.URL,
			Title:       h.Title,
			Description: h.Description,
			Favicon:     h.Favicon,
			Tags:        h.Tags.ToNames(),
			Score:       h.Score,
			Points:      h.Points,
			Length:      h.Length,
			ID:          h.DocID,
			IndexID:     h.ShardID,
			Time:        h.Timestamp.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success:       true,
		Query:         query,
		TokenizeQuery: tokens,
		Algorithm:     algoStr,
		Range:         formatRange(start, end),
		Results:       results,
	})
}

func formatRange(start, end int) string {
	return strconv.Itoa(start) + ".." + strconv.Itoa(end)
}

// --- GET /status ---

type statusResponse struct {
	Status    string `json:"status"`
	Documents int64  `json:"documents"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Documents: s.pool.Documents()})
}

func decodeQueryParam(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		apperrors.Log(apperrors.InvalidRequest("malformed query parameter", err), slog.String("param", name))
		return raw, nil
	}
	return strings.TrimSpace(decoded), nil
}
