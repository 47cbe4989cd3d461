// Package httptransport builds the tuned *http.Transport shared by the
// scraper and tokenizer collaborator clients: bounded idle connections for
// short-lived CLI/daemon processes, with HTTP/2 enabled for collaborators
// that support it.
package httptransport

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// PoolSize is the default number of idle connections kept per host. Both
// collaborators are single local services, so there is little value in a
// larger pool.
const PoolSize = 8

// New returns an *http.Client with a tuned transport: bounded idle
// connections, a short idle timeout (these clients are short-lived CLI or
// daemon processes, not long-running pools), and HTTP/2 negotiated via
// ALPN when the collaborator offers it.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        PoolSize,
		MaxIdleConnsPerHost: PoolSize,
		IdleConnTimeout:     10 * time.Second,
	}
	// Best-effort: collaborators speaking plain HTTP/1.1 are unaffected.
	_ = http2.ConfigureTransport(transport)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
