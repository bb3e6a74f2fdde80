package requester

import (
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// SessionConfig holds transport options for the shared session. The zero
// value is the default: no timeout beyond the transport's own, cookie jar
// removed, stock TLS and transport.
type SessionConfig struct {
	Timeout       time.Duration
	EnableCookies bool
	TLS           *tls.Config
	// Transport overrides the underlying round tripper; used by tests and
	// callers that need instrumented transports.
	Transport http.RoundTripper
}

var (
	sessionMu     sync.RWMutex
	sharedSession *resty.Client
)

// Configure rebuilds the shared session from cfg. Requests already in
// flight keep the session instance they captured at issue time; only
// subsequent calls observe the new configuration.
func Configure(cfg SessionConfig) {
	client := newSessionClient(cfg)

	sessionMu.Lock()
	sharedSession = client
	sessionMu.Unlock()
}

// SessionClient exposes the shared resty client for callers needing custom
// verbs or raw responses outside the Execute flow.
func SessionClient() *resty.Client {
	return session()
}

// session returns the shared client, lazily building the default one.
func session() *resty.Client {
	sessionMu.RLock()
	client := sharedSession
	sessionMu.RUnlock()
	if client != nil {
		return client
	}

	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sharedSession == nil {
		sharedSession = newSessionClient(SessionConfig{})
	}
	return sharedSession
}

func newSessionClient(cfg SessionConfig) *resty.Client {
	c := resty.New()
	if !cfg.EnableCookies {
		// resty installs a cookie jar by default; the session is stateless.
		c.SetCookieJar(nil)
	}
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if cfg.TLS != nil {
		c.SetTLSClientConfig(cfg.TLS)
	}
	if cfg.Transport != nil {
		c.SetTransport(cfg.Transport)
	}
	return c
}
