package proxy

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Pool hands out outbound proxy endpoints in round-robin order. The cursor
// is a monotonically increasing counter; the index is taken modulo the pool
// size at read time, so the counter itself never wraps.
type Pool struct {
	mu        sync.RWMutex
	endpoints []string

	cursor atomic.Uint64
}

// NewPool creates a pool over the given endpoints. A nil or empty slice is
// valid and yields a pool that never hands out a proxy.
func NewPool(endpoints []string) *Pool {
	return &Pool{endpoints: endpoints}
}

// Next returns the next endpoint in round-robin order. The second return
// value is false when no proxies are configured; callers must then proceed
// without a proxy. Next never fails.
func (p *Pool) Next() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.endpoints) == 0 {
		return "", false
	}
	idx := p.cursor.Add(1) - 1
	return p.endpoints[idx%uint64(len(p.endpoints))], true
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

// Reload replaces the endpoint list at runtime. The cursor is not reset;
// rotation simply continues over the new list.
func (p *Pool) Reload(endpoints []string) {
	p.mu.Lock()
	p.endpoints = endpoints
	p.mu.Unlock()
}

// HTTPClient builds an HTTP client that routes requests through the given
// proxy endpoint. An empty or unparseable endpoint yields a direct client,
// so a selection of "none" degrades to a plain request. The proxy applies
// only to clients built here; process-wide proxy state is never touched.
func HTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if strings.TrimSpace(proxyURL) == "" {
		return client
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return client
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return client
	}
	transport := baseTransport.Clone()
	transport.Proxy = http.ProxyURL(parsed)
	client.Transport = transport
	return client
}
