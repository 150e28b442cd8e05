package proxy

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Next_RoundRobin(t *testing.T) {
	pool := NewPool([]string{"A", "B", "C"})

	got := make([]string, 0, 5)
	for range 5 {
		endpoint, ok := pool.Next()
		require.True(t, ok)
		got = append(got, endpoint)
	}
	require.Equal(t, []string{"A", "B", "C", "A", "B"}, got)
}

func TestPool_Next_EmptyPool(t *testing.T) {
	pool := NewPool(nil)

	for range 3 {
		endpoint, ok := pool.Next()
		require.False(t, ok)
		require.Empty(t, endpoint)
	}
}

func TestPool_Next_ConcurrentDistribution(t *testing.T) {
	pool := NewPool([]string{"A", "B", "C"})

	const calls = 300
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			endpoint, ok := pool.Next()
			require.True(t, ok)
			mu.Lock()
			counts[endpoint]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Atomic cursor keeps the distribution exact even under concurrency.
	require.Equal(t, calls/3, counts["A"])
	require.Equal(t, calls/3, counts["B"])
	require.Equal(t, calls/3, counts["C"])
}

func TestPool_Reload(t *testing.T) {
	pool := NewPool([]string{"A"})
	endpoint, ok := pool.Next()
	require.True(t, ok)
	require.Equal(t, "A", endpoint)

	pool.Reload(nil)
	_, ok = pool.Next()
	require.False(t, ok)
	require.Equal(t, 0, pool.Size())

	pool.Reload([]string{"B", "C"})
	require.Equal(t, 2, pool.Size())
	_, ok = pool.Next()
	require.True(t, ok)
}

func TestHTTPClient_WithProxy(t *testing.T) {
	client := HTTPClient("http://127.0.0.1:3128", 10*time.Second)
	require.NotNil(t, client.Transport)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:3128", proxyURL.String())
}

func TestHTTPClient_NoProxyFallsBackToDirect(t *testing.T) {
	for _, raw := range []string{"", "   ", "::not-a-url::", "missing-scheme"} {
		client := HTTPClient(raw, 10*time.Second)
		assert.Nil(t, client.Transport, "endpoint %q", raw)
		assert.Equal(t, 10*time.Second, client.Timeout)
	}
}
