package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_FindsLLMsTxt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Site\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New()
	strategy, err := c.Discover(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, StrategyLLMsTxt, strategy)
}

func TestDiscover_FallsBackToRecursive(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New()
	strategy, err := c.Discover(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, StrategyRecursive, strategy)
}

func TestCrawl_SameOriginRespectsMaxDepth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Root page.</p><a href="/child">child</a></body></html>`))
	})
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Child page.</p><a href="/grandchild">gc</a></body></html>`))
	})
	mux.HandleFunc("/grandchild", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Grandchild page.</p></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New()
	c.throttle = newHostThrottle(perHostConcurrency, time.Millisecond)

	results := c.Crawl(context.Background(), server.URL+"/", SpiderConfig{MaxDepth: 1})

	var pages []CrawledPage
	for r := range results {
		require.NoError(t, r.Err)
		pages = append(pages, r.Page)
	}

	require.Len(t, pages, 2, "root and one child level, grandchild beyond max depth excluded")
}

func TestCrawl_RejectsDisallowedMediaType(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("binary junk"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New()
	c.throttle = newHostThrottle(perHostConcurrency, time.Millisecond)

	results := c.Crawl(context.Background(), server.URL+"/", SpiderConfig{MaxDepth: 0})

	var errs int
	for r := range results {
		if r.Err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestHostThrottle_LimitsConcurrency(t *testing.T) {
	th := newHostThrottle(1, 0)
	ctx := context.Background()

	th.acquire(ctx, "example.com")

	acquired := make(chan struct{})
	go func() {
		th.acquire(ctx, "example.com")
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should have blocked while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	th.release("example.com")
	<-acquired
}
