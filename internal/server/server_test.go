package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-daybook/internal/config"
)

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

// TestHandleFeed_ServingContent verifies that the feed handler writes the
// standard HTTP headers and body content when data is available.
func TestHandleFeed_ServingContent(t *testing.T) {
	srv := NewFeedServer("0") // Port irrelevant for handler test
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")

	srv.UpdateFeed(expectedICS)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.handleFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")

	// ETag should be generated automatically
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestHandleDays_ServingJSON verifies the day-cards endpoint serves JSON with
// its own MIME type and independent cache state.
func TestHandleDays_ServingJSON(t *testing.T) {
	srv := NewFeedServer("0")
	payload := []byte(`[{"day":1,"items":[]}]`)

	srv.UpdateDays(payload)

	req := httptest.NewRequest(http.MethodGet, config.RouteDays, nil)
	w := httptest.NewRecorder()
	srv.handleDays(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, payload, body)

	// The feed route must still be uninitialized: the caches are independent.
	reqFeed := httptest.NewRequest(http.MethodGet, "/", nil)
	wFeed := httptest.NewRecorder()
	srv.handleFeed(wFeed, reqFeed)
	assert.Equal(t, http.StatusServiceUnavailable, wFeed.Code)
}

// TestHandleFeed_UnknownPath ensures the catch-all root route rejects
// arbitrary paths instead of serving calendar data.
func TestHandleFeed_UnknownPath(t *testing.T) {
	srv := NewFeedServer("0")
	srv.UpdateFeed([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR"))

	req := httptest.NewRequest(http.MethodGet, "/favicon.ico", nil)
	w := httptest.NewRecorder()
	srv.handleFeed(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleFeed_Caching verifies that the server respects ETag headers
// (If-None-Match) and returns 304 Not Modified to save bandwidth.
func TestHandleFeed_Caching(t *testing.T) {
	srv := NewFeedServer("0")
	data := []byte("DATA_VERSION_1")
	srv.UpdateFeed(data)

	// Step 1: Initial Request to get the ETag
	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	srv.handleFeed(w1, req1)

	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	// Step 2: Second Request providing the known ETag
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()

	srv.handleFeed(w2, req2)
	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")
}

// TestHandleFeed_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandleFeed_MethodNotAllowed(t *testing.T) {
	srv := NewFeedServer("0")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()

	srv.handleFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderAllow))
}

// TestHandleFeed_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandleFeed_Initializing(t *testing.T) {
	srv := NewFeedServer("0")
	// Note: We intentionally do NOT call srv.UpdateFeed() here.

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	srv.handleFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// It runs high-frequency writers and readers concurrently to trigger race conditions.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := NewFeedServer("0")
	var wg sync.WaitGroup

	duration := 500 * time.Millisecond
	end := time.Now().Add(duration)

	// Writer Routines: Stress atomic.Pointer.Store on both caches
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				data := fmt.Sprintf("VERSION:%d-%d", id, i)
				srv.UpdateFeed([]byte(data))
				srv.UpdateDays([]byte(data))
				i++
				// Tiny sleep to yield processor and allow interleaving
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	// Reader Routines: Stress atomic.Pointer.Load through the handlers
	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				w := httptest.NewRecorder()

				srv.handleFeed(w, req)

				code := w.Code
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network
// binding, both routes, and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := NewFeedServer(port)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://127.0.0.1:" + port + "/"

	// Wait for server to be responsive (TCP bind takes a few milliseconds)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Check Initial State (503)
	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Update Data
	srv.UpdateFeed([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR"))
	srv.UpdateDays([]byte(`[]`))

	// 3. Check Served Feed (200)
	resp, err = http.Get(url)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")
	_ = resp.Body.Close()

	// 4. Check Served Days JSON (200)
	resp, err = http.Get(url + "days")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))
	_ = resp.Body.Close()

	// 5. Test Shutdown
	cancel()

	select {
	case err := <-errChan:
		// Start() returns nil on graceful shutdown
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}
