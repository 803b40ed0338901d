package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-daybook/internal/config"
)

// cacheItem stores one rendered payload and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	mime         string
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// FeedServer publishes the generated special-days feed over a localhost HTTP
// server: the iCalendar feed at the root route and the focus month's day
// cards as JSON at the days route.
type FeedServer struct {
	// Payloads use atomic.Pointer for lock-free reads. Clients poll the feed
	// frequently while updates only happen on refresh, so avoiding a RWMutex
	// removes contention on the hot path.
	feed atomic.Pointer[cacheItem]
	days atomic.Pointer[cacheItem]
	Port string
}

// NewFeedServer creates a new instance of the server.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{Port: port}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteFeed, s.handleFeed)
	mux.HandleFunc(config.RouteDays, s.handleDays)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// UpdateFeed atomically replaces the served iCalendar payload.
func (s *FeedServer) UpdateFeed(data []byte) {
	item := newCacheItem(data, config.MimeTextCalendar)
	s.feed.Store(item)

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, item.etag,
	)
}

// UpdateDays atomically replaces the served day-cards JSON payload.
func (s *FeedServer) UpdateDays(data []byte) {
	item := newCacheItem(data, config.MimeJSON)
	s.days.Store(item)

	slog.Debug(config.MsgDaysUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, item.etag,
	)
}

func newCacheItem(data []byte, mime string) *cacheItem {
	hash := sha256.Sum256(data)
	return &cacheItem{
		data:         data,
		mime:         mime,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}
}

// handleFeed serves the ICS content. The root route also catches unknown
// paths, which are rejected rather than fed calendar data.
func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != config.RouteFeed {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
	s.serveCached(w, r, s.feed.Load())
}

// handleDays serves the day-cards JSON snapshot.
func (s *FeedServer) handleDays(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.days.Load())
}

// serveCached writes one cached payload with conditional-request support.
func (s *FeedServer) serveCached(w http.ResponseWriter, r *http.Request, item *cacheItem) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Readiness Check
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	// 3. Set Response Headers
	w.Header().Set(config.HeaderContentType, item.mime)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 4. Check Conditional Headers (Client Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// If server content is not newer than client cache, return 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 5. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
