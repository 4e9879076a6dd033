// Package mediaserver serves the confined asset root over HTTP with byte
// ranges, so player surfaces on the LAN can stream local media.
package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/assets"
	"github.com/lumen-signage/lumen/pkg/signage"
)

// DefaultListen is the fixed port the dashboard and players expect.
const DefaultListen = "127.0.0.1:11222"

// Config configures the media server module.
type Config struct {
	Listen string
}

// Module is a long-running HTTP listener over an asset store.
type Module struct {
	log     *zap.Logger
	store   *assets.Store
	config  Config
	counter atomic.Uint64

	mu      sync.Mutex
	server  *http.Server
	ln      net.Listener
	baseURL string
}

// NewModule creates a media server module.
func NewModule(log *zap.Logger, store *assets.Store, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		return nil, errors.New("asset store required")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	return &Module{log: log, store: store, config: cfg}, nil
}

// Run starts the listener and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.config.Listen)
	if err != nil {
		return err
	}
	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	server := &http.Server{Handler: m}

	m.mu.Lock()
	m.server = server
	m.ln = ln
	m.baseURL = fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
	m.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	m.log.Info("media server started",
		zap.String("base_url", m.BaseURL()),
		zap.String("root", m.store.Root()),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// BaseURL returns the reachable base URL once the listener is up.
func (m *Module) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURL
}

// Requests returns the monotonic request counter used by dashboard
// telemetry. It resets only on process restart.
func (m *Module) Requests() uint64 {
	return m.counter.Load()
}

// ServeHTTP handles one asset request.
func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.counter.Add(1)

	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("request panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// r.URL.Path is already percent-decoded and carries no query string.
	rel := strings.TrimPrefix(r.URL.Path, "/")
	abs, err := assets.Confine(m.store.Root(), rel)
	if err != nil {
		if signage.KindOf(err) == signage.KindOutOfBounds {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentTypeFor(abs))

	size := info.Size()
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		m.serveRange(w, r, f, size, rangeHeader)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		m.log.Debug("stream aborted", zap.String("path", rel), zap.Error(err))
	}
}

func (m *Module) serveRange(w http.ResponseWriter, r *http.Request, f *os.File, size int64, header string) {
	start, end, ok := parseRange(header, size)
	if !ok {
		// Malformed range headers fall back to a full response.
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}
	if start >= size {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end >= size {
		end = size - 1
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.CopyN(w, f, length); err != nil {
		m.log.Debug("range stream aborted", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// parseRange handles the single-range form "bytes=start-end" where end may
// be omitted; multi-range requests are not part of the contract.
func parseRange(header string, size int64) (int64, int64, bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	end := size - 1
	if strings.TrimSpace(endStr) != "" {
		end, err = strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
	}
	return start, end, true
}

// contentTypeFor maps the closed extension table; anything else is served
// as an opaque byte stream.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
