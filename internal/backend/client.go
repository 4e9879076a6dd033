// Package backend talks to the hosted signage backend: screen rows,
// playlists, liveness pings, and the change feed. Every call returns a
// typed signage error so callers decide retry/log/ignore explicitly.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// Options configures the backend client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
	Logger  *zap.Logger

	// Feed carries change notifications; nil disables WatchScreen.
	Feed      Feed
	TopicBase string
}

// Feed is the pub/sub transport for screen change events.
type Feed interface {
	Subscribe(topic string, qos byte, handler func(payload []byte)) error
	Unsubscribe(topic string) error
}

// Client implements ports.Backend against a REST API.
type Client struct {
	base      string
	apiKey    string
	http      *retryablehttp.Client
	log       *zap.Logger
	feed      Feed
	topicBase string
}

// NewClient creates a backend client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("backend base url required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 2
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TopicBase == "" {
		opts.TopicBase = signage.BaseTopic
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = opts.Retries
	httpClient.HTTPClient.Timeout = opts.Timeout
	httpClient.Logger = nil

	return &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		http:      httpClient,
		log:       opts.Logger,
		feed:      opts.Feed,
		topicBase: opts.TopicBase,
	}, nil
}

// ScreenByCode returns the screen registered for a pairing code.
func (c *Client) ScreenByCode(ctx context.Context, code string) (signage.Screen, error) {
	var screen signage.Screen
	path := "/screens/by-code/" + url.PathEscape(code)
	if err := c.getJSON(ctx, path, &screen); err != nil {
		return signage.Screen{}, err
	}
	return screen, nil
}

// PlaylistByID returns a playlist row.
func (c *Client) PlaylistByID(ctx context.Context, id string) (signage.Playlist, error) {
	var playlist signage.Playlist
	path := "/playlists/" + url.PathEscape(id)
	if err := c.getJSON(ctx, path, &playlist); err != nil {
		return signage.Playlist{}, err
	}
	return playlist, nil
}

// UpsertScreen registers or refreshes a screen row.
func (c *Client) UpsertScreen(ctx context.Context, screen signage.Screen) error {
	return c.postJSON(ctx, "/screens", screen, nil)
}

// PingScreen reports liveness for a pairing code.
func (c *Client) PingScreen(ctx context.Context, code string) error {
	body := map[string]string{"code": code}
	return c.postJSON(ctx, "/rpc/ping_screen", body, nil)
}

// WatchScreen subscribes to the change feed for a screen. Events may be
// duplicated or delayed; consumers must treat them as hints to re-poll.
func (c *Client) WatchScreen(ctx context.Context, screenID string) (<-chan signage.ScreenEvent, error) {
	if c.feed == nil {
		return nil, signage.NewError(signage.KindInvalid, "change feed not configured")
	}

	topic := signage.TopicScreenEvents(c.topicBase, screenID)
	events := make(chan signage.ScreenEvent, 8)
	handler := func(payload []byte) {
		var event signage.ScreenEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.log.Warn("invalid screen event", zap.Error(err))
			return
		}
		select {
		case events <- event:
		default:
			// Slow consumer; the next poll tick catches up anyway.
		}
	}
	if err := c.feed.Subscribe(topic, 1, handler); err != nil {
		return nil, signage.WrapError(signage.KindTransient, "subscribe change feed", err)
	}

	go func() {
		<-ctx.Done()
		_ = c.feed.Unsubscribe(topic)
		close(events)
	}()
	return events, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return signage.WrapError(signage.KindRuntime, "build request", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return signage.WrapError(signage.KindRuntime, "marshal body", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return signage.WrapError(signage.KindRuntime, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return signage.WrapError(signage.KindTransient, "backend unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return signage.NewError(signage.KindNotFound, "row not found")
	case resp.StatusCode >= 500:
		return signage.NewError(signage.KindTransient, fmt.Sprintf("backend error %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return signage.NewError(signage.KindRuntime, fmt.Sprintf("backend rejected request: %d", resp.StatusCode))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return signage.WrapError(signage.KindRuntime, "decode response", err)
	}
	return nil
}
