package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lumen-signage/lumen/pkg/signage"
)

func newTestBackend(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL, Retries: -1})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestScreenByCode(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/screens/by-code/ABC234" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(signage.Screen{
			ID:                "dev-1",
			Status:            signage.ScreenOnline,
			PairingCode:       "ABC234",
			CurrentPlaylistID: "pl-1",
		})
	}))

	screen, err := client.ScreenByCode(context.Background(), "ABC234")
	if err != nil {
		t.Fatalf("screen by code: %v", err)
	}
	if screen.CurrentPlaylistID != "pl-1" || !screen.Active() {
		t.Fatalf("unexpected screen %+v", screen)
	}
}

func TestScreenByCodeNotFound(t *testing.T) {
	client := newTestBackend(t, http.NotFoundHandler())

	_, err := client.ScreenByCode(context.Background(), "NOPE42")
	if signage.KindOf(err) != signage.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.PlaylistByID(context.Background(), "pl-1")
	if !signage.IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestUnreachableIsTransient(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Retries: -1})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.PingScreen(context.Background(), "ABC234"); !signage.IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestPingScreenPostsCode(t *testing.T) {
	var pings atomic.Int64
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc/ping_screen" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["code"] != "ABC234" {
			t.Fatalf("unexpected body %+v", body)
		}
		pings.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.PingScreen(context.Background(), "ABC234"); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if pings.Load() != 1 {
		t.Fatalf("expected one ping")
	}
}

type fakeFeed struct {
	handlers map[string]func([]byte)
	unsubbed []string
}

func (f *fakeFeed) Subscribe(topic string, _ byte, handler func(payload []byte)) error {
	if f.handlers == nil {
		f.handlers = map[string]func([]byte){}
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeFeed) Unsubscribe(topic string) error {
	f.unsubbed = append(f.unsubbed, topic)
	return nil
}

func TestWatchScreenDeliversEvents(t *testing.T) {
	feed := &fakeFeed{}
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Feed: feed})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := client.WatchScreen(ctx, "dev-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	topic := signage.TopicScreenEvents(signage.BaseTopic, "dev-1")
	payload, _ := json.Marshal(signage.ScreenEvent{ScreenID: "dev-1", Type: "UPDATE"})
	feed.handlers[topic](payload)

	event := <-events
	if event.Type != "UPDATE" {
		t.Fatalf("unexpected event %+v", event)
	}

	cancel()
	if _, open := <-events; open {
		t.Fatalf("expected channel closed after cancel")
	}
	if len(feed.unsubbed) != 1 {
		t.Fatalf("expected unsubscribe on cancel")
	}
}

func TestWatchScreenWithoutFeed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.WatchScreen(context.Background(), "dev-1"); err == nil {
		t.Fatalf("expected error without feed")
	}
}
