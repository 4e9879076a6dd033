package player

import (
	"testing"

	"github.com/lumen-signage/lumen/pkg/signage"
)

func TestResolvePrecedence(t *testing.T) {
	resolver := Resolver{BaseURL: "http://127.0.0.1:11222", Local: true}

	cases := []struct {
		name string
		item signage.PlaylistItem
		want string
	}{
		{
			name: "explicit url wins",
			item: signage.PlaylistItem{
				URL:          "https://cdn.example/video.mp4",
				RelativePath: "promo/video.mp4",
			},
			want: "https://cdn.example/video.mp4",
		},
		{
			name: "relative path against local server",
			item: signage.PlaylistItem{RelativePath: "promo/video.mp4"},
			want: "http://127.0.0.1:11222/promo/video.mp4",
		},
		{
			name: "legacy path split at anchor",
			item: signage.PlaylistItem{Path: "/home/kiosk/.local/share/lumen/Assets/promo/video.mp4"},
			want: "http://127.0.0.1:11222/promo/video.mp4",
		},
		{
			name: "windows legacy path split at anchor",
			item: signage.PlaylistItem{Path: `C:\Signage\Assets\promo\video.mp4`},
			want: "http://127.0.0.1:11222/promo/video.mp4",
		},
		{
			name: "absolute path without anchor falls to basename",
			item: signage.PlaylistItem{Path: "/mnt/usb/video.mp4"},
			want: "http://127.0.0.1:11222/video.mp4",
		},
		{
			name: "bare name",
			item: signage.PlaylistItem{Name: "video.mp4"},
			want: "http://127.0.0.1:11222/video.mp4",
		},
		{
			name: "spaces escaped",
			item: signage.PlaylistItem{RelativePath: "spring sale/banner 1.jpg"},
			want: "http://127.0.0.1:11222/spring%20sale/banner%201.jpg",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(tc.item)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveLegacyFallbacksNeedLocalContext(t *testing.T) {
	resolver := Resolver{BaseURL: "http://127.0.0.1:11222", Local: false}

	if _, err := resolver.Resolve(signage.PlaylistItem{Name: "video.mp4"}); err == nil {
		t.Fatalf("expected error for name fallback off-host")
	}
	if _, err := resolver.Resolve(signage.PlaylistItem{Path: "/mnt/usb/video.mp4"}); err == nil {
		t.Fatalf("expected error for path fallback off-host")
	}

	// The explicit fields still work anywhere.
	got, err := resolver.Resolve(signage.PlaylistItem{RelativePath: "promo/video.mp4"})
	if err != nil || got != "http://127.0.0.1:11222/promo/video.mp4" {
		t.Fatalf("relative path should resolve off-host, got %q err %v", got, err)
	}
}

func TestResolveNothingResolvable(t *testing.T) {
	resolver := Resolver{BaseURL: "http://127.0.0.1:11222", Local: true}

	_, err := resolver.Resolve(signage.PlaylistItem{Type: signage.ItemImage})
	if err == nil {
		t.Fatalf("expected error")
	}
	if signage.KindOf(err) != signage.KindInvalid {
		t.Fatalf("expected invalid kind, got %v", signage.KindOf(err))
	}
}

func TestLocalContext(t *testing.T) {
	for _, host := range []string{"", "localhost", "127.0.0.1", "::1", "LOCALHOST"} {
		if !LocalContext(host) {
			t.Fatalf("expected %q local", host)
		}
	}
	for _, host := range []string{"kiosk-3", "signage.example.com"} {
		if LocalContext(host) {
			t.Fatalf("expected %q remote", host)
		}
	}
}
