package player

import (
	"net/url"
	"path"
	"strings"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// assetsAnchor is the folder name that marks where the managed media tree
// begins inside a legacy absolute path.
const assetsAnchor = "Assets"

// Resolver turns a playlist item into a single fetchable URL. Precedence,
// highest first: explicit url, relativePath against the local media
// server, legacy path split at the Assets anchor, absolute-path basename,
// bare name. The legacy fallbacks only apply in a local context because
// they assume the media server and the player share a filesystem.
type Resolver struct {
	BaseURL string
	Local   bool
}

// Resolve returns the URL for an item, or a KindInvalid error when no
// field yields one.
func (r Resolver) Resolve(item signage.PlaylistItem) (string, error) {
	if u := strings.TrimSpace(item.URL); u != "" {
		return u, nil
	}
	if rel := strings.TrimSpace(item.RelativePath); rel != "" {
		return joinURL(r.BaseURL, rel), nil
	}
	if !r.Local {
		return "", signage.NewError(signage.KindInvalid, "item has no resolvable url")
	}

	if p := strings.TrimSpace(item.Path); p != "" {
		if rel, ok := splitAtAnchor(p); ok {
			return joinURL(r.BaseURL, rel), nil
		}
		if strings.HasPrefix(p, "/") || looksWindowsAbsolute(p) {
			return joinURL(r.BaseURL, baseName(p)), nil
		}
	}
	if name := strings.TrimSpace(item.Name); name != "" {
		return joinURL(r.BaseURL, name), nil
	}
	return "", signage.NewError(signage.KindInvalid, "item has no resolvable url")
}

// LocalContext reports whether hostname identifies the machine the media
// server runs on.
func LocalContext(hostname string) bool {
	switch strings.ToLower(strings.TrimSpace(hostname)) {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// splitAtAnchor returns the path portion after the Assets folder.
func splitAtAnchor(p string) (string, bool) {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for i, part := range parts {
		if part == assetsAnchor && i+1 < len(parts) {
			return strings.Join(parts[i+1:], "/"), true
		}
	}
	return "", false
}

func looksWindowsAbsolute(p string) bool {
	return len(p) > 2 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Base(p)
}

func joinURL(base string, rel string) string {
	rel = strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "/")
	escaped := (&url.URL{Path: "/" + rel}).EscapedPath()
	return strings.TrimSuffix(base, "/") + escaped
}
