// Package output renders CLI results as human-readable text or JSON.
package output

import (
	"github.com/lumen-signage/lumen/internal/assets"
	"github.com/lumen-signage/lumen/pkg/signage"
)

// Printer renders output to stdout.
type Printer interface {
	Print(v any) error
}

// EntriesResult lists asset entries under a directory.
type EntriesResult struct {
	Dir     string         `json:"dir,omitempty"`
	Entries []assets.Entry `json:"entries"`
}

// TreeResult lists every media entry in the asset root.
type TreeResult struct {
	Entries []assets.Entry `json:"entries"`
}

// MkdirResult reports a folder creation.
type MkdirResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

// ImportResult reports copied files.
type ImportResult struct {
	Requested int      `json:"requested"`
	Copied    []string `json:"copied"`
}

// DeleteResult reports a deletion.
type DeleteResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
}

// IdentityResult carries the device identity.
type IdentityResult struct {
	Identity signage.Identity `json:"identity"`
}

// StatusResult carries the backend's view of this screen.
type StatusResult struct {
	Screen signage.Screen `json:"screen"`
}
