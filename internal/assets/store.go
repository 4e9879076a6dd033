package assets

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// Entry kinds.
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// Media types.
const (
	MediaImage  = "image"
	MediaVideo  = "video"
	MediaFolder = "folder"
)

// Entry describes one asset as seen by a listing. Entries are rebuilt from
// the filesystem on every call; identity is the root-relative path.
type Entry struct {
	Name         string `json:"name"`
	AbsolutePath string `json:"absolutePath"`
	RelativePath string `json:"relativePath"`
	Kind         string `json:"kind"`
	SizeBytes    int64  `json:"sizeBytes"`
	MediaType    string `json:"mediaType"`
}

// Store manages media files under a single confined root directory.
type Store struct {
	log  *zap.Logger
	root string
}

// NewStore creates a store rooted at dir, creating it if absent. The root
// is canonicalized once so later containment checks compare resolved paths.
func NewStore(log *zap.Logger, dir string) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("asset root required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Store{log: log, root: root}, nil
}

// Root returns the canonical asset root.
func (s *Store) Root() string { return s.root }

// List returns entries for a relative directory under the root.
func (s *Store) List(subDir string) ([]Entry, error) {
	dir, err := Confine(s.root, subDir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, signage.WrapError(signage.KindNotFound, "directory not found", err)
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			s.log.Debug("stat failed", zap.String("name", d.Name()), zap.Error(err))
			continue
		}
		abs := filepath.Join(dir, d.Name())
		rel, err := filepath.Rel(s.root, abs)
		if err != nil {
			continue
		}
		entries = append(entries, buildEntry(d.Name(), abs, rel, info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ListRecursive walks the whole root depth-first and returns only media
// files, each tagged with both absolute and root-relative path. Large
// trees have no timeout; the walk runs to completion.
func (s *Store) ListRecursive() ([]Entry, error) {
	entries := []Entry{}
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.log.Debug("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if mediaTypeForExt(filepath.Ext(d.Name())) == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		entries = append(entries, buildEntry(d.Name(), path, rel, info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateFolder creates a named folder under subDir. It returns false
// without error when the target already exists.
func (s *Store) CreateFolder(subDir string, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, signage.NewError(signage.KindInvalid, "folder name required")
	}
	target, err := Confine(s.root, filepath.Join(subDir, name))
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// Import copies each source file into subDir, best-effort: a failed copy
// is logged and skipped, and the remaining files still land. It returns
// the destination paths of the successful copies.
func (s *Store) Import(paths []string, subDir string) ([]string, error) {
	dir, err := Confine(s.root, subDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	copied := make([]string, 0, len(paths))
	for _, src := range paths {
		if strings.TrimSpace(src) == "" {
			continue
		}
		dest := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			s.log.Warn("import copy failed", zap.String("src", src), zap.Error(err))
			continue
		}
		copied = append(copied, dest)
	}
	return copied, nil
}

// Delete removes a file, or a directory and its contents, after
// re-validating containment. A missing path returns false, not an error.
func (s *Store) Delete(relPath string) (bool, error) {
	if strings.TrimSpace(relPath) == "" {
		return false, signage.NewError(signage.KindInvalid, "path required")
	}
	target, err := Confine(s.root, relPath)
	if err != nil {
		return false, err
	}
	if target == s.root {
		return false, signage.NewError(signage.KindInvalid, "cannot delete asset root")
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		if err := os.RemoveAll(target); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := os.Remove(target); err != nil {
		return false, err
	}
	return true, nil
}

// ReadBuffer returns the raw bytes of a file under the root.
func (s *Store) ReadBuffer(relPath string) ([]byte, error) {
	target, err := Confine(s.root, relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, signage.WrapError(signage.KindNotFound, "file not found", err)
		}
		return nil, err
	}
	return data, nil
}

func buildEntry(name string, abs string, rel string, info fs.FileInfo) Entry {
	entry := Entry{
		Name:         name,
		AbsolutePath: abs,
		RelativePath: filepath.ToSlash(rel),
		SizeBytes:    info.Size(),
	}
	if info.IsDir() {
		entry.Kind = KindFolder
		entry.MediaType = MediaFolder
		return entry
	}
	entry.Kind = KindFile
	entry.MediaType = mediaTypeForFile(abs, name)
	return entry
}

// mediaTypeForFile classifies by extension first and falls back to a
// content sniff for unknown extensions.
func mediaTypeForFile(abs string, name string) string {
	if mt := mediaTypeForExt(filepath.Ext(name)); mt != "" {
		return mt
	}
	head := make([]byte, 261)
	f, err := os.Open(abs)
	if err != nil {
		return ""
	}
	defer f.Close()
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	switch {
	case filetype.IsImage(head):
		return MediaImage
	case filetype.IsVideo(head):
		return MediaVideo
	}
	return ""
}

func mediaTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return MediaImage
	case ".mp4", ".webm", ".mov":
		return MediaVideo
	}
	return ""
}

func copyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}
