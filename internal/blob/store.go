// Package blob stores task attachments on local disk. Keys are relative
// paths under the store root; public URLs are served from the files route.
package blob

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is a disk-backed attachment store.
type Store struct {
	root    string
	baseURL string
}

// NewStore creates a blob store rooted at dir. baseURL is the public
// prefix under which the files are served, e.g. "/files".
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{
		root:    dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Root returns the directory files are stored under.
func (s *Store) Root() string {
	return s.root
}

// Save writes the content of r under a fresh key derived from taskID and
// fileName, and returns the key and the number of bytes written.
func (s *Store) Save(taskID, fileName string, r io.Reader) (string, int64, error) {
	key := path.Join(taskID, uuid.New().String()[:8]+"_"+sanitize(fileName))

	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(full)
		return "", 0, fmt.Errorf("failed to write attachment: %w", err)
	}
	return key, size, nil
}

// Remove deletes the blob stored under key. Missing blobs are not an error.
func (s *Store) Remove(key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}

// PublicURL returns the URL path under which key is served.
func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// sanitize strips path separators and other surprises from file names.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
