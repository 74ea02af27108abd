package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore keeps images in a directory served by the HTTP server under a public path.
type LocalStore struct {
	dir        string
	publicPath string
	validator  Validator
}

// NewLocalStore creates the upload directory if needed and returns a store writing into it.
func NewLocalStore(dir, publicPath string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:        dir,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		validator:  Validator{MaxBytes: maxBytes},
	}, nil
}

// Dir returns the directory images are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPath returns the URL prefix the directory is served under.
func (s *LocalStore) PublicPath() string {
	return s.publicPath
}

// KeyFromURL recovers the file name from a URL previously returned by Store.
func (s *LocalStore) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := strings.CutPrefix(u.Path, s.publicPath+"/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidKey, rawURL, s.publicPath)
	}
	return key, nil
}

// Store writes the image to a temporary file and renames it into place once fully received.
func (s *LocalStore) Store(ctx context.Context, r io.Reader, filename string) (Object, error) {
	c, err := s.validator.open(ctx, r, filename)
	if err != nil {
		return Object{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove temp upload", slog.String("file", tmp.Name()), slog.Any("err", err))
		}
	}

	if _, err := io.Copy(tmp, c.body); err != nil {
		cleanup()
		if c.body.exceeded {
			return Object{}, ErrTooLarge
		}
		return Object{}, fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return Object{}, fmt.Errorf("failed to set image permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Object{}, fmt.Errorf("failed to close image file: %w", err)
	}

	name := generateName(c.ext)
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return Object{}, fmt.Errorf("failed to move image into place: %w", err)
	}

	return Object{URL: path.Join(s.publicPath, name), Key: name}, nil
}

// Delete removes the file named by key. A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
