// Package blob stores product images and hands back a public URL plus a key for later deletion.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for files whose extension or content is not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned when the content exceeds the configured maximum size.
	ErrTooLarge = errors.New("image exceeds maximum size")
	// ErrInvalidKey is returned for storage keys that cannot belong to this store.
	ErrInvalidKey = errors.New("invalid storage key")
)

// sniffLen is how much of the content is inspected to detect its type.
const sniffLen = 3072

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

var allowedContentTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Object describes a stored blob.
type Object struct {
	// URL is where clients can retrieve the blob.
	URL string
	// Key identifies the blob for Delete.
	Key string
}

// Store persists image content.
type Store interface {
	// Store validates and persists the content read from r.
	Store(ctx context.Context, r io.Reader, filename string) (Object, error)
	// Delete removes the blob identified by key. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// IsValidationError reports whether err was caused by the uploaded content itself.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrTooLarge)
}

// Validator enforces the allowed image types and the size limit.
type Validator struct {
	MaxBytes int64
}

// content is a validated upload ready to be streamed to a backend.
type content struct {
	body        *limitedReader
	ext         string
	contentType string
}

// open checks the file extension and the sniffed content type, then returns a reader that
// fails with ErrTooLarge as soon as more than MaxBytes are read.
func (v Validator) open(ctx context.Context, r io.Reader, filename string) (*content, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedType, ext)
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	header = header[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	detected := mimetype.Detect(header)
	if !mimetype.EqualsAny(detected.String(), allowedContentTypes...) {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedType, detected.String())
	}

	body := io.MultiReader(bytes.NewReader(header), r)
	return &content{
		body:        &limitedReader{r: &contextReader{ctx: ctx, r: body}, remaining: v.MaxBytes},
		ext:         ext,
		contentType: detected.String(),
	}, nil
}

// limitedReader behaves like io.LimitReader but reports overflow instead of a silent EOF.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.remaining {
		n = int(l.remaining)
		l.remaining = 0
		l.exceeded = true
		return n, ErrTooLarge
	}
	l.remaining -= int64(n)
	return n, err
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// generateName returns a collision resistant file name keeping ext.
func generateName(ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}
