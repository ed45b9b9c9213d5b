package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPreviewNotFound is returned for unknown or revoked preview ids
	ErrPreviewNotFound = errors.New("preview not found")
	// ErrTooLarge is returned when an upload exceeds the registry limit
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// PreviewPathPrefix is where previews are served
const PreviewPathPrefix = "/v1/previews/"

// Preview is a temporary resource the client can display (uploaded image or video)
type Preview struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`

	path string
}

// Path is the on-disk location of the preview
func (p Preview) Path() string {
	return p.path
}

// Previews registry backs every preview with a temp file until revoked
type Previews struct {
	dir   string
	owned bool

	mu    sync.RWMutex
	items map[uuid.UUID]Preview
}

// NewPreviews stores previews under dir, or under a fresh temp directory when dir is empty
func NewPreviews(dir string) (*Previews, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "emotisense-previews-*")
		if err != nil {
			return nil, fmt.Errorf("create preview dir: %w", err)
		}
		dir, owned = tmp, true
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	return &Previews{
		dir:   dir,
		owned: owned,
		items: make(map[uuid.UUID]Preview),
	}, nil
}

// Create copies r into a new preview. maxSize <= 0 disables the limit.
func (p *Previews) Create(r io.Reader, contentType string, maxSize int64) (Preview, error) {
	id := uuid.New()
	path := filepath.Join(p.dir, id.String())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Preview{}, fmt.Errorf("create preview: %w", err)
	}

	src := r
	if maxSize > 0 {
		src = io.LimitReader(r, maxSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case err != nil:
		_ = os.Remove(path)
		return Preview{}, fmt.Errorf("write preview: %w", err)
	case closeErr != nil:
		_ = os.Remove(path)
		return Preview{}, fmt.Errorf("write preview: %w", closeErr)
	case maxSize > 0 && n > maxSize:
		_ = os.Remove(path)
		return Preview{}, ErrTooLarge
	}

	preview := Preview{
		ID:          id,
		URL:         PreviewPathPrefix + id.String(),
		ContentType: contentType,
		Size:        n,
		CreatedAt:   time.Now().UTC(),
		path:        path,
	}

	p.mu.Lock()
	p.items[id] = preview
	p.mu.Unlock()

	return preview, nil
}

func (p *Previews) Get(id uuid.UUID) (Preview, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	preview, ok := p.items[id]
	return preview, ok
}

// Open returns a reader over the preview bytes
func (p *Previews) Open(id uuid.UUID) (*os.File, Preview, error) {
	preview, ok := p.Get(id)
	if !ok {
		return nil, Preview{}, ErrPreviewNotFound
	}

	f, err := os.Open(preview.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Preview{}, ErrPreviewNotFound
		}
		return nil, Preview{}, fmt.Errorf("open preview: %w", err)
	}
	return f, preview, nil
}

// Revoke deletes the preview. Revoking an unknown id is a no-op.
func (p *Previews) Revoke(id uuid.UUID) bool {
	p.mu.Lock()
	preview, ok := p.items[id]
	delete(p.items, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	_ = os.Remove(preview.path)
	return true
}

func (p *Previews) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Close revokes every preview and removes the directory when the registry created it
func (p *Previews) Close() error {
	p.mu.Lock()
	items := p.items
	p.items = make(map[uuid.UUID]Preview)
	p.mu.Unlock()

	for _, preview := range items {
		_ = os.Remove(preview.path)
	}

	if p.owned {
		return os.RemoveAll(p.dir)
	}
	return nil
}
