package preview

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownRef = errors.New("unknown preview ref")
	ErrClosed     = errors.New("preview registry closed")
)

// Preview is the uploaded content behind a ref.
type Preview struct {
	Filename  string
	MediaType string
	Content   []byte
}

// Registry owns uploaded content for display until the ref is released.
type Registry struct {
	mu     sync.Mutex
	refs   map[string]Preview
	bytes  int64
	closed bool
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{refs: make(map[string]Preview), logger: logger}
}

// Acquire stores the content and returns a new ref for it.
func (r *Registry) Acquire(p Preview) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	ref := "pv_" + uuid.NewString()
	r.refs[ref] = p
	r.bytes += int64(len(p.Content))
	return ref, nil
}

func (r *Registry) Open(ref string) (Preview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.refs[ref]
	if !ok {
		return Preview{}, ErrUnknownRef
	}
	return p, nil
}

// Release frees the content. Releasing an unknown ref is a no-op.
func (r *Registry) Release(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.refs[ref]; ok {
		r.bytes -= int64(len(p.Content))
		delete(r.refs, ref)
	}
}

// Len reports the number of live refs and the bytes they hold.
func (r *Registry) Len() (refs int, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs), r.bytes
}

// Close releases every ref; later Acquire calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.logger.Debug("releasing previews", "refs", len(r.refs), "bytes", r.bytes)
	r.refs = make(map[string]Preview)
	r.bytes = 0
	r.closed = true
}
