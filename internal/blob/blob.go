// Package blob holds revocable in-memory references to binary data.
//
// A Handle is the Go counterpart of an object URL: it names a byte slice
// until it is revoked, after which every read fails with ErrRevoked.
package blob

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrRevoked = errors.New("blob: handle revoked")

type Handle struct {
	url      string
	mimeType string

	mu      sync.RWMutex
	data    []byte
	revoked bool
}

// New takes ownership of data. Callers must not modify it afterwards.
func New(data []byte, mimeType string) *Handle {
	return &Handle{
		url:      "blob:qrgen/" + uuid.NewString(),
		mimeType: mimeType,
		data:     data,
	}
}

// URL identifies the handle. It stays stable after revocation.
func (h *Handle) URL() string {
	return h.url
}

func (h *Handle) MIMEType() string {
	return h.mimeType
}

// Bytes returns a copy of the referenced data.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.revoked {
		return nil, ErrRevoked
	}
	out := make([]byte, len(h.data))
	copy(out, h.data)
	return out, nil
}

func (h *Handle) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.data)
}

// Revoke releases the data. It reports whether this call did the revoking.
func (h *Handle) Revoke() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return false
	}
	h.revoked = true
	h.data = nil
	return true
}

func (h *Handle) Revoked() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revoked
}
