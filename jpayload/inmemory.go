package jpayload

import (
	"bytes"
	"context"
	"io"
)

// InMemory is a Provider over an owned, immutable byte slice.
//
// Each call to Acquire returns an independent reader,
// so InMemory is safe for concurrent use without any locking,
// and Acquire may be called again without an intervening Release.
//
// An InMemory provider holds no external resources.
// Close and Shutdown do not invalidate it,
// which lets an ephemeral packet and its offline copy share one instance.
type InMemory struct {
	buf []byte
}

// NewInMemory returns an InMemory provider over b.
// The provider takes ownership of b; the caller must not modify it.
func NewInMemory(b []byte) *InMemory {
	return &InMemory{buf: b}
}

// Len is the payload length.
func (p *InMemory) Len() int { return len(p.buf) }

func (p *InMemory) Acquire(context.Context) (io.Reader, error) {
	return bytes.NewReader(p.buf), nil
}

func (p *InMemory) Release() {}

func (p *InMemory) Shutdown(context.Context, []byte) error { return nil }

func (p *InMemory) ToOffline(context.Context, []byte) (Provider, error) {
	return p, nil
}

func (p *InMemory) Close() error { return nil }
