package jpayload

import (
	"context"
	"io"
)

// Provider exposes the payload of a single packet.
//
// Acquire, Shutdown, and ToOffline may block on I/O and accept a context.
// Release and Close never block, so they are safe in deferred cleanup
// even while the surrounding work is being canceled.
type Provider interface {
	// Acquire returns a reader positioned at the first payload byte.
	//
	// Unless the variant says otherwise, the caller must call Release
	// before calling Acquire again.
	// Acquire returns an [UnavailablePayloadError]
	// when the payload can no longer be read.
	Acquire(ctx context.Context) (io.Reader, error)

	// Release ends the access started by a successful Acquire.
	Release()

	// Shutdown drains any payload bytes still unread on a shared stream,
	// leaving that stream positioned at the end of this payload.
	// Later calls to Acquire fail.
	//
	// Shutdown is idempotent.
	// The scratch buffer is used for draining; it may be nil.
	Shutdown(ctx context.Context, scratch []byte) error

	// ToOffline returns a Provider whose payload
	// does not depend on any shared stream.
	// Self-contained variants return themselves.
	//
	// The scratch buffer is used for copying; it may be nil.
	ToOffline(ctx context.Context, scratch []byte) (Provider, error)

	// Close releases any resources held by the provider.
	// It does not drain shared streams; that is Shutdown's job.
	// Close may be called multiple times.
	Close() error
}

var (
	_ Provider = Empty{}
	_ Provider = (*InMemory)(nil)
	_ Provider = (*StreamBacked)(nil)
	_ Provider = (*Sliced)(nil)
)
