package jpayload

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/gordian-engine/jdwp/jsource"
)

// StreamBacked is a Provider whose payload resides in a [jsource.Rewindable].
//
// Every Acquire rewinds the source, so successive acquisitions
// (each after a Release) replay the same bytes.
// There is a single shared cursor, so StreamBacked is not safe
// for concurrent readers; offline packets serialize access to it.
//
// A StreamBacked provider either borrows its source,
// in which case the source is shared with whoever reads past this payload,
// or owns it, in which case Close releases it.
type StreamBacked struct {
	src  jsource.Rewindable
	size int64

	// Non-nil when the provider owns src.
	owned io.Closer

	offline OfflineConfig

	// Region for the current acquisition, or nil before the first one.
	cur *jsource.Slice

	shutdown atomic.Bool
	closed   atomic.Bool
}

// NewStreamBacked returns a StreamBacked provider that borrows src,
// which must be positioned at the first of size payload bytes.
// The caller stays responsible for src beyond this payload.
//
// The offline configuration is used by ToOffline.
func NewStreamBacked(src jsource.Rewindable, size int64, offline OfflineConfig) *StreamBacked {
	return &StreamBacked{
		src:     src,
		size:    size,
		offline: offline,
	}
}

func newOwnedStreamBacked(src jsource.Rewindable, size int64, owner io.Closer) *StreamBacked {
	return &StreamBacked{
		src:   src,
		size:  size,
		owned: owner,
	}
}

// Len is the payload length.
func (p *StreamBacked) Len() int64 { return p.size }

// Owned reports whether the provider owns its source.
// Owned providers do not depend on any shared stream.
func (p *StreamBacked) Owned() bool { return p.owned != nil }

func (p *StreamBacked) Acquire(context.Context) (io.Reader, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	if p.shutdown.Load() {
		return nil, errShutDown
	}

	if err := p.src.Rewind(); err != nil {
		return nil, fmt.Errorf("failed to rewind payload source: %w", err)
	}
	p.cur = jsource.NewSlice(p.src, p.size)
	return p.cur, nil
}

func (p *StreamBacked) Release() {}

func (p *StreamBacked) Shutdown(ctx context.Context, scratch []byte) error {
	p.shutdown.Store(true)

	if p.owned != nil {
		// Nobody else reads from an owned source.
		return nil
	}

	if p.cur == nil {
		// Never acquired, so the source is still at the payload start.
		p.cur = jsource.NewSlice(p.src, p.size)
	}
	if _, err := p.cur.Drain(ctx, scratch); err != nil {
		return fmt.Errorf("failed to drain stream-backed payload: %w", err)
	}
	return nil
}

func (p *StreamBacked) ToOffline(ctx context.Context, scratch []byte) (Provider, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	if p.shutdown.Load() {
		return nil, errShutDown
	}

	if p.owned != nil {
		return p, nil
	}

	if err := p.src.Rewind(); err != nil {
		return nil, fmt.Errorf("failed to rewind payload source: %w", err)
	}
	p.cur = jsource.NewSlice(p.src, p.size)

	return p.offline.materialize(ctx, p.cur, p.size, scratch)
}

func (p *StreamBacked) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if p.owned != nil {
		return p.owned.Close()
	}
	return nil
}
