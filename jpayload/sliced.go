package jpayload

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/gordian-engine/jdwp/jsource"
)

// Sliced is a Provider for a large payload still pending
// on a shared, forward-only stream.
//
// The payload can be read once.
// Acquire fails after any payload bytes have been consumed;
// use ToOffline first if the payload must be read more than once.
//
// The owner must either read the payload to the end
// or call Shutdown before reading the next packet from the stream.
type Sliced struct {
	s *jsource.Slice

	offline OfflineConfig

	shutdown atomic.Bool
	closed   atomic.Bool
}

// NewSliced returns a Sliced provider over the next n bytes of src.
// The provider borrows src and never closes it.
func NewSliced(src io.Reader, n int64, offline OfflineConfig) *Sliced {
	return &Sliced{
		s:       jsource.NewSlice(src, n),
		offline: offline,
	}
}

// Len is the payload length.
func (p *Sliced) Len() int64 { return p.s.Len() }

// Remaining is the number of payload bytes still on the stream.
func (p *Sliced) Remaining() int64 { return p.s.Remaining() }

func (p *Sliced) Acquire(context.Context) (io.Reader, error) {
	if err := p.checkAvailable(); err != nil {
		return nil, err
	}
	return p.s, nil
}

func (p *Sliced) Release() {}

func (p *Sliced) Shutdown(ctx context.Context, scratch []byte) error {
	// Draining matters even after Close:
	// the stream may still be handed to the next packet.
	p.shutdown.Store(true)

	if _, err := p.s.Drain(ctx, scratch); err != nil {
		return fmt.Errorf("failed to drain sliced payload: %w", err)
	}
	return nil
}

func (p *Sliced) ToOffline(ctx context.Context, scratch []byte) (Provider, error) {
	if err := p.checkAvailable(); err != nil {
		return nil, err
	}

	return p.offline.materialize(ctx, p.s, p.s.Len(), scratch)
}

func (p *Sliced) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *Sliced) checkAvailable() error {
	if p.closed.Load() {
		return errClosed
	}
	if p.shutdown.Load() {
		return errShutDown
	}
	if p.s.Consumed() > 0 {
		return errConsumed
	}
	return nil
}
