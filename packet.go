package jdwp

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync/atomic"

	"github.com/gordian-engine/jdwp/jpayload"
	"golang.org/x/sync/semaphore"
)

// Packet is a header plus the provider for its payload.
//
// The header is fixed at construction.
// The packet owns its provider:
// Close on the packet closes the provider.
// The only sharing is between a packet and the offline copies
// made by [*Packet.ToOffline] when the provider was already offline;
// the provider is then closed with the last of those packets.
type Packet struct {
	h Header
	p jpayload.Provider

	// Count of open packets sharing p.
	refs *atomic.Int32

	// Non-nil for offline packets.
	// A weighted semaphore of size 1 rather than a sync.Mutex,
	// so that waiting for the payload respects context cancellation.
	guard *semaphore.Weighted

	// Set while an offline packet's guard is held.
	held atomic.Bool

	shutdown atomic.Bool
	closed   atomic.Bool
}

// New returns an ephemeral packet with the given header and provider.
// It panics with an [InvalidHeaderError] if the header is invalid.
func New(h Header, p jpayload.Provider) *Packet {
	if err := h.Validate(); err != nil {
		panic(err)
	}
	return newPacket(h, p)
}

func newPacket(h Header, p jpayload.Provider) *Packet {
	refs := new(atomic.Int32)
	refs.Store(1)
	return &Packet{h: h, p: p, refs: refs}
}

// NewCommand returns an ephemeral command packet.
// payloadLen must match the number of bytes p yields.
func NewCommand(id int32, cmdSet, cmd uint8, payloadLen int64, p jpayload.Provider) *Packet {
	return New(CommandHeader(id, cmdSet, cmd, payloadLen), p)
}

// NewReply returns an ephemeral reply packet.
// payloadLen must match the number of bytes p yields.
func NewReply(id int32, errorCode uint16, payloadLen int64, p jpayload.Provider) *Packet {
	return New(ReplyHeader(id, errorCode, payloadLen), p)
}

// NewEphemeral returns a packet for h whose payload begins
// at the current position of src, using f to choose the provider.
//
// Unlike [New], an invalid header is reported as an error,
// since headers decoded from a stream are not under the caller's control.
func NewEphemeral(ctx context.Context, h Header, src io.Reader, f *jpayload.Factory) (*Packet, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	p, err := f.Create(ctx, h.PayloadLength(), src)
	if err != nil {
		return nil, fmt.Errorf("failed to create payload provider for %s: %w", h, err)
	}

	return newPacket(h, p), nil
}

// Rewrap returns a new ephemeral packet with pkt's header fields
// and the given provider, adjusting the length to payloadLen.
// It is used when a payload has been rewritten.
// pkt itself is unchanged.
func (pkt *Packet) Rewrap(p jpayload.Provider, payloadLen int64) *Packet {
	h := pkt.h
	h.Length = clampLength(payloadLen)
	return New(h, p)
}

// Header returns the packet header.
func (pkt *Packet) Header() Header { return pkt.h }

func (pkt *Packet) ID() int32         { return pkt.h.ID }
func (pkt *Packet) Length() int32     { return pkt.h.Length }
func (pkt *Packet) Flags() uint8      { return pkt.h.Flags }
func (pkt *Packet) CmdSet() uint8     { return pkt.h.CmdSet }
func (pkt *Packet) Cmd() uint8        { return pkt.h.Cmd }
func (pkt *Packet) ErrorCode() uint16 { return pkt.h.ErrorCode }
func (pkt *Packet) IsCommand() bool   { return pkt.h.IsCommand() }

// PayloadLength is the number of payload bytes declared by the header.
func (pkt *Packet) PayloadLength() int64 { return pkt.h.PayloadLength() }

// Provider returns the packet's payload provider.
// Callers should access the payload through the packet's own methods,
// which enforce the offline guard.
func (pkt *Packet) Provider() jpayload.Provider { return pkt.p }

// IsOffline reports whether pkt was produced by [*Packet.ToOffline].
func (pkt *Packet) IsOffline() bool { return pkt.guard != nil }

// Acquire returns a reader over the payload, positioned at its first byte.
// Every successful Acquire must be paired with a call to [*Packet.Release].
//
// On an offline packet, Acquire blocks until any other holder releases,
// or until ctx is done.
// On an ephemeral packet there is no guard;
// the caller must not Acquire again before releasing.
//
// After [*Packet.Shutdown] or [*Packet.Close], Acquire returns an error
// satisfying [IsUnavailable].
func (pkt *Packet) Acquire(ctx context.Context) (io.Reader, error) {
	if err := pkt.checkAvailable(); err != nil {
		return nil, err
	}

	if pkt.guard == nil {
		return pkt.p.Acquire(ctx)
	}

	if err := pkt.guard.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed waiting for payload of %s: %w", pkt.h, err)
	}

	r, err := pkt.p.Acquire(ctx)
	if err != nil {
		pkt.guard.Release(1)
		return nil, err
	}
	pkt.held.Store(true)
	return r, nil
}

// Release ends the access started by a successful [*Packet.Acquire].
// It never blocks, so it is safe to defer even during cancellation.
// On an offline packet, a Release without a matching Acquire is a no-op.
func (pkt *Packet) Release() {
	if pkt.guard == nil {
		pkt.p.Release()
		return
	}

	if !pkt.held.CompareAndSwap(true, false) {
		return
	}
	pkt.p.Release()
	pkt.guard.Release(1)
}

// WithPayload acquires the payload, passes it to fn,
// and releases it when fn returns or panics.
func (pkt *Packet) WithPayload(ctx context.Context, fn func(io.Reader) error) error {
	r, err := pkt.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pkt.Release()

	return fn(r)
}

// Shutdown drains any payload bytes still pending on the shared stream,
// so the stream is positioned at the next packet's header,
// and makes the payload permanently unavailable through this packet.
//
// Shutdown is idempotent.
// The scratch buffer is used for draining and may be nil.
func (pkt *Packet) Shutdown(ctx context.Context, scratch []byte) error {
	pkt.shutdown.Store(true)
	return pkt.p.Shutdown(ctx, scratch)
}

// ToOffline returns an offline packet with the same header
// and a payload that no longer depends on the connection stream.
//
// For an ephemeral packet whose payload is still on the stream,
// this reads the whole payload.
// The original packet stays valid for Shutdown and Close.
// Calling ToOffline on an offline packet returns the packet itself.
func (pkt *Packet) ToOffline(ctx context.Context, scratch []byte) (*Packet, error) {
	if pkt.guard != nil {
		return pkt, nil
	}

	if err := pkt.checkAvailable(); err != nil {
		return nil, err
	}

	p, err := pkt.p.ToOffline(ctx, scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to take payload of %s offline: %w", pkt.h, err)
	}

	off := &Packet{
		h:     pkt.h,
		p:     p,
		guard: semaphore.NewWeighted(1),
	}
	if sameProvider(p, pkt.p) {
		// Already offline; both packets hold the provider.
		pkt.refs.Add(1)
		off.refs = pkt.refs
	} else {
		off.refs = new(atomic.Int32)
		off.refs.Store(1)
	}
	return off, nil
}

// Close makes the payload unavailable through this packet
// and releases the resources held by its provider,
// regardless of any outstanding acquisitions.
// A provider shared with an offline copy is closed
// when the last packet holding it is closed.
//
// Close does not drain the connection stream.
// It is idempotent.
func (pkt *Packet) Close() error {
	if pkt.closed.Swap(true) {
		return nil
	}
	if pkt.refs.Add(-1) > 0 {
		return nil
	}
	return pkt.p.Close()
}

func (pkt *Packet) checkAvailable() error {
	if pkt.closed.Load() {
		return jpayload.UnavailablePayloadError{Reason: "packet closed"}
	}
	if pkt.shutdown.Load() {
		return jpayload.UnavailablePayloadError{Reason: "packet shut down"}
	}
	return nil
}

// sameProvider reports whether a and b are the same provider value.
// Providers with incomparable dynamic types are never the same.
func sameProvider(a, b jpayload.Provider) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func (pkt *Packet) String() string {
	if pkt.guard != nil {
		return "offline " + pkt.h.String()
	}
	return pkt.h.String()
}
