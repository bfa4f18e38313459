package jconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gordian-engine/jdwp"
	"github.com/gordian-engine/jdwp/jpayload"
	"github.com/gordian-engine/jdwp/jsource"
)

// CancelCodePacketTooLarge is the code passed to
// [jsource.ReadCanceler.CancelRead] when a [PacketTooLargeError]
// ends a stream.
const CancelCodePacketTooLarge uint64 = 0x4a01

// PacketTooLargeError is returned from [*Reader.Next]
// when a header declares a length above [Config.MaxPacketLength].
// The stream cannot be resynchronized after this error,
// so the Reader is closed and, if the stream supports it,
// its receive side is canceled.
type PacketTooLargeError struct {
	Header jdwp.Header
	Max    int32
}

func (e PacketTooLargeError) Error() string {
	return fmt.Sprintf(
		"packet %s exceeds maximum length %d", e.Header, e.Max,
	)
}

// Reader reads successive packets from one receive stream.
//
// Methods on Reader are not safe for concurrent use.
type Reader struct {
	log *slog.Logger

	s   jsource.ReceiveStream
	cfg Config
	f   *jpayload.Factory

	hdr     [jdwp.HeaderLength]byte
	scratch []byte

	// The last packet returned from Next.
	// Shut down before the next header is read.
	prev *jdwp.Packet

	closed bool
}

// NewReader returns a Reader for s.
// The stream must be positioned at a packet header,
// i.e. after any handshake.
func NewReader(log *slog.Logger, s jsource.ReceiveStream, cfg Config) *Reader {
	if cfg.ScratchSize <= 0 {
		cfg.ScratchSize = jsource.DefaultScratchSize
	}

	return &Reader{
		log: log,

		s:   s,
		cfg: cfg,
		f:   jpayload.NewFactory(cfg.FactoryConfig()),

		scratch: make([]byte, cfg.ScratchSize),
	}
}

// Next returns the next packet on the stream.
//
// Before reading, Next shuts down the packet returned by the previous call,
// so any payload bytes left unread on the stream are discarded
// and that packet's payload is no longer accessible.
// Callers that need a payload beyond the next call to Next
// must call [*jdwp.Packet.ToOffline] first.
//
// Next returns [io.EOF] if the stream ends cleanly between packets.
func (r *Reader) Next(ctx context.Context) (*jdwp.Packet, error) {
	if r.closed {
		return nil, errors.New("reader is closed")
	}

	if err := r.setDeadline(ctx); err != nil {
		return nil, err
	}

	if err := r.shutdownPrev(ctx); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r.s, r.hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read packet header: %w", err)
	}

	h, err := DecodeHeader(r.hdr[:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode packet header: %w", err)
	}

	if r.cfg.MaxPacketLength > 0 && h.Length > r.cfg.MaxPacketLength {
		r.abandon(h)
		return nil, PacketTooLargeError{Header: h, Max: r.cfg.MaxPacketLength}
	}

	pkt, err := jdwp.NewEphemeral(ctx, h, r.s, r.f)
	if err != nil {
		return nil, err
	}
	r.prev = pkt

	r.log.Debug(
		"Read packet",
		"header", h,
		"payload_len", h.PayloadLength(),
		"provider", fmt.Sprintf("%T", pkt.Provider()),
	)

	return pkt, nil
}

// Close shuts down the last packet returned from Next,
// leaving the stream positioned after it,
// and prevents further calls to Next.
// It does not close the underlying stream.
func (r *Reader) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true

	return r.shutdownPrev(ctx)
}

func (r *Reader) shutdownPrev(ctx context.Context) error {
	if r.prev == nil {
		return nil
	}

	prev := r.prev
	r.prev = nil

	if err := prev.Shutdown(ctx, r.scratch); err != nil {
		return fmt.Errorf("failed to drain payload of %s: %w", prev.Header(), err)
	}

	// Nothing on the stream belongs to prev anymore.
	if err := prev.Close(); err != nil {
		r.log.Info(
			"Failed to close previous packet",
			"header", prev.Header(),
			"err", err,
		)
	}

	return nil
}

// abandon closes r after a header that leaves the stream unusable.
func (r *Reader) abandon(h jdwp.Header) {
	r.closed = true

	c, ok := r.s.(jsource.ReadCanceler)
	if !ok {
		return
	}

	r.log.Warn(
		"Canceling stream after oversized packet",
		"header", h,
		"max_len", r.cfg.MaxPacketLength,
	)
	c.CancelRead(CancelCodePacketTooLarge)
}

func (r *Reader) setDeadline(ctx context.Context) error {
	var d time.Time
	if r.cfg.ReadTimeout > 0 {
		d = time.Now().Add(r.cfg.ReadTimeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}

	if err := r.s.SetReadDeadline(d); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	return nil
}
