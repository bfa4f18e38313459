package jconn

import (
	"context"
	"fmt"
	"io"

	"github.com/gordian-engine/jdwp"
	"github.com/gordian-engine/jdwp/jsource"
)

// Writer encodes packets onto a stream.
//
// Methods on Writer are not safe for concurrent use.
type Writer struct {
	w io.Writer

	hdr     [jdwp.HeaderLength]byte
	scratch []byte
}

// NewWriter returns a Writer for w.
// A non-positive scratchSize selects [jsource.DefaultScratchSize].
func NewWriter(w io.Writer, scratchSize int) *Writer {
	if scratchSize <= 0 {
		scratchSize = jsource.DefaultScratchSize
	}
	return &Writer{
		w:       w,
		scratch: make([]byte, scratchSize),
	}
}

// WritePacket writes pkt's header followed by its payload.
// The payload is accessed through [*jdwp.Packet.WithPayload],
// so an offline packet is held exclusively for the duration of the write.
//
// If the payload cannot be acquired, nothing is written.
func (w *Writer) WritePacket(ctx context.Context, pkt *jdwp.Packet) error {
	h := pkt.Header()
	EncodeHeader(w.hdr[:], h)

	n := h.PayloadLength()
	if n == 0 {
		return w.writeHeader(h)
	}

	return pkt.WithPayload(ctx, func(r io.Reader) error {
		if err := w.writeHeader(h); err != nil {
			return err
		}
		if _, err := jsource.CopyN(ctx, w.w, r, n, w.scratch); err != nil {
			return fmt.Errorf("failed to write payload of %s: %w", h, err)
		}
		return nil
	})
}

func (w *Writer) writeHeader(h jdwp.Header) error {
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", h, err)
	}
	return nil
}
