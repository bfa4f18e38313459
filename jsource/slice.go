package jsource

import (
	"context"
	"errors"
	"io"
)

// Slice is a bounded, forward-only view over a region of a larger stream.
//
// Reads through a Slice never advance the underlying stream
// past the end of the region, so after the Slice is exhausted
// (or drained with [*Slice.Drain]) the underlying stream
// is positioned at the first byte following the region.
//
// Methods on Slice are not safe for concurrent use.
type Slice struct {
	r io.Reader

	size      int64
	remaining int64
}

// NewSlice returns a Slice covering the next n bytes of r.
func NewSlice(r io.Reader, n int64) *Slice {
	if n < 0 {
		n = 0
	}
	return &Slice{
		r:         r,
		size:      n,
		remaining: n,
	}
}

// Read implements [io.Reader].
//
// Read returns [io.EOF] once exactly Len bytes have been read.
// If the underlying stream ends sooner,
// Read returns [io.ErrUnexpectedEOF] instead.
func (s *Slice) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}

	n, err := s.r.Read(p)
	s.remaining -= int64(n)

	if err != nil && errors.Is(err, io.EOF) {
		if s.remaining > 0 {
			return n, io.ErrUnexpectedEOF
		}
		// The region ended exactly at the end of the stream.
		// Report the data now and EOF on the next call.
		return n, nil
	}

	return n, err
}

// Len is the declared size of the region.
func (s *Slice) Len() int64 { return s.size }

// Remaining is the number of region bytes not yet read.
func (s *Slice) Remaining() int64 { return s.remaining }

// Consumed is the number of region bytes already read.
func (s *Slice) Consumed() int64 { return s.size - s.remaining }

// Drain discards every unread byte of the region,
// leaving the underlying stream positioned at the end of the region.
//
// See [Discard] for the treatment of an early end of stream.
func (s *Slice) Drain(ctx context.Context, scratch []byte) (int64, error) {
	n, err := Discard(ctx, s.r, s.remaining, scratch)
	s.remaining -= n
	if err == nil {
		// Either fully discarded, or the stream ended.
		// In both cases there is nothing more this region can yield.
		s.remaining = 0
	}
	return n, err
}
