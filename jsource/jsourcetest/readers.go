// Package jsourcetest contains stub byte sources for tests
// of packages that consume [jsource] types.
package jsourcetest

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordian-engine/jdwp/jsource"
)

// ChunkedReader serves a fixed byte slice
// at most Chunk bytes per Read call,
// so that consumers are forced through their read loops.
//
// Offset is safe to call concurrently with Read.
type ChunkedReader struct {
	data  []byte
	chunk int

	off atomic.Int64
}

// NewChunkedReader returns a ChunkedReader over data.
// A chunk size below 1 is treated as 1.
func NewChunkedReader(data []byte, chunk int) *ChunkedReader {
	if chunk < 1 {
		chunk = 1
	}
	return &ChunkedReader{data: data, chunk: chunk}
}

func (r *ChunkedReader) Read(p []byte) (int, error) {
	off := r.off.Load()
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}

	end := min(off+int64(r.chunk), int64(len(r.data)), off+int64(len(p)))
	n := copy(p, r.data[off:end])
	r.off.Add(int64(n))
	return n, nil
}

// Offset reports how many bytes have been read so far.
func (r *ChunkedReader) Offset() int64 {
	return r.off.Load()
}

// FailingReader reads from R until N bytes have been returned,
// then returns Err on every subsequent call.
type FailingReader struct {
	R   io.Reader
	N   int64
	Err error

	read int64
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if r.read >= r.N {
		return 0, r.Err
	}
	if rem := r.N - r.read; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.R.Read(p)
	r.read += int64(n)
	return n, err
}

// StubReceiveStream is a [jsource.ReceiveStream]
// that reads from an in-memory reader
// and records read deadlines and cancellations.
type StubReceiveStream struct {
	R io.Reader

	mu          sync.Mutex
	deadlines   []time.Time
	cancelCodes []uint64
}

var (
	_ jsource.ReceiveStream = (*StubReceiveStream)(nil)
	_ jsource.ReadCanceler  = (*StubReceiveStream)(nil)
)

func (s *StubReceiveStream) Read(p []byte) (int, error) {
	return s.R.Read(p)
}

func (s *StubReceiveStream) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines = append(s.deadlines, t)
	return nil
}

// Deadlines returns a copy of every deadline set so far.
func (s *StubReceiveStream) Deadlines() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.deadlines...)
}

func (s *StubReceiveStream) CancelRead(code uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCodes = append(s.cancelCodes, code)
}

// CancelCodes returns the codes passed to every CancelRead call so far.
func (s *StubReceiveStream) CancelCodes() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.cancelCodes...)
}
