package jsource

import (
	"bytes"
	"fmt"
	"io"
)

// Rewindable is a forward reader that can return
// to the position it had when it was created.
type Rewindable interface {
	io.Reader

	// Rewind moves the read position back to the start.
	Rewind() error
}

// NewSeekerRewindable returns a Rewindable over rs,
// whose start is the current position of rs.
func NewSeekerRewindable(rs io.ReadSeeker) (Rewindable, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to determine starting offset: %w", err)
	}
	return &seekerRewindable{rs: rs, start: start}, nil
}

type seekerRewindable struct {
	rs    io.ReadSeeker
	start int64
}

func (r *seekerRewindable) Read(p []byte) (int, error) {
	return r.rs.Read(p)
}

func (r *seekerRewindable) Rewind() error {
	if _, err := r.rs.Seek(r.start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", r.start, err)
	}
	return nil
}

// NewBytesRewindable returns a Rewindable over b.
// The caller must not modify b afterwards.
func NewBytesRewindable(b []byte) Rewindable {
	return bytesRewindable{r: bytes.NewReader(b)}
}

type bytesRewindable struct {
	r *bytes.Reader
}

func (r bytesRewindable) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r bytesRewindable) Rewind() error {
	_, err := r.r.Seek(0, io.SeekStart)
	return err
}
