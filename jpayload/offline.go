package jpayload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/gordian-engine/jdwp/jsource"
)

// OfflineConfig controls where [Provider.ToOffline] stores
// payloads that it copies off a shared stream.
type OfflineConfig struct {
	// Payloads up to this many bytes are copied into memory.
	// Larger payloads are written to a temporary spool file.
	// Zero disables spooling, so every offline copy is held in memory.
	MaxInMemoryLength int64

	// Directory for spool files.
	// If empty, the system temporary directory is used.
	SpoolDir string

	// Compress spool file contents with snappy.
	// Heap dumps and class files tend to compress well,
	// at the cost of CPU on both the write and every replay.
	CompressSpool bool
}

// Upper bound on the buffer reserved before an in-memory copy starts.
// Larger payloads grow the buffer as their bytes arrive.
const maxInMemoryPrealloc = 1 << 20

// materialize reads exactly n bytes from r into a self-contained Provider.
func (c OfflineConfig) materialize(
	ctx context.Context, r io.Reader, n int64, scratch []byte,
) (Provider, error) {
	if n <= 0 {
		return Empty{}, nil
	}

	if c.MaxInMemoryLength <= 0 || n <= c.MaxInMemoryLength {
		// n is declared by the remote side.
		var buf bytes.Buffer
		buf.Grow(int(min(n, maxInMemoryPrealloc)))
		if _, err := jsource.CopyN(ctx, &buf, r, n, scratch); err != nil {
			return nil, fmt.Errorf("failed to copy %d-byte payload into memory: %w", n, err)
		}
		return NewInMemory(buf.Bytes()), nil
	}

	return c.spool(ctx, r, n, scratch)
}

func (c OfflineConfig) spool(
	ctx context.Context, r io.Reader, n int64, scratch []byte,
) (_ Provider, finalErr error) {
	f, err := os.CreateTemp(c.SpoolDir, "jdwp-payload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create payload spool file: %w", err)
	}
	sf := &spoolFile{f: f}
	defer func() {
		if finalErr != nil {
			// Nothing else references the file yet.
			_ = sf.Close()
		}
	}()

	var w io.Writer = f
	var sw *snappy.Writer
	if c.CompressSpool {
		sw = snappy.NewBufferedWriter(f)
		w = sw
	}

	if _, err := jsource.CopyN(ctx, w, r, n, scratch); err != nil {
		return nil, fmt.Errorf("failed to spool %d-byte payload: %w", n, err)
	}

	if sw != nil {
		// Close flushes buffered frames but leaves f open.
		if err := sw.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush compressed spool: %w", err)
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	var src jsource.Rewindable
	if c.CompressSpool {
		src = &snappyRewindable{f: f, zr: snappy.NewReader(f)}
	} else {
		src, err = jsource.NewSeekerRewindable(f)
		if err != nil {
			return nil, err
		}
	}

	return newOwnedStreamBacked(src, n, sf), nil
}

// spoolFile removes the temporary file when closed.
type spoolFile struct {
	f *os.File
}

func (s *spoolFile) Close() error {
	return errors.Join(s.f.Close(), os.Remove(s.f.Name()))
}

// snappyRewindable replays a snappy-framed spool file from its start.
type snappyRewindable struct {
	f  *os.File
	zr *snappy.Reader
}

func (r *snappyRewindable) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *snappyRewindable) Rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind compressed spool: %w", err)
	}
	r.zr.Reset(r.f)
	return nil
}
