package jsource

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultScratchSize is the size of the scratch buffer allocated
// when a caller passes an empty scratch slice to [Discard] or [CopyN].
const DefaultScratchSize = 32 * 1024

// Scratch returns scratch if it has a usable length,
// otherwise a newly allocated buffer of [DefaultScratchSize].
func Scratch(scratch []byte) []byte {
	if len(scratch) > 0 {
		return scratch
	}
	return make([]byte, DefaultScratchSize)
}

// Discard reads and throws away up to n bytes from r,
// using scratch as the intermediate buffer.
//
// Reaching the end of r before n bytes is not an error:
// Discard is used to hand a shared stream back,
// and a stream that has already ended has nothing left to hand back.
// The returned count is the number of bytes actually discarded.
//
// The context is checked between reads.
// An individual blocking read is only interrupted
// by the stream's own deadline.
func Discard(ctx context.Context, r io.Reader, n int64, scratch []byte) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	scratch = Scratch(scratch)

	var discarded int64
	for discarded < n {
		if err := ctx.Err(); err != nil {
			return discarded, fmt.Errorf(
				"context canceled while discarding (%d of %d bytes done): %w",
				discarded, n, context.Cause(ctx),
			)
		}

		buf := scratch
		if rem := n - discarded; int64(len(buf)) > rem {
			buf = buf[:rem]
		}

		nn, err := r.Read(buf)
		discarded += int64(nn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return discarded, nil
			}
			return discarded, fmt.Errorf("failed to discard bytes: %w", err)
		}
	}

	return discarded, nil
}

// CopyN copies exactly n bytes from src to dst through scratch.
//
// Unlike [Discard], running out of source bytes early is an error,
// reported as [io.ErrUnexpectedEOF].
func CopyN(ctx context.Context, dst io.Writer, src io.Reader, n int64, scratch []byte) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	scratch = Scratch(scratch)

	var copied int64
	for copied < n {
		if err := ctx.Err(); err != nil {
			return copied, fmt.Errorf(
				"context canceled while copying (%d of %d bytes done): %w",
				copied, n, context.Cause(ctx),
			)
		}

		buf := scratch
		if rem := n - copied; int64(len(buf)) > rem {
			buf = buf[:rem]
		}

		nr, rErr := src.Read(buf)
		if nr > 0 {
			nw, wErr := dst.Write(buf[:nr])
			copied += int64(nw)
			if wErr != nil {
				return copied, fmt.Errorf("failed to write copied bytes: %w", wErr)
			}
			if nw != nr {
				return copied, io.ErrShortWrite
			}
		}

		if rErr != nil {
			if errors.Is(rErr, io.EOF) {
				if copied < n {
					return copied, io.ErrUnexpectedEOF
				}
				return copied, nil
			}
			return copied, fmt.Errorf("failed to read bytes to copy: %w", rErr)
		}
	}

	return copied, nil
}
