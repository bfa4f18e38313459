package jpayload

import (
	"bytes"
	"context"
	"io"
)

// Empty is the Provider for packets without a payload.
// It is stateless and safe for concurrent use.
type Empty struct{}

func (Empty) Acquire(context.Context) (io.Reader, error) {
	return bytes.NewReader(nil), nil
}

func (Empty) Release() {}

func (Empty) Shutdown(context.Context, []byte) error { return nil }

func (e Empty) ToOffline(context.Context, []byte) (Provider, error) {
	return e, nil
}

func (Empty) Close() error { return nil }
