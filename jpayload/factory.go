package jpayload

import (
	"context"
	"fmt"
	"io"
)

// FactoryConfig is the configuration passed to [NewFactory].
type FactoryConfig struct {
	// Payloads up to this many bytes are read eagerly into an [InMemory]
	// provider when the packet is created.
	// Larger payloads are left on the stream behind a [Sliced] provider.
	//
	// Zero means every non-empty payload is sliced.
	MaxInMemoryLength int64

	// Where offline copies of sliced payloads are stored.
	Offline OfflineConfig
}

// Factory creates the [Provider] for each packet read from a stream.
// A Factory is immutable and safe for concurrent use.
type Factory struct {
	maxInMemory int64
	offline     OfflineConfig
}

// NewFactory returns a new Factory.
// It panics if cfg contains negative lengths.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.MaxInMemoryLength < 0 {
		panic(fmt.Errorf(
			"BUG: MaxInMemoryLength must not be negative (got %d)", cfg.MaxInMemoryLength,
		))
	}
	if cfg.Offline.MaxInMemoryLength < 0 {
		panic(fmt.Errorf(
			"BUG: Offline.MaxInMemoryLength must not be negative (got %d)", cfg.Offline.MaxInMemoryLength,
		))
	}

	return &Factory{
		maxInMemory: cfg.MaxInMemoryLength,
		offline:     cfg.Offline,
	}
}

// MaxInMemoryLength is the threshold between [InMemory] and [Sliced] payloads.
func (f *Factory) MaxInMemoryLength() int64 { return f.maxInMemory }

// Create returns the Provider for a payload of payloadLen bytes
// that begins at the current position of src.
//
// Small payloads are read from src before Create returns.
// For a [Sliced] result, the caller must read the payload to its end
// or call [Provider.Shutdown] before reading anything else from src.
func (f *Factory) Create(ctx context.Context, payloadLen int64, src io.Reader) (Provider, error) {
	if payloadLen <= 0 {
		return Empty{}, nil
	}

	if payloadLen <= f.maxInMemory {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf(
				"context canceled before reading payload: %w", context.Cause(ctx),
			)
		}

		buf := make([]byte, payloadLen)
		if _, err := io.ReadFull(src, buf); err != nil {
			return nil, fmt.Errorf("failed to read %d-byte payload: %w", payloadLen, err)
		}
		return NewInMemory(buf), nil
	}

	return NewSliced(src, payloadLen, f.offline), nil
}
