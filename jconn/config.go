package jconn

import (
	"time"

	"github.com/gordian-engine/jdwp/jpayload"
)

// Config is the per-session configuration for a [Reader].
type Config struct {
	// Payloads up to this many bytes are read eagerly when a packet arrives.
	// Larger payloads stay on the stream until read or drained.
	MaxInMemoryPayloadLength int64

	// Headers declaring a larger total length are rejected.
	// Zero means no limit beyond what the header can encode.
	MaxPacketLength int32

	// Deadline applied to each blocking read, if positive.
	// A context deadline, when sooner, takes precedence.
	ReadTimeout time.Duration

	// Size of the scratch buffer used to drain and copy payloads.
	ScratchSize int

	// Where offline copies of large payloads go.
	Offline jpayload.OfflineConfig
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxInMemoryPayloadLength: 64 * 1024,
		MaxPacketLength:          0,
		ReadTimeout:              0,
		ScratchSize:              32 * 1024,
		Offline: jpayload.OfflineConfig{
			MaxInMemoryLength: 8 * 1024 * 1024,
		},
	}
}

// FactoryConfig returns the payload factory configuration for c.
func (c Config) FactoryConfig() jpayload.FactoryConfig {
	return jpayload.FactoryConfig{
		MaxInMemoryLength: c.MaxInMemoryPayloadLength,
		Offline:           c.Offline,
	}
}
