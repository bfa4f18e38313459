package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gordian-engine/jdwp/jconn"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors [jconn.Config] for config files.
// Pointer fields distinguish "unset" from a zero value.
type fileConfig struct {
	MaxInMemoryPayloadLength *int64  `toml:"max_in_memory_payload_length" yaml:"max_in_memory_payload_length"`
	MaxPacketLength          *int32  `toml:"max_packet_length" yaml:"max_packet_length"`
	ReadTimeout              *string `toml:"read_timeout" yaml:"read_timeout"`
	ScratchSize              *int    `toml:"scratch_size" yaml:"scratch_size"`

	Offline struct {
		MaxInMemoryLength *int64  `toml:"max_in_memory_length" yaml:"max_in_memory_length"`
		SpoolDir          *string `toml:"spool_dir" yaml:"spool_dir"`
		CompressSpool     *bool   `toml:"compress_spool" yaml:"compress_spool"`
	} `toml:"offline" yaml:"offline"`
}

// loadConfig returns the default session configuration
// with any values from the file at path applied on top.
// The format is chosen by extension: .toml, or .yaml/.yml.
func loadConfig(path string) (jconn.Config, error) {
	cfg := jconn.DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(b), &raw); err != nil {
			return cfg, fmt.Errorf("decode toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return cfg, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := raw.apply(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (raw fileConfig) apply(cfg *jconn.Config) error {
	if raw.MaxInMemoryPayloadLength != nil {
		if *raw.MaxInMemoryPayloadLength < 0 {
			return fmt.Errorf("max_in_memory_payload_length must not be negative")
		}
		cfg.MaxInMemoryPayloadLength = *raw.MaxInMemoryPayloadLength
	}

	if raw.MaxPacketLength != nil {
		cfg.MaxPacketLength = *raw.MaxPacketLength
	}

	if raw.ReadTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.ReadTimeout))
		if err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if raw.ScratchSize != nil {
		cfg.ScratchSize = *raw.ScratchSize
	}

	if raw.Offline.MaxInMemoryLength != nil {
		if *raw.Offline.MaxInMemoryLength < 0 {
			return fmt.Errorf("offline.max_in_memory_length must not be negative")
		}
		cfg.Offline.MaxInMemoryLength = *raw.Offline.MaxInMemoryLength
	}

	if raw.Offline.SpoolDir != nil {
		cfg.Offline.SpoolDir = strings.TrimSpace(*raw.Offline.SpoolDir)
	}

	if raw.Offline.CompressSpool != nil {
		cfg.Offline.CompressSpool = *raw.Offline.CompressSpool
	}

	return nil
}
