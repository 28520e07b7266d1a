// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nodeconfig resolves a node's on-disk layout and runtime
// settings from defaults, a config file, and a fluent Builder for
// programmatic overrides (mainly exercised by cmd/manifestd's flags).
package nodeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/tdespenza/manifestation-node/p2pnode"
)

// Config holds everything needed to construct and run a node.
type Config struct {
	DataDir string `json:"data_dir"`

	ListenAddr     string   `json:"listen_addr"`
	BootstrapPeers []string `json:"bootstrap_peers,omitempty"`

	LogLevel    string `json:"log_level"`
	MetricsAddr string `json:"metrics_addr,omitempty"`

	SharingEnabled bool `json:"sharing_enabled"`
}

// IdentityPath, TransportKeyPath, CachePath, and ConfigFilePath locate
// the files a node persists under DataDir.
func (c Config) IdentityPath() string     { return filepath.Join(c.DataDir, "user_identity.json") }
func (c Config) TransportKeyPath() string { return filepath.Join(c.DataDir, "identity.key") }
func (c Config) CachePath() string        { return filepath.Join(c.DataDir, "network_cache.json") }
func (c Config) ConfigFilePath() string   { return filepath.Join(c.DataDir, "config.json") }

// BootstrapMultiaddrs parses BootstrapPeers, silently skipping any
// entry that fails to parse (this package has no logger of its own).
func (c Config) BootstrapMultiaddrs() []ma.Multiaddr {
	addrs := make([]ma.Multiaddr, 0, len(c.BootstrapPeers))
	for _, s := range c.BootstrapPeers {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// Builder provides a fluent interface for constructing a Config,
// accumulating the first error encountered and refusing further
// effect from subsequent calls — callers check the error once, at Build.
type Builder struct {
	config *Config
	err    error
}

// NewBuilder returns a Builder seeded with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{
		config: &Config{
			DataDir:     defaultDataDir(),
			ListenAddr:  p2pnode.DefaultListenAddr,
			LogLevel:    "info",
			MetricsAddr: "127.0.0.1:9595",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "manifestation-node")
	}
	return ".manifestation-node"
}

// fileConfig mirrors the subset of Config that <data_dir>/config.json
// may set. It exists separately from Config so an absent or partial
// file never clobbers a field with its zero value.
type fileConfig struct {
	DataDir        *string  `json:"data_dir"`
	ListenAddr     *string  `json:"listen_addr"`
	BootstrapPeers []string `json:"bootstrap_peers"`
	LogLevel       *string  `json:"log_level"`
	MetricsAddr    *string  `json:"metrics_addr"`
	SharingEnabled *bool    `json:"sharing_enabled"`
}

// FromFile layers defaults read from path — normally
// Config.ConfigFilePath() — under whatever the Builder already holds.
// A missing file is not an error: the node runs fine on its built-in
// defaults and CLI flags alone. An existing-but-malformed file is.
// Call this before the With* overrides so flags still win.
func (b *Builder) FromFile(path string) *Builder {
	if b.err != nil {
		return b
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b
		}
		b.err = fmt.Errorf("read config file %s: %w", path, err)
		return b
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		b.err = fmt.Errorf("parse config file %s: %w", path, err)
		return b
	}

	if fc.DataDir != nil {
		b.config.DataDir = *fc.DataDir
	}
	if fc.ListenAddr != nil {
		b.config.ListenAddr = *fc.ListenAddr
	}
	if len(fc.BootstrapPeers) > 0 {
		b.config.BootstrapPeers = fc.BootstrapPeers
	}
	if fc.LogLevel != nil {
		b.config.LogLevel = *fc.LogLevel
	}
	if fc.MetricsAddr != nil {
		b.config.MetricsAddr = *fc.MetricsAddr
	}
	if fc.SharingEnabled != nil {
		b.config.SharingEnabled = *fc.SharingEnabled
	}
	return b
}

// WithDataDir overrides the data directory.
func (b *Builder) WithDataDir(dir string) *Builder {
	if b.err != nil {
		return b
	}
	if dir == "" {
		b.err = fmt.Errorf("data dir must not be empty")
		return b
	}
	b.config.DataDir = dir
	return b
}

// WithListenAddr overrides the libp2p listen multiaddr, validating it
// parses before accepting it.
func (b *Builder) WithListenAddr(addr string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ma.NewMultiaddr(addr); err != nil {
		b.err = fmt.Errorf("invalid listen addr %q: %w", addr, err)
		return b
	}
	b.config.ListenAddr = addr
	return b
}

// WithBootstrapPeers overrides the bootstrap peer list.
func (b *Builder) WithBootstrapPeers(peers []string) *Builder {
	if b.err != nil {
		return b
	}
	for _, s := range peers {
		if _, err := ma.NewMultiaddr(s); err != nil {
			b.err = fmt.Errorf("invalid bootstrap peer %q: %w", s, err)
			return b
		}
	}
	b.config.BootstrapPeers = peers
	return b
}

// WithLogLevel overrides the zap log level name.
func (b *Builder) WithLogLevel(level string) *Builder {
	if b.err != nil {
		return b
	}
	switch level {
	case "debug", "info", "warn", "error":
		b.config.LogLevel = level
	default:
		b.err = fmt.Errorf("unknown log level %q", level)
	}
	return b
}

// WithMetricsAddr sets the address the Prometheus HTTP server binds,
// e.g. "127.0.0.1:9090". An empty value disables the metrics server.
func (b *Builder) WithMetricsAddr(addr string) *Builder {
	if b.err != nil {
		return b
	}
	b.config.MetricsAddr = addr
	return b
}

// WithSharingEnabled sets the initial opt-in sharing state.
func (b *Builder) WithSharingEnabled(enabled bool) *Builder {
	if b.err != nil {
		return b
	}
	b.config.SharingEnabled = enabled
	return b
}

// Build returns the finished Config, or the first error encountered.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := *b.config
	return &cfg, nil
}
