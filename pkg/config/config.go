package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize when the corresponding value is unset.
const (
	DefaultDataDir     = "./data"
	DefaultChunkSize   = SizeBytes(10000)
	DefaultVerifyEvery = uint64(100)
	DefaultMinFileSize = SizeBytes(100)
)

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Normalize fills unset storage values with defaults.
func (c *Config) Normalize() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir
	}
	if c.Storage.ChunkSize == 0 {
		c.Storage.ChunkSize = DefaultChunkSize
	}
	if c.Storage.VerifyEvery == 0 {
		c.Storage.VerifyEvery = DefaultVerifyEvery
	}
	if c.Storage.MinFileSize == 0 {
		c.Storage.MinFileSize = DefaultMinFileSize
	}
}

// Validate rejects configurations the storage layer cannot honor. The chunk
// size must be even so packed 4-bit writes never split a byte across chunks.
func (c *Config) Validate() error {
	if c.Storage.ChunkSize < 0 || c.Storage.ChunkSize%2 != 0 {
		return fmt.Errorf("storage.chunk_size %d must be a positive even number", c.Storage.ChunkSize)
	}
	if c.Security.RateLimit.RPS < 0 {
		return fmt.Errorf("security.rate_limit.rps must not be negative")
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls requires both cert_file and key_file")
	}
	return nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the CONSTANTDB_CONFIG environment variable when the flag was not
// set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CONSTANTDB_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
