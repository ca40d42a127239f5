package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
storage:
  data_dir: /var/lib/constantdb
  chunk_size: "10KB"
  verify_every: 50
  min_file_size: 200
security:
  rate_limit:
    rps: 5
    burst: 20
logging:
  level: debug
audit:
  enabled: true
  cron: "0 4 * * *"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Storage.DataDir != "/var/lib/constantdb" {
		t.Fatalf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.ChunkSize.Int64() != 10000 {
		t.Fatalf("chunk size = %d, want 10000", cfg.Storage.ChunkSize.Int64())
	}
	if cfg.Storage.VerifyEvery != 50 {
		t.Fatalf("verify every = %d", cfg.Storage.VerifyEvery)
	}
	if cfg.Security.RateLimit.RPS != 5 || cfg.Security.RateLimit.Burst != 20 {
		t.Fatalf("rate limit = %+v", cfg.Security.RateLimit)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Cron != "0 4 * * *" {
		t.Fatalf("audit = %+v", cfg.Audit)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	if cfg.Storage.DataDir != DefaultDataDir {
		t.Fatalf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.ChunkSize != DefaultChunkSize {
		t.Fatalf("chunk size = %d", cfg.Storage.ChunkSize)
	}
	if cfg.Storage.VerifyEvery != DefaultVerifyEvery {
		t.Fatalf("verify every = %d", cfg.Storage.VerifyEvery)
	}
	if cfg.Storage.MinFileSize != DefaultMinFileSize {
		t.Fatalf("min file size = %d", cfg.Storage.MinFileSize)
	}
}

func TestValidateOddChunkSize(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	cfg.Storage.ChunkSize = 10001
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for odd chunk size")
	}
}

func TestValidateTLSPairing(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	cfg.Server.TLS.CertFile = "/etc/tls.crt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for cert without key")
	}
	cfg.Server.TLS.KeyFile = "/etc/tls.key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("CONSTANTDB_ADDR", "0.0.0.0:7070")
	t.Setenv("CONSTANTDB_DATA_DIR", "/srv/digits")
	t.Setenv("CONSTANTDB_CHUNK_SIZE", "20000")
	t.Setenv("CONSTANTDB_VERIFY_EVERY", "25")
	t.Setenv("CONSTANTDB_RATE_RPS", "2.5")
	t.Setenv("CONSTANTDB_AUDIT_CRON", "30 2 * * *")

	cfg, used := ParseConfigEnvs()
	if !used {
		t.Fatal("env should be detected")
	}
	if cfg.Server.Address != "0.0.0.0" || cfg.Server.Port != 7070 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Storage.DataDir != "/srv/digits" {
		t.Fatalf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.ChunkSize.Int64() != 20000 {
		t.Fatalf("chunk size = %d", cfg.Storage.ChunkSize.Int64())
	}
	if cfg.Storage.VerifyEvery != 25 {
		t.Fatalf("verify every = %d", cfg.Storage.VerifyEvery)
	}
	if cfg.Security.RateLimit.RPS != 2.5 {
		t.Fatalf("rps = %v", cfg.Security.RateLimit.RPS)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Cron != "30 2 * * *" {
		t.Fatalf("audit = %+v", cfg.Audit)
	}
}

func TestLoadEffectiveConfigPrecedence(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Port = 9000
	fileCfg.Storage.DataDir = "/from/file"

	envCfg := &Config{}
	envCfg.Storage.ChunkSize = 20000

	// config file base with env tunable overlay
	eff, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, fileCfg, true, envCfg, true)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "config" {
		t.Fatalf("source = %q", eff.Source)
	}
	if eff.DataDir != "/from/file" {
		t.Fatalf("data dir = %q", eff.DataDir)
	}
	if eff.Config.Storage.ChunkSize.Int64() != 20000 {
		t.Fatalf("env chunk size not applied: %d", eff.Config.Storage.ChunkSize.Int64())
	}

	// explicit flags win over the file
	flags := Flags{Addr: "127.0.0.1:8088", DataDir: "/from/flags", Set: map[string]bool{"addr": true, "data": true}}
	eff, err = LoadEffectiveConfig(flags, fileCfg, true, &Config{}, false)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "flags" || eff.Addr != "127.0.0.1:8088" || eff.DataDir != "/from/flags" {
		t.Fatalf("flags result = %+v", eff)
	}

	// explicit --config requires the file to exist
	if _, err := LoadEffectiveConfig(Flags{Config: "./missing.yaml", Set: map[string]bool{"config": true}}, &Config{}, false, &Config{}, false); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("./flag.yaml", true); got != "./flag.yaml" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("CONSTANTDB_CONFIG", "/env/config.yaml")
	if got := ResolveConfigPath("./flag.yaml", false); got != "/env/config.yaml" {
		t.Fatalf("got %q", got)
	}
}
