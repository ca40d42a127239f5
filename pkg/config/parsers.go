package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr    string
	DataDir string
	Config  string
	Build   bool
	Set     map[string]bool
}

// EffectiveConfigResult holds the merged configuration and where its
// server/storage values came from.
type EffectiveConfigResult struct {
	Config  *Config
	Addr    string
	DataDir string
	Source  string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dataPtr := flag.String("data", DefaultDataDir, "Directory holding constant digit files")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	buildPtr := flag.Bool("build", false, "Build missing caches on startup")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DataDir: *dataPtr, Config: *cfgPtr, Build: *buildPtr, Set: setFlags}
}

// ParseConfigFile resolves the config path and loads the YAML file. It
// returns the parsed config, a boolean indicating whether the file was
// present, and an error for fatal parsing problems.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs reads CONSTANTDB_* environment variables into a fresh
// Config and reports whether any were present. This function does not mutate
// any caller provided config.
func ParseConfigEnvs() (*Config, bool) {
	envCfg := &Config{}
	envUsed := false

	if v := os.Getenv("CONSTANTDB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("CONSTANTDB_ADDRESS"); host != "" {
			envUsed = true
			envCfg.Server.Address = host
		}
		if port := os.Getenv("CONSTANTDB_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("CONSTANTDB_DATA_DIR"); v != "" {
		envUsed = true
		envCfg.Storage.DataDir = v
	}
	if v := os.Getenv("CONSTANTDB_CHUNK_SIZE"); v != "" {
		if n, err := humanize.ParseBytes(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Storage.ChunkSize = SizeBytes(n)
		}
	}
	if v := os.Getenv("CONSTANTDB_VERIFY_EVERY"); v != "" {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			envUsed = true
			envCfg.Storage.VerifyEvery = n
		}
	}
	if v := os.Getenv("CONSTANTDB_BUILD_ON_START"); v != "" {
		envUsed = true
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			envCfg.Storage.BuildOnStart = true
		default:
			envCfg.Storage.BuildOnStart = false
		}
	}

	if v := os.Getenv("CONSTANTDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CONSTANTDB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.Burst = n
		}
	}

	if v := os.Getenv("CONSTANTDB_AUDIT_CRON"); v != "" {
		envUsed = true
		envCfg.Audit.Enabled = true
		envCfg.Audit.Cron = v
	}

	if c := os.Getenv("CONSTANTDB_TLS_CERT"); c != "" {
		envUsed = true
		envCfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CONSTANTDB_TLS_KEY"); k != "" {
		envUsed = true
		envCfg.Server.TLS.KeyFile = k
	}

	return envCfg, envUsed
}

// LoadEffectiveConfig decides which single source supplies the server and
// storage roots. An explicit --config requires the file to exist and uses it;
// otherwise explicit addr/data flags win; otherwise a present config file;
// otherwise env. Env values for tunables (chunk size, verify interval, rate
// limit, audit) overlay whichever base was chosen.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envUsed bool) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	switch {
	case flags.Set["config"]:
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Source = "config"

	case flags.Set["addr"] || flags.Set["data"]:
		out := &Config{}
		if fileExists {
			*out = *fileCfg
		}
		if flags.Set["addr"] {
			out.Server.Address = flags.Addr
			out.Server.Port = parsePortFromAddr(flags.Addr)
		}
		if flags.Set["data"] {
			out.Storage.DataDir = flags.DataDir
		}
		res.Config = out
		res.Source = "flags"

	case fileExists:
		res.Config = fileCfg
		res.Source = "config"

	default:
		res.Config = envCfg
		res.Source = "env"
	}

	if envUsed && res.Source != "env" {
		overlayEnv(res.Config, envCfg)
	}
	if flags.Set["build"] {
		res.Config.Storage.BuildOnStart = flags.Build
	}

	res.Config.Normalize()
	if err := res.Config.Validate(); err != nil {
		return res, err
	}
	res.Addr = res.Config.Addr()
	res.DataDir = res.Config.Storage.DataDir
	return res, nil
}

// overlayEnv applies the non-zero env values onto dst.
func overlayEnv(dst, env *Config) {
	if env.Server.Address != "" {
		dst.Server.Address = env.Server.Address
	}
	if env.Server.Port != 0 {
		dst.Server.Port = env.Server.Port
	}
	if env.Storage.DataDir != "" {
		dst.Storage.DataDir = env.Storage.DataDir
	}
	if env.Storage.ChunkSize != 0 {
		dst.Storage.ChunkSize = env.Storage.ChunkSize
	}
	if env.Storage.VerifyEvery != 0 {
		dst.Storage.VerifyEvery = env.Storage.VerifyEvery
	}
	if env.Storage.BuildOnStart {
		dst.Storage.BuildOnStart = true
	}
	if env.Security.RateLimit.RPS != 0 {
		dst.Security.RateLimit.RPS = env.Security.RateLimit.RPS
	}
	if env.Security.RateLimit.Burst != 0 {
		dst.Security.RateLimit.Burst = env.Security.RateLimit.Burst
	}
	if env.Audit.Cron != "" {
		dst.Audit.Enabled = true
		dst.Audit.Cron = env.Audit.Cron
	}
	if env.Server.TLS.CertFile != "" {
		dst.Server.TLS.CertFile = env.Server.TLS.CertFile
	}
	if env.Server.TLS.KeyFile != "" {
		dst.Server.TLS.KeyFile = env.Server.TLS.KeyFile
	}
}

// parsePortFromAddr extracts port integer from host:port string.
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
