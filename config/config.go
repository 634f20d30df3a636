// Package config resolves the writer's external paths and tunables from,
// in increasing priority: built-in defaults, an optional TOML file, an
// optional .env file, and the process environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every externally configurable value this writer needs to
// find its shared-memory file, its symbol registry, and its upstream feed.
type Config struct {
	ShmPath       string `toml:"shm_path"`
	RegistryPath  string `toml:"registry_path"`
	SubscribePath string `toml:"subscribe_path"`
	SourceID      int64  `toml:"source_id"`
	StreamBaseURL string `toml:"stream_base_url"`

	// CPUCore is always resolved from the process environment variable
	// CPU_CORE, never from the TOML file.
	CPUCore int
}

func defaults() Config {
	return Config{
		ShmPath:       "/dev/shm/quotes_v1.dat",
		RegistryPath:  "/etc/quote-writer/symbols.tsv",
		SubscribePath: "/etc/quote-writer/subscribe.txt",
		SourceID:      1,
		StreamBaseURL: "wss://fstream.binance.com/stream",
	}
}

// Load resolves the Config as described in the package doc comment.
func Load() (*Config, error) {
	cfg := defaults()

	_ = godotenv.Load() // best-effort; absence is not an error

	tomlPath := os.Getenv("QUOTE_WRITER_CONFIG")
	if tomlPath == "" {
		tomlPath = "/etc/quote-writer/config.toml"
	}
	if b, err := os.ReadFile(tomlPath); err == nil {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("QUOTE_WRITER_SHM_PATH"); v != "" {
		cfg.ShmPath = v
	}
	if v := os.Getenv("QUOTE_WRITER_REGISTRY_PATH"); v != "" {
		cfg.RegistryPath = v
	}
	if v := os.Getenv("QUOTE_WRITER_SUBSCRIBE_PATH"); v != "" {
		cfg.SubscribePath = v
	}
	if v := os.Getenv("QUOTE_WRITER_SOURCE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.SourceID = id
		}
	}
	if v := os.Getenv("QUOTE_WRITER_STREAM_BASE_URL"); v != "" {
		cfg.StreamBaseURL = v
	}

	cfg.CPUCore = 0
	if v := os.Getenv("CPU_CORE"); v != "" {
		core, err := strconv.Atoi(v)
		if err != nil || core < 0 {
			return nil, errInvalidCPUCore(v)
		}
		cfg.CPUCore = core
	}

	return &cfg, nil
}

type cpuCoreError string

func (e cpuCoreError) Error() string { return "config: invalid CPU_CORE value " + string(e) }

func errInvalidCPUCore(v string) error { return cpuCoreError(v) }
