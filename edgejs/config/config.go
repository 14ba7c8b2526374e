// Package config decodes the store-selection options spec.md §6 names
// (data_store, cache_store, cache_store_notifier, fs_store, acme_store)
// plus the Runtime's soft/hard heap limits and idle-eviction thresholds,
// using the same env-tag/YAML/dotenv stack as the teacher's pkg/config
// (envdecode + godotenv + yaml.v3), extended with the new store-variant
// structs this spec needs that the teacher's ServerConfig/DatabaseConfig
// groups don't cover.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SqliteConfig backs a data_store or cache_store "Sqlite" variant.
type SqliteConfig struct {
	Filename string `yaml:"filename" env:"FILENAME"`
}

// PostgresConfig backs a data_store "Postgres" variant.
type PostgresConfig struct {
	URL           string `yaml:"url" env:"URL"`
	Database      string `yaml:"database,omitempty" env:"DATABASE"`
	TLSCACrt      string `yaml:"tls_ca_crt,omitempty" env:"TLS_CA_CRT"`
	TLSClientCrt  string `yaml:"tls_client_crt,omitempty" env:"TLS_CLIENT_CRT"`
	TLSClientKey  string `yaml:"tls_client_key,omitempty" env:"TLS_CLIENT_KEY"`
}

// RedisConfig backs a cache_store/fs_store/acme_store "Redis" variant.
type RedisConfig struct {
	URL       string `yaml:"url" env:"URL"`
	Namespace string `yaml:"namespace,omitempty" env:"NAMESPACE"`
}

// RedisNotifierConfig backs cache_store_notifier's "Redis" variant, which
// splits reader/writer endpoints (pub/sub fan-out topology).
type RedisNotifierConfig struct {
	ReaderURL string `yaml:"reader_url" env:"READER_URL"`
	WriterURL string `yaml:"writer_url" env:"WRITER_URL"`
}

// DataStoreConfig selects Sqlite xor Postgres for data_store.
type DataStoreConfig struct {
	Sqlite   *SqliteConfig   `yaml:"sqlite,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// CacheStoreConfig selects Sqlite xor Redis for cache_store.
type CacheStoreConfig struct {
	Sqlite *SqliteConfig `yaml:"sqlite,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
}

// FSStoreConfig selects Redis xor local disk for fs_store.
type FSStoreConfig struct {
	Redis *RedisConfig `yaml:"redis,omitempty"`
	Disk  bool         `yaml:"disk,omitempty"`
}

// RuntimeConfig controls per-isolate limits and the Selector's idle policy.
type RuntimeConfig struct {
	SoftHeapLimitBytes uint64        `yaml:"soft_heap_limit_bytes" env:"RUNTIME_SOFT_HEAP_LIMIT_BYTES"`
	HardHeapLimitBytes uint64        `yaml:"hard_heap_limit_bytes" env:"RUNTIME_HARD_HEAP_LIMIT_BYTES"`
	IdleCheckInterval  time.Duration `yaml:"idle_check_interval" env:"RUNTIME_IDLE_CHECK_INTERVAL"`
	IdleThreshold      time.Duration `yaml:"idle_threshold" env:"RUNTIME_IDLE_THRESHOLD"`
}

// Config is the top-level document this package decodes, carrying the
// store groups of spec.md §6's "Configuration options recognized by the
// core".
type Config struct {
	Runtime             RuntimeConfig        `yaml:"runtime"`
	DataStore            DataStoreConfig      `yaml:"data_store"`
	CacheStore           CacheStoreConfig     `yaml:"cache_store"`
	CacheStoreNotifier   *RedisNotifierConfig `yaml:"cache_store_notifier,omitempty"`
	FSStore              FSStoreConfig        `yaml:"fs_store"`
	AcmeStore            *RedisConfig         `yaml:"acme_store,omitempty"`
}

// Default mirrors the reference cadences from spec.md §4.G (15s idle-check
// tick, 5-minute idle threshold) and a conservative isolate heap ceiling.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			SoftHeapLimitBytes: 64 << 20,
			HardHeapLimitBytes: 128 << 20,
			IdleCheckInterval:  15 * time.Second,
			IdleThreshold:      5 * time.Minute,
		},
		FSStore: FSStoreConfig{Disk: true},
	}
}

// Load reads dotenvPath (if non-empty) into the process environment, then
// decodes a YAML document at yamlPath over the Default(), then layers
// env-tagged overrides of the Runtime group on top — the same three-stage
// precedence the teacher's config loader uses (file defaults, then YAML,
// then env). The store groups' env tags are not read; those groups come
// from Default() and YAML only.
func Load(yamlPath, dotenvPath string) (Config, error) {
	cfg := Default()

	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: load dotenv %s: %w", dotenvPath, err)
		}
	}

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	if err := envdecode.Decode(&cfg.Runtime); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return cfg, fmt.Errorf("config: decode env overrides: %w", err)
	}

	return cfg, nil
}
