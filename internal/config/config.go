package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Matching MatchingConfig
	Scoring  ScoringConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string
	DataDir     string
	DatabaseURL string
}

type LogConfig struct {
	Level string
}

type MatchingConfig struct {
	Concurrency    int
	LazyFetch      bool
	LocationFilter bool
}

type ScoringConfig struct {
	WeightMBTI      float64
	WeightTraits    float64
	WeightInterests float64
	WeightLocation  float64
	WeightAge       float64
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Matching: MatchingConfig{
			Concurrency: 4,
		},
		Scoring: ScoringConfig{
			WeightMBTI:      0.25,
			WeightTraits:    0.35,
			WeightInterests: 0.20,
			WeightLocation:  0.10,
			WeightAge:       0.10,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.fuse.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/fuse/config.json
// and secrets come from the environment or $XDG_DATA_HOME/fuse/secrets.json.
//
// Environment variables (FUSE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store reads for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.DatabaseURL == "" {
		if v, err := kc.Get(keychainService, databaseURLAccount); err == nil && v != "" {
			cfg.Storage.DatabaseURL = v
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("missing required config: database URL for the postgres driver. "+
				"Set it via environment variable FUSE_DATABASE_URL%s", secretHint(databaseURLAccount))
		}
	default:
		return fmt.Errorf("invalid storage.driver %q: want %q or %q", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Matching.Concurrency <= 0 {
		return fmt.Errorf("invalid matching.concurrency %d: must be positive", c.Matching.Concurrency)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
