package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nickyhof/CommitView/db"
)

// Engine kinds.
const (
	EngineMemory = "memory"
	EngineDuckDB = "duckdb"
)

const envPrefix = "COMMITVIEW_"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Engine  EngineConfig `yaml:"engine"`
	Data    DataConfig   `yaml:"data"`
	S3      db.S3Config  `yaml:"s3"`
	Layouts LayoutConfig `yaml:"layouts"`
	Auth    AuthConfig   `yaml:"auth"`
	Server  ServerConfig `yaml:"server"`
	Viewer  ViewerConfig `yaml:"viewer"`
	Log     LogConfig    `yaml:"log"`
}

type EngineConfig struct {
	Kind string `yaml:"kind"`
	DSN  string `yaml:"dsn"` // DuckDB database path, empty for in-memory
}

// DataConfig names a dataset loaded at startup.
type DataConfig struct {
	Path  string `yaml:"path"`
	Index string `yaml:"index"`
}

type LayoutConfig struct {
	// Dir holds the layout repository. Empty keeps layouts in memory.
	Dir    string `yaml:"dir"`
	GitURL string `yaml:"git_url"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	TLSCert     string `yaml:"tls_cert"`
	TLSKey      string `yaml:"tls_key"`
}

type ViewerConfig struct {
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{Kind: EngineMemory},
		Server: ServerConfig{Addr: ":3306"},
		Viewer: ViewerConfig{ThrottleInterval: 10 * time.Millisecond},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from COMMITVIEW_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENGINE_KIND":         &c.Engine.Kind,
		"ENGINE_DSN":          &c.Engine.DSN,
		"DATA_PATH":           &c.Data.Path,
		"DATA_INDEX":          &c.Data.Index,
		"S3_ACCESS_KEY":       &c.S3.AccessKey,
		"S3_SECRET_KEY":       &c.S3.SecretKey,
		"S3_REGION":           &c.S3.Region,
		"S3_ENDPOINT":         &c.S3.Endpoint,
		"LAYOUTS_DIR":         &c.Layouts.Dir,
		"LAYOUTS_GIT_URL":     &c.Layouts.GitURL,
		"AUTH_SECRET":         &c.Auth.Secret,
		"AUTH_ISSUER":         &c.Auth.Issuer,
		"AUTH_AUDIENCE":       &c.Auth.Audience,
		"SERVER_ADDR":         &c.Server.Addr,
		"SERVER_METRICS_ADDR": &c.Server.MetricsAddr,
		"SERVER_TLS_CERT":     &c.Server.TLSCert,
		"SERVER_TLS_KEY":      &c.Server.TLSKey,
		"LOG_LEVEL":           &c.Log.Level,
	}
	for key, field := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*field = v
		}
	}

	bools := map[string]*bool{
		"AUTH_ENABLED":    &c.Auth.Enabled,
		"LOG_DEVELOPMENT": &c.Log.Development,
	}
	for key, field := range bools {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, envPrefix, key, err)
			}
			*field = b
		}
	}

	if v, ok := lookup(envPrefix + "VIEWER_THROTTLE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sVIEWER_THROTTLE_INTERVAL: %v", ErrInvalid, envPrefix, err)
		}
		c.Viewer.ThrottleInterval = d
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Engine.Kind) {
	case EngineMemory, EngineDuckDB:
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalid, c.Engine.Kind)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("%w: auth enabled without a secret", ErrInvalid)
	}
	if c.Layouts.GitURL != "" && c.Layouts.Dir == "" {
		return fmt.Errorf("%w: layouts.git_url needs layouts.dir", ErrInvalid)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("%w: server.tls_cert and server.tls_key must be set together", ErrInvalid)
	}
	if c.Viewer.ThrottleInterval < 0 {
		return fmt.Errorf("%w: negative throttle interval", ErrInvalid)
	}
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
