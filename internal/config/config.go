package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport modes for the MCP surface.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Stage      StageConfig      `yaml:"stage"`
	Sync       SyncConfig       `yaml:"sync"`
	Generation GenerationConfig `yaml:"generation"`
	Remote     RemoteConfig     `yaml:"remote"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// StageConfig holds the autosave delay and the completion thresholds.
type StageConfig struct {
	Debounce              time.Duration `yaml:"debounce"`
	MinFoundationChars    int           `yaml:"min_foundation_chars"`
	MinFoundationWords    int           `yaml:"min_foundation_words"`
	MinPhases             int           `yaml:"min_phases"`
	MinActivitiesPerPhase int           `yaml:"min_activities_per_phase"`
	MinMilestones         int           `yaml:"min_milestones"`
	MinArtifacts          int           `yaml:"min_artifacts"`
	MinCriteria           int           `yaml:"min_criteria"`
}

// SyncConfig configures delivery to the remote store. Sync stays off without a remote URL.
type SyncConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RemoteURL       string        `yaml:"remote_url"`
	Token           string        `yaml:"token"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	StartOnline     bool          `yaml:"start_online"`
}

// GenerationConfig configures the content generator. An empty endpoint means templates only.
type GenerationConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Rate     float64       `yaml:"rate"`
	Burst    int           `yaml:"burst"`
}

// RemoteConfig configures the reference remote store server.
type RemoteConfig struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	DBPath  string   `yaml:"db_path"`
	APIKeys []APIKey `yaml:"api_keys"`
}

// APIKey seeds a bearer token for an owner at remote store startup.
type APIKey struct {
	Owner string `yaml:"owner"`
	Token string `yaml:"token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
		},
		DB: DBConfig{
			Path: "alf.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Stage: StageConfig{
			Debounce:              600 * time.Millisecond,
			MinFoundationChars:    12,
			MinFoundationWords:    3,
			MinPhases:             3,
			MinActivitiesPerPhase: 1,
			MinMilestones:         3,
			MinArtifacts:          1,
			MinCriteria:           3,
		},
		Sync: SyncConfig{
			Enabled:         true,
			Timeout:         10 * time.Second,
			MaxAttempts:     5,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
			StartOnline:     true,
		},
		Generation: GenerationConfig{
			Timeout: 20 * time.Second,
			Rate:    2,
			Burst:   4,
		},
		Remote: RemoteConfig{
			Host:   "0.0.0.0",
			Port:   8090,
			DBPath: "alf-remote.db",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("ALF_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SyncActive reports whether a remote store is configured for delivery.
func (c Config) SyncActive() bool {
	return c.Sync.Enabled && strings.TrimSpace(c.Sync.RemoteURL) != ""
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Transport.Mode != TransportStdio && c.Transport.Mode != TransportHTTP {
		errs = append(errs, fmt.Errorf("unknown transport mode %q", c.Transport.Mode))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid remote port %d", c.Remote.Port))
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.Stage.Debounce <= 0 {
		errs = append(errs, errors.New("stage debounce must be positive"))
	}
	thresholds := []struct {
		name  string
		value int
	}{
		{"min_foundation_chars", c.Stage.MinFoundationChars},
		{"min_foundation_words", c.Stage.MinFoundationWords},
		{"min_phases", c.Stage.MinPhases},
		{"min_activities_per_phase", c.Stage.MinActivitiesPerPhase},
		{"min_milestones", c.Stage.MinMilestones},
		{"min_artifacts", c.Stage.MinArtifacts},
		{"min_criteria", c.Stage.MinCriteria},
	}
	for _, th := range thresholds {
		if th.value <= 0 {
			errs = append(errs, fmt.Errorf("stage %s must be positive", th.name))
		}
	}
	if c.Sync.MaxAttempts <= 0 {
		errs = append(errs, errors.New("sync max_attempts must be positive"))
	}
	if c.Sync.InitialInterval <= 0 || c.Sync.MaxInterval < c.Sync.InitialInterval {
		errs = append(errs, errors.New("sync backoff intervals must be positive and ordered"))
	}
	if c.Generation.Rate < 0 || c.Generation.Burst < 0 {
		errs = append(errs, errors.New("generation rate and burst must not be negative"))
	}
	for i, key := range c.Remote.APIKeys {
		if strings.TrimSpace(key.Owner) == "" || strings.TrimSpace(key.Token) == "" {
			errs = append(errs, fmt.Errorf("remote api_keys[%d] needs owner and token", i))
		}
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("ALF_SERVER_HOST", &cfg.Server.Host)
	num("ALF_SERVER_PORT", &cfg.Server.Port)
	str("ALF_TRANSPORT", &cfg.Transport.Mode)
	str("ALF_DB_PATH", &cfg.DB.Path)
	str("ALF_LOG_LEVEL", &cfg.Log.Level)
	str("ALF_LOG_PATH", &cfg.Log.Path)

	duration("ALF_STAGE_DEBOUNCE", &cfg.Stage.Debounce)

	flag("ALF_SYNC_ENABLED", &cfg.Sync.Enabled)
	str("ALF_SYNC_REMOTE_URL", &cfg.Sync.RemoteURL)
	str("ALF_SYNC_TOKEN", &cfg.Sync.Token)
	duration("ALF_SYNC_TIMEOUT", &cfg.Sync.Timeout)
	num("ALF_SYNC_MAX_ATTEMPTS", &cfg.Sync.MaxAttempts)
	duration("ALF_SYNC_INITIAL_INTERVAL", &cfg.Sync.InitialInterval)
	duration("ALF_SYNC_MAX_INTERVAL", &cfg.Sync.MaxInterval)
	flag("ALF_SYNC_START_ONLINE", &cfg.Sync.StartOnline)

	str("ALF_GENERATION_ENDPOINT", &cfg.Generation.Endpoint)
	str("ALF_GENERATION_TOKEN", &cfg.Generation.Token)
	duration("ALF_GENERATION_TIMEOUT", &cfg.Generation.Timeout)
	float("ALF_GENERATION_RATE", &cfg.Generation.Rate)
	num("ALF_GENERATION_BURST", &cfg.Generation.Burst)

	str("ALF_REMOTE_HOST", &cfg.Remote.Host)
	num("ALF_REMOTE_PORT", &cfg.Remote.Port)
	str("ALF_REMOTE_DB_PATH", &cfg.Remote.DBPath)
	if v := os.Getenv("ALF_REMOTE_API_KEYS"); v != "" {
		keys, err := parseAPIKeys(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Remote.APIKeys = keys
		}
	}

	return errors.Join(errs...)
}

// parseAPIKeys reads "owner:token,owner:token".
func parseAPIKeys(v string) ([]APIKey, error) {
	var keys []APIKey
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		owner, token, ok := strings.Cut(pair, ":")
		if !ok || owner == "" || token == "" {
			return nil, fmt.Errorf("invalid ALF_REMOTE_API_KEYS entry %q", pair)
		}
		keys = append(keys, APIKey{Owner: owner, Token: token})
	}
	return keys, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
