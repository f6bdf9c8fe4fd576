package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultAddr matches the port hosted scanners probe by default.
const DefaultAddr = "0.0.0.0:8551"

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by defaults in main or the
// packages that consume them.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// One of the following declares the services. Services wins, then
	// ModelsDir (one service per bundle), then ModelPath / HostedModelURL
	// (a single service at /predict).
	Services       []ServiceConfig `json:"services" yaml:"services" toml:"services"`
	ModelsDir      string          `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ModelPath      string          `json:"model_path" yaml:"model_path" toml:"model_path"`
	MetadataPath   string          `json:"metadata_path" yaml:"metadata_path" toml:"metadata_path"`
	HostedModelURL string          `json:"hosted_model_url" yaml:"hosted_model_url" toml:"hosted_model_url"`
	// Sent as a bearer token to the hosted model.
	HostedModelToken string `json:"hosted_model_auth_header_token" yaml:"hosted_model_auth_header_token" toml:"hosted_model_auth_header_token"`

	Workers          int    `json:"workers" yaml:"workers" toml:"workers"`
	MaxQueueDepth    int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS        int    `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	DrainTimeoutMS   int    `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	PredictTimeoutMS int    `json:"predict_timeout_ms" yaml:"predict_timeout_ms" toml:"predict_timeout_ms"`
	MaxBodyBytes     int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Watch            bool   `json:"watch" yaml:"watch" toml:"watch"`
	CacheDir         string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	JournalPath      string `json:"journal_path" yaml:"journal_path" toml:"journal_path"`

	CORS CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
	Log  LogConfig  `json:"log" yaml:"log" toml:"log"`
}

// CORSConfig mirrors httpapi.SetCORSOptions.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// LogConfig configures the process logger and per-request logging.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
	// Requests is the default per-request log level (off|error|info|debug).
	Requests string `json:"requests" yaml:"requests" toml:"requests"`
}

// ServiceConfig declares one prediction service.
type ServiceConfig struct {
	ID            string      `json:"id" yaml:"id" toml:"id"`
	Name          string      `json:"name" yaml:"name" toml:"name"`
	Endpoint      string      `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Kind          string      `json:"kind" yaml:"kind" toml:"kind"`
	Source        string      `json:"source" yaml:"source" toml:"source"`
	MetadataPath  string      `json:"metadata_path" yaml:"metadata_path" toml:"metadata_path"`
	Workers       int         `json:"workers" yaml:"workers" toml:"workers"`
	MaxQueueDepth int         `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	Proxy         ProxyConfig `json:"proxy" yaml:"proxy" toml:"proxy"`
}

// ProxyConfig tunes a hosted-model service.
type ProxyConfig struct {
	URL             string            `json:"url" yaml:"url" toml:"url"`
	Headers         map[string]string `json:"headers" yaml:"headers" toml:"headers"`
	AuthToken       string            `json:"auth_token" yaml:"auth_token" toml:"auth_token"`
	Schema          string            `json:"schema" yaml:"schema" toml:"schema"`
	Retries         int               `json:"retries" yaml:"retries" toml:"retries"`
	BackoffFactor   float64           `json:"backoff_factor" yaml:"backoff_factor" toml:"backoff_factor"`
	StatusForcelist []int             `json:"status_forcelist" yaml:"status_forcelist" toml:"status_forcelist"`
	TimeoutMS       int               `json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
	CacheSize       int               `json:"cache_size" yaml:"cache_size" toml:"cache_size"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// envOverlay lists the variables read by ApplyEnv. The unprefixed names are
// the ones container images built by predictctl set.
type envOverlay struct {
	Addr             string `envconfig:"PREDICTD_ADDR"`
	ModelsDir        string `envconfig:"PREDICTD_MODELS_DIR"`
	ModelPath        string `envconfig:"MODEL_PATH"`
	MetadataPath     string `envconfig:"METADATA_PATH"`
	HostedModelURL   string `envconfig:"HOSTED_MODEL_URL"`
	HostedModelToken string `envconfig:"HOSTED_MODEL_AUTH_HEADER_TOKEN"`
	Workers          *int   `envconfig:"PREDICTD_WORKERS"`
	MaxQueueDepth    *int   `envconfig:"PREDICTD_MAX_QUEUE_DEPTH"`
	MaxWaitMS        *int   `envconfig:"PREDICTD_MAX_WAIT_MS"`
	PredictTimeoutMS *int   `envconfig:"PREDICTD_PREDICT_TIMEOUT_MS"`
	Watch            *bool  `envconfig:"PREDICTD_WATCH"`
	CacheDir         string `envconfig:"PREDICTD_CACHE_DIR"`
	JournalPath      string `envconfig:"PREDICTD_JOURNAL"`
	LogLevel         string `envconfig:"PREDICTD_LOG_LEVEL"`
	LogFormat        string `envconfig:"PREDICTD_LOG_FORMAT"`
	LogFile          string `envconfig:"PREDICTD_LOG_FILE"`
	RequestLog       string `envconfig:"PREDICTD_REQUEST_LOG"`
}

// ApplyEnv overlays environment variables on cfg. Unset or empty variables
// leave cfg unchanged.
func ApplyEnv(cfg *Config) error {
	var e envOverlay
	if err := envconfig.Process("", &e); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Addr, e.Addr)
	setStr(&cfg.ModelsDir, e.ModelsDir)
	setStr(&cfg.ModelPath, e.ModelPath)
	setStr(&cfg.MetadataPath, e.MetadataPath)
	setStr(&cfg.HostedModelURL, e.HostedModelURL)
	setStr(&cfg.HostedModelToken, e.HostedModelToken)
	setStr(&cfg.CacheDir, e.CacheDir)
	setStr(&cfg.JournalPath, e.JournalPath)
	setStr(&cfg.Log.Level, e.LogLevel)
	setStr(&cfg.Log.Format, e.LogFormat)
	setStr(&cfg.Log.File, e.LogFile)
	setStr(&cfg.Log.Requests, e.RequestLog)
	if e.Workers != nil {
		cfg.Workers = *e.Workers
	}
	if e.MaxQueueDepth != nil {
		cfg.MaxQueueDepth = *e.MaxQueueDepth
	}
	if e.MaxWaitMS != nil {
		cfg.MaxWaitMS = *e.MaxWaitMS
	}
	if e.PredictTimeoutMS != nil {
		cfg.PredictTimeoutMS = *e.PredictTimeoutMS
	}
	if e.Watch != nil {
		cfg.Watch = *e.Watch
	}
	return nil
}
