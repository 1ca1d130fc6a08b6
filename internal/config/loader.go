package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mattn/go-shellwords"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sttd/internal/common/fsutil"
	"sttd/internal/supervisor"
)

// Config holds runtime parameters for the service.
type Config struct {
	DataDir    string           `json:"data_dir" yaml:"data_dir" toml:"data_dir" validate:"required"`
	Server     ServerConfig     `json:"server" yaml:"server" toml:"server"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
	Runtime    RuntimeConfig    `json:"runtime" yaml:"runtime" toml:"runtime"`
	Health     HealthConfig     `json:"health" yaml:"health" toml:"health"`
	Transcribe TranscribeConfig `json:"transcribe" yaml:"transcribe" toml:"transcribe"`
}

type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=json console"`
}

// RuntimeConfig mirrors supervisor.RuntimeConfig in file form.
type RuntimeConfig struct {
	Host        string   `json:"host" yaml:"host" toml:"host" validate:"required"`
	Port        int      `json:"port" yaml:"port" toml:"port" validate:"min=1,max=65535"`
	Model       string   `json:"model" yaml:"model" toml:"model" validate:"required"`
	Device      string   `json:"device" yaml:"device" toml:"device" validate:"required"`
	ComputeType string   `json:"compute_type" yaml:"compute_type" toml:"compute_type" validate:"required"`
	Version     string   `json:"version" yaml:"version" toml:"version" validate:"required"`
	URL         string   `json:"url" yaml:"url" toml:"url" validate:"omitempty,url"`
	Executable  string   `json:"executable" yaml:"executable" toml:"executable" validate:"required"`
	Args        []string `json:"args" yaml:"args" toml:"args"`
}

// HealthConfig bounds the readiness sweep. Zero keeps the built-in value.
type HealthConfig struct {
	TimeoutMS      int `json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms" validate:"gte=0"`
	IntervalMS     int `json:"interval_ms" yaml:"interval_ms" toml:"interval_ms" validate:"gte=0"`
	ProbeTimeoutMS int `json:"probe_timeout_ms" yaml:"probe_timeout_ms" toml:"probe_timeout_ms" validate:"gte=0"`
}

type TranscribeConfig struct {
	URL       string `json:"url" yaml:"url" toml:"url" validate:"omitempty,url"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	Language  string `json:"language" yaml:"language" toml:"language"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	rt := supervisor.DefaultRuntimeConfig()
	dataDir, err := fsutil.AppDataDir()
	if err != nil {
		dataDir = "." + fsutil.AppName
	}
	return Config{
		DataDir: dataDir,
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Runtime: RuntimeConfig{
			Host:        rt.Host,
			Port:        rt.Port,
			Model:       rt.Model,
			Device:      rt.Device,
			ComputeType: rt.ComputeType,
			Version:     rt.Version,
			URL:         rt.URL,
			Executable:  rt.Executable,
			Args:        rt.Args.Strings(),
		},
	}
}

// Load reads a configuration file based on its extension, on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if !fsutil.PathExists(path) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from STTD_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("STTD_DATA_DIR", &c.DataDir)
	str("STTD_ADDR", &c.Server.Addr)
	str("STTD_LOG_LEVEL", &c.Log.Level)
	str("STTD_LOG_FORMAT", &c.Log.Format)
	str("STTD_HOST", &c.Runtime.Host)
	str("STTD_DEVICE", &c.Runtime.Device)
	str("STTD_COMPUTE_TYPE", &c.Runtime.ComputeType)
	str("STTD_RUNTIME_VERSION", &c.Runtime.Version)
	// Set but empty disables the built-in download location.
	if v, ok := lookup("STTD_RUNTIME_URL"); ok {
		c.Runtime.URL = strings.TrimSpace(v)
	}
	str("STTD_RUNTIME_EXE", &c.Runtime.Executable)
	str("STTD_URL", &c.Transcribe.URL)
	str("STTD_LANGUAGE", &c.Transcribe.Language)

	// One model name feeds both the runtime and the per-request field unless
	// the request model is set on its own.
	if v, ok := lookup("STTD_MODEL"); ok && v != "" {
		c.Runtime.Model = v
		c.Transcribe.Model = v
	}
	str("STTD_TRANSCRIBE_MODEL", &c.Transcribe.Model)

	if v, ok := lookup("STTD_PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STTD_PORT: %w", err)
		}
		c.Runtime.Port = n
	}
	if v, ok := lookup("STTD_RUNTIME_ARGS"); ok && v != "" {
		args, err := shellwords.Parse(v)
		if err != nil {
			return fmt.Errorf("STTD_RUNTIME_ARGS: %w", err)
		}
		c.Runtime.Args = args
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the launch argument template.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := supervisor.ParseArgTemplate(c.Runtime.Args); err != nil {
		return fmt.Errorf("invalid config: runtime.args: %w", err)
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the config file
// (if any), then the .env file, then the environment. The result is
// validated and data_dir is home-expanded.
func Resolve(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if err := LoadDotEnv(envFile); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	dir, err := fsutil.ExpandHome(cfg.DataDir)
	if err != nil {
		return cfg, err
	}
	cfg.DataDir = dir
	return cfg, cfg.Validate()
}

// SupervisorRuntime converts the runtime section. Validate must have passed.
func (c Config) SupervisorRuntime() supervisor.RuntimeConfig {
	args, err := supervisor.ParseArgTemplate(c.Runtime.Args)
	if err != nil || len(c.Runtime.Args) == 0 {
		args = nil
	}
	return supervisor.RuntimeConfig{
		Host:        c.Runtime.Host,
		Port:        c.Runtime.Port,
		Model:       c.Runtime.Model,
		Device:      c.Runtime.Device,
		ComputeType: c.Runtime.ComputeType,
		Version:     c.Runtime.Version,
		URL:         c.Runtime.URL,
		Executable:  c.Runtime.Executable,
		Args:        args,
	}
}

// Millis converts a millisecond setting; zero stays zero so callers keep
// their own default.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
