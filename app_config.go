package nebula

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings an Application is built from. It can be loaded from a YAML
// file and is then overridden by NEBULA_* environment variables.
type Config struct {
	Host             string `yaml:"host"`
	Port             string `yaml:"port"`
	StaticDir        string `yaml:"static_dir"`
	StaticMount      string `yaml:"static_mount"`
	TemplatesDir     string `yaml:"templates_dir"`
	Debug            bool   `yaml:"debug"`
	SilentMode       bool   `yaml:"silent"`
	WorkerCount      int32  `yaml:"workers"`
	LogRequestsLevel int    `yaml:"log_requests"`
	LogFile          string `yaml:"log_file"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`
}

// DefaultMaxBodyBytes bounds a POST body when nothing else is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Host:         "",
		Port:         "8080",
		StaticMount:  DefaultStaticMount,
		TemplatesDir: DefaultTemplatesDir,
		WorkerCount:  10,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// LoadConfig reads path (if non-empty) over DefaultConfig, then applies the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	if err := cfg.ApplyEnvironment(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnvironment overrides fields with any NEBULA_* variables that are set.
func (cfg *Config) ApplyEnvironment() error {
	if v := os.Getenv("NEBULA_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("NEBULA_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("NEBULA_STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("NEBULA_STATIC_MOUNT"); v != "" {
		cfg.StaticMount = v
	}
	if v := os.Getenv("NEBULA_TEMPLATES_DIR"); v != "" {
		cfg.TemplatesDir = v
	}
	if v := os.Getenv("NEBULA_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "NEBULA_DEBUG")
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("NEBULA_WORKERS"); v != "" {
		workers, err := strconv.ParseInt(v, 10, 32)
		if err != nil || workers < 1 {
			return errors.Errorf("NEBULA_WORKERS: invalid worker count %q", v)
		}
		cfg.WorkerCount = int32(workers)
	}
	if v := os.Getenv("NEBULA_MAX_BODY_BYTES"); v != "" {
		max, err := strconv.ParseInt(v, 10, 64)
		if err != nil || max < 1 {
			return errors.Errorf("NEBULA_MAX_BODY_BYTES: invalid size %q", v)
		}
		cfg.MaxBodyBytes = max
	}
	if v := os.Getenv("NEBULA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("NEBULA_LOG_REQUESTS"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "NEBULA_LOG_REQUESTS")
		}
		cfg.LogRequestsLevel = level
	}
	return nil
}
