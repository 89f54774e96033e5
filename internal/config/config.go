package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Mongo      MongoConfig      `yaml:"mongo"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Vision     VisionConfig     `yaml:"vision"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	// Required marks the durable store as mandatory for this deployment.
	// When false the service starts (and stays ready) without it.
	Required bool `yaml:"required"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

type VisionConfig struct {
	// DetectorURL points at the external landmark-extraction service.
	DetectorURL string        `yaml:"detector_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EnrichmentConfig struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	// Native selects the first-choice client; the raw HTTP endpoint is only
	// tried when the native client is not configured at all.
	Native bool `yaml:"native"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error: the service can run entirely from env vars.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "neurovision"
	}
	if cfg.Vision.Timeout == 0 {
		cfg.Vision.Timeout = 10 * time.Second
	}
	if cfg.Enrichment.Model == "" {
		cfg.Enrichment.Model = "gemini-1.5-flash"
	}
	if cfg.Enrichment.Timeout == 0 {
		cfg.Enrichment.Timeout = 15 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NV_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NV_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("NV_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("NV_MONGO_DB"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("NV_MONGO_REQUIRED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Mongo.Required = b
		}
	}
	if v := os.Getenv("NV_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("NV_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("NV_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("NV_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("NV_DETECTOR_URL"); v != "" {
		cfg.Vision.DetectorURL = v
	}
	if v := os.Getenv("NV_ENRICHMENT_API_KEY"); v != "" {
		cfg.Enrichment.APIKey = v
	}
	if v := os.Getenv("NV_ENRICHMENT_ENDPOINT"); v != "" {
		cfg.Enrichment.Endpoint = v
	}
	if v := os.Getenv("NV_ENRICHMENT_MODEL"); v != "" {
		cfg.Enrichment.Model = v
	}
	if v := os.Getenv("NV_ENRICHMENT_NATIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enrichment.Native = b
		}
	}
	if v := os.Getenv("NV_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NV_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
