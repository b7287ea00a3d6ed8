package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Questions   QuestionsConfig   `yaml:"questions"`
	Companion   CompanionConfig   `yaml:"companion"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RecognitionConfig points at the external recognition function. The
// matcher itself is opaque; we only own the call.
type RecognitionConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type QuestionsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CompanionConfig struct {
	StatePath         string        `yaml:"state_path"`
	PhraseInterval    time.Duration `yaml:"phrase_interval"`
	SlideshowInterval time.Duration `yaml:"slideshow_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Recognition.Timeout == 0 {
		cfg.Recognition.Timeout = 30 * time.Second
	}
	if cfg.Questions.Timeout == 0 {
		cfg.Questions.Timeout = 20 * time.Second
	}
	if cfg.Companion.StatePath == "" {
		cfg.Companion.StatePath = "memora-state.db"
	}
	if cfg.Companion.PhraseInterval == 0 {
		cfg.Companion.PhraseInterval = 2 * time.Second
	}
	if cfg.Companion.SlideshowInterval == 0 {
		cfg.Companion.SlideshowInterval = 5 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEMORA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MEMORA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("MEMORA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("MEMORA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("MEMORA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("MEMORA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MEMORA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("MEMORA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("MEMORA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("MEMORA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("MEMORA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("MEMORA_RECOGNITION_URL"); v != "" {
		cfg.Recognition.BaseURL = v
	}
	if v := os.Getenv("MEMORA_RECOGNITION_API_KEY"); v != "" {
		cfg.Recognition.APIKey = v
	}
	if v := os.Getenv("MEMORA_QUESTIONS_URL"); v != "" {
		cfg.Questions.BaseURL = v
	}
	if v := os.Getenv("MEMORA_STATE_PATH"); v != "" {
		cfg.Companion.StatePath = v
	}
}
