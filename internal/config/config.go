package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	// Database is the remote, identity-scoped session store. Driver may be
	// "postgres", "mysql" or "" (remote store disabled, local cache only).
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	// LocalCache is the durable fallback store.
	LocalCache struct {
		Path string `yaml:"path"`
	} `yaml:"localCache"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	// Auth maps owner identities to API keys.
	Auth struct {
		Keys map[string]string `yaml:"keys"` // owner -> api key
	} `yaml:"auth"`

	// Providers: single-attempt by design; the timeout and attempt count are
	// named here so the policy is explicit rather than buried in transports.
	Providers struct {
		RequestTimeoutSec int               `yaml:"requestTimeoutSeconds"`
		MaxAttempts       int               `yaml:"maxAttempts"`
		Keys              map[string]string `yaml:"keys"` // provider id -> api key
	} `yaml:"providers"`

	// Relay allow-list: origins (scheme://host) provider calls may be
	// forwarded to.
	Relay struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"relay"`

	Startup struct {
		RestoreTimeoutSec int    `yaml:"restoreTimeoutSeconds"`
		SettingsPath      string `yaml:"settingsPath"`
	} `yaml:"startup"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Providers.RequestTimeoutSec == 0 {
		c.Providers.RequestTimeoutSec = 60
	}
	if c.Providers.MaxAttempts == 0 {
		c.Providers.MaxAttempts = 1
	}
	if c.Startup.RestoreTimeoutSec == 0 {
		c.Startup.RestoreTimeoutSec = 4
	}
	if c.LocalCache.Path == "" {
		c.LocalCache.Path = "paperlens.db"
	}
	if c.Startup.SettingsPath == "" {
		c.Startup.SettingsPath = "settings.json"
	}
}

// RequestTimeout returns the per-call provider timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Providers.RequestTimeoutSec) * time.Second
}

// RestoreTimeout bounds the startup history restore.
func (c *Config) RestoreTimeout() time.Duration {
	return time.Duration(c.Startup.RestoreTimeoutSec) * time.Second
}

// RemoteConfigured reports whether a remote session store is set up.
func (c *Config) RemoteConfigured() bool {
	return c.Database.Driver != ""
}

// MySQLDSN helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
